package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-login",
	Short: "Face matching and authentication decision engine",
	Long: `Face Login runs a biometric authentication service: users enroll face
images into a per-user gallery, and probe images are matched against the
whole gallery to produce an accept/reject decision with a confidence score.
Every authentication attempt is recorded in an append-only audit log.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
