package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/recognition"
	"github.com/spf13/cobra"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate [image-path]",
	Short: "Authenticate a probe image against the gallery",
	Long: `Matches a probe image against all enrolled faces and prints the
decision. Every attempt is recorded in the audit log, including probes
rejected by the quality gate.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)
}

func runAuthenticate(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	cleanup, err := setupBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	users, closeDirectory, err := connectDirectory(cfg)
	if err != nil {
		return err
	}
	defer closeDirectory()

	engine, err := buildEngine(cfg, users)
	if err != nil {
		return err
	}

	decision, err := engine.Authenticate(ctx, image)
	if err != nil {
		if reason, ok := recognition.IsQualityError(err); ok {
			fmt.Printf("Result:     REJECTED (%s)\n", reason)
			return nil
		}
		return err
	}

	if decision.Success {
		fmt.Printf("Result:     ACCEPTED\n")
		fmt.Printf("User:       %s\n", *decision.MatchedUserID)
		fmt.Printf("Confidence: %.4f (threshold %.2f)\n", *decision.Confidence, engine.Threshold())
	} else {
		fmt.Printf("Result:     REJECTED\n")
		if decision.Confidence != nil {
			fmt.Printf("Confidence: %.4f (below threshold %.2f)\n", *decision.Confidence, engine.Threshold())
		} else {
			fmt.Printf("Confidence: no usable candidate\n")
		}
	}
	return nil
}
