package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/recognition"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [user-id] [image-path]",
	Short: "Enroll a face image for a user",
	Long: `Reads a face image from disk, runs the quality gate and enrolls the
resulting embedding into the user's gallery. A user can hold a limited
number of face records; enrollment beyond the limit is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	userID, imagePath := args[0], args[1]

	image, err := os.ReadFile(imagePath)
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

	count, err := engine.Register(ctx, userID, image)
	if err != nil {
		if reason, ok := recognition.IsQualityError(err); ok {
			return fmt.Errorf("image rejected (%s): %w", reason, err)
		}
		if errors.Is(err, database.ErrCapacityExceeded) {
			return fmt.Errorf("user %s already holds the maximum number of faces", userID)
		}
		if errors.Is(err, recognition.ErrDuplicateImage) {
			return fmt.Errorf("this photo is already enrolled for %s", userID)
		}
		return err
	}

	fmt.Printf("Registered face for %s (%d of %d on file)\n", userID, count, cfg.Recognition.MaxFacesPerUser)
	return nil
}
