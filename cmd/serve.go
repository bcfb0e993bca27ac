package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication API server",
	Long: `Start the Face Login API server.
The server exposes registration, authentication, audit history and user
directory endpoints over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// initGalleryHNSW builds or loads the gallery HNSW index for the advisory
// similar-faces lookup.
func initGalleryHNSW(ctx context.Context, indexPath string) {
	rebuilder := database.GetGalleryHNSWRebuilder()
	if rebuilder == nil {
		return
	}
	if indexPath != "" {
		fmt.Printf("Loading gallery HNSW index from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory HNSW index for the face gallery...\n")
	}
	if err := rebuilder.EnableHNSW(ctx, indexPath); err != nil {
		fmt.Printf("Warning: Failed to build gallery HNSW index: %v\n", err)
		fmt.Printf("Similarity lookups will use PostgreSQL queries (slower)\n")
	} else {
		fmt.Printf("Gallery HNSW index ready with %d faces\n", rebuilder.HNSWCount())
	}
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// saveGalleryHNSW saves the HNSW index to disk during shutdown.
func saveGalleryHNSW() {
	if rebuilder := database.GetGalleryHNSWRebuilder(); rebuilder != nil {
		if err := rebuilder.SaveHNSWIndex(); err != nil {
			fmt.Printf("Warning: failed to save gallery HNSW index: %v\n", err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Printf("Connecting to PostgreSQL database...\n")
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
	if users != nil {
		fmt.Printf("User directory attached (MariaDB)\n")
	}

	initGalleryHNSW(ctx, cfg.Database.HNSWIndexPath)

	engine, err := buildEngine(cfg, users)
	if err != nil {
		return err
	}

	gallery, err := database.GetGalleryReader()
	if err != nil {
		return err
	}
	audit, err := database.GetAuditWriter()
	if err != nil {
		return err
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, engine, gallery, audit, users)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		saveGalleryHNSW()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Login API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
