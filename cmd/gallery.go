package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/encoder"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and maintain the face gallery",
}

var galleryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show gallery and audit log statistics",
	RunE:  runGalleryStats,
}

var galleryCheckCmd = &cobra.Command{
	Use:   "check [directory]",
	Short: "Run the quality gate over a directory of candidate images",
	Long: `Checks every image in a directory against the enrollment quality gate
and reports which ones would be accepted. Nothing is enrolled; this is a
dry run for preparing enrollment batches.`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryCheck,
}

var galleryReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the HNSW similarity index from the gallery",
	RunE:  runGalleryReindex,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryStatsCmd)
	galleryCmd.AddCommand(galleryCheckCmd)
	galleryCmd.AddCommand(galleryReindexCmd)

	galleryCheckCmd.Flags().Int("concurrency", 4, "Number of images to check in parallel")
}

func runGalleryStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	cleanup, err := setupBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	gallery, err := database.GetGalleryReader()
	if err != nil {
		return err
	}
	audit, err := database.GetAuditWriter()
	if err != nil {
		return err
	}

	faceCount, err := gallery.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting faces: %w", err)
	}
	grouped, err := gallery.AllGrouped(ctx)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	attemptCount, err := audit.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting attempts: %w", err)
	}

	fmt.Printf("Faces:          %d\n", faceCount)
	fmt.Printf("Enrolled users: %d\n", len(grouped))
	fmt.Printf("Auth attempts:  %d\n", attemptCount)
	fmt.Printf("Capacity:       %d faces per user\n", cfg.Recognition.MaxFacesPerUser)
	return nil
}

// listImageFiles returns image paths in dir, sorted for stable output.
func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func runGalleryCheck(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	paths, err := listImageFiles(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	capability, err := encoder.NewHTTPClient(cfg.Encoder.URL)
	if err != nil {
		return fmt.Errorf("failed to create encoder client: %w", err)
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Checking images"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	type rejection struct {
		path   string
		reason string
	}

	var accepted int64
	var mu sync.Mutex
	var rejections []rejection

	concurrency := mustGetInt(cmd, "concurrency")
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			reason, err := checkImage(ctx, capability, path)
			if err != nil {
				mu.Lock()
				rejections = append(rejections, rejection{path, err.Error()})
				mu.Unlock()
				return
			}
			if reason == "" {
				atomic.AddInt64(&accepted, 1)
				return
			}
			mu.Lock()
			rejections = append(rejections, rejection{path, reason})
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	fmt.Printf("\n\nAccepted: %d of %d\n", accepted, len(paths))
	if len(rejections) > 0 {
		sort.Slice(rejections, func(i, j int) bool { return rejections[i].path < rejections[j].path })
		fmt.Println("Rejected:")
		for _, r := range rejections {
			fmt.Printf("  %s: %s\n", r.path, r.reason)
		}
	}
	return nil
}

// checkImage runs the quality gate over one file. An empty reason means the
// image would be accepted for enrollment.
func checkImage(ctx context.Context, capability encoder.Capability, path string) (string, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}

	verdict, err := capability.CheckQuality(ctx, image)
	if err != nil {
		return "", fmt.Errorf("quality check failed: %w", err)
	}
	if !verdict.Acceptable {
		return string(verdict.Reason), nil
	}

	result, err := capability.DetectAndEncode(ctx, image)
	if err != nil {
		return "", fmt.Errorf("encoding failed: %w", err)
	}
	switch {
	case len(result.Faces) == 0:
		return string(encoder.ReasonNoFace), nil
	case len(result.Faces) > 1:
		return string(encoder.ReasonMultipleFaces), nil
	}
	return "", nil
}

func runGalleryReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	cleanup, err := setupBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rebuilder := database.GetGalleryHNSWRebuilder()
	if rebuilder == nil {
		return fmt.Errorf("no HNSW rebuilder registered")
	}

	if err := rebuilder.EnableHNSW(ctx, cfg.Database.HNSWIndexPath); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	if err := rebuilder.SaveHNSWIndex(); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	fmt.Printf("HNSW index rebuilt with %d faces\n", rebuilder.HNSWCount())
	return nil
}
