package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded authentication attempts",
	Long:  `Prints the audit log of authentication attempts, most recent first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("user", "", "Only show attempts matched to this user ID")
	historyCmd.Flags().Int("limit", database.DefaultHistoryLimit, "Maximum number of attempts to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	cleanup, err := setupBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	audit, err := database.GetAuditWriter()
	if err != nil {
		return err
	}

	filter := database.HistoryFilter{
		UserID: mustGetString(cmd, "user"),
		Limit:  mustGetInt(cmd, "limit"),
	}

	attempts, err := audit.History(ctx, filter)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(attempts)
	}

	if len(attempts) == 0 {
		fmt.Println("No authentication attempts recorded.")
		return nil
	}

	for _, a := range attempts {
		result := "REJECTED"
		if a.Success {
			result = "ACCEPTED"
		}
		user := "-"
		if a.MatchedUserID != nil {
			user = *a.MatchedUserID
		}
		confidence := "-"
		if a.Confidence != nil {
			confidence = fmt.Sprintf("%.4f", *a.Confidence)
		}
		fmt.Printf("%s  %-8s  user=%-20s  confidence=%s\n",
			a.CreatedAt.Format("2006-01-02 15:04:05"), result, user, confidence)
	}
	return nil
}
