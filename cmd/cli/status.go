package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-quorum/internal/config"
	"github.com/sevigo/code-quorum/internal/db"
	"github.com/sevigo/code-quorum/internal/storage"
)

var statusCycleID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the tracked state of a review cycle.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.CycleStore != "postgres" {
			return fmt.Errorf("cycle status requires CYCLE_STORE=postgres; the in-memory store does not outlive the run that wrote it")
		}

		dbConn, cleanup, err := db.NewDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer cleanup()

		store := storage.NewPostgresStore(dbConn.DB)

		state, err := store.State(ctx, statusCycleID)
		if err != nil {
			return fmt.Errorf("failed to read cycle state: %w", err)
		}
		latest, err := store.Latest(ctx, statusCycleID)
		if err != nil {
			return fmt.Errorf("failed to read cycle record: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("cycle %q has no recorded iterations", statusCycleID)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(map[string]any{
				"cycle_id": statusCycleID,
				"state":    state,
				"latest":   latest,
			})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CYCLE\tSTATE\tITERATION\tISSUES\tP0\tP1\tP2\tRECORDED")
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			statusCycleID,
			state,
			latest.Iteration,
			latest.TotalIssueCount,
			latest.PriorityCounts.P0,
			latest.PriorityCounts.P1,
			latest.PriorityCounts.P2,
			latest.Timestamp.Format(time.RFC822),
		)
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().StringVar(&statusCycleID, "cycle", "", "Review cycle ID")
	_ = statusCmd.MarkFlagRequired("cycle")
	rootCmd.AddCommand(statusCmd)
}
