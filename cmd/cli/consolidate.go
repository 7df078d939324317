package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/code-quorum/internal/app"
	"github.com/sevigo/code-quorum/internal/config"
	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/logger"
	"github.com/sevigo/code-quorum/internal/reviewer"
	"github.com/sevigo/code-quorum/internal/storage"
)

var (
	cycleID   string
	iteration int
	diffFile  string
	repoName  string
	refName   string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run one consolidation pass against the configured analyzers.",
	Long: `Fans the payload out to every enabled reviewer, deduplicates and
aggregates the findings, and prints the consolidated report. With --cycle the
run is recorded against that review cycle and the cycle decision is printed
alongside the report.`,
	RunE: runConsolidate,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	consolidateCmd.Flags().StringVar(&cycleID, "cycle", "", "Review cycle ID (optional)")
	consolidateCmd.Flags().IntVar(&iteration, "iteration", 1, "Cycle iteration number")
	consolidateCmd.Flags().StringVar(&diffFile, "diff-file", "", "File containing the diff to review")
	consolidateCmd.Flags().StringVar(&repoName, "repo", "", "Repository identifier passed to reviewers")
	consolidateCmd.Flags().StringVar(&refName, "ref", "", "Git ref passed to reviewers")
	_ = consolidateCmd.MarkFlagRequired("diff-file")

	rootCmd.AddCommand(consolidateCmd)
}

func runConsolidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	registry, err := reviewer.LoadRegistry(cfg.ReviewersFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load reviewer registry: %w", err)
	}

	diff, err := os.ReadFile(diffFile)
	if err != nil {
		return fmt.Errorf("failed to read diff file: %w", err)
	}
	payload := core.ReviewPayload{Repo: repoName, Ref: refName, Diff: string(diff)}

	// CLI runs are one-shot; cycle state lives for the process only.
	eng := app.BuildEngine(cfg, storage.NewMemoryStore(), registry.Weights(), log)

	ctx := cmd.Context()
	var (
		report   *core.ConsolidatedReport
		decision *core.CycleDecision
	)
	if cycleID != "" {
		report, decision, err = eng.RunCycle(ctx, cycleID, iteration, registry.All(), payload)
	} else {
		report, err = eng.Consolidate(ctx, registry.All(), payload)
	}
	if err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"report": report, "decision": decision})
	}

	printSummary(report, decision)
	return nil
}

// printSummary renders a terminal-friendly digest; full rendering is the job
// of downstream tooling, not the engine.
func printSummary(report *core.ConsolidatedReport, decision *core.CycleDecision) {
	statusColor := color.New(color.FgGreen)
	switch report.Status {
	case core.StatusRed:
		statusColor = color.New(color.FgRed, color.Bold)
	case core.StatusYellow:
		statusColor = color.New(color.FgYellow)
	case core.StatusPartial:
		statusColor = color.New(color.FgMagenta)
	}

	fmt.Printf("Run %s  status=%s  reviewers=%d/%d\n",
		report.RunID,
		statusColor.Sprint(report.Status),
		report.ReviewersCompleted,
		report.ReviewersTotal,
	)
	if len(report.MissingReviewers) > 0 {
		color.Yellow("missing reviewers: %v", report.MissingReviewers)
	}
	fmt.Printf("issues: P0=%d P1=%d P2=%d (deduplicated %d -> %d)\n",
		report.PriorityCounts.P0, report.PriorityCounts.P1, report.PriorityCounts.P2,
		report.DedupStats.RawCount, report.DedupStats.FinalCount,
	)

	for _, issue := range report.Issues {
		fmt.Printf("  [%s] %s:%d %s (%.2f, %d reviewers)\n",
			issue.Priority, issue.FilePath, issue.LineNumber,
			issue.IssueType, issue.WeightedConfidence, len(issue.Reviewers),
		)
	}

	if len(report.Themes) > 0 {
		fmt.Println("themes:")
		for _, theme := range report.Themes {
			fmt.Printf("  %s (frequency=%d, confidence=%.2f)\n",
				theme.Name, theme.Frequency, theme.AvgConfidence)
		}
	}

	if decision != nil {
		fmt.Printf("cycle %s iteration %d: %s\n", decision.CycleID, decision.Iteration, decision.Action)
		if decision.Action == core.ActionEscalate {
			color.Red("escalation diff: fixed=%d new=%d persistent=%d",
				len(decision.Diff.Fixed), len(decision.Diff.New), len(decision.Diff.Persistent))
		}
	}
}
