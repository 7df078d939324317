package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/code-quorum/internal/config"
	"github.com/sevigo/code-quorum/internal/reviewer"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and the reviewer registry.",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		registry, err := reviewer.LoadRegistry(cfg.ReviewersFile, nil)
		if err != nil {
			return fmt.Errorf("reviewer registry invalid: %w", err)
		}

		color.Green("configuration OK")
		fmt.Printf("reviewers: %d enabled\n", registry.Len())
		fmt.Printf("similarity_threshold=%.2f window=%d confidence_floor=%.2f max_iterations=%d\n",
			cfg.SimilarityThreshold, cfg.LineProximityWindow, cfg.ConfidenceFloor, cfg.MaxCycleIterations)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(checkCmd)
}
