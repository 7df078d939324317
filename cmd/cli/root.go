package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reviewersFile string
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "quorum-cli",
	Short: "quorum-cli is the command-line interface for the review consolidation engine.",
	Long:  `A CLI for running review consolidation locally: fan a payload out to the configured analyzers, deduplicate and aggregate their findings, and track review cycles.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&reviewersFile, "reviewers", "r", "", "Path to reviewers.yaml")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Emit raw JSON instead of a summary")

	if err := viper.BindPFlag("REVIEWERS_FILE", rootCmd.PersistentFlags().Lookup("reviewers")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("CQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
