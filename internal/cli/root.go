// Package cli wires the prioritize commands: the HTTP service and the offline
// scenario tools used to check a weight configuration before it is loaded.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Prioritize/internal/config"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree so tests
// can run commands side by side.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prioritize",
		Short:         "Score and rank facilities renovation projects",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config file")

	root.AddCommand(newServeCmd(), newScoreCmd(), newWeightsCmd())
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func institutionalWeights(cfg *config.Config) scoring.InstitutionalWeights {
	w := cfg.Scoring.InstitutionalWeights
	return scoring.InstitutionalWeights{
		Depreciation:   w.Depreciation,
		Component:      w.Component,
		Serviceability: w.Serviceability,
	}
}

func newLogger(cfg *config.Config, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
