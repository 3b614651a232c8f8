package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrWeightWarnings is returned by weights --strict when any sum check fails.
var ErrWeightWarnings = errors.New("weight configuration has warnings")

func newScoreCmd() *cobra.Command {
	var (
		scenarioPath string
		noColor      bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a YAML scenario offline and print the breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			s, err := LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			res, err := s.Run(institutionalWeights(cfg), cfg.Scoring.WeightTolerance, newLogger(cfg, false))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pal := newPalette(!noColor)
			if err := writeWarnings(out, res.ConfigVersion, res.Warnings, pal); err != nil {
				return err
			}
			if err := writeEvaluations(out, res.Evaluations); err != nil {
				return err
			}
			for _, p := range res.Projects {
				if err := writeBreakdown(out, p, pal); err != nil {
					return err
				}
			}
			fmt.Fprintln(out)
			return writeRanking(out, res.Ranking)
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to scenario YAML")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newWeightsCmd() *cobra.Command {
	var (
		scenarioPath string
		strict       bool
		noColor      bool
	)
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Check the weight sums of a scenario configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			s, err := LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			wc, err := s.WeightConfig()
			if err != nil {
				return err
			}

			warnings := wc.Warnings(cfg.Scoring.WeightTolerance)
			if err := writeWarnings(cmd.OutOrStdout(), wc.Version(), warnings, newPalette(!noColor)); err != nil {
				return err
			}
			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d warnings: %w", len(warnings), ErrWeightWarnings)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to scenario YAML")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any weight sum deviates")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}
