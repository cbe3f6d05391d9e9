package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/ml"
	"alfredoptarigan/resume-matcher/internal/training"
)

var (
	trainSamples          int
	trainSeed             uint64
	trainTestRatio        float64
	trainMinDomainSamples int
	trainRounds           int
	trainModelsDir        string
	trainTimeout          time.Duration
	trainJSON             bool
)

func init() {
	defaults := training.DefaultConfig()

	rootCmd.Flags().IntVarP(&trainSamples, "samples", "n", defaults.Samples, "Number of synthetic samples to generate")
	rootCmd.Flags().Uint64Var(&trainSeed, "seed", defaults.Seed, "Random seed for dataset generation and splitting")
	rootCmd.Flags().Float64Var(&trainTestRatio, "test-ratio", defaults.TestRatio, "Share of samples held out for evaluation")
	rootCmd.Flags().IntVar(&trainMinDomainSamples, "min-domain-samples", defaults.MinDomainSamples, "Minimum training rows flagged for a domain before it gets its own pick")
	rootCmd.Flags().IntVar(&trainRounds, "rounds", 0, "Boosting rounds for every family (0 keeps each family's default)")
	rootCmd.Flags().StringVarP(&trainModelsDir, "models-dir", "o", "", "Directory the artifacts are written to (defaults to MODELS_DIR, then models)")
	rootCmd.Flags().DurationVar(&trainTimeout, "timeout", defaults.Timeout, "Abort training after this long")
	rootCmd.Flags().BoolVar(&trainJSON, "json", false, "Print the run summary as JSON")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if trainModelsDir == "" {
		appCfg, err := config.Load()
		if err != nil {
			return err
		}
		trainModelsDir = appCfg.Models.Dir
	}

	cfg := training.DefaultConfig()
	cfg.Samples = trainSamples
	cfg.Seed = trainSeed
	cfg.TestRatio = trainTestRatio
	cfg.MinDomainSamples = trainMinDomainSamples
	cfg.Timeout = trainTimeout
	if trainRounds > 0 {
		for f, p := range cfg.Params {
			p.Rounds = trainRounds
			cfg.Params[f] = p
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := training.NewPipeline(cfg, training.NewStore(trainModelsDir), nil, log)
	result, err := pipeline.Train(ctx)
	if err != nil {
		return err
	}

	return printSummary(cmd, result)
}

type summary struct {
	RunID         string                              `json:"run_id"`
	ModelsDir     string                              `json:"models_dir"`
	TrainSize     int                                 `json:"train_size"`
	TestSize      int                                 `json:"test_size"`
	DurationMS    int64                               `json:"duration_ms"`
	DomainMapping map[string]string                   `json:"domain_mapping"`
	Reports       map[ml.Family]training.FamilyReport `json:"reports"`
}

func printSummary(cmd *cobra.Command, result *training.Result) error {
	out := cmd.OutOrStdout()

	if trainJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary{
			RunID:         result.RunID,
			ModelsDir:     trainModelsDir,
			TrainSize:     result.TrainSize,
			TestSize:      result.TestSize,
			DurationMS:    result.Duration.Milliseconds(),
			DomainMapping: result.DomainMapping,
			Reports:       result.Reports,
		})
	}

	fmt.Fprintf(out, "Training run %s (%d train / %d test, %s)\n",
		result.RunID, result.TrainSize, result.TestSize, result.Duration.Round(time.Millisecond))
	fmt.Fprintln(out, "\nAccuracy:")
	for _, f := range ml.Families {
		if report, ok := result.Reports[f]; ok {
			fmt.Fprintf(out, "  %-10s %.4f\n", f, report.Accuracy)
		}
	}
	fmt.Fprintln(out, "\nBest model per domain:")
	for _, domain := range slices.Sorted(maps.Keys(result.DomainMapping)) {
		fmt.Fprintf(out, "  %-10s %s\n", domain, result.DomainMapping[domain])
	}
	fmt.Fprintf(out, "\nArtifacts written to %s\n", trainModelsDir)
	return nil
}
