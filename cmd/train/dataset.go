package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alfredoptarigan/resume-matcher/internal/training"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Write the synthetic training dataset as CSV",
	Long:  "Generates the same synthetic dataset the training run uses and writes it as CSV, one row per sample with the label in the last column.",
	RunE:  runDataset,
}

var (
	datasetSamples int
	datasetSeed    uint64
	datasetOutput  string
)

func init() {
	defaults := training.DefaultConfig()

	datasetCmd.Flags().IntVarP(&datasetSamples, "samples", "n", defaults.Samples, "Number of synthetic samples to generate")
	datasetCmd.Flags().Uint64Var(&datasetSeed, "seed", defaults.Seed, "Random seed")
	datasetCmd.Flags().StringVarP(&datasetOutput, "out", "o", "", "Output CSV path (stdout when empty)")

	rootCmd.AddCommand(datasetCmd)
}

func runDataset(cmd *cobra.Command, _ []string) error {
	dataset, err := training.GenerateDataset(datasetSamples, datasetSeed)
	if err != nil {
		return err
	}

	if datasetOutput == "" {
		return dataset.WriteCSV(cmd.OutOrStdout())
	}

	f, err := os.Create(datasetOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", datasetOutput, err)
	}
	if err := dataset.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return f.Close()
}
