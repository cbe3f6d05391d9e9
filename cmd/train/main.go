// Package main is the offline training CLI: it generates the synthetic
// dataset, trains every classifier family and writes the artifacts that the
// API loads at startup.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "train",
	Short:         "Train the domain classifiers",
	Long:          "Generates a synthetic labelled dataset, trains the xgboost, lightgbm and catboost style classifiers, selects the best model per domain and saves the artifacts.",
	RunE:          runTrain,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var debug bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Human-readable debug logging")
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return logger.New("development")
	}
	return logger.New("production")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
