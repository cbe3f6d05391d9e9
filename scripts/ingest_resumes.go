// Command ingest_resumes scores every resume in a folder against one job
// description and adds the candidates to the Qdrant index, so that
// /result/:id/similar has neighbours before any live traffic.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/extraction"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/registry"
	"alfredoptarigan/resume-matcher/internal/scoring"
	"alfredoptarigan/resume-matcher/internal/services"
	"alfredoptarigan/resume-matcher/internal/similarity"
	"alfredoptarigan/resume-matcher/internal/training"
)

var (
	resumeDir string
	jobFile   string
	domain    string
)

var rootCmd = &cobra.Command{
	Use:           "ingest_resumes",
	Short:         "Index a folder of resumes for similar-candidate search",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&resumeDir, "dir", "d", "./reference_docs/resumes", "Folder of .pdf, .docx and .txt resumes")
	rootCmd.Flags().StringVarP(&jobFile, "job", "j", "", "Job description file (required)")
	rootCmd.Flags().StringVar(&domain, "domain", "", "Domain recorded with each candidate (defaults to DEFAULT_DOMAIN)")

	if err := rootCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Qdrant.Enabled() {
		return fmt.Errorf("QDRANT_URL is not set")
	}
	if domain == "" {
		domain = cfg.Models.DefaultDomain
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	parser := services.NewDocumentParserService()

	jobText, err := parser.ExtractText(jobFile)
	if err != nil {
		return fmt.Errorf("failed to read job description: %w", err)
	}

	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		if gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log); err != nil {
			return err
		}
	}

	matcher, err := newMatcher(cfg, gemini, log)
	if err != nil {
		return err
	}

	embedder, dims := services.IndexEmbedder(gemini)
	index, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, embedder, dims, log)
	if err != nil {
		return err
	}
	if err := index.InitCollection(ctx); err != nil {
		return err
	}

	paths, err := resumeFiles(resumeDir)
	if err != nil {
		return err
	}
	log.Info("starting resume ingestion", zap.Int("files", len(paths)), zap.String(logger.FieldDomain, domain))

	successCount, failCount := 0, 0
	for _, path := range paths {
		if err := ingest(ctx, log, parser, matcher, index, path, jobText); err != nil {
			log.Warn("failed to ingest resume", zap.String("path", path), zap.Error(err))
			failCount++
			continue
		}
		successCount++
	}

	log.Info("ingestion finished", zap.Int("succeeded", successCount), zap.Int("failed", failCount))
	if failCount > 0 {
		return fmt.Errorf("%d of %d resumes failed to ingest", failCount, len(paths))
	}
	return nil
}

func ingest(ctx context.Context, log *zap.Logger, parser services.DocumentParserService, matcher *services.Matcher, index services.CandidateIndex, path, jobText string) error {
	text, err := parser.ExtractText(path)
	if err != nil {
		return err
	}

	id := uuid.New()
	result := matcher.Match(ctx, text, jobText, domain)
	result.ID = id.String()

	if err := index.IndexCandidate(ctx, id, text, result, domain); err != nil {
		return err
	}

	log.Info("resume indexed",
		zap.String("path", path),
		zap.String(logger.FieldEvaluationID, id.String()),
		zap.Float64("final_score", result.FinalScore),
		zap.String("recommendation", string(result.Recommendation)),
	)
	return nil
}

func newMatcher(cfg *config.Config, gemini services.GeminiService, log *zap.Logger) (*services.Matcher, error) {
	scoringCfg, err := config.LoadScoring(cfg.Scoring.File)
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewEngine(scoringCfg)
	if err != nil {
		return nil, err
	}

	engine := similarity.NewEngine(services.BuildEmbeddingModels(cfg.Models.EmbeddingModels, gemini, log), cfg.Models.EmbedTimeout, log)
	reg := registry.New(engine.ModelIDs())
	if artifacts, err := training.NewStore(cfg.Models.Dir).Load(); err == nil {
		reg.ReplaceMapping(artifacts.DomainMapping)
	}

	return &services.Matcher{
		Extractor:  extraction.NewExtractor(nil, log),
		Similarity: engine,
		Scorer:     scorer,
		Registry:   reg,
	}, nil
}

func resumeFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(services.SupportedExtensions, strings.ToLower(filepath.Ext(path))) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return paths, nil
}
