package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/extraction"
	"alfredoptarigan/resume-matcher/internal/handlers"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/registry"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/scoring"
	"alfredoptarigan/resume-matcher/internal/services"
	"alfredoptarigan/resume-matcher/internal/similarity"
	"alfredoptarigan/resume-matcher/internal/training"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	scoringCfg, err := config.LoadScoring(cfg.Scoring.File)
	if err != nil {
		log.Fatal("failed to load scoring config", zap.Error(err))
	}

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	docRepo := repositories.NewDocumentRepository(db)
	evalRepo := repositories.NewEvaluationRepository(db)
	runRepo := repositories.NewTrainingRunRepository(db)

	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("failed to create upload directory", zap.Error(err))
	}
	parser := services.NewDocumentParserService()
	documents := services.NewDocumentService(docRepo, storageService, parser, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini is optional; without a key the pipeline runs on local models only.
	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
		if err != nil {
			log.Fatal("failed to initialize gemini", zap.Error(err))
		}
		log.Info("gemini initialized", zap.String("model", cfg.Gemini.Model))
	}

	var recognizer extraction.Recognizer
	if gemini != nil && cfg.Gemini.NEREnabled {
		recognizer = services.NewGeminiRecognizer(gemini, cfg.Worker.RetryMaxAttempts)
	}

	engine := similarity.NewEngine(
		services.BuildEmbeddingModels(cfg.Models.EmbeddingModels, gemini, log),
		cfg.Models.EmbedTimeout,
		log,
	)
	reg := registry.New(engine.ModelIDs())

	store := training.NewStore(cfg.Models.Dir)
	artifacts, err := store.Load()
	if err != nil {
		log.Warn("failed to load trained models, starting with defaults", zap.Error(err))
	} else if len(artifacts.DomainMapping) > 0 {
		reg.Publish(artifacts.DomainMapping, artifacts.Classifiers, artifacts.Scaler, artifacts.Accuracies())
		log.Info("trained models loaded",
			zap.String("dir", store.Dir()),
			zap.Int("classifiers", len(artifacts.Classifiers)),
			zap.Any("domain_mapping", artifacts.DomainMapping),
		)
	}

	scorer, err := scoring.NewEngine(scoringCfg)
	if err != nil {
		log.Fatal("invalid scoring config", zap.Error(err))
	}

	matcher := &services.Matcher{
		Extractor:  extraction.NewExtractor(recognizer, log),
		Similarity: engine,
		Scorer:     scorer,
		Registry:   reg,
	}

	var index services.CandidateIndex
	if cfg.Qdrant.Enabled() {
		embedder, dims := services.IndexEmbedder(gemini)
		qdrantIndex, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, embedder, dims, log)
		if err != nil {
			log.Fatal("failed to initialize qdrant", zap.Error(err))
		}
		if err := qdrantIndex.InitCollection(ctx); err != nil {
			log.Fatal("failed to initialize qdrant collection", zap.Error(err))
		}
		index = qdrantIndex
	}

	evaluatorService := services.NewEvaluatorService(matcher, evalRepo, docRepo, parser, index, cfg.Models.DefaultDomain, log)

	worker := services.NewWorker(
		evalRepo,
		evaluatorService,
		cfg.Worker.Concurrency,
		cfg.Worker.QueueSize,
		cfg.Worker.PollInterval,
		log,
	)
	worker.Start(ctx)

	trainCfg := training.DefaultConfig()
	trainCfg.Timeout = cfg.Models.TrainTimeout
	pipeline := training.NewPipeline(trainCfg, store, reg, log)
	trainer := services.NewTrainingService(pipeline, runRepo, log)

	app := fiber.New(fiber.Config{
		AppName:      "Resume Matcher API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Models.TrainTimeout + 30*time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.Register(app,
		handlers.NewEvaluationHandler(evaluatorService, documents, worker),
		handlers.NewResultHandler(evalRepo, evaluatorService),
		handlers.NewUploadHandler(documents),
		handlers.NewModelHandler(reg, trainer),
	)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Matcher API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/health",
				"GET /api/v1/models",
				"POST /api/v1/train",
				"POST /api/v1/upload",
				"POST /api/v1/evaluate",
				"POST /api/v1/evaluations",
				"GET /api/v1/result/:id",
				"GET /api/v1/result/:id/similar",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting",
		zap.String("addr", addr),
		zap.Strings("embedding_models", engine.ModelIDs()),
		zap.Bool("candidate_index", index != nil),
	)

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
