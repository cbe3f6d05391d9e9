package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(evalID uuid.UUID)
}

type worker struct {
	evalRepo         repositories.EvaluationRepository
	evaluatorService EvaluatorService
	jobQueue         chan uuid.UUID
	concurrency      int
	pollInterval     time.Duration
	wg               sync.WaitGroup
	stopChan         chan struct{}
	stopOnce         sync.Once
	logger           *zap.Logger

	// ids currently queued or running, so the poller does not enqueue twice
	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

func NewWorker(
	evalRepo repositories.EvaluationRepository,
	evaluatorService EvaluatorService,
	concurrency int,
	queueSize int,
	pollInterval time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		evalRepo:         evalRepo,
		evaluatorService: evaluatorService,
		jobQueue:         make(chan uuid.UUID, queueSize),
		concurrency:      concurrency,
		pollInterval:     pollInterval,
		stopChan:         make(chan struct{}),
		logger:           logger.Component(log, "worker"),
		inFlight:         make(map[uuid.UUID]bool),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)

	w.logger.Info("worker started", zap.Int("concurrency", w.concurrency))
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// EnqueueJob implements Worker. Ids already queued or running are skipped.
func (w *worker) EnqueueJob(evalID uuid.UUID) {
	w.mu.Lock()
	if w.inFlight[evalID] {
		w.mu.Unlock()
		return
	}
	w.inFlight[evalID] = true
	w.mu.Unlock()

	select {
	case w.jobQueue <- evalID:
		w.logger.Debug("job enqueued", zap.String(logger.FieldEvaluationID, evalID.String()))
	case <-w.stopChan:
		w.release(evalID)
		w.logger.Warn("worker stopped, cannot enqueue job", zap.String(logger.FieldEvaluationID, evalID.String()))
	}
}

func (w *worker) release(evalID uuid.UUID) {
	w.mu.Lock()
	delete(w.inFlight, evalID)
	w.mu.Unlock()
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case evalID := <-w.jobQueue:
			jobLog := log.With(zap.String(logger.FieldEvaluationID, evalID.String()))
			if err := w.evaluatorService.EvaluateCandidate(ctx, evalID); err != nil {
				jobLog.Error("job failed", zap.Error(err))
			} else {
				jobLog.Info("job completed")
			}
			w.release(evalID)
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pendingJobs, err := w.evalRepo.FindPendingJobs(10)
			if err != nil {
				w.logger.Warn("failed to fetch pending jobs", zap.Error(err))
				continue
			}

			if len(pendingJobs) > 0 {
				w.logger.Info("found pending jobs", zap.Int("count", len(pendingJobs)))
			}

			for _, job := range pendingJobs {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
