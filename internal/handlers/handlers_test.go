package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/extraction"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/registry"
	"alfredoptarigan/resume-matcher/internal/scoring"
	"alfredoptarigan/resume-matcher/internal/services"
	"alfredoptarigan/resume-matcher/internal/similarity"
	"alfredoptarigan/resume-matcher/internal/training"
)

const (
	sampleResume = "Software Engineer with 5 years of experience in Python, React, and MongoDB. Bachelor's degree in Computer Science."
	sampleJob    = "We are looking for a Full Stack Developer with experience in Python, React, and MongoDB. 3+ years of experience required."
)

type fakeEvalRepo struct {
	mu    sync.Mutex
	evals map[uuid.UUID]models.Evaluation
}

func newFakeEvalRepo() *fakeEvalRepo {
	return &fakeEvalRepo{evals: map[uuid.UUID]models.Evaluation{}}
}

func (r *fakeEvalRepo) Create(eval *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evals[eval.ID] = *eval
	return nil
}

func (r *fakeEvalRepo) FindByID(id uuid.UUID) (*models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.evals[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "evaluation %s not found", id)
	}
	return &eval, nil
}

func (r *fakeEvalRepo) update(id uuid.UUID, mutate func(*models.Evaluation)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.evals[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "evaluation %s not found", id)
	}
	mutate(&eval)
	r.evals[id] = eval
	return nil
}

func (r *fakeEvalRepo) UpdateStatus(id uuid.UUID, status models.EvaluationStatus) error {
	return r.update(id, func(e *models.Evaluation) { e.Status = status })
}

func (r *fakeEvalRepo) UpdateResult(id uuid.UUID, res *scoring.EvaluationResult) error {
	return r.update(id, func(e *models.Evaluation) {
		e.Status = models.StatusCompleted
		e.Result = res
	})
}

func (r *fakeEvalRepo) UpdateError(id uuid.UUID, msg string) error {
	return r.update(id, func(e *models.Evaluation) {
		e.Status = models.StatusFailed
		e.ErrorMessage = &msg
	})
}

func (r *fakeEvalRepo) FindPendingJobs(int) ([]models.Evaluation, error) {
	return nil, nil
}

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Document
}

func (r *fakeDocRepo) Create(doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "document %s not found", id)
	}
	return &doc, nil
}

// syncWorker runs jobs inline so async flows can be asserted directly.
type syncWorker struct {
	evaluator services.EvaluatorService
}

func (w *syncWorker) Start(context.Context) {}
func (w *syncWorker) Stop()                 {}
func (w *syncWorker) EnqueueJob(id uuid.UUID) {
	_ = w.evaluator.EvaluateCandidate(context.Background(), id)
}

type fakeIndex struct {
	indexed []uuid.UUID
}

func (f *fakeIndex) InitCollection(context.Context) error { return nil }

func (f *fakeIndex) IndexCandidate(_ context.Context, id uuid.UUID, _ string, _ *scoring.EvaluationResult, _ string) error {
	f.indexed = append(f.indexed, id)
	return nil
}

func (f *fakeIndex) SearchSimilar(_ context.Context, id uuid.UUID, _ string, domain string, limit int) ([]models.SimilarCandidate, error) {
	var out []models.SimilarCandidate
	for _, other := range f.indexed {
		if other != id && len(out) < limit {
			out = append(out, models.SimilarCandidate{EvaluationID: other.String(), Domain: domain})
		}
	}
	return out, nil
}

type fakeRunRepo struct {
	runs []models.TrainingRun
}

func (f *fakeRunRepo) Create(run *models.TrainingRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunRepo) FindLatest() (*models.TrainingRun, error) {
	if len(f.runs) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no training runs recorded")
	}
	run := f.runs[len(f.runs)-1]
	return &run, nil
}

type busyTrainer struct{}

func (busyTrainer) Train(context.Context) (*training.Result, error) {
	return nil, apperr.New(apperr.KindConflict, "a training run is already in progress")
}

func (busyTrainer) LatestRun() (*models.TrainingRun, error) {
	return nil, apperr.New(apperr.KindNotFound, "no training runs recorded")
}

type testServer struct {
	app      *fiber.App
	evals    *fakeEvalRepo
	index    *fakeIndex
	registry *registry.Registry
	runs     *fakeRunRepo
}

func newTestServer(t *testing.T, trainer services.TrainingService) *testServer {
	t.Helper()
	log := zap.NewNop()

	scorer, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	engine := similarity.NewEngine([]similarity.Model{
		{ID: "hashing", Embedder: similarity.NewWordHashingEmbedder(similarity.DefaultHashDimensions)},
		{ID: "ngram", Embedder: similarity.NewNgramHashingEmbedder(similarity.DefaultHashDimensions)},
	}, time.Second, log)
	reg := registry.New(engine.ModelIDs())

	matcher := &services.Matcher{
		Extractor:  extraction.NewExtractor(nil, log),
		Similarity: engine,
		Scorer:     scorer,
		Registry:   reg,
	}

	evals := newFakeEvalRepo()
	docs := &fakeDocRepo{docs: map[uuid.UUID]models.Document{}}
	index := &fakeIndex{}
	parser := services.NewDocumentParserService()
	storage := services.NewStorageService(t.TempDir(), 1<<20)
	documents := services.NewDocumentService(docs, storage, parser, log)
	evaluator := services.NewEvaluatorService(matcher, evals, docs, parser, index, "Fullstack", log)

	runs := &fakeRunRepo{}
	if trainer == nil {
		cfg := training.DefaultConfig()
		for f, p := range cfg.Params {
			p.Rounds = 10
			cfg.Params[f] = p
		}
		trainer = services.NewTrainingService(training.NewPipeline(cfg, nil, reg, log), runs, log)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Register(app,
		NewEvaluationHandler(evaluator, documents, &syncWorker{evaluator: evaluator}),
		NewResultHandler(evals, evaluator),
		NewUploadHandler(documents),
		NewModelHandler(reg, trainer),
	)

	return &testServer{app: app, evals: evals, index: index, registry: reg, runs: runs}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func jsonRequest(method, path string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestEvaluateEndToEnd(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/evaluate", map[string]string{
		"resume_text": sampleResume,
		"job_text":    sampleJob,
		"domain":      "Fullstack",
	}))
	require.Equal(t, fiber.StatusOK, status, string(body))

	var result scoring.EvaluationResult
	require.NoError(t, json.Unmarshal(body, &result))

	assert.Equal(t, 5, result.ParsedEntities.ExperienceYears)
	assert.NotEmpty(t, result.ParsedEntities.Education)
	assert.Equal(t, 1.0, result.SkillMatchRatio)
	assert.Equal(t, 1.0, result.ExperienceMatchRatio)
	assert.Equal(t, 0.8, result.EducationMatchRatio)
	assert.Contains(t, []scoring.Recommendation{scoring.StrongMatch, scoring.GoodMatch}, result.Recommendation)
	assert.Equal(t, []string{"Python", "React", "Mongodb"}, result.MatchedSkills)
	assert.Empty(t, result.MissingSkills)
	assert.Len(t, result.SimilarityScores, 2)
	assert.Equal(t, "hashing", result.BestModelName)
	assert.GreaterOrEqual(t, result.FinalScore, 0.0)
	assert.LessOrEqual(t, result.FinalScore, 1.0)

	id, err := uuid.Parse(result.ID)
	require.NoError(t, err)
	stored, err := s.evals.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, []uuid.UUID{id}, s.index.indexed)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	s := newTestServer(t, nil)
	payload := map[string]string{"resume_text": sampleResume, "job_text": sampleJob, "domain": "Cloud"}

	var results [2]scoring.EvaluationResult
	for i := range results {
		status, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/evaluate", payload))
		require.Equal(t, fiber.StatusOK, status)
		require.NoError(t, json.Unmarshal(body, &results[i]))
		results[i].ID = ""
	}
	assert.Equal(t, results[0], results[1])
}

func TestEvaluateErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		payload map[string]string
		status  int
	}{
		{"missing job text", map[string]string{"resume_text": sampleResume}, fiber.StatusUnprocessableEntity},
		{"blank job text", map[string]string{"resume_text": sampleResume, "job_text": "   "}, fiber.StatusUnprocessableEntity},
		{"missing resume", map[string]string{"job_text": sampleJob}, fiber.StatusBadRequest},
		{"unknown document", map[string]string{"job_text": sampleJob, "resume_document_id": uuid.NewString()}, fiber.StatusNotFound},
		{"malformed document id", map[string]string{"job_text": sampleJob, "resume_document_id": "nope"}, fiber.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/evaluate", tt.payload))
			assert.Equal(t, tt.status, status, string(body))

			var errBody map[string]any
			require.NoError(t, json.Unmarshal(body, &errBody))
			assert.NotEmpty(t, errBody["error"])
			assert.EqualValues(t, tt.status, errBody["code"])
		})
	}
}

func TestEvaluateWithUploadedFile(t *testing.T) {
	s := newTestServer(t, nil)

	req := multipartRequest(t, "/api/v1/evaluate", map[string]string{"job_text": sampleJob}, "file", "resume.txt", sampleResume)
	status, body := s.do(t, req)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var result scoring.EvaluationResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1.0, result.SkillMatchRatio)
	assert.Equal(t, 5, result.ParsedEntities.ExperienceYears)
}

func TestEvaluateUnsupportedFile(t *testing.T) {
	s := newTestServer(t, nil)

	req := multipartRequest(t, "/api/v1/evaluate", map[string]string{"job_text": sampleJob}, "file", "resume.exe", "MZ")
	status, body := s.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, status, string(body))
}

func TestUploadThenEvaluateByDocumentID(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, multipartRequest(t, "/api/v1/upload", nil, "resume", "cv.txt", sampleResume))
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var upload struct {
		Documents []models.UploadResponse `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(body, &upload))
	require.Len(t, upload.Documents, 1)
	assert.Equal(t, "txt", upload.Documents[0].FileType)

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/v1/evaluate", map[string]string{
		"resume_document_id": upload.Documents[0].ID,
		"job_text":           sampleJob,
	}))
	require.Equal(t, fiber.StatusOK, status, string(body))

	var result scoring.EvaluationResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1.0, result.SkillMatchRatio)
}

func TestUploadWithoutFile(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, multipartRequest(t, "/api/v1/upload", map[string]string{"x": "y"}, "", "", ""))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAsyncEvaluationAndResult(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/evaluations", map[string]string{
		"resume_text": sampleResume,
		"job_text":    sampleJob,
	}))
	require.Equal(t, fiber.StatusAccepted, status, string(body))

	var queued models.EvaluateResponse
	require.NoError(t, json.Unmarshal(body, &queued))
	assert.Equal(t, string(models.StatusQueued), queued.Status)

	status, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/result/"+queued.ID, nil))
	require.Equal(t, fiber.StatusOK, status)

	var result models.ResultResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, string(models.StatusCompleted), result.Status)
	assert.Equal(t, "Fullstack", result.Domain)
	require.NotNil(t, result.Result)
	assert.Equal(t, queued.ID, result.Result.ID)
}

func TestGetResultErrors(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/result/not-a-uuid", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/result/"+uuid.NewString(), nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSimilarCandidates(t *testing.T) {
	s := newTestServer(t, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		status, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/evaluate", map[string]string{
			"resume_text": sampleResume,
			"job_text":    sampleJob,
		}))
		require.Equal(t, fiber.StatusOK, status)
		var result scoring.EvaluationResult
		require.NoError(t, json.Unmarshal(body, &result))
		ids = append(ids, result.ID)
	}

	status, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/result/"+ids[0]+"/similar?limit=5", nil))
	require.Equal(t, fiber.StatusOK, status, string(body))

	var resp struct {
		Candidates []models.SimilarCandidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Candidates, 2)
	for _, c := range resp.Candidates {
		assert.NotEqual(t, ids[0], c.EvaluationID)
	}

	status, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/result/"+ids[0]+"/similar?limit=500", nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestTrainPublishesMapping(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/train", nil))
	require.Equal(t, fiber.StatusOK, status, string(body))

	var trained models.TrainResponse
	require.NoError(t, json.Unmarshal(body, &trained))
	assert.Len(t, trained.DomainMapping, 4)
	assert.Len(t, trained.Accuracies, 3)
	require.Len(t, s.runs.runs, 1)
	assert.Equal(t, models.TrainingCompleted, s.runs.runs[0].Status)
	assert.Equal(t, trained.RunID, s.runs.runs[0].ID.String())

	assert.Equal(t, trained.DomainMapping["Fullstack"], s.registry.BestModelFor("Fullstack"))

	status, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	require.Equal(t, fiber.StatusOK, status)

	var listed models.ModelsResponse
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Equal(t, []string{"hashing", "ngram"}, listed.EmbeddingModelIDs)
	assert.Equal(t, []string{"xgboost", "lightgbm", "catboost"}, listed.ClassifierIDs)
	assert.Equal(t, trained.DomainMapping, listed.DomainMapping)
	require.NotNil(t, listed.LastTrainingRun)
}

func TestTrainConflict(t *testing.T) {
	s := newTestServer(t, busyTrainer{})

	status, _ := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/train", nil))
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, fiber.StatusOK, status)

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.ModelsLoaded)
	assert.Equal(t, 2, health.EmbeddingModelsLoaded)
	assert.Equal(t, 0, health.ClassifierModelsLoaded)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.KindInvalidInput, "x"), fiber.StatusBadRequest},
		{apperr.New(apperr.KindUnsupportedFormat, "x"), fiber.StatusBadRequest},
		{apperr.New(apperr.KindValidation, "x"), fiber.StatusUnprocessableEntity},
		{apperr.New(apperr.KindNotFound, "x"), fiber.StatusNotFound},
		{apperr.New(apperr.KindConflict, "x"), fiber.StatusConflict},
		{apperr.New(apperr.KindInternal, "x"), fiber.StatusInternalServerError},
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{io.EOF, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
