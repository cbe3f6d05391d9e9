package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/extraction"
	"alfredoptarigan/resume-matcher/internal/ml"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/registry"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/scoring"
	"alfredoptarigan/resume-matcher/internal/similarity"
	"alfredoptarigan/resume-matcher/internal/training"
)

type fakeGemini struct {
	response  string
	err       error
	embedding []float32
	prompts   []string
}

func (f *fakeGemini) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return f.embedding, f.err
}

func (f *fakeGemini) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, _ int) (string, error) {
	return f.GenerateText(ctx, prompt, temperature)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"text":"Acme","label":"ORG"}]`, `[{"text":"Acme","label":"ORG"}]`},
		{"fenced", "```json\n[{\"text\":\"a\"}]\n```", `[{"text":"a"}]`},
		{"prose around object", `Here you go: {"a": 1} thanks`, `{"a": 1}`},
		{"array before object", `note [ {"a":1} ]`, `[ {"a":1} ]`},
		{"no json", "  nothing  ", "nothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestGeminiRecognizer(t *testing.T) {
	gemini := &fakeGemini{response: "```json\n[" +
		`{"text": "Acme Corp", "label": "org"},` +
		`{"text": "Bachelor of Science", "label": "EDUCATION"},` +
		`{"text": "Senior Engineer", "label": "TITLE"},` +
		`{"text": "whatever", "label": "COLOR"},` +
		`{"text": "  ", "label": "MISC"}` +
		"]\n```"}
	r := NewGeminiRecognizer(gemini, 1)

	entities, err := r.Recognize(context.Background(), "Senior Engineer at Acme Corp. Bachelor of Science.")
	require.NoError(t, err)
	assert.Equal(t, []extraction.Entity{
		{Text: "Acme Corp", Label: extraction.LabelOrg},
		{Text: "Bachelor of Science", Label: extraction.LabelEducation},
		{Text: "Senior Engineer", Label: extraction.LabelTitle},
	}, entities)
	require.Len(t, gemini.prompts, 1)
	assert.Contains(t, gemini.prompts[0], "Acme Corp")
}

func TestGeminiRecognizerErrors(t *testing.T) {
	r := NewGeminiRecognizer(&fakeGemini{err: errors.New("quota exceeded")}, 1)
	_, err := r.Recognize(context.Background(), "some resume")
	assert.Error(t, err)

	r = NewGeminiRecognizer(&fakeGemini{response: "not json"}, 1)
	_, err = r.Recognize(context.Background(), "some resume")
	assert.Error(t, err)

	gemini := &fakeGemini{}
	entities, err := NewGeminiRecognizer(gemini, 1).Recognize(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Empty(t, gemini.prompts)
}

func TestGeminiRecognizerFeedsExtractor(t *testing.T) {
	gemini := &fakeGemini{response: `[{"text": "Master of Science", "label": "EDUCATION"}]`}
	x := extraction.NewExtractor(NewGeminiRecognizer(gemini, 1), zap.NewNop())

	parsed := x.Extract(context.Background(), "Master of Science, 4 years of experience with Python")
	assert.Equal(t, []string{"Master of Science"}, parsed.Education)
	assert.Equal(t, 4, parsed.ExperienceYears)
	assert.Contains(t, parsed.Skills, "Python")
}

func TestGeminiEmbedder(t *testing.T) {
	e := NewGeminiEmbedder(&fakeGemini{embedding: []float32{0.5, -1, 2}})
	vec, err := e.Encode(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1, 2}, vec)

	_, err = NewGeminiEmbedder(&fakeGemini{err: errors.New("down")}).Encode(context.Background(), "text")
	assert.Error(t, err)
}

func TestBuildEmbeddingModels(t *testing.T) {
	log := zap.NewNop()

	got := BuildEmbeddingModels([]string{"hashing", "gemini", "bert", "ngram"}, nil, log)
	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"hashing", "ngram"}, ids)

	got = BuildEmbeddingModels([]string{"gemini"}, &fakeGemini{}, log)
	require.Len(t, got, 1)
	assert.IsType(t, &GeminiEmbedder{}, got[0].Embedder)
}

func TestIndexEmbedder(t *testing.T) {
	e, dims := IndexEmbedder(nil)
	assert.EqualValues(t, similarity.DefaultHashDimensions, dims)
	vec, err := e.Encode(context.Background(), "python developer")
	require.NoError(t, err)
	assert.Len(t, vec, similarity.DefaultHashDimensions)

	_, dims = IndexEmbedder(&fakeGemini{})
	assert.EqualValues(t, 768, dims)
}

func TestDocxText(t *testing.T) {
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Python</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	text, err := docxText(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nPython\tGo\n", text)
}

func writeDocx(t *testing.T, path, body string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	parser := NewDocumentParserService()

	txt := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(txt, []byte("  Jane Doe  \n\n\n  Python developer \n"), 0o644))
	text, err := parser.ExtractText(txt)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nPython developer", text)

	docx := filepath.Join(dir, "resume.DOCX")
	writeDocx(t, docx, `<document><body><p><r><t>Data Engineer</t></r></p></body></document>`)
	text, err = parser.ExtractText(docx)
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer", text)

	exe := filepath.Join(dir, "resume.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o644))
	_, err = parser.ExtractText(exe)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedFormat), err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte(" \n \n"), 0o644))
	_, err = parser.ExtractText(empty)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), err)

	_, err = parser.ExtractText(filepath.Join(dir, "missing.pdf"))
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)

	broken := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))
	_, err = parser.ExtractText(broken)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a\nb", CleanText("\n  a \n\n\t\n b\n"))
	assert.Equal(t, "", CleanText(" \n "))
}

func fileHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestStorageSaveFile(t *testing.T) {
	dir := t.TempDir()
	storage := NewStorageService(dir, 64)

	name, path, err := storage.SaveFile(fileHeader(t, "cv.TXT", "Python developer"), "resume")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "resume_"))
	assert.True(t, strings.HasSuffix(name, ".txt"))
	assert.Equal(t, filepath.Join(dir, name), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Python developer", string(data))

	_, _, err = storage.SaveFile(fileHeader(t, "cv.exe", "MZ"), "resume")
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedFormat), err)

	_, _, err = storage.SaveFile(fileHeader(t, "cv.txt", strings.Repeat("x", 100)), "resume")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), err)

	require.NoError(t, storage.DeleteFile(name))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCandidatePayloadRoundTrip(t *testing.T) {
	id := uuid.New()
	result := &scoring.EvaluationResult{FinalScore: 0.72, Recommendation: scoring.GoodMatch}

	point := &qdrant.ScoredPoint{
		Score:   0.91,
		Payload: qdrant.NewValueMap(candidatePayload(id, result, "Cloud")),
	}
	got := decodeCandidate(point)

	assert.Equal(t, models.SimilarCandidate{
		EvaluationID:   id.String(),
		Score:          0.91,
		Domain:         "Cloud",
		FinalScore:     0.72,
		Recommendation: "Good Match",
	}, got)
}

type memEvalRepo struct {
	mu    sync.Mutex
	evals map[uuid.UUID]models.Evaluation
}

func (r *memEvalRepo) Create(eval *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evals[eval.ID] = *eval
	return nil
}

func (r *memEvalRepo) FindByID(id uuid.UUID) (*models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.evals[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "evaluation not found")
	}
	return &eval, nil
}

func (r *memEvalRepo) UpdateStatus(id uuid.UUID, status models.EvaluationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.evals[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "evaluation not found")
	}
	eval.Status = status
	r.evals[id] = eval
	return nil
}

func (r *memEvalRepo) UpdateResult(id uuid.UUID, result *scoring.EvaluationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval := r.evals[id]
	eval.Status = models.StatusCompleted
	eval.Result = result
	r.evals[id] = eval
	return nil
}

func (r *memEvalRepo) UpdateError(id uuid.UUID, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval := r.evals[id]
	eval.Status = models.StatusFailed
	eval.ErrorMessage = &msg
	r.evals[id] = eval
	return nil
}

func (r *memEvalRepo) FindPendingJobs(int) ([]models.Evaluation, error) { return nil, nil }

type memDocRepo struct {
	docs map[uuid.UUID]models.Document
}

func (r *memDocRepo) Create(doc *models.Document) error {
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "document not found")
	}
	return &doc, nil
}

func newTestEvaluator(t *testing.T, docs *memDocRepo) (EvaluatorService, *memEvalRepo) {
	t.Helper()
	evals := &memEvalRepo{evals: map[uuid.UUID]models.Evaluation{}}
	return newTestEvaluatorWithRepo(t, docs, evals), evals
}

func newTestEvaluatorWithRepo(t *testing.T, docs *memDocRepo, evals repositories.EvaluationRepository) EvaluatorService {
	t.Helper()
	log := zap.NewNop()
	scorer, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	engine := similarity.NewEngine(BuildEmbeddingModels([]string{"hashing", "ngram"}, nil, log), time.Second, log)
	matcher := &Matcher{
		Extractor:  extraction.NewExtractor(nil, log),
		Similarity: engine,
		Scorer:     scorer,
		Registry:   registry.New(engine.ModelIDs()),
	}
	return NewEvaluatorService(matcher, evals, docs, NewDocumentParserService(), nil, "Fullstack", log)
}

func TestEvaluatorResolvesResumeText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("Python developer, 3 years of experience"), 0o644))

	withText := models.Document{ID: uuid.New(), Text: "React developer with 2 years of experience"}
	fromFile := models.Document{ID: uuid.New(), FilePath: path}
	docs := &memDocRepo{docs: map[uuid.UUID]models.Document{withText.ID: withText, fromFile.ID: fromFile}}
	evaluator, evals := newTestEvaluator(t, docs)
	ctx := context.Background()

	result, err := evaluator.Evaluate(ctx, EvaluationInput{ResumeDocumentID: &withText.ID, JobText: "React engineer"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ParsedEntities.ExperienceYears)
	stored, err := evals.FindByID(uuid.MustParse(result.ID))
	require.NoError(t, err)
	assert.Equal(t, "Fullstack", stored.Domain)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.FinalScore)
	assert.Equal(t, result.FinalScore, *stored.FinalScore)

	result, err = evaluator.Evaluate(ctx, EvaluationInput{ResumeDocumentID: &fromFile.ID, JobText: "Python engineer", Domain: " Data "})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ParsedEntities.ExperienceYears)
	stored, err = evals.FindByID(uuid.MustParse(result.ID))
	require.NoError(t, err)
	assert.Equal(t, "Data", stored.Domain)
}

func TestEvaluatorInputErrors(t *testing.T) {
	evaluator, _ := newTestEvaluator(t, &memDocRepo{docs: map[uuid.UUID]models.Document{}})
	ctx := context.Background()
	missing := uuid.New()

	_, err := evaluator.Evaluate(ctx, EvaluationInput{ResumeText: "resume"})
	assert.True(t, apperr.Is(err, apperr.KindValidation), err)

	_, err = evaluator.Evaluate(ctx, EvaluationInput{JobText: "job"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), err)

	_, err = evaluator.Evaluate(ctx, EvaluationInput{JobText: "job", ResumeDocumentID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)

	_, err = evaluator.SimilarCandidates(ctx, uuid.New(), 5)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)
}

func TestEvaluateCandidateMarksFailure(t *testing.T) {
	evaluator, evals := newTestEvaluator(t, &memDocRepo{docs: map[uuid.UUID]models.Document{}})

	missingDoc := uuid.New()
	eval := &models.Evaluation{ID: uuid.New(), JobText: "job", ResumeDocumentID: &missingDoc, Status: models.StatusQueued}
	require.NoError(t, evals.Create(eval))

	err := evaluator.EvaluateCandidate(context.Background(), eval.ID)
	require.Error(t, err)

	stored, err := evals.FindByID(eval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
}

type brokenResultRepo struct {
	*memEvalRepo
}

func (brokenResultRepo) UpdateResult(uuid.UUID, *scoring.EvaluationResult) error {
	return errors.New("db down")
}

func TestEvaluateCandidateMarksFailureWhenResultNotSaved(t *testing.T) {
	evals := &memEvalRepo{evals: map[uuid.UUID]models.Evaluation{}}
	evaluator := newTestEvaluatorWithRepo(t, &memDocRepo{docs: map[uuid.UUID]models.Document{}}, brokenResultRepo{evals})

	eval := &models.Evaluation{ID: uuid.New(), ResumeText: "Python developer", JobText: "Python engineer", Status: models.StatusQueued}
	require.NoError(t, evals.Create(eval))

	err := evaluator.EvaluateCandidate(context.Background(), eval.ID)
	require.ErrorContains(t, err, "db down")

	stored, err := evals.FindByID(eval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "db down")
}

func TestEvaluateKeepsRawResumeText(t *testing.T) {
	evaluator, evals := newTestEvaluator(t, &memDocRepo{docs: map[uuid.UUID]models.Document{}})
	resume := "  Python developer, 2 years of experience\n"

	result, err := evaluator.Evaluate(context.Background(), EvaluationInput{ResumeText: resume, JobText: "Python engineer"})
	require.NoError(t, err)
	assert.Equal(t, resume, result.ParsedEntities.RawText)

	stored, err := evals.FindByID(uuid.MustParse(result.ID))
	require.NoError(t, err)
	assert.Equal(t, resume, stored.ResumeText)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.True(t, utf8.ValidString(truncateRunes(strings.Repeat("é", 50), 7)))
}

type countingEvaluator struct {
	EvaluatorService
	calls atomic.Int32
}

func (c *countingEvaluator) EvaluateCandidate(context.Context, uuid.UUID) error {
	c.calls.Add(1)
	return nil
}

func TestWorkerProcessesQueuedJobs(t *testing.T) {
	evals := &memEvalRepo{evals: map[uuid.UUID]models.Evaluation{}}
	evaluator := &countingEvaluator{}
	w := NewWorker(evals, evaluator, 2, 10, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 5; i++ {
		w.EnqueueJob(uuid.New())
	}

	require.Eventually(t, func() bool { return evaluator.calls.Load() == 5 }, 2*time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()

	// A stopped worker refuses new work instead of blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			w.EnqueueJob(uuid.New())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EnqueueJob blocked on a stopped worker")
	}
}

type memRunRepo struct {
	runs []models.TrainingRun
}

func (r *memRunRepo) Create(run *models.TrainingRun) error {
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memRunRepo) FindLatest() (*models.TrainingRun, error) {
	if len(r.runs) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no training runs recorded")
	}
	return &r.runs[len(r.runs)-1], nil
}

func quickPipeline() *training.Pipeline {
	cfg := training.DefaultConfig()
	cfg.Samples = 200
	for f, p := range cfg.Params {
		p.Rounds = 5
		cfg.Params[f] = p
	}
	return training.NewPipeline(cfg, nil, nil, zap.NewNop())
}

func TestTrainingServiceRecordsRuns(t *testing.T) {
	runs := &memRunRepo{}
	svc := NewTrainingService(quickPipeline(), runs, zap.NewNop())

	result, err := svc.Train(context.Background())
	require.NoError(t, err)

	latest, err := svc.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, models.TrainingCompleted, latest.Status)
	assert.Equal(t, result.RunID, latest.ID.String())
	assert.Equal(t, 200, latest.Samples)
	assert.Equal(t, result.DomainMapping, latest.DomainMapping)
	assert.Len(t, latest.Accuracies, len(ml.Families))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Train(ctx)
	require.Error(t, err)

	latest, err = svc.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, models.TrainingFailed, latest.Status)
	require.NotNil(t, latest.ErrorMessage)
	assert.Len(t, runs.runs, 2)
}
