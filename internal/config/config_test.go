package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-matcher/internal/scoring"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("EMBEDDING_MODELS", "")
	t.Setenv("PORT", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DEFAULT_DOMAIN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "resume_matcher", cfg.Database.DBName)
	assert.False(t, cfg.Qdrant.Enabled())
	assert.Equal(t, []string{"hashing", "ngram"}, cfg.Models.EmbeddingModels)
	assert.Equal(t, "Fullstack", cfg.Models.DefaultDomain)
	assert.Equal(t, 10*time.Second, cfg.Models.EmbedTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Models.TrainTimeout)
	assert.Equal(t, 100, cfg.Worker.QueueSize)
}

func TestLoadFromEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=8080\nDEFAULT_DOMAIN=Cloud\n"), 0o644))
	t.Chdir(dir)

	// .env never overrides variables that exist, even empty ones.
	for _, key := range []string{"PORT", "DEFAULT_DOMAIN"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("QDRANT_URL", "localhost:6334")
	t.Setenv("EMBEDDING_MODELS", "NGRAM, hashing,ngram,")
	t.Setenv("WORKER_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "Cloud", cfg.Models.DefaultDomain)
	assert.True(t, cfg.Qdrant.Enabled())
	assert.Equal(t, []string{"ngram", "hashing", "gemini"}, cfg.Models.EmbeddingModels)
	assert.Equal(t, 10*time.Second, cfg.Worker.PollInterval)
}

func TestEmbeddingModels(t *testing.T) {
	assert.Empty(t, embeddingModels("", false))
	assert.Equal(t, []string{"gemini"}, embeddingModels(" , ", true))
	assert.Equal(t, []string{"gemini", "hashing"}, embeddingModels("gemini,hashing", true))
}

func TestLoadScoringDefaults(t *testing.T) {
	cfg, err := LoadScoring("")
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultConfig(), cfg)
}

func TestLoadScoringFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`weights:
  cosine_similarity: 0.5
  skill_match: 0.25
thresholds:
  strong_match: 0.85
`), 0o644))

	cfg, err := LoadScoring(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Weights.CosineSimilarity)
	assert.Equal(t, 0.25, cfg.Weights.SkillMatch)
	assert.Equal(t, 0.2, cfg.Weights.ExperienceMatch)
	assert.Equal(t, 0.85, cfg.Thresholds.StrongMatch)
	assert.Equal(t, 0.6, cfg.Thresholds.GoodMatch)
}

func TestLoadScoringEnvOverride(t *testing.T) {
	t.Setenv("SCORING_WEIGHTS_SKILL_MATCH", "0.45")

	cfg, err := LoadScoring("")
	require.NoError(t, err)
	assert.Equal(t, 0.45, cfg.Weights.SkillMatch)
}

func TestLoadScoringInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"thresholds": {"good_match": 0.9}}`), 0o644))

	_, err := LoadScoring(path)
	assert.ErrorContains(t, err, "strictly descending")

	_, err = LoadScoring(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
