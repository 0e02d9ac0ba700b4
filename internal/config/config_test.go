package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ticket-triage", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())

	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "triage:queue", cfg.Worker.QueueKey)
	assert.Equal(t, 2, cfg.Worker.Concurrency)

	assert.InDelta(t, 0.3, cfg.Triage.RelevanceThreshold, 1e-9)
	assert.InDelta(t, 0.6, cfg.Triage.AutoResolveConfidence, 1e-9)
	assert.InDelta(t, 0.5, cfg.Triage.EscalationConfidence, 1e-9)

	assert.Contains(t, cfg.Triage.Tier1Keywords, "password")
	assert.Contains(t, cfg.Triage.Tier2Keywords, "billing")
	assert.Contains(t, cfg.Triage.ComplexKeywords, "error")

	require.NotEmpty(t, cfg.Triage.Categories)
	assert.Equal(t, "password_reset", cfg.Triage.Categories[0].Name)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TRIAGE_AUTO_RESOLVE_CONFIDENCE", "0.75")
	t.Setenv("TRIAGE_TIER1_KEYWORDS", "pin, badge ,")
	t.Setenv("TRIAGE_CATEGORIES", "hardware:printer|laptop; network:vpn|wifi")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.InDelta(t, 0.75, cfg.Triage.AutoResolveConfidence, 1e-9)
	assert.Equal(t, []string{"pin", "badge"}, cfg.Triage.Tier1Keywords)

	require.Len(t, cfg.Triage.Categories, 2)
	assert.Equal(t, "hardware", cfg.Triage.Categories[0].Name)
	assert.Equal(t, []string{"printer", "laptop"}, cfg.Triage.Categories[0].Keywords)
	assert.Equal(t, "network", cfg.Triage.Categories[1].Name)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("TRIAGE_RELEVANCE_THRESHOLD", "high")
	t.Setenv("TRIAGE_CATEGORIES", "garbage-without-separator")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.InDelta(t, 0.3, cfg.Triage.RelevanceThreshold, 1e-9)
	assert.Equal(t, "password_reset", cfg.Triage.Categories[0].Name)
}

func TestTimeoutFallbacks(t *testing.T) {
	assert.Equal(t, 15*time.Second, HelpdeskConfig{}.Timeout())
	assert.Equal(t, 7*time.Second, HelpdeskConfig{TimeoutSeconds: 7}.Timeout())
	assert.Equal(t, 20*time.Second, EmbeddingConfig{}.Timeout())
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
}
