package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "research-orchestrator", cfg.Temporal.TaskQueue)
	assert.Equal(t, 2, cfg.Research.MaxInterviewTurns)
	assert.Equal(t, 3, cfg.Search.WebMaxDocs)
	assert.Equal(t, 2, cfg.Search.WikiMaxDocs)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFileWithEnvSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "research.yaml")
	data := []byte(`
gateway:
  base_url: http://gw.internal:9000
  model: test-model
research:
  max_interview_turns: 4
redis:
  addr: redis.internal:6379
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("GATEWAY_API_KEY", "sekrit")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://gw.internal:9000", cfg.Gateway.BaseURL)
	assert.Equal(t, "test-model", cfg.Gateway.Model)
	assert.Equal(t, 4, cfg.Research.MaxInterviewTurns)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "sekrit", cfg.Gateway.APIKey)
	// Defaults still fill unlisted fields.
	assert.Equal(t, "default", cfg.Temporal.Namespace)
}

func TestManagerLoadsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requests_per_sec: 5\n"), 0o644))

	m, err := NewManager(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer m.Stop()

	events := make(chan ChangeEvent, 4)
	m.OnChange("limits.yaml", func(e ChangeEvent) error {
		events <- e
		return nil
	})
	require.NoError(t, m.Start())

	cfg, ok := m.Get("limits.yaml")
	require.True(t, ok)
	assert.Equal(t, 5, cfg["requests_per_sec"])

	require.NoError(t, os.WriteFile(path, []byte("requests_per_sec: 9\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Config["requests_per_sec"] == 9 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}
