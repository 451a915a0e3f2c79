package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/figflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := write(t, "figflow.yaml", `
api:
  base_url: http://api.internal:9000
  timeout: 5s
writeback:
  delay: 0s
store:
  kind: redis
redis:
  addr: redis:6379
  db: 2
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://api.internal:9000", cfg.API.BaseURL)
	assert.Equal(t, "/api/process", cfg.API.ProcessPath, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, time.Duration(0), cfg.WriteBack.Delay.Std())
	assert.Equal(t, config.StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "figflow.json", `{"writeback": {"delay": "25ms"}, "server": {"addr": ":9090"}}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, cfg.WriteBack.Delay.Std())
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "Bad YAML", file: "a.yaml", content: "api: [unclosed"},
		{name: "Bad Duration", file: "b.yaml", content: "writeback:\n  delay: soon\n"},
		{name: "Unknown Store", file: "c.yaml", content: "store:\n  kind: s3\n"},
		{name: "Negative Delay", file: "d.yaml", content: "writeback:\n  delay: -1s\n"},
		{name: "Empty Base URL", file: "e.json", content: `{"api": {"base_url": ""}}`},
		{name: "Unknown Log Format", file: "f.yaml", content: "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}
