package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/figflow"
	"github.com/aretw0/figflow/internal/config"
	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/internal/presentation/tui"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "figflow version "+figflow.Version+"\n", buf.String())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://file\nlog:\n  level: warn\n"), 0644))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", config.DefaultPath, "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("api", "", "")
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("api", "http://flag"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://flag", cfg.API.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestBuildApp_FileStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Kind = config.StoreFile
	cfg.Store.Path = t.TempDir()

	app, cleanup, err := buildApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer cleanup()

	_, err = app.OpenDocument(context.Background(), "main.py", "x=1")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Store.Path, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "x=1", string(data))
}

type shout struct{}

func (shout) Transform(ctx context.Context, req domain.TransformationRequest) (domain.TransformationResult, error) {
	return domain.TransformationResult{Code: strings.ToUpper(req.Code)}, nil
}

func TestChat_PromptWritesBackAndReports(t *testing.T) {
	ctx := context.Background()
	app := figflow.New(figflow.WithTransformer(shout{}), figflow.WithWriteDelay(0))
	defer app.Close()

	doc, err := app.OpenDocument(ctx, "main.py", "x=1")
	require.NoError(t, err)
	require.NoError(t, app.OpenOrReveal(ctx))
	p, _ := app.Panel()
	require.Eventually(t, func() bool {
		code, ok := p.Snapshot()
		return ok && code == "x=1"
	}, time.Second, 5*time.Millisecond)

	var out bytes.Buffer
	c := &chat{app: app, panel: p, renderer: tui.NewRenderer(false), out: &out}

	assert.False(t, c.handle(ctx, "shout"))
	text, _ := doc.Text(ctx)
	assert.Equal(t, "X=1", text)
	assert.Contains(t, out.String(), "info> Code updated")

	out.Reset()
	assert.False(t, c.handle(ctx, "/code"))
	assert.Equal(t, "X=1\n", out.String())

	out.Reset()
	assert.False(t, c.handle(ctx, "/image /does/not/exist.png"))
	assert.Contains(t, out.String(), "error>")

	assert.True(t, c.handle(ctx, "/quit"))
}
