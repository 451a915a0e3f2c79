package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/figflow/pkg/adapters/file"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/writeback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDocument_Contract(t *testing.T) {
	ports.RunDocumentContract(t, func(t *testing.T, text string) ports.Document {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
		doc, err := file.Open(path, file.WithoutSync())
		require.NoError(t, err)
		return doc
	})
}

func TestFileDocument_PersistsEveryEdit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "main.py")

	doc, err := file.Open(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "missing file is created empty")

	require.NoError(t, doc.Replace(ctx, domain.At(0), "x=1"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x=1", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileDocument_WriteBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0644))

	doc, err := file.Open(path, file.WithoutSync())
	require.NoError(t, err)

	require.NoError(t, writeback.Run(ctx, doc, "x = 1", writeback.Options{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(data))
}

func TestFileDocument_Closed(t *testing.T) {
	ctx := context.Background()
	doc, err := file.Open(filepath.Join(t.TempDir(), "a.txt"))
	require.NoError(t, err)
	require.NoError(t, doc.Close())

	_, err = doc.Text(ctx)
	assert.ErrorIs(t, err, domain.ErrDocumentClosed)
	assert.ErrorIs(t, doc.Replace(ctx, domain.At(0), "y"), domain.ErrDocumentClosed)
}

func TestFileDocument_EmptyPath(t *testing.T) {
	_, err := file.Open("")
	assert.Error(t, err)
}
