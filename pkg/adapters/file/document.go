// Package file provides a ports.Document backed by a file on the local filesystem.
// Every edit is persisted before Replace returns.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
)

// Document implements ports.Document on top of a single file.
// The contents are cached in memory; the file is rewritten atomically on every edit.
type Document struct {
	path   string
	sync   bool
	mu     sync.RWMutex
	text   string
	closed bool
}

// Option configures a Document.
type Option func(*Document)

// WithoutSync skips the fsync before each rename.
// Edits stay atomic but may be lost on power failure.
func WithoutSync() Option {
	return func(d *Document) {
		d.sync = false
	}
}

// Open loads the document at path. A missing file is created empty.
func Open(path string, opts ...Option) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	d := &Document{path: path, sync: true}
	for _, opt := range opts {
		opt(d)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		d.text = string(data)
	case os.IsNotExist(err):
		if err := d.persist(""); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return d, nil
}

// Name returns the file path.
func (d *Document) Name() string {
	return d.path
}

func (d *Document) Text(ctx context.Context) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return "", domain.ErrDocumentClosed
	}
	return d.text, nil
}

func (d *Document) Len(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0, domain.ErrDocumentClosed
	}
	return len(d.text), nil
}

// Replace applies the edit and writes the whole file before returning.
// On a write failure the cached contents are left unchanged.
func (d *Document) Replace(ctx context.Context, r domain.Range, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.ErrDocumentClosed
	}
	if err := r.Validate(len(d.text)); err != nil {
		return err
	}

	next := domain.Splice(d.text, r, text)
	if err := d.persist(next); err != nil {
		return err
	}
	d.text = next
	return nil
}

// Close detaches the document. The file is left on disk.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// persist writes to a temp file in the same directory, then renames it over the target.
func (d *Document) persist(text string) error {
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.WriteString(text); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if d.sync {
		if err := tmpFile.Sync(); err != nil {
			return fmt.Errorf("failed to fsync temp file: %w", err)
		}
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if _, err := os.Stat(d.path); err == nil {
		if err := os.Remove(d.path); err != nil {
			return fmt.Errorf("failed to remove previous document: %w", err)
		}
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

var _ ports.Document = (*Document)(nil)
