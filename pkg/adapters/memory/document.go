package memory

import (
	"context"
	"sync"

	"github.com/aretw0/figflow/pkg/domain"
)

// Document implements ports.Document in memory.
// Safe for concurrent use.
type Document struct {
	name   string
	text   string
	closed bool
	mu     sync.RWMutex
}

// NewDocument creates a new in-memory document holding text.
func NewDocument(name, text string) *Document {
	return &Document{
		name: name,
		text: text,
	}
}

// Name returns the document name.
func (d *Document) Name() string {
	return d.name
}

// Text returns the current contents.
func (d *Document) Text(ctx context.Context) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return "", domain.ErrDocumentClosed
	}
	return d.text, nil
}

// Len returns the current length in bytes.
func (d *Document) Len(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0, domain.ErrDocumentClosed
	}
	return len(d.text), nil
}

// Replace applies a single edit atomically.
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
	d.text = domain.Splice(d.text, r, text)
	return nil
}

// Close makes every subsequent operation fail with domain.ErrDocumentClosed.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
