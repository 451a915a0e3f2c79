package ports

import (
	"context"

	"github.com/aretw0/figflow/pkg/domain"
)

// Document is a live text buffer owned by the Host.
// Offsets are byte offsets into the UTF-8 text.
type Document interface {
	// Name identifies the document (file path, buffer key).
	Name() string

	// Text returns the full current contents.
	Text(ctx context.Context) (string, error)

	// Len returns the current length in bytes.
	Len(ctx context.Context) (int, error)

	// Replace replaces the range r with text. It returns once the edit is applied.
	// Returns domain.ErrInvalidRange if r does not fit the current contents and
	// domain.ErrDocumentClosed if the document is no longer available.
	Replace(ctx context.Context, r domain.Range, text string) error
}

// Editor exposes the document the user is currently focused on.
type Editor interface {
	// ActiveDocument returns the focused document, or false if none is focused.
	ActiveDocument() (Document, bool)
}

// Notifier raises user-visible notifications on the Host side.
type Notifier interface {
	Info(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}
