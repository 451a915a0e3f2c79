package memory

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
)

// Workspace implements ports.Editor: a set of open documents, at most one focused.
type Workspace struct {
	docs   map[string]ports.Document
	active string
	mu     sync.RWMutex
}

// NewWorkspace creates an empty workspace with no focused document.
func NewWorkspace() *Workspace {
	return &Workspace{
		docs: make(map[string]ports.Document),
	}
}

// Open adds doc to the workspace (replacing any document with the same name) and focuses it.
func (w *Workspace) Open(doc ports.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[doc.Name()] = doc
	w.active = doc.Name()
}

// Focus makes the named document the active one.
func (w *Workspace) Focus(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.docs[name]; !ok {
		return fmt.Errorf("focus %q: %w", name, domain.ErrNoActiveDocument)
	}
	w.active = name
	return nil
}

// Blur leaves the workspace without a focused document.
func (w *Workspace) Blur() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = ""
}

// Close removes the named document. If it implements io.Closer it is closed too,
// so in-flight edits against it start failing.
func (w *Workspace) Close(name string) error {
	w.mu.Lock()
	doc, ok := w.docs[name]
	delete(w.docs, name)
	if w.active == name {
		w.active = ""
	}
	w.mu.Unlock()

	if !ok {
		return nil
	}
	if c, ok := doc.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Get returns the named document.
func (w *Workspace) Get(name string) (ports.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[name]
	return doc, ok
}

// Documents lists open document names in lexical order.
func (w *Workspace) Documents() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.docs))
	for name := range w.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveDocument implements ports.Editor.
func (w *Workspace) ActiveDocument() (ports.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.active == "" {
		return nil, false
	}
	doc, ok := w.docs[w.active]
	return doc, ok
}
