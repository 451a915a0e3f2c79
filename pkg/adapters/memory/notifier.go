package memory

import (
	"context"
	"sync"
)

// Notification is a recorded user-visible notification.
type Notification struct {
	Level   string
	Message string
}

// Notifier implements ports.Notifier by recording notifications.
// Useful for tests and for headless hosts that surface them later.
type Notifier struct {
	mu    sync.Mutex
	items []Notification
}

// NewNotifier creates an empty recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Info(ctx context.Context, message string) {
	n.record("info", message)
}

func (n *Notifier) Error(ctx context.Context, message string) {
	n.record("error", message)
}

func (n *Notifier) record(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Level: level, Message: message})
}

// All returns a copy of every notification so far.
func (n *Notifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Errors returns only the error-level notifications.
func (n *Notifier) Errors() []Notification {
	var out []Notification
	for _, item := range n.All() {
		if item.Level == "error" {
			out = append(out, item)
		}
	}
	return out
}
