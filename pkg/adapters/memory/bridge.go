package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/protocol"
)

// DefaultBufferSize is the number of in-flight messages per direction before Post blocks.
const DefaultBufferSize = 64

// SpawnFunc starts the Panel side of a freshly opened panel.
// It is called synchronously by Open; long-running work belongs in a goroutine.
type SpawnFunc func(endpoint ports.PanelEndpoint)

// PanelFactory implements ports.PanelFactory with an in-process channel pair.
// The two ends share nothing but the FIFO queues.
type PanelFactory struct {
	spawn  SpawnFunc
	buffer int
	opened atomic.Int64
}

// FactoryOption configures the PanelFactory.
type FactoryOption func(*PanelFactory)

// WithBufferSize sets the per-direction queue capacity.
func WithBufferSize(n int) FactoryOption {
	return func(f *PanelFactory) {
		if n > 0 {
			f.buffer = n
		}
	}
}

// NewPanelFactory creates a factory that hands the Panel end of every new bridge to spawn.
func NewPanelFactory(spawn SpawnFunc, opts ...FactoryOption) *PanelFactory {
	f := &PanelFactory{
		spawn:  spawn,
		buffer: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open implements ports.PanelFactory.
func (f *PanelFactory) Open(ctx context.Context) (ports.PanelView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := NewBridge(f.buffer)
	f.opened.Add(1)
	if f.spawn != nil {
		f.spawn(b.Panel())
	}
	return b.Host(), nil
}

// Opened returns how many panels this factory has created.
func (f *PanelFactory) Opened() int {
	return int(f.opened.Load())
}

// Bridge is a pair of FIFO queues connecting a Host end and a Panel end.
type Bridge struct {
	toPanel chan protocol.Message
	toHost  chan protocol.Message
	reveals chan struct{}
	done    chan struct{}
	once    sync.Once
	revealN atomic.Int64
}

// NewBridge creates a bridge with the given per-direction capacity.
func NewBridge(buffer int) *Bridge {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Bridge{
		toPanel: make(chan protocol.Message, buffer),
		toHost:  make(chan protocol.Message, buffer),
		reveals: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Host returns the Host end.
func (b *Bridge) Host() *HostEnd {
	return &HostEnd{b: b}
}

// Panel returns the Panel end.
func (b *Bridge) Panel() *PanelEnd {
	return &PanelEnd{b: b}
}

// Reveals returns how many times the Host revealed this panel.
func (b *Bridge) Reveals() int {
	return int(b.revealN.Load())
}

func (b *Bridge) close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) send(ctx context.Context, ch chan<- protocol.Message, msg protocol.Message) error {
	select {
	case <-b.done:
		return domain.ErrSessionClosed
	default:
	}

	select {
	case <-b.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case ch <- msg:
		return nil
	}
}

// HostEnd implements ports.PanelView.
type HostEnd struct {
	b *Bridge
}

func (h *HostEnd) Post(ctx context.Context, msg protocol.Message) error {
	return h.b.send(ctx, h.b.toPanel, msg)
}

func (h *HostEnd) Messages() <-chan protocol.Message { return h.b.toHost }

func (h *HostEnd) Done() <-chan struct{} { return h.b.done }

func (h *HostEnd) Reveal(ctx context.Context) error {
	select {
	case <-h.b.done:
		return domain.ErrSessionClosed
	default:
	}
	h.b.revealN.Add(1)
	select {
	case h.b.reveals <- struct{}{}:
	default:
	}
	return nil
}

func (h *HostEnd) Dispose() error {
	h.b.close()
	return nil
}

// Bridge returns the underlying bridge.
func (h *HostEnd) Bridge() *Bridge { return h.b }

// PanelEnd implements ports.PanelEndpoint.
type PanelEnd struct {
	b *Bridge
}

func (p *PanelEnd) Post(ctx context.Context, msg protocol.Message) error {
	return p.b.send(ctx, p.b.toHost, msg)
}

func (p *PanelEnd) Messages() <-chan protocol.Message { return p.b.toPanel }

func (p *PanelEnd) Reveals() <-chan struct{} { return p.b.reveals }

func (p *PanelEnd) Done() <-chan struct{} { return p.b.done }

func (p *PanelEnd) Close() error {
	p.b.close()
	return nil
}

var (
	_ ports.PanelFactory  = (*PanelFactory)(nil)
	_ ports.PanelView     = (*HostEnd)(nil)
	_ ports.PanelEndpoint = (*PanelEnd)(nil)
	_ ports.Document      = (*Document)(nil)
	_ ports.Editor        = (*Workspace)(nil)
)
