package figflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/adapters/memory"
	"github.com/aretw0/figflow/pkg/host"
	"github.com/aretw0/figflow/pkg/observability"
	"github.com/aretw0/figflow/pkg/panel"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/transform"
	"github.com/aretw0/figflow/pkg/writeback"
	"github.com/prometheus/client_golang/prometheus"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "0.1.0-dev"

// App wires a Host Controller to an in-process Panel Session.
// It is the entry point for the CLI, the web adapter and the MCP server.
type App struct {
	Host      *host.Host
	Workspace *memory.Workspace

	notifier    *notifier
	transformer ports.Transformer
	documents   DocumentOpener
	factory     *memory.PanelFactory
	registry    *prometheus.Registry
	metrics     *observability.Metrics
	logger      *slog.Logger

	baseURL       string
	transformOpts []transform.Option
	delay         time.Duration
	locker        ports.DistributedLocker
	bufferSize    int

	mu    sync.Mutex
	panel *panel.Session
	wg    sync.WaitGroup
	ctx   context.Context
	stop  context.CancelFunc
	once  sync.Once
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithTransformer replaces the HTTP transformation client.
func WithTransformer(t ports.Transformer) Option {
	return func(a *App) {
		a.transformer = t
	}
}

// WithBaseURL points the default HTTP transformation client at baseURL.
// Ignored when WithTransformer is given.
func WithBaseURL(baseURL string) Option {
	return func(a *App) {
		a.baseURL = baseURL
	}
}

// WithTransformOptions configures the default HTTP transformation client.
func WithTransformOptions(opts ...transform.Option) Option {
	return func(a *App) {
		a.transformOpts = append(a.transformOpts, opts...)
	}
}

// WithDocuments sets how OpenDocument creates documents. Defaults to MemoryDocuments.
func WithDocuments(open DocumentOpener) Option {
	return func(a *App) {
		a.documents = open
	}
}

// WithWriteDelay sets the pause between two inserted characters.
func WithWriteDelay(d time.Duration) Option {
	return func(a *App) {
		a.delay = d
	}
}

// WithLocker serializes write-backs on the same document across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = l
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
	}
}

// WithBufferSize sets the per-direction message queue capacity between Host and Panel.
func WithBufferSize(n int) Option {
	return func(a *App) {
		a.bufferSize = n
	}
}

// New creates an App. No panel is open until OpenOrReveal.
func New(opts ...Option) *App {
	a := &App{
		Workspace: memory.NewWorkspace(),
		logger:    logging.NewNop(),
		documents: MemoryDocuments(),
		baseURL:   "http://localhost:5000",
		delay:     writeback.DefaultDelay,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.metrics = observability.NewMetrics(a.registry)
	if a.transformer == nil {
		opts := append([]transform.Option{
			transform.WithLogger(a.logger),
			transform.WithMetrics(a.metrics),
		}, a.transformOpts...)
		a.transformer = transform.New(a.baseURL, opts...)
	}

	a.ctx, a.stop = context.WithCancel(context.Background())
	a.notifier = newNotifier(a.logger)
	a.factory = memory.NewPanelFactory(a.spawn, memory.WithBufferSize(a.bufferSize))
	a.Host = host.New(a.Workspace, a.factory, a.notifier,
		host.WithLogger(a.logger),
		host.WithMetrics(a.metrics),
		host.WithWriteDelay(a.delay),
		host.WithLocker(a.locker),
	)
	return a
}

// spawn starts the Panel Session for a freshly opened panel.
func (a *App) spawn(endpoint ports.PanelEndpoint) {
	sess := panel.New(endpoint, a.transformer, panel.WithLogger(a.logger.With("component", "panel")))

	a.mu.Lock()
	a.panel = sess
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := sess.Run(a.ctx); err != nil && a.ctx.Err() == nil {
			a.logger.Error("Panel stopped", "err", err)
		}
		a.mu.Lock()
		if a.panel == sess {
			a.panel = nil
		}
		a.mu.Unlock()
	}()
}

// OpenOrReveal opens the panel or brings it to the foreground, sending the focused document.
func (a *App) OpenOrReveal(ctx context.Context) error {
	return a.Host.OpenOrReveal(ctx)
}

// Panel returns the live Panel Session.
func (a *App) Panel() (*panel.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.panel, a.panel != nil
}

// ClosePanel disposes the panel as if the user closed it.
func (a *App) ClosePanel() error {
	if sess, ok := a.Panel(); ok {
		return sess.Close()
	}
	return a.Host.Dispose()
}

// OpenDocument creates the named document holding text and focuses it.
func (a *App) OpenDocument(ctx context.Context, name, text string) (ports.Document, error) {
	doc, err := a.documents(ctx, name, text)
	if err != nil {
		return nil, fmt.Errorf("open document %q: %w", name, err)
	}
	a.Workspace.Open(doc)
	a.logger.Debug("Document opened", "name", name, "bytes", len(text))
	return doc, nil
}

// WriteBack replaces the focused document with code, one character at a time.
func (a *App) WriteBack(ctx context.Context, code string) (*writeback.Job, error) {
	return a.Host.WriteBack(ctx, code)
}

// ActiveDocument returns the focused document.
func (a *App) ActiveDocument() (ports.Document, bool) {
	return a.Workspace.ActiveDocument()
}

// Notifications returns every user-visible notification raised so far.
func (a *App) Notifications() []memory.Notification {
	return a.notifier.All()
}

// Registry returns the Prometheus registry holding figflow metrics.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Close disposes the panel, cancels any write-back and waits for every goroutine.
func (a *App) Close() error {
	var err error
	a.once.Do(func() {
		err = a.Host.Close()
		a.stop()
		a.wg.Wait()
	})
	return err
}

// notifier records notifications and mirrors them to the log.
type notifier struct {
	*memory.Notifier
	logger *slog.Logger
}

func newNotifier(logger *slog.Logger) *notifier {
	return &notifier{Notifier: memory.NewNotifier(), logger: logger}
}

func (n *notifier) Info(ctx context.Context, message string) {
	n.logger.Info(message, "source", "notification")
	n.Notifier.Info(ctx, message)
}

func (n *notifier) Error(ctx context.Context, message string) {
	n.logger.Error(message, "source", "notification")
	n.Notifier.Error(ctx, message)
}
