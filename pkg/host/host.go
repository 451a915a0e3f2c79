package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/observability"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/protocol"
	"github.com/aretw0/figflow/pkg/session"
	"github.com/aretw0/figflow/pkg/writeback"
)

// User-facing notification texts.
const (
	MsgFileUploaded   = "File uploaded successfully!"
	MsgNoActiveEditor = "No active editor found"
	MsgCodeUpdated    = "Code updated"
)

// Host is the Host Controller.
type Host struct {
	editor   ports.Editor
	notifier ports.Notifier
	sessions *session.Manager
	slot     *writeback.Slot

	delay   time.Duration
	locker  ports.DistributedLocker
	metrics *observability.Metrics
	logger  *slog.Logger

	// Lifetime of dispatch loops and write-back jobs.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a Host reading documents from editor, opening panels through factory and
// reporting to the user through notifier.
func New(editor ports.Editor, factory ports.PanelFactory, notifier ports.Notifier, opts ...Option) *Host {
	h := &Host{
		editor:   editor,
		notifier: notifier,
		delay:    writeback.DefaultDelay,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.sessions = session.NewManager(factory,
		session.WithLogger(h.logger),
		session.WithDisposeHook(h.onSessionDisposed),
	)
	h.slot = writeback.NewSlot(writeback.Options{
		Delay:  h.delay,
		Locker: h.locker,
		Hooks: h.metrics.WriteBackHooks(writeback.Hooks{
			OnFinish: h.onWriteBackFinished,
		}),
	})
	return h
}

// OpenOrReveal opens the panel, or reveals it if it is already open, and sends it the
// current document snapshot. At most one session exists at any time.
func (h *Host) OpenOrReveal(ctx context.Context) error {
	sess, created, err := h.sessions.Acquire(ctx)
	if err != nil {
		return err
	}

	if created {
		h.logger.Info("Panel opened", "session_id", sess.ID)
		h.wg.Add(1)
		go h.serve(sess)
	} else {
		h.logger.Debug("Panel revealed", "session_id", sess.ID)
		if err := sess.View.Reveal(ctx); err != nil {
			return fmt.Errorf("failed to reveal panel: %w", err)
		}
	}

	return h.SendActiveEditorCode(ctx)
}

// SendActiveEditorCode posts the focused document's text to the panel as setCode.
// Without a focused document nothing is sent.
func (h *Host) SendActiveEditorCode(ctx context.Context) error {
	sess, err := h.sessions.Require()
	if err != nil {
		return err
	}

	snap, err := h.Snapshot(ctx)
	if errors.Is(err, domain.ErrNoActiveDocument) {
		h.logger.Debug("No active document, snapshot not sent", "session_id", sess.ID)
		return nil
	}
	if err != nil {
		return err
	}
	return h.post(ctx, sess, protocol.SetCode{Code: snap.Text})
}

// Snapshot reads the focused document. It returns domain.ErrNoActiveDocument when
// nothing is focused.
func (h *Host) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	doc, ok := h.editor.ActiveDocument()
	if !ok {
		return domain.Snapshot{}, domain.ErrNoActiveDocument
	}
	text, err := doc.Text(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to read %s: %w", doc.Name(), err)
	}
	return domain.Snapshot{Name: doc.Name(), Text: text}, nil
}

// Dispatch handles one message sent by the panel. It never fails: unknown commands
// are logged and ignored.
func (h *Host) Dispatch(ctx context.Context, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.FileSelected:
		h.logger.Info("File received", "bytes", len(m.Data))
		h.notifier.Info(ctx, MsgFileUploaded)

	case protocol.UpdateEditorCode:
		if _, err := h.WriteBack(ctx, m.Code); err != nil {
			h.logger.Warn("Write-back not started", "err", err)
		}

	case protocol.Status:
		if m.Kind == protocol.StatusError {
			h.logger.Warn("Panel reported error", "text", m.Text)
		} else {
			h.logger.Info("Panel reported success", "text", m.Text)
		}

	case protocol.Unknown:
		h.logger.Warn("Ignoring unknown panel command", "command", m.Name)

	default:
		h.logger.Warn("Ignoring unexpected panel message", "type", fmt.Sprintf("%T", msg))
	}
}

// WriteBack replaces the focused document with code, one character at a time.
// A write-back already in flight is cancelled first. Without a focused document no
// edit is made, the user is notified once and domain.ErrNoActiveDocument is returned.
func (h *Host) WriteBack(ctx context.Context, code string) (*writeback.Job, error) {
	doc, ok := h.editor.ActiveDocument()
	if !ok {
		h.notifier.Error(ctx, MsgNoActiveEditor)
		return nil, domain.ErrNoActiveDocument
	}

	h.logger.Info("Write-back started", "document", doc.Name(), "chars", utf8.RuneCountInString(code))
	return h.slot.Start(h.ctx, doc, code), nil
}

// Job returns the most recent write-back job, or nil.
func (h *Host) Job() *writeback.Job {
	return h.slot.Current()
}

// Session returns the live panel session, if any.
func (h *Host) Session() (*session.Session, bool) {
	return h.sessions.Current()
}

// Dispose closes the panel from the Host side. The in-flight write-back is cancelled.
func (h *Host) Dispose() error {
	return h.sessions.DisposeCurrent()
}

// Close disposes the panel, stops any write-back and waits for background work.
func (h *Host) Close() error {
	var err error
	h.once.Do(func() {
		err = h.sessions.DisposeCurrent()
		h.cancel()
		h.slot.Cancel()
		h.wg.Wait()
	})
	return err
}

// serve is the inbound loop of one session.
func (h *Host) serve(sess *session.Session) {
	defer h.wg.Done()

	view := sess.View
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-view.Done():
			_ = h.sessions.Dispose(sess)
			return
		case msg := <-view.Messages():
			if msg == nil {
				h.logger.Warn("Ignoring empty panel message", "session_id", sess.ID)
				continue
			}
			h.metrics.ObserveMessage(observability.DirectionPanelToHost, metricCommand(msg))
			h.Dispatch(h.ctx, msg)
		}
	}
}

func (h *Host) post(ctx context.Context, sess *session.Session, msg protocol.Message) error {
	if err := sess.View.Post(ctx, msg); err != nil {
		return fmt.Errorf("failed to post %s: %w", msg.Command(), err)
	}
	h.metrics.ObserveMessage(observability.DirectionHostToPanel, msg.Command())
	return nil
}

func (h *Host) onSessionDisposed(sess *session.Session) {
	h.logger.Info("Panel closed", "session_id", sess.ID)
	// Jobs never outlive the panel that requested them.
	h.slot.Cancel()
}

func (h *Host) onWriteBackFinished(doc string, outcome writeback.Outcome, err error) {
	ctx := context.WithoutCancel(h.ctx)
	switch outcome {
	case writeback.OutcomeCompleted:
		h.logger.Info("Write-back completed", "document", doc)
		h.notifier.Info(ctx, MsgCodeUpdated)
	case writeback.OutcomeFailed:
		h.logger.Error("Write-back failed", "document", doc, "err", err)
		if errors.Is(err, domain.ErrDocumentClosed) {
			h.notifier.Error(ctx, MsgNoActiveEditor)
		} else {
			h.notifier.Error(ctx, fmt.Sprintf("Write-back failed: %v", err))
		}
	default:
		h.logger.Info("Write-back stopped", "document", doc, "outcome", outcome)
	}
}

// metricCommand bounds the command label: any unrecognized command counts as "unknown".
func metricCommand(msg protocol.Message) string {
	if _, ok := msg.(protocol.Unknown); ok {
		return "unknown"
	}
	return msg.Command()
}
