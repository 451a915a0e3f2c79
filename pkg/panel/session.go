package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/protocol"
)

// Transcript texts.
const (
	Greeting         = "Hello! How can I help you today?"
	MsgRequestFailed = "Error: Could not get response from server"
	MsgSent          = "Message sent successfully"
)

const watchBuffer = 64

// State is the request state of a Session.
type State int

const (
	// StateIdle accepts a new prompt.
	StateIdle State = iota
	// StateAwaiting has a transformation request in flight.
	StateAwaiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleBot   Role = "bot"
	RoleUser  Role = "user"
	RoleError Role = "error"
)

// Entry is one line of the transcript.
type Entry struct {
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	Image string    `json:"image,omitempty"`
	At    time.Time `json:"at"`
}

// EventKind discriminates Event.
type EventKind string

const (
	EventEntry    EventKind = "entry"
	EventSnapshot EventKind = "snapshot"
	EventReveal   EventKind = "reveal"
	EventState    EventKind = "state"
)

// Event is delivered to watchers whenever the session changes.
type Event struct {
	Kind  EventKind `json:"kind"`
	Entry *Entry    `json:"entry,omitempty"`
	Code  string    `json:"code,omitempty"`
	State string    `json:"state,omitempty"`
}

// Session is a Panel Session bound to one panel endpoint.
type Session struct {
	endpoint    ports.PanelEndpoint
	transformer ports.Transformer
	logger      *slog.Logger
	now         func() time.Time

	mu          sync.Mutex
	code        string
	hasSnapshot bool
	state       State
	transcript  []Entry
	watchers    map[chan Event]struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock overrides the clock used to stamp transcript entries.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a Session speaking through endpoint and transforming with transformer.
// The transcript starts with the greeting.
func New(endpoint ports.PanelEndpoint, transformer ports.Transformer, opts ...Option) *Session {
	s := &Session{
		endpoint:    endpoint,
		transformer: transformer,
		logger:      logging.NewNop(),
		now:         time.Now,
		watchers:    make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transcript = append(s.transcript, Entry{Role: RoleBot, Text: Greeting, At: s.now()})
	return s
}

// Run consumes Host messages until the panel is disposed or ctx is done.
// It returns nil when the panel was disposed.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.endpoint.Done():
			s.logger.Debug("Panel disposed, stopping")
			return nil
		case <-s.endpoint.Reveals():
			s.logger.Debug("Panel revealed")
			s.emit(Event{Kind: EventReveal})
		case msg := <-s.endpoint.Messages():
			s.handle(msg)
		}
	}
}

func (s *Session) handle(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.SetCode:
		s.mu.Lock()
		s.code = m.Code
		s.hasSnapshot = true
		s.broadcast(Event{Kind: EventSnapshot, Code: m.Code})
		s.mu.Unlock()
		s.logger.Debug("Snapshot received", "bytes", len(m.Code))
	default:
		s.logger.Warn("Ignoring host message", "command", commandOf(msg))
	}
}

func commandOf(msg protocol.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Command()
}

// Send submits a prompt, with an optional image, to the transformation service.
//
// The prompt is trimmed; a blank prompt returns domain.ErrEmptyPrompt. While a request
// is in flight every other Send returns domain.ErrBusy. On success the returned code is
// forwarded to the Host as updateEditorCode followed by a success status. On failure an
// error entry is appended and nothing is posted to the Host.
func (s *Session) Send(ctx context.Context, prompt string, image *domain.Image) (domain.TransformationResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.TransformationResult{}, domain.ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.state == StateAwaiting {
		s.mu.Unlock()
		return domain.TransformationResult{}, domain.ErrBusy
	}
	s.setState(StateAwaiting)
	req := domain.TransformationRequest{Prompt: prompt, Code: s.code, Image: image}
	user := Entry{Role: RoleUser, Text: prompt}
	if image != nil {
		user.Image = image.Name
	}
	s.appendEntry(user)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.setState(StateIdle)
		s.mu.Unlock()
	}()

	if image != nil {
		if err := s.endpoint.Post(ctx, protocol.FileSelected{Data: image.DataURL()}); err != nil {
			s.logger.Warn("Could not announce attachment", "err", err)
		}
	}

	s.logger.Info("Sending transformation request", "has_image", image != nil, "code_bytes", len(req.Code))
	res, err := s.transformer.Transform(ctx, req)
	if err != nil {
		s.logger.Error("Transformation failed", "err", err)
		s.mu.Lock()
		s.appendEntry(Entry{Role: RoleError, Text: MsgRequestFailed})
		s.mu.Unlock()
		if !errors.Is(err, domain.ErrTransport) {
			err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		return domain.TransformationResult{}, err
	}

	s.mu.Lock()
	s.appendEntry(Entry{Role: RoleBot, Text: res.Code})
	s.mu.Unlock()

	if err := s.endpoint.Post(ctx, protocol.UpdateEditorCode{Code: res.Code}); err != nil {
		return res, fmt.Errorf("forward code to host: %w", err)
	}
	if err := s.endpoint.Post(ctx, protocol.Success(MsgSent)); err != nil {
		return res, fmt.Errorf("report status to host: %w", err)
	}
	return res, nil
}

// Snapshot returns the latest code received from the Host.
// ok is false until the first setCode; the code is then empty.
func (s *Session) Snapshot() (code string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.hasSnapshot
}

// State returns the current request state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of every entry so far.
func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Watch streams session events until ctx is done, then closes the channel.
// A watcher that falls behind loses events rather than blocking the session.
func (s *Session) Watch(ctx context.Context) <-chan Event {
	_, ch := s.Subscribe(ctx)
	return ch
}

// Replay is the session state a new watcher starts from.
type Replay struct {
	Transcript  []Entry
	Code        string
	HasSnapshot bool
}

// Subscribe is Watch plus the state at the moment of subscribing. Every change made
// after that state was read arrives on the channel, and none made before it does.
func (s *Session) Subscribe(ctx context.Context) (Replay, <-chan Event) {
	ch := make(chan Event, watchBuffer)

	s.mu.Lock()
	replay := Replay{
		Transcript:  append([]Entry(nil), s.transcript...),
		Code:        s.code,
		HasSnapshot: s.hasSnapshot,
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return replay, ch
}

// Post relays a message built outside the session, such as one decoded from the wire,
// to the Host unchanged.
func (s *Session) Post(ctx context.Context, msg protocol.Message) error {
	if msg == nil {
		return fmt.Errorf("cannot post nil message")
	}
	return s.endpoint.Post(ctx, msg)
}

// Close disposes the panel from the Panel side.
func (s *Session) Close() error {
	return s.endpoint.Close()
}

// Done is closed once the panel has been disposed.
func (s *Session) Done() <-chan struct{} {
	return s.endpoint.Done()
}

// appendEntry and setState must be called with mu held.
func (s *Session) appendEntry(e Entry) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.transcript = append(s.transcript, e)
	s.broadcast(Event{Kind: EventEntry, Entry: &e})
}

func (s *Session) setState(state State) {
	s.state = state
	s.broadcast(Event{Kind: EventState, State: state.String()})
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast(ev)
}

func (s *Session) broadcast(ev Event) {
	for ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("Watcher buffer full, dropping event", "kind", ev.Kind)
		}
	}
}
