// Package http serves the panel as a web page and exposes the Host over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/panel"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/protocol"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxUploadBytes bounds a prompt submission, image included.
const maxUploadBytes = 10 << 20

// App is the part of figflow the web adapter drives.
type App interface {
	OpenOrReveal(ctx context.Context) error
	Panel() (*panel.Session, bool)
	ClosePanel() error
	ActiveDocument() (ports.Document, bool)
	OpenDocument(ctx context.Context, name, text string) (ports.Document, error)
}

// Server holds the HTTP handlers.
type Server struct {
	App      App
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves metrics from g on /metrics. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the chi router for app.
func NewHandler(app App, opts ...Option) http.Handler {
	s := &Server{
		App:    app,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/", s.PanelPage)
	r.Get("/health", s.Health)

	r.Route("/panel", func(r chi.Router) {
		r.Get("/events", s.SubscribeEvents)
		r.Get("/transcript", s.Transcript)
		r.Post("/prompt", s.SubmitPrompt)
		r.Post("/message", s.PostMessage)
		r.Post("/close", s.ClosePanel)
	})

	r.Route("/host", func(r chi.Router) {
		r.Post("/open", s.OpenPanel)
		r.Get("/document", s.GetDocument)
		r.Put("/document/*", s.PutDocument)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PanelPage handles GET /.
func (s *Server) PanelPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, panelHTML)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// OpenPanel handles POST /host/open.
func (s *Server) OpenPanel(w http.ResponseWriter, r *http.Request) {
	if err := s.App.OpenOrReveal(r.Context()); err != nil {
		s.logger.Error("Open panel failed", "err", err)
		http.Error(w, fmt.Sprintf("Open error: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClosePanel handles POST /panel/close.
func (s *Server) ClosePanel(w http.ResponseWriter, r *http.Request) {
	if err := s.App.ClosePanel(); err != nil {
		s.logger.Error("Close panel failed", "err", err)
		http.Error(w, fmt.Sprintf("Close error: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type documentResponse struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// GetDocument handles GET /host/document.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.App.ActiveDocument()
	if !ok {
		http.Error(w, domain.ErrNoActiveDocument.Error(), http.StatusNotFound)
		return
	}
	text, err := doc.Text(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrDocumentClosed) {
			status = http.StatusGone
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Name: doc.Name(), Text: text})
}

// PutDocument handles PUT /host/document/{name}: the body becomes the document text
// and the document gets focus.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" {
		http.Error(w, "Document name is required", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := s.App.OpenDocument(r.Context(), name, string(body))
	if err != nil {
		s.logger.Warn("Open document failed", "name", name, "err", err)
		http.Error(w, fmt.Sprintf("Open document error: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Name: doc.Name(), Text: string(body)})
}

// Transcript handles GET /panel/transcript.
func (s *Server) Transcript(w http.ResponseWriter, r *http.Request) {
	p, ok := s.App.Panel()
	if !ok {
		http.Error(w, domain.ErrNoSession.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, p.Transcript())
}

type promptResponse struct {
	Code string `json:"code"`
}

// SubmitPrompt handles POST /panel/prompt. It accepts a multipart form (prompt and an
// optional image file), a urlencoded form, or a JSON body {"prompt": "..."}.
func (s *Server) SubmitPrompt(w http.ResponseWriter, r *http.Request) {
	p, ok := s.App.Panel()
	if !ok {
		http.Error(w, domain.ErrNoSession.Error(), http.StatusConflict)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	prompt, image, err := readPrompt(r)
	if err != nil {
		s.logger.Warn("SubmitPrompt: invalid request body", "err", err)
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	res, err := p.Send(r.Context(), prompt, image)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, promptResponse{Code: res.Code})
	case errors.Is(err, domain.ErrEmptyPrompt):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrTransport):
		http.Error(w, panel.MsgRequestFailed, http.StatusBadGateway)
	default:
		s.logger.Error("SubmitPrompt failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type messageResponse struct {
	Command string `json:"command"`
}

// PostMessage handles POST /panel/message: a wire message from the panel page,
// {"command": ..., ...}, relayed to the Host. Unknown commands are relayed too; the
// Host logs and ignores them.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.App.Panel()
	if !ok {
		http.Error(w, domain.ErrNoSession.Error(), http.StatusConflict)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	msg, err := protocol.Unmarshal(body)
	if err != nil {
		s.logger.Warn("PostMessage: invalid message", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := p.Post(r.Context(), msg); err != nil {
		s.logger.Warn("PostMessage: relay failed", "command", msg.Command(), "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSessionClosed) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Command: msg.Command()})
}

func readPrompt(r *http.Request) (string, *domain.Image, error) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", nil, err
		}
		return body.Prompt, nil, nil

	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", nil, err
		}
		prompt := r.FormValue("prompt")
		file, header, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return prompt, nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		ct := header.Header.Get("Content-Type")
		if ct == "" || ct == "application/octet-stream" {
			ct = http.DetectContentType(data)
		}
		return prompt, &domain.Image{Name: header.Filename, ContentType: ct, Data: data}, nil

	default:
		if err := r.ParseForm(); err != nil {
			return "", nil, err
		}
		return r.FormValue("prompt"), nil, nil
	}
}

// SubscribeEvents handles GET /panel/events (SSE). The transcript so far is replayed
// first, then every panel event is streamed until the client or the panel goes away.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	p, ok := s.App.Panel()
	if !ok {
		http.Error(w, domain.ErrNoSession.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	replay, events := p.Subscribe(ctx)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	for _, entry := range replay.Transcript {
		s.writeEvent(w, panel.Event{Kind: panel.EventEntry, Entry: &entry})
	}
	if replay.HasSnapshot {
		s.writeEvent(w, panel.Event{Kind: panel.EventSnapshot, Code: replay.Code})
	}
	flusher.Flush()
	s.logger.Info("SSE: Client subscribed")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE: Client disconnected")
			return
		case <-p.Done():
			fmt.Fprintf(w, "event: closed\ndata: {}\n\n")
			flusher.Flush()
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

// writeEvent frames ev as SSE. Snapshots travel as the wire setCode message, named
// by its command; other events carry the panel.Event JSON.
func (s *Server) writeEvent(w io.Writer, ev panel.Event) {
	if ev.Kind == panel.EventSnapshot {
		msg := protocol.SetCode{Code: ev.Code}
		data, err := protocol.Marshal(msg)
		if err != nil {
			s.logger.Error("SSE: encode failed", "command", msg.Command(), "err", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Command(), data)
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("SSE: encode failed", "err", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
