// Package echoapi is a reference transformation service for local development.
// It answers both endpoints by echoing the submitted code back, optionally rewritten
// by a TransformFunc.
package echoapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/go-chi/chi/v5"
)

// maxUploadMemory bounds the in-memory part of a multipart upload.
const maxUploadMemory = 10 << 20

// TransformFunc rewrites the submitted code. The default returns code unchanged.
type TransformFunc func(code, prompt string) string

// Option configures the handler.
type Option func(*service)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithTransform sets the function used to produce the returned code.
func WithTransform(fn TransformFunc) Option {
	return func(s *service) {
		s.transform = fn
	}
}

type service struct {
	logger    *slog.Logger
	transform TransformFunc
}

// NewHandler returns the chi router serving /, /api/test, /api/process and /api/upload.
func NewHandler(opts ...Option) http.Handler {
	s := &service{
		logger:    logging.NewNop(),
		transform: func(code, _ string) string { return code },
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Hello, World!")
	})
	r.Get("/api/test", s.handleTest)
	r.Post("/api/process", s.handleProcess)
	r.Post("/api/upload", s.handleUpload)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type receivedData struct {
	Code   string `json:"code"`
	Prompt string `json:"prompt"`
}

type processResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Received receivedData `json:"received_data"`
	Filename string       `json:"filename,omitempty"`
}

func (s *service) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "This is a test response",
		"status":  "success",
		"data": map[string]any{
			"sample": "value",
			"number": 42,
		},
	})
}

func (s *service) handleProcess(w http.ResponseWriter, r *http.Request) {
	var body receivedData
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("Process: invalid request body", "err", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.logger.Info("Process request", "prompt", body.Prompt, "code_bytes", len(body.Code))
	writeJSON(w, http.StatusOK, processResponse{
		Status:   "success",
		Code:     s.transform(body.Code, body.Prompt),
		Received: body,
	})
}

func (s *service) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.logger.Warn("Upload: invalid multipart body", "err", err)
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}

	body := receivedData{Code: r.FormValue("code"), Prompt: r.FormValue("prompt")}
	s.logger.Info("Upload request", "filename", header.Filename, "image_bytes", size, "prompt", body.Prompt)
	writeJSON(w, http.StatusOK, processResponse{
		Status:   "success",
		Code:     s.transform(body.Code, body.Prompt),
		Received: body,
		Filename: header.Filename,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": msg})
}
