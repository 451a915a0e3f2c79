// Package mcp exposes the Host and the panel as Model Context Protocol tools, so an
// agent can read the focused document, ask the transformation service for a change,
// and type code back into the editor.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/figflow"
	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/panel"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/writeback"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	DocumentURI   = "figflow://document"
	TranscriptURI = "figflow://transcript"
)

// App is the part of figflow the MCP server drives.
type App interface {
	OpenOrReveal(ctx context.Context) error
	Panel() (*panel.Session, bool)
	ActiveDocument() (ports.Document, bool)
	OpenDocument(ctx context.Context, name, text string) (ports.Document, error)
	WriteBack(ctx context.Context, code string) (*writeback.Job, error)
}

// WriteBackResponse reports the end of an update_editor_code call.
type WriteBackResponse struct {
	Document string `json:"document" jsonschema_description:"Name of the document that was written"`
	Outcome  string `json:"outcome" jsonschema_description:"completed, cancelled, superseded or failed"`
	Written  int    `json:"written" jsonschema_description:"Number of characters inserted"`
}

// Server wraps a figflow App and exposes it as an MCP Server.
type Server struct {
	app       App
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(app App, opts ...Option) *Server {
	s := &Server{
		app:       app,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("figflow-mcp", figflow.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_active_code",
		mcp.WithDescription("Return the full text of the document focused in the editor."),
	), s.handleGetActiveCode)

	s.mcpServer.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open (or replace) a document with the given text and focus it."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document name or path")),
		mcp.WithString("text", mcp.Description("Initial contents")),
	), s.handleOpenDocument)

	s.mcpServer.AddTool(mcp.NewTool("update_editor_code",
		mcp.WithDescription("Replace the focused document with code, typed one character at a time. Waits for the write to finish."),
		mcp.WithString("code", mcp.Required(), mcp.Description("The new document contents")),
		mcp.WithOutputSchema[WriteBackResponse](),
	), mcp.NewStructuredToolHandler(s.handleUpdateEditorCode))

	s.mcpServer.AddTool(mcp.NewTool("transform",
		mcp.WithDescription("Send a prompt about the focused document to the transformation service through the panel. On success the result is written back into the document."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What to change")),
	), s.handleTransform)
}

func (s *Server) handleGetActiveCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, ok := s.app.ActiveDocument()
	if !ok {
		return mcp.NewToolResultError(domain.ErrNoActiveDocument.Error()), nil
	}
	text, err := doc.Text(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s failed: %v", doc.Name(), err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleOpenDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := request.GetString("text", "")

	doc, err := s.app.OpenDocument(ctx, name, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened %s", doc.Name())), nil
}

func (s *Server) handleUpdateEditorCode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (WriteBackResponse, error) {
	code, ok := args["code"].(string)
	if !ok {
		return WriteBackResponse{}, fmt.Errorf("code is required")
	}

	job, err := s.app.WriteBack(ctx, code)
	if err != nil {
		return WriteBackResponse{}, err
	}
	if err := job.Wait(ctx); err != nil && ctx.Err() != nil {
		return WriteBackResponse{}, err
	}

	written, _ := job.Progress()
	return WriteBackResponse{
		Document: job.Document().Name(),
		Outcome:  string(job.Outcome()),
		Written:  written,
	}, nil
}

func (s *Server) handleTransform(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.app.OpenOrReveal(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open panel failed: %v", err)), nil
	}
	p, ok := s.app.Panel()
	if !ok {
		return mcp.NewToolResultError(domain.ErrNoSession.Error()), nil
	}

	res, err := p.Send(ctx, prompt, nil)
	if err != nil {
		s.logger.Warn("MCP transform failed", "err", err)
		if errors.Is(err, domain.ErrTransport) {
			return mcp.NewToolResultError(panel.MsgRequestFailed), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Code), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DocumentURI, "Focused Document",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		doc, ok := s.app.ActiveDocument()
		if !ok {
			return nil, domain.ErrNoActiveDocument
		}
		text, err := doc.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      DocumentURI,
				MIMEType: "text/plain",
				Text:     text,
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(TranscriptURI, "Panel Transcript",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries := []panel.Entry{}
		if p, ok := s.app.Panel(); ok {
			entries = p.Transcript()
		}
		jsonBytes, _ := json.Marshal(entries)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TranscriptURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
