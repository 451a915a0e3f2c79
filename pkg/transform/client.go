// Package transform is the HTTP client for the remote code-transformation service.
//
// The service exposes two endpoints returning the same {"code": "..."} shape: a JSON
// endpoint taking {code, prompt}, and a multipart endpoint taking an image plus the same
// two fields. A request with an image always goes to the multipart endpoint; one without
// always goes to the JSON endpoint.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/observability"
	"github.com/aretw0/figflow/pkg/ports"
)

// Default endpoint paths, as served by the reference backend.
const (
	DefaultProcessPath = "/api/process"
	DefaultUploadPath  = "/api/upload"
	DefaultTimeout     = 60 * time.Second
)

// Transport names, used in logs and metrics.
const (
	TransportJSON      = "json"
	TransportMultipart = "multipart"
)

// maxErrorBody bounds how much of an error response is kept in the error message.
const maxErrorBody = 512

// Client implements ports.Transformer over HTTP.
type Client struct {
	baseURL     string
	processPath string
	uploadPath  string
	client      *http.Client
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithPaths overrides the JSON and multipart endpoint paths.
func WithPaths(process, upload string) Option {
	return func(c *Client) {
		if process != "" {
			c.processPath = process
		}
		if upload != "" {
			c.uploadPath = upload
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client = &http.Client{Timeout: d}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the service at baseURL (e.g. "http://localhost:5000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		processPath: DefaultProcessPath,
		uploadPath:  DefaultUploadPath,
		client:      &http.Client{Timeout: DefaultTimeout},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Transformer = (*Client)(nil)

// response is the JSON shape returned by both endpoints.
type response struct {
	Code *string `json:"code"`
}

// Transform sends req and returns the transformed code.
// Every failure wraps domain.ErrTransport.
func (c *Client) Transform(ctx context.Context, req domain.TransformationRequest) (domain.TransformationResult, error) {
	transport := TransportJSON
	if req.HasImage() {
		transport = TransportMultipart
	}

	start := time.Now()
	result, err := c.do(ctx, transport, req)
	c.metrics.ObserveTransform(transport, err, time.Since(start))

	if err != nil {
		c.logger.Warn("Transformation failed", "transport", transport, "err", err)
		return domain.TransformationResult{}, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	c.logger.Debug("Transformation succeeded", "transport", transport, "bytes", len(result.Code))
	return result, nil
}

func (c *Client) do(ctx context.Context, transport string, req domain.TransformationRequest) (domain.TransformationResult, error) {
	var (
		httpReq *http.Request
		err     error
	)
	if transport == TransportMultipart {
		httpReq, err = c.multipartRequest(ctx, req)
	} else {
		httpReq, err = c.jsonRequest(ctx, req)
	}
	if err != nil {
		return domain.TransformationResult{}, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.TransformationResult{}, fmt.Errorf("HTTP POST %s: %w", httpReq.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.TransformationResult{}, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, httpReq.URL, strings.TrimSpace(string(body)))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.TransformationResult{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Code == nil {
		return domain.TransformationResult{}, fmt.Errorf("response from %s has no code field", httpReq.URL)
	}
	return domain.TransformationResult{Code: *decoded.Code}, nil
}

func (c *Client) jsonRequest(ctx context.Context, req domain.TransformationRequest) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"code":   req.Code,
		"prompt": req.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.processPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func (c *Client) multipartRequest(ctx context.Context, req domain.TransformationRequest) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := req.Image.Name
	if name == "" {
		name = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	contentType := req.Image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return nil, fmt.Errorf("write image part: %w", err)
	}
	if err := w.WriteField("code", req.Code); err != nil {
		return nil, fmt.Errorf("write code field: %w", err)
	}
	if err := w.WriteField("prompt", req.Prompt); err != nil {
		return nil, fmt.Errorf("write prompt field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.uploadPath, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	return httpReq, nil
}
