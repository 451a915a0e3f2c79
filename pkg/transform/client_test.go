package transform_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/observability"
	"github.com/aretw0/figflow/pkg/transform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path        string
	contentType string
	json        map[string]string
	form        map[string]string
	image       []byte
	imageName   string
}

// fakeService records the last request and answers with status/body.
func fakeService(t *testing.T, status int, body string) (*httptest.Server, func() captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		last captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{path: r.URL.Path, contentType: r.Header.Get("Content-Type")}
		switch r.URL.Path {
		case transform.DefaultProcessPath:
			_ = json.NewDecoder(r.Body).Decode(&c.json)
		case transform.DefaultUploadPath:
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				c.form = map[string]string{
					"code":   r.FormValue("code"),
					"prompt": r.FormValue("prompt"),
				}
				if f, h, err := r.FormFile("image"); err == nil {
					c.image, _ = io.ReadAll(f)
					c.imageName = h.Filename
					f.Close()
				}
			}
		}
		mu.Lock()
		last = c
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() captured {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestTransform_JSONWithoutImage(t *testing.T) {
	srv, last := fakeService(t, http.StatusOK, `{"code":"x = 1"}`)
	client := transform.New(srv.URL)

	res, err := client.Transform(context.Background(), domain.TransformationRequest{Prompt: "format", Code: "x=1"})

	require.NoError(t, err)
	assert.Equal(t, "x = 1", res.Code)

	got := last()
	assert.Equal(t, transform.DefaultProcessPath, got.path)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, map[string]string{"code": "x=1", "prompt": "format"}, got.json)
	assert.Nil(t, got.form, "JSON path never sends multipart")
}

func TestTransform_MultipartWithImage(t *testing.T) {
	srv, last := fakeService(t, http.StatusOK, `{"code":"<div/>"}`)
	client := transform.New(srv.URL)

	res, err := client.Transform(context.Background(), domain.TransformationRequest{
		Prompt: "to html",
		Code:   "x=1",
		Image:  &domain.Image{Name: "design.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})

	require.NoError(t, err)
	assert.Equal(t, "<div/>", res.Code)

	got := last()
	assert.Equal(t, transform.DefaultUploadPath, got.path)
	assert.Contains(t, got.contentType, "multipart/form-data")
	assert.Equal(t, map[string]string{"code": "x=1", "prompt": "to html"}, got.form)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got.image)
	assert.Equal(t, "design.png", got.imageName)
	assert.Nil(t, got.json, "multipart path never sends JSON")
}

func TestTransform_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "Server Error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "Not Found", status: http.StatusNotFound, body: `nope`},
		{name: "Invalid JSON", status: http.StatusOK, body: `{"code":`},
		{name: "Missing Code", status: http.StatusOK, body: `{"status":"success"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeService(t, tt.status, tt.body)
			client := transform.New(srv.URL)

			_, err := client.Transform(context.Background(), domain.TransformationRequest{Prompt: "p", Code: "c"})
			assert.ErrorIs(t, err, domain.ErrTransport)
		})
	}
}

func TestTransform_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := transform.New(url)
	_, err := client.Transform(context.Background(), domain.TransformationRequest{Prompt: "p"})
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestTransform_CustomPathsAndMetrics(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{"code":""}`)
	}))
	defer srv.Close()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := transform.New(srv.URL+"/", transform.WithPaths("/v2/process", ""), transform.WithMetrics(metrics))

	res, err := client.Transform(context.Background(), domain.TransformationRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "", res.Code, "an empty code field is still a result")
	assert.Equal(t, "/v2/process", path)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformRequests.WithLabelValues("json", "success")))
}
