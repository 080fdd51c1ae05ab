package mock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/mockserv/internal/config"
	"simonwaldherr.de/go/mockserv/internal/sandbox"
)

func newTestHandler(t *testing.T, root string) *Handler {
	t.Helper()
	cfg := config.NewConfig()
	s := cfg.Get()
	s.MockRoot = root
	cfg.Update(s)
	return NewHandler(DefaultPrefix, cfg, sandbox.NewRegistry(), NewPool(2))
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHandler_ScriptScenarios(t *testing.T) {
	h := newTestHandler(t, fixtureRoot)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantBody   string
		wantHeader map[string]string
	}{
		{
			name:       "echo returns body and path header",
			method:     http.MethodPost,
			target:     "/mock/test/echo",
			body:       "ping",
			wantStatus: 200,
			wantBody:   "ping",
			wantHeader: map[string]string{"X-Path": "/mock/test/echo"},
		},
		{
			name:       "nested exact file",
			method:     http.MethodGet,
			target:     "/mock/test/echo/hello",
			wantStatus: 200,
			wantBody:   "hello",
		},
		{
			name:       "bare wildcard",
			method:     http.MethodGet,
			target:     "/mock/test/nothing",
			wantStatus: 200,
			wantBody:   "fallback",
		},
		{
			name:       "named wildcards reach the script",
			method:     http.MethodGet,
			target:     "/mock/test/nothing/wildcard",
			wantStatus: 200,
			wantBody:   "nothing/wildcard",
		},
		{
			name:       "script sets 404",
			method:     http.MethodGet,
			target:     "/mock/status/missing",
			wantStatus: 404,
			wantBody:   "missing",
		},
		{
			name:       "script sets nothing",
			method:     http.MethodGet,
			target:     "/mock/empty/noop",
			wantStatus: 200,
			wantBody:   "",
		},
		{
			name:       "starlark script",
			method:     http.MethodGet,
			target:     "/mock/star/hello?who=go",
			wantStatus: 202,
			wantBody:   "star go",
			wantHeader: map[string]string{"Content-Type": "text/plain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			for k, v := range tt.wantHeader {
				assert.Equal(t, v, rec.Header().Get(k))
			}
		})
	}
}

func TestHandler_ErrorsAreTextWithStatus200(t *testing.T) {
	h := newTestHandler(t, fixtureRoot)

	tests := []struct {
		name     string
		target   string
		wantText string
	}{
		{"not found", "/mock/test/echo/nomatch", "mock path:testdata/mock/test/echo/nomatch not found"},
		{"runtime error", "/mock/broken/runtime", "kaput"},
		{"bad header", "/mock/broken/badheader", "invalid header name"},
		{"bad status", "/mock/broken/badstatus", "out of range"},
		{"informational status", "/mock/broken/early", "out of range"},
		{"os.exit is not available", "/mock/broken/exit", "non-table object"},
		{"prefix only", "/mock", "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantText)
		})
	}
}

func TestHandler_MissingRoot(t *testing.T) {
	h := newTestHandler(t, filepath.Join(t.TempDir(), "nope"))
	rec := serve(h, http.MethodGet, "/mock/a", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "read mock dir")
}

func TestHandler_UnknownScriptType(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.py"), []byte("print(1)"), 0644))

	rec := serve(newTestHandler(t, root), http.MethodGet, "/mock/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no script engine")
}

func TestHandler_ServerSurvivesRepeatedFailures(t *testing.T) {
	h := newTestHandler(t, fixtureRoot)
	for i := 0; i < 5; i++ {
		for _, target := range []string{"/mock/broken/runtime", "/mock/broken/exit"} {
			rec := serve(h, http.MethodGet, target, "")
			require.Equal(t, http.StatusOK, rec.Code)
		}
	}
	rec := serve(h, http.MethodGet, "/mock/test/echo/hello", "")
	assert.Equal(t, "hello", rec.Body.String())
}

func TestHandler_ScriptTimeout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "spin.lua"), []byte("while true do end"), 0644))

	h := newTestHandler(t, root)
	s := h.config.Get()
	s.ScriptTimeout = 50 * time.Millisecond
	h.config.Update(s)

	rec := serve(h, http.MethodGet, "/mock/spin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spin.lua")
}

func TestHandler_FollowsReloadedRoot(t *testing.T) {
	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "only.lua"), []byte(`resp.body = "other root"`), 0644))

	h := newTestHandler(t, fixtureRoot)
	rec := serve(h, http.MethodGet, "/mock/only", "")
	assert.Contains(t, rec.Body.String(), "not found")

	s := h.config.Get()
	s.MockRoot = other
	h.config.Update(s)

	rec = serve(h, http.MethodGet, "/mock/only", "")
	assert.Equal(t, "other root", rec.Body.String())
}

func TestExecutionID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/mock/a", nil)
	r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "host/abc-000001"))
	assert.Equal(t, "host/abc-000001", executionID(r))

	generated := executionID(httptest.NewRequest(http.MethodGet, "/mock/a", nil))
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.NotEqual(t, generated, executionID(httptest.NewRequest(http.MethodGet, "/mock/a", nil)))
}
