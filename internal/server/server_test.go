package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/mockserv/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "users"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "users", "_id.lua"), []byte(`
resp.status = 201
resp.header = { ["content-type"] = "application/json" }
resp.body = '{"id":"' .. req.path_param.id .. '"}'
`), 0644))

	cfg := config.NewConfig()
	s := cfg.Get()
	s.MockRoot = root
	s.ToolsDir = t.TempDir()
	s.Workers = 2
	cfg.Update(s)
	return cfg
}

func TestServer_Routes(t *testing.T) {
	ts := httptest.NewServer(NewServer(newTestConfig(t)))
	defer ts.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"mock wildcard", http.MethodGet, "/mock/users/7", 201, `{"id":"7"}`},
		{"mock not found is 200 text", http.MethodGet, "/mock/orders/1", 200, "not found"},
		{"echo", http.MethodPost, "/echo/anything?k=v", 200, `"k": "v"`},
		{"echo bare", http.MethodGet, "/echo", 200, "path: /echo"},
		{"command missing tool", http.MethodPost, "/command/nope", 200, "failed to run"},
		{"health", http.MethodGet, "/healthz", 200, "ok"},
		{"unknown route", http.MethodGet, "/elsewhere", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader("payload"))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.wantBody)
		})
	}
}

func TestServer_MockHeadersReachClient(t *testing.T) {
	ts := httptest.NewServer(NewServer(newTestConfig(t)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/mock/users/abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServer_RunAndShutdown(t *testing.T) {
	cfg := newTestConfig(t)
	s := cfg.Get()
	s.Listen = freeAddr(t)
	cfg.Update(s)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- NewServer(cfg).Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.Listen + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
