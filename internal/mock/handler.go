package mock

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"simonwaldherr.de/go/mockserv/internal/config"
	"simonwaldherr.de/go/mockserv/internal/reply"
	"simonwaldherr.de/go/mockserv/internal/sandbox"
	"simonwaldherr.de/go/mockserv/pkg/logging"
)

// DefaultPrefix is the route under which mocks are served.
const DefaultPrefix = "/mock"

// Handler serves mock scripts. The mock root and script timeout are read
// from config on every request so that a reloaded file applies at once.
type Handler struct {
	prefix   string
	config   *config.Config
	registry *sandbox.Registry
	pool     *Pool
}

// NewHandler creates a Handler for requests under prefix.
func NewHandler(prefix string, cfg *config.Config, registry *sandbox.Registry, pool *Pool) *Handler {
	return &Handler{
		prefix:   strings.TrimSuffix(prefix, "/"),
		config:   cfg,
		registry: registry,
		pool:     pool,
	}
}

// ServeHTTP is the main entry point for mock requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Handle(r).Write(w); err != nil {
		logging.Warn("Mock", "Failed to write reply for %s: %v", r.URL.Path, err)
	}
}

// Handle runs the whole pipeline for r. Every failure is reported as a
// text reply with status 200; nothing is retried.
func (h *Handler) Handle(r *http.Request) reply.Reply {
	execID := executionID(r)
	startTime := time.Now()
	resp, script, err := h.run(r, execID)
	duration := time.Since(startTime)
	if err != nil {
		logging.Error("Mock", err, "Exec: %s | Path: %s | Duration: %v", execID, r.URL.Path, duration)
		return reply.Text(err.Error())
	}
	logging.Info("Mock", "Exec: %s | Path: %s | Script: %s | Status: %d | Duration: %v",
		execID, r.URL.Path, script, resp.Status, duration)
	return resp
}

// executionID tags the log lines of one mock execution. It is the router's
// request ID when there is one, so access log and mock log lines match.
func executionID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func (h *Handler) run(r *http.Request, execID string) (*reply.Response, string, error) {
	settings := h.config.Get()
	ctx := r.Context()

	res, err := Resolve(ctx, settings.MockRoot, Segments(r.URL.Path, h.prefix))
	if err != nil {
		return nil, "", err
	}

	script, err := os.ReadFile(res.ScriptPath)
	if err != nil {
		return nil, res.ScriptPath, &IOError{Op: "read mock script", Path: res.ScriptPath, Err: err}
	}

	bindings, err := NewRequestBindings(r, res.PathParams)
	if err != nil {
		return nil, res.ScriptPath, err
	}

	logging.Debug("Mock", "exec %s: %s -> %s params=%v", execID,
		describeRequest(r, len(bindings.Body)), res.ScriptPath, res.PathParams)

	var (
		out     sandbox.ResponseBindings
		execErr error
	)
	if err := h.pool.Do(ctx, func() {
		// The script is not tied to the client: if it goes away the
		// result is simply dropped.
		execCtx := context.WithoutCancel(ctx)
		if settings.ScriptTimeout > 0 {
			var cancel context.CancelFunc
			execCtx, cancel = context.WithTimeout(execCtx, settings.ScriptTimeout)
			defer cancel()
		}
		out, execErr = h.registry.Execute(execCtx, res.ScriptPath, script, bindings)
	}); err != nil {
		return nil, res.ScriptPath, err
	}
	if execErr != nil {
		return nil, res.ScriptPath, execErr
	}
	logging.Debug("Mock", "exec %s finished", execID)

	resp, err := Build(out)
	if err != nil {
		return nil, res.ScriptPath, err
	}
	return resp, res.ScriptPath, nil
}

// Segments removes prefix from urlPath and splits the rest on "/".
// "/mock" yields no segments; "/mock/" yields one empty segment.
func Segments(urlPath, prefix string) []string {
	rest := strings.TrimPrefix(urlPath, prefix)
	if rest == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(rest, "/"), "/")
}
