package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"simonwaldherr.de/go/mockserv/internal/command"
	"simonwaldherr.de/go/mockserv/internal/config"
	"simonwaldherr.de/go/mockserv/internal/echo"
	"simonwaldherr.de/go/mockserv/internal/mock"
	"simonwaldherr.de/go/mockserv/internal/sandbox"
	"simonwaldherr.de/go/mockserv/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// Server wires the command, echo and mock endpoints behind one router.
type Server struct {
	config *config.Config
	router chi.Router
	mock   *mock.Handler
}

// NewServer builds the router. The worker pool is sized once from cfg;
// everything else is read from cfg per request.
func NewServer(cfg *config.Config) *Server {
	settings := cfg.Get()
	mockHandler := mock.NewHandler(mock.DefaultPrefix, cfg, sandbox.NewRegistry(), mock.NewPool(settings.Workers))

	s := &Server{config: cfg, mock: mockHandler}
	s.router = s.buildRouter(command.NewRunner(cfg))
	return s
}

func (s *Server) buildRouter(runner *command.Runner) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Handle("/command/{app}", runner)
	r.Handle("/echo", echo.Handler{})
	r.Handle("/echo/*", echo.Handler{})
	r.Handle(mock.DefaultPrefix, s.mock)
	r.Handle(mock.DefaultPrefix+"/*", s.mock)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// ServeHTTP is the main entry point for handling HTTP requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Get().Listen
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("Server", "Starting mockserv on %s...", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.Info("Server", "Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// accessLog logs one line per request with its status and duration.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Info("HTTP", "%s %s | Status: %d | Bytes: %d | Duration: %v | ReqID: %s",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(startTime),
			middleware.GetReqID(r.Context()))
	})
}
