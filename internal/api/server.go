// Package api exposes the classification service over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/earshot/earshot/internal/classify"
	"github.com/earshot/earshot/internal/report"
)

// APIVersion prefixes all routes. Versioning is explicit to allow
// non-breaking additions.
const APIVersion = "v1"

// Options configures the HTTP server. Timeouts default to conservative
// values; WriteTimeout must cover the worker deadline, so it is derived
// from it when unset.
type Options struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	WorkerTimeout     time.Duration // used to derive WriteTimeout
	Logger            *slog.Logger
	MCPHandler        http.Handler // optional; mounted at /mcp when set
}

// Server hosts the HTTP API around a classification service.
type Server struct {
	http  *http.Server
	svc   *classify.Service
	store report.Store
	log   *slog.Logger
	opts  Options
}

// NewServer constructs the API server. It does not start listening
// until Start is called.
func NewServer(svc *classify.Service, store report.Store, opts Options) *Server {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		// Leave room for the worker to run to its own deadline.
		opts.WriteTimeout = opts.WorkerTimeout + 15*time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		svc:   svc,
		store: store,
		log:   opts.Logger,
		opts:  opts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+APIVersion+"/classify", s.handleClassify)
	mux.HandleFunc("GET /"+APIVersion+"/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("GET /"+APIVersion+"/version", s.handleVersion)
	if opts.MCPHandler != nil {
		mux.Handle("/mcp", opts.MCPHandler)
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withLogging(mux),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
	return s
}

// Handler returns the fully wired HTTP handler, for tests and for
// embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving HTTP in a background goroutine.
// It returns immediately; use Stop for graceful shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", "error", err)
		}
	}()
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	if t := s.opts.ShutdownTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// withLogging records one line per request with the final status code.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
