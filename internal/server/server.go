package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/fuel-tracker/internal/fuellog"
	"github.com/zombor/fuel-tracker/internal/insights"
	"github.com/zombor/fuel-tracker/internal/pipeline"
	"github.com/zombor/fuel-tracker/internal/storage"
)

// DefaultUploadBucket is the bucket receipts uploaded through the API land in
const DefaultUploadBucket = "receipts"

// Processor runs an upload event through the receipt pipeline
type Processor interface {
	Process(ctx context.Context, payload any) pipeline.Result
}

// Summarizer writes insights about a sample of fuel logs
type Summarizer interface {
	Summarize(ctx context.Context, filters insights.Filters, sample []*fuellog.Record) (string, error)
}

// Deps are the collaborators the handlers call into
type Deps struct {
	Pipeline Processor
	Storage  storage.Storage
	DB       fuellog.DB
	Insights Summarizer   // nil disables POST /api/insights
	Metrics  http.Handler // nil disables GET /metrics

	// UploadBucket receives files posted to /api/receipts
	UploadBucket string
}

// Server handles HTTP requests for fuel logs
type Server struct {
	deps      Deps
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(deps Deps, basicAuth BasicAuth) *Server {
	return NewServerWithMux(deps, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(deps Deps, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	if deps.UploadBucket == "" {
		deps.UploadBucket = DefaultUploadBucket
	}
	s := &Server{
		deps:      deps,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to every response and answers preflights
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Fuel Tracker"`)
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	// Unauthenticated probes
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics)
	}

	// Storage service webhook and direct uploads
	s.mux.HandleFunc("POST /api/events/upload", s.requireAuth(s.handleUploadEvent))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))

	// Dashboard reads (most specific paths first)
	s.mux.HandleFunc("GET /api/fuel-logs/stats", s.requireAuth(s.handleStats))
	s.mux.HandleFunc("GET /api/fuel-logs/export.xlsx", s.requireAuth(s.handleExport))
	s.mux.HandleFunc("GET /api/fuel-logs/{id}", s.requireAuth(s.handleGetFuelLog))
	s.mux.HandleFunc("GET /api/fuel-logs", s.requireAuth(s.handleListFuelLogs))

	if s.deps.Insights != nil {
		s.mux.HandleFunc("POST /api/insights", s.requireAuth(s.handleInsights))
	}
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.corsMiddleware(s.mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
