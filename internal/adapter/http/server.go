package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes bounds the body of a synchronous balance request.
const maxRequestBytes = 10 << 20

// BalanceTransformer turns a serialized balance request into a serialized
// balance result.
type BalanceTransformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// Server exposes health, readiness, metrics, and synchronous balance HTTP
// endpoints.
type Server struct {
	httpServer *http.Server
	balances   BalanceTransformer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes. POST /v1/balance is served when balances is not nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, balances BalanceTransformer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		balances: balances,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if balances != nil {
		mux.HandleFunc("POST /v1/balance", s.handleBalance)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleBalance calculates a balance request posted as JSON and responds with
// the balance result. Field failures are part of a 200 response; only
// requests that cannot be calculated at all are rejected.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	out, err := s.balances.Transform(r.Context(), domain.RawEvent{
		Key:       []byte(r.Header.Get("X-Request-ID")),
		Value:     body,
		Timestamp: time.Now(),
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Warn("balance request rejected", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	for k, v := range out.Headers {
		w.Header().Set("X-Balance-"+k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out.Value) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}) //nolint:errcheck // best-effort error response
}
