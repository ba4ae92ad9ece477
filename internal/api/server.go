package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kjannette/chart-cache/internal/apperr"
	"github.com/kjannette/chart-cache/internal/codec"
	"github.com/kjannette/chart-cache/internal/config"
	"github.com/kjannette/chart-cache/internal/repository"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-Api-Key"

type Server struct {
	store        repository.ChartStore
	httpServer   *http.Server
	apiKey       string
	maxBodyBytes int64
	log          *zap.Logger
	now          func() time.Time
}

func NewServer(store repository.ChartStore, cfg *config.Config, log *zap.Logger) *Server {
	s := &Server{
		store:        store,
		apiKey:       cfg.APIKey,
		maxBodyBytes: cfg.MaxBodyBytes,
		log:          log,
		now:          time.Now,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(cfg.CORSAllowOrigin),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) routes(corsOrigin string) http.Handler {
	mux := http.NewServeMux()

	// Chart routes
	mux.Handle("GET /charts/{basketId}", s.authMiddleware(http.HandlerFunc(s.handleGetChart)))
	mux.Handle("PUT /charts/{basketId}", s.authMiddleware(http.HandlerFunc(s.handlePutChart)))

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.logMiddleware(corsMiddleware(mux, corsOrigin))
}

// Handler exposes the full middleware chain, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info("REST API server started",
		zap.String("addr", s.httpServer.Addr),
		zap.String("health", "http://localhost"+s.httpServer.Addr+"/health"),
	)
	if s.apiKey != "" {
		s.log.Info("authentication enabled", zap.String("header", apiKeyHeader))
	} else {
		s.log.Warn("authentication disabled, no CHART_CACHE_API_KEY configured")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.writeAppError(w, r, apperr.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, "+apiKeyHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// --- validation helpers ---

func parseYear(r *http.Request) (int, error) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return 0, fmt.Errorf("%w: year query parameter is required", apperr.ErrValidation)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: year must be an integer, got %q", apperr.ErrValidation, v)
	}
	return n, nil
}

// --- response helpers ---

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", codec.MediaJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Detail: apperr.Detail(err)})
}

// writeNegotiated encodes v in the media type picked from the Accept header.
func writeNegotiated[V any](s *Server, w http.ResponseWriter, r *http.Request, status int, v V) {
	mt := codec.Negotiate(r.Header.Get("Accept"))
	c, ok := codec.For[V](mt)
	if !ok {
		mt, c = codec.MediaJSON, codec.JSON[V]{}
	}

	b, err := c.Encode(v)
	if err != nil {
		s.writeAppError(w, r, fmt.Errorf("encode %s response: %w", mt, err))
		return
	}
	w.Header().Set("Content-Type", mt)
	w.WriteHeader(status)
	w.Write(b)
}
