package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

// NewRouter registers the report API routes.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	// Aliases may contain encoded slashes.
	router.UseEncodedPath()
	router.Use(requestIDMiddleware, h.loggingMiddleware, corsMiddleware)

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/records", h.Records).Methods(http.MethodGet)
	v1.HandleFunc("/report", h.Report).Methods(http.MethodGet)
	v1.HandleFunc("/nodes", h.Nodes).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{alias}/series", h.Series).Methods(http.MethodGet)
	v1.HandleFunc("/bounds", h.Bounds).Methods(http.MethodGet)
	v1.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	v1.HandleFunc("/reload", h.Reload).Methods(http.MethodPost)

	return router
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

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

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", r.Header.Get(RequestIDHeader)),
		)
	})
}

// HTTPServer wraps the report API listener and lifecycle helpers.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer binds handler to address.
func NewHTTPServer(address string, handler http.Handler) (*HTTPServer, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}
	return &HTTPServer{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
		listener: lis,
	}, nil
}

// Start serves requests until Shutdown is invoked.
func (s *HTTPServer) Start() error {
	if s.server == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Address exposes the bound listener address (useful for tests).
func (s *HTTPServer) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
