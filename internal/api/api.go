// Package api serves NeuroCare turns over HTTP and websockets.
//
// It exposes the chat endpoint, a health check, a websocket chat channel and,
// when configured, the Twilio messaging webhook.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/google/uuid"
)

// Default server settings.
const (
	DefaultAddr            = "127.0.0.1:8001"
	DefaultShutdownTimeout = 10 * time.Second
	// ServiceName is reported by the health and root endpoints.
	ServiceName = "NeuroCare Mental Health API"
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
	// maxBodyBytes bounds a chat request body.
	maxBodyBytes = 1 << 20
)

// TurnHandler produces replies. *arbiter.Arbiter satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req arbiter.Request) arbiter.Result
	Providers() []arbiter.ProviderInfo
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr            string
	AllowedOrigins  []string
	Twilio          http.Handler
	ShutdownTimeout time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAllowedOrigins restricts CORS and websocket origins. An empty list
// allows every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(o *Opts) { o.AllowedOrigins = origins }
}

// WithTwilioHandler mounts h at /twilio/webhook.
func WithTwilioHandler(h http.Handler) Option {
	return func(o *Opts) { o.Twilio = h }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Opts) { o.ShutdownTimeout = d }
}

// Server holds the handlers' dependencies.
type Server struct {
	turns           TurnHandler
	addr            string
	allowedOrigins  map[string]bool
	twilio          http.Handler
	shutdownTimeout time.Duration
}

// NewServer creates a Server serving turns.
func NewServer(turns TurnHandler, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}

	return &Server{
		turns:           turns,
		addr:            cfg.Addr,
		allowedOrigins:  allowed,
		twilio:          cfg.Twilio,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Handler returns the routed handler with CORS and request ids applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/chat", s.chatHandler)
	mux.HandleFunc("/ws/chat", s.websocketHandler)
	if s.twilio != nil {
		mux.Handle("/twilio/webhook", s.twilio)
	}
	return withRequestID(s.withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, turns TurnHandler, opts ...Option) error {
	s := NewServer(turns, opts...)
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("NeuroCare API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: listen on %s: %w", s.addr, err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down NeuroCare API", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

// originAllowed reports whether a browser origin may call the API. An empty
// allow list admits everything, as does a request without an Origin header.
func (s *Server) originAllowed(origin string) bool {
	if len(s.allowedOrigins) == 0 || origin == "" {
		return true
	}
	return s.allowedOrigins[strings.TrimRight(origin, "/")]
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		switch {
		case len(s.allowedOrigins) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.originAllowed(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFromContext returns the request id set by the server, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}
