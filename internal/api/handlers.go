package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/BTreeMap/NeuroCare/internal/models"
)

// chatHandler runs one turn.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	requestID := RequestIDFromContext(r.Context())
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method, "path", r.URL.Path, "request_id", requestID)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("Server.chatHandler: request body too large", "limit", tooLarge.Limit)
			writeJSONResponse(w, http.StatusRequestEntityTooLarge, models.Error("Request body too large"))
			return
		}
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	clientID := req.UserID
	if clientID == "" {
		clientID = remoteHost(r)
	}
	res := s.turns.HandleTurn(r.Context(), toTurnRequest(req, clientID, requestID))

	slog.Info("Server.chatHandler: turn completed", "request_id", requestID, "intent", res.Intent, "mode_used", res.ModeUsed, "is_crisis", res.IsCrisis)
	writeJSONResponse(w, http.StatusOK, toChatResponse(res))
}

// healthHandler reports liveness and provider configuration.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var providers []models.ProviderStatus
	for _, p := range s.turns.Providers() {
		providers = append(providers, models.ProviderStatus{Name: p.Name, Available: p.Available})
	}
	writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Providers: providers,
	})
}

// rootHandler serves the banner on "/" and 404 for any unrouted path.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	endpoints := []string{"POST /api/chat", "GET /health", "GET /ws/chat"}
	if s.twilio != nil {
		endpoints = append(endpoints, "POST /twilio/webhook")
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(ServiceName+" is running", map[string]interface{}{
		"endpoints": endpoints,
	}))
}

// remoteHost returns the caller's IP, used as the rate limit key for
// anonymous clients.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
