package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/models"
)

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

// init validates that our fallback responses can be marshaled
func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal first so encoding errors surface before headers are written
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// toTurnRequest maps a wire request onto an arbiter request.
func toTurnRequest(req models.ChatRequest, clientID, requestID string) arbiter.Request {
	history := make([]arbiter.Turn, 0, len(req.History))
	for _, h := range req.History {
		history = append(history, arbiter.Turn{
			Sender: arbiter.Sender(h.Sender),
			Text:   h.Text,
			Intent: h.Intent,
		})
	}
	return arbiter.Request{
		Message:   req.Message,
		History:   history,
		Mode:      req.Mode,
		ClientID:  clientID,
		ToneTags:  req.Tone,
		RequestID: requestID,
	}
}

func toChatResponse(res arbiter.Result) models.ChatResponse {
	return models.ChatResponse{
		Reply:        res.Reply,
		EmotionLabel: res.Emotion.Label,
		EmotionScore: res.Emotion.Score,
		Intent:       string(res.Intent),
		IsCrisis:     res.IsCrisis,
		LLMMode:      string(res.ModeUsed),
	}
}
