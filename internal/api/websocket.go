package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/NeuroCare/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionIDHeader is set on the websocket upgrade response.
const SessionIDHeader = "X-Session-ID"

// maxFrameBytes bounds one inbound websocket frame.
const maxFrameBytes = 64 << 10

// maxPendingFrames is how many frames are read ahead of the turn in progress.
const maxPendingFrames = 8

// websocketHandler upgrades the connection and answers each ChatRequest frame
// with a ChatResponse frame. Malformed frames get an error envelope and the
// connection stays open.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}

	sessionID := uuid.New().String()
	conn, err := upgrader.Upgrade(w, r, http.Header{SessionIDHeader: []string{sessionID}})
	if err != nil {
		slog.Warn("Server.websocketHandler: upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	fallbackClient := remoteHost(r)
	slog.Info("Server.websocketHandler: session opened", "session_id", sessionID, "remote", fallbackClient)

	// Turns run under ctx, which is cancelled as soon as the read side fails
	// so a disconnected client abandons its in-flight provider call.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	frames := make(chan []byte, maxPendingFrames)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("Server.websocketHandler: read error", "session_id", sessionID, "error", err)
				}
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for data := range frames {
		var req models.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Debug("Server.websocketHandler: invalid frame", "session_id", sessionID, "error", err)
			if err := conn.WriteJSON(models.Error("Invalid JSON format")); err != nil {
				break
			}
			continue
		}
		if err := req.Validate(); err != nil {
			if err := conn.WriteJSON(models.Error(err.Error())); err != nil {
				break
			}
			continue
		}

		clientID := req.UserID
		if clientID == "" {
			clientID = fallbackClient
		}
		res := s.turns.HandleTurn(ctx, toTurnRequest(req, clientID, uuid.New().String()))
		if ctx.Err() != nil {
			break
		}
		if err := conn.WriteJSON(toChatResponse(res)); err != nil {
			slog.Warn("Server.websocketHandler: write failed", "session_id", sessionID, "error", err)
			break
		}
	}

	slog.Info("Server.websocketHandler: session closed", "session_id", sessionID)
}
