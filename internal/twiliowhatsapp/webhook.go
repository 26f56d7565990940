package twiliowhatsapp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/store"
	"github.com/google/uuid"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// asyncReplyTimeout bounds a turn answered over the REST API.
const asyncReplyTimeout = 60 * time.Second

// TurnRunner produces replies. *arbiter.Arbiter satisfies it.
type TurnRunner interface {
	HandleTurn(ctx context.Context, req arbiter.Request) arbiter.Result
}

// Handler answers Twilio inbound message webhooks. Each message is a
// stand-alone turn with no history.
type Handler struct {
	turns     TurnRunner
	validator *client.RequestValidator
	publicURL string
	sender    Sender
	dedup     store.DedupRepo
	mode      string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSignatureValidation rejects requests whose X-Twilio-Signature does not
// match authToken.
func WithSignatureValidation(authToken string) HandlerOption {
	return func(h *Handler) {
		v := client.NewRequestValidator(authToken)
		h.validator = &v
	}
}

// WithPublicURL sets the webhook URL as configured in Twilio, used for
// signature checks behind proxies.
func WithPublicURL(u string) HandlerOption {
	return func(h *Handler) { h.publicURL = u }
}

// WithSender answers over the REST API instead of inline TwiML, so slow turns
// do not hit the webhook timeout.
func WithSender(s Sender) HandlerOption {
	return func(h *Handler) { h.sender = s }
}

// WithDedup drops redelivered messages, matched by MessageSid.
func WithDedup(repo store.DedupRepo) HandlerOption {
	return func(h *Handler) { h.dedup = repo }
}

// WithMode sets the reply mode for webhook turns.
func WithMode(mode string) HandlerOption {
	return func(h *Handler) { h.mode = mode }
}

// NewHandler creates a webhook handler.
func NewHandler(turns TurnRunner, opts ...HandlerOption) *Handler {
	h := &Handler{turns: turns}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Twilio webhook: failed to parse form", "error", err)
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	if h.validator != nil {
		params := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		if !h.validator.Validate(h.requestURL(r), params, r.Header.Get(SignatureHeader)) {
			slog.Warn("Twilio webhook: signature validation failed", "remote", r.RemoteAddr)
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}
	sid := r.PostForm.Get("MessageSid")
	if h.dedup != nil && sid != "" {
		fresh, err := h.dedup.RecordInbound(sid, from)
		if err != nil {
			slog.Warn("Twilio webhook: dedup check failed", "message_sid", sid, "error", err)
		} else if !fresh {
			slog.Info("Twilio webhook: duplicate message ignored", "message_sid", sid, "from", from)
			writeTwiML(w, nil)
			return
		}
	}
	requestID := sid
	if requestID == "" {
		requestID = uuid.New().String()
	}
	req := arbiter.Request{
		Message:   r.PostForm.Get("Body"),
		Mode:      h.mode,
		ClientID:  from,
		RequestID: requestID,
	}
	slog.Debug("Twilio webhook: inbound message", "from", from, "request_id", requestID)

	if h.sender != nil {
		go h.replyAsync(context.WithoutCancel(r.Context()), req, sid)
		writeTwiML(w, nil)
		return
	}

	res := h.turns.HandleTurn(r.Context(), req)
	h.markProcessed(sid)
	writeTwiML(w, []twiml.Element{&twiml.MessagingMessage{Body: res.Reply}})
}

func (h *Handler) markProcessed(sid string) {
	if h.dedup == nil || sid == "" {
		return
	}
	if err := h.dedup.MarkProcessed(sid); err != nil {
		slog.Warn("Twilio webhook: failed to mark message processed", "message_sid", sid, "error", err)
	}
}

func (h *Handler) replyAsync(ctx context.Context, req arbiter.Request, sid string) {
	ctx, cancel := context.WithTimeout(ctx, asyncReplyTimeout)
	defer cancel()
	res := h.turns.HandleTurn(ctx, req)
	if err := h.sender.SendMessage(ctx, req.ClientID, res.Reply); err != nil {
		slog.Error("Twilio webhook: failed to send reply", "to", req.ClientID, "request_id", req.RequestID, "error", err)
		return
	}
	h.markProcessed(sid)
}

// requestURL returns the URL Twilio signed.
func (h *Handler) requestURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeTwiML(w http.ResponseWriter, verbs []twiml.Element) {
	body, err := twiml.Messages(verbs)
	if err != nil {
		slog.Error("Twilio webhook: failed to render TwiML", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("Twilio webhook: failed to write response", "error", err)
	}
}
