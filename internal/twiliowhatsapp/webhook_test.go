package twiliowhatsapp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/store"
	"github.com/BTreeMap/NeuroCare/internal/testutil"
)

const testAuthToken = "12345"

// sign computes the X-Twilio-Signature for a form POST.
func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func inbound(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "http://example.com/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func defaultForm() url.Values {
	return url.Values{
		"From":       {"whatsapp:+15551234567"},
		"Body":       {"I'm so stressed about work"},
		"MessageSid": {"SM123"},
	}
}

func TestWebhookRepliesWithTwiML(t *testing.T) {
	stub := &testutil.StubTurns{Result: arbiter.Result{Reply: "Let's take a breath & slow down."}}
	h := NewHandler(stub, WithMode("template"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, inbound(defaultForm()))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "webhook")
	if ct := rr.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<Response>") || !strings.Contains(body, "<Message>") {
		t.Errorf("unexpected TwiML: %s", body)
	}
	if !strings.Contains(body, "breath &amp; slow down.") {
		t.Errorf("reply not escaped into TwiML: %s", body)
	}

	reqs := stub.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(reqs))
	}
	got := reqs[0]
	if got.Message != "I'm so stressed about work" || got.ClientID != "whatsapp:+15551234567" || got.Mode != "template" || got.RequestID != "SM123" {
		t.Errorf("unexpected turn request: %+v", got)
	}
	if len(got.History) != 0 {
		t.Errorf("webhook turns carry no history, got %+v", got.History)
	}
}

func TestWebhookSignatureValidation(t *testing.T) {
	form := defaultForm()
	good := sign(testAuthToken, "http://example.com/twilio/webhook", form)

	tests := []struct {
		name       string
		signature  string
		wantStatus int
	}{
		{"valid signature", good, http.StatusOK},
		{"missing signature", "", http.StatusForbidden},
		{"wrong signature", sign("other-token", "http://example.com/twilio/webhook", form), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &testutil.StubTurns{Result: arbiter.Result{Reply: "ok"}}
			h := NewHandler(stub, WithSignatureValidation(testAuthToken))
			req := inbound(form)
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			testutil.AssertHTTPStatus(t, tt.wantStatus, rr.Code, tt.name)
			if tt.wantStatus != http.StatusOK && len(stub.Requests()) != 0 {
				t.Error("rejected request should not run a turn")
			}
		})
	}
}

func TestWebhookPublicURL(t *testing.T) {
	form := defaultForm()
	public := "https://bot.example.org/twilio/webhook"
	stub := &testutil.StubTurns{Result: arbiter.Result{Reply: "ok"}}
	h := NewHandler(stub, WithSignatureValidation(testAuthToken), WithPublicURL(public))

	req := inbound(form)
	req.Header.Set(SignatureHeader, sign(testAuthToken, public, form))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "public url signature")
}

func TestWebhookBadRequests(t *testing.T) {
	h := NewHandler(&testutil.StubTurns{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/twilio/webhook", nil))
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, inbound(url.Values{"Body": {"hi"}}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "missing From")
}

func TestWebhookAsyncReply(t *testing.T) {
	stub := &testutil.StubTurns{Result: arbiter.Result{Reply: "Sent later"}}
	mock := NewMockClient()
	h := NewHandler(stub, WithSender(mock))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, inbound(defaultForm()))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "async webhook")
	if strings.Contains(rr.Body.String(), "<Message>") {
		t.Errorf("async mode should answer with empty TwiML, got %s", rr.Body.String())
	}

	select {
	case msg := <-mock.Sent():
		if msg.To != "whatsapp:+15551234567" || msg.Body != "Sent later" {
			t.Errorf("unexpected sent message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reply was not sent")
	}
}

func TestWebhookEndToEndCrisis(t *testing.T) {
	h := NewHandler(testutil.NewTemplateArbiter(t), WithMode("openai"))
	form := url.Values{"From": {"+15550000000"}, "Body": {"I want to kill myself"}}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, inbound(form))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "crisis webhook")
	if !strings.Contains(rr.Body.String(), "988") {
		t.Errorf("expected the crisis script in TwiML, got %s", rr.Body.String())
	}
}

func TestWebhookDropsRedeliveredMessages(t *testing.T) {
	stub := &testutil.StubTurns{Result: arbiter.Result{Reply: "Only once"}}
	dedup := store.NewInMemoryDedup(0, 0)
	h := NewHandler(stub, WithDedup(dedup))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, inbound(defaultForm()))
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "delivery")
		if i == 1 && strings.Contains(rr.Body.String(), "<Message>") {
			t.Errorf("redelivery should get empty TwiML, got %s", rr.Body.String())
		}
	}

	if n := len(stub.Requests()); n != 1 {
		t.Errorf("expected 1 turn for a redelivered message, got %d", n)
	}
	rec, ok := dedup.Get("SM123")
	if !ok || rec.ProcessedAt == nil {
		t.Errorf("message not marked processed: %+v", rec)
	}

	// Messages without a sid are never deduplicated.
	form := defaultForm()
	form.Del("MessageSid")
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), inbound(form))
	}
	if n := len(stub.Requests()); n != 3 {
		t.Errorf("expected 3 turns in total, got %d", n)
	}
}
