package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/dialogue"
	"github.com/ryotagoto/mokuhyo/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "test-signing-secret"

func signedSlackRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(body)))
	ts := fmt.Sprintf("%d", time.Now().Unix())

	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)

	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestSlackWebhookURLVerification(t *testing.T) {
	h := NewSlackWebhook(testSigningSecret, &fakeEngine{}, gateway.NewRegistry())

	body := `{"type": "url_verification", "challenge": "challenge-token"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedSlackRequest(t, body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "challenge-token", rec.Body.String())
}

func TestSlackWebhookRejectsBadSignature(t *testing.T) {
	h := NewSlackWebhook(testSigningSecret, &fakeEngine{}, gateway.NewRegistry())

	body := `{"type": "url_verification", "challenge": "challenge-token"}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(body)))
	req.Header.Set("X-Slack-Request-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type captureGateway struct {
	sent chan string
}

func (c *captureGateway) Name() string { return "slack" }

func (c *captureGateway) Send(ctx context.Context, conversationID, text string) error {
	c.sent <- conversationID + "|" + text
	return nil
}

func TestSlackWebhookDispatchesMessage(t *testing.T) {
	engine := &fakeEngine{result: &dialogue.TurnResult{Success: true, Response: "First, the why"}}
	registry := gateway.NewRegistry()
	capture := &captureGateway{sent: make(chan string, 1)}
	require.NoError(t, registry.Register(capture))

	h := NewSlackWebhook(testSigningSecret, engine, registry)

	body := `{"type": "event_callback", "event": {"type": "message", "channel": "C123", "user": "U123", "text": "hello"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedSlackRequest(t, body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case sent := <-capture.sent:
		assert.Equal(t, "C123|First, the why", sent)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}
	assert.Equal(t, "C123", engine.last.ConversationID)
	assert.Equal(t, "U123", engine.last.AccountID)
}

func TestSlackWebhookIgnoresBotMessages(t *testing.T) {
	engine := &fakeEngine{result: &dialogue.TurnResult{Success: true, Response: "x"}}
	registry := gateway.NewRegistry()
	capture := &captureGateway{sent: make(chan string, 1)}
	require.NoError(t, registry.Register(capture))

	h := NewSlackWebhook(testSigningSecret, engine, registry)

	body := `{"type": "event_callback", "event": {"type": "message", "channel": "C123", "bot_id": "B1", "text": "hello"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedSlackRequest(t, body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-capture.sent:
		t.Fatal("bot message must not be processed")
	case <-time.After(100 * time.Millisecond):
	}
}
