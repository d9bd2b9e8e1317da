package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ryotagoto/mokuhyo/internal/dialogue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	result *dialogue.TurnResult
	err    error
	last   dialogue.TurnRequest
}

func (f *fakeEngine) ProcessTurn(ctx context.Context, req dialogue.TurnRequest) (*dialogue.TurnResult, error) {
	f.last = req
	return f.result, f.err
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeEngine{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTurnEndpoint(t *testing.T) {
	engine := &fakeEngine{result: &dialogue.TurnResult{
		Success:   true,
		Response:  "First, the why",
		SessionID: "01TEST",
		Step:      dialogue.StepWhy,
	}}
	srv := New(engine)

	body, _ := json.Marshal(dialogue.TurnRequest{ConversationID: "C1", AccountID: "U1", Text: "hello"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result dialogue.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "01TEST", result.SessionID)
	assert.Equal(t, dialogue.StepWhy, result.Step)

	assert.Equal(t, "U1", engine.last.AccountID)
	assert.Equal(t, "hello", engine.last.Text)
}

func TestTurnEndpointRejectsBadBody(t *testing.T) {
	srv := New(&fakeEngine{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewReader([]byte("not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnEndpointRequiresIdentity(t *testing.T) {
	srv := New(&fakeEngine{})

	body, _ := json.Marshal(dialogue.TurnRequest{Text: "hello"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnEndpointEngineFailure(t *testing.T) {
	srv := New(&fakeEngine{err: assert.AnError})

	body, _ := json.Marshal(dialogue.TurnRequest{ConversationID: "C1", AccountID: "U1", Text: "hello"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
