package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHandlerAppendsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(contextHandler{slog.NewTextHandler(&buf, nil)})

	ctx := WithTurnID(context.Background(), "01TURN")
	ctx = WithConversationID(ctx, "C42")
	log.InfoContext(ctx, "processing")

	out := buf.String()
	assert.Contains(t, out, "conversation=C42")
	assert.Contains(t, out, "turn=01TURN")

	buf.Reset()
	log.Info("no ids on a bare context")
	out = buf.String()
	assert.NotContains(t, out, "conversation=")
	assert.NotContains(t, out, "turn=")
}

func TestContextAccessorsDefaultEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTurnID(ctx))
	assert.Empty(t, GetConversationID(ctx))

	ctx = WithTurnID(ctx, "t")
	assert.Equal(t, "t", GetTurnID(ctx))
}
