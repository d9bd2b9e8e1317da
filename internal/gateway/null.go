package gateway

import (
	"context"
	"log/slog"
)

// Null logs sends instead of delivering them; used when no channel is
// configured and in tests.
type Null struct{}

func (Null) Name() string {
	return "null"
}

func (Null) Send(ctx context.Context, conversationID, text string) error {
	slog.Info("Null gateway send", "conversation", conversationID, "text", text)
	return nil
}
