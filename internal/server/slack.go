package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ryotagoto/mokuhyo/internal/dialogue"
	"github.com/ryotagoto/mokuhyo/internal/gateway"
	"github.com/ryotagoto/mokuhyo/internal/logger"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// SlackWebhook verifies and dispatches Slack Events API callbacks.
// Replies go back out through the gateway registry so outbound send stays
// in one place.
type SlackWebhook struct {
	signingSecret string
	engine        Engine
	gateways      *gateway.Registry
}

func NewSlackWebhook(signingSecret string, engine Engine, gateways *gateway.Registry) *SlackWebhook {
	return &SlackWebhook{
		signingSecret: signingSecret,
		engine:        engine,
		gateways:      gateways,
	}
}

func (h *SlackWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if event.Type == slackevents.URLVerification {
		var cr slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(cr.Challenge))
		return
	}

	if event.Type == slackevents.CallbackEvent {
		switch ev := event.InnerEvent.Data.(type) {
		case *slackevents.MessageEvent:
			// Ignore bot messages
			if ev.BotID != "" {
				break
			}
			// Slack retries on slow responses; ack first, process async.
			go h.processMessage(context.WithoutCancel(r.Context()), ev)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *SlackWebhook) processMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	ctx = logger.WithConversationID(ctx, ev.Channel)
	result, err := h.engine.ProcessTurn(ctx, dialogue.TurnRequest{
		ConversationID: ev.Channel,
		AccountID:      ev.User,
		Text:           ev.Text,
	})
	if err != nil {
		slog.Error("Failed to handle Slack event", "channel", ev.Channel, "error", err)
		return
	}
	if err := h.gateways.Send(ctx, "slack", ev.Channel, result.Response); err != nil {
		slog.Error("Slack reply failed", "channel", ev.Channel, "error", err)
	}
}
