package gateway

import (
	"context"
	"log/slog"

	"github.com/ryotagoto/mokuhyo/internal/errors"

	"github.com/slack-go/slack"
)

type SlackGateway struct {
	client *slack.Client
}

func NewSlack(botToken string) *SlackGateway {
	return &SlackGateway{client: slack.New(botToken)}
}

func (s *SlackGateway) Name() string {
	return "slack"
}

// Send posts to the Slack channel identified by conversationID.
func (s *SlackGateway) Send(ctx context.Context, conversationID, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, conversationID, slack.MsgOptionText(text, false))
	if err != nil {
		return errors.Wrap(err, "failed to send Slack message")
	}
	slog.Debug("Slack message sent", "channel", conversationID)
	return nil
}
