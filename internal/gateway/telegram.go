package gateway

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ryotagoto/mokuhyo/internal/dialogue"
	"github.com/ryotagoto/mokuhyo/internal/errors"
	"github.com/ryotagoto/mokuhyo/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TurnHandler is how inbound channels hand user messages to the engine.
type TurnHandler func(ctx context.Context, req dialogue.TurnRequest) (*dialogue.TurnResult, error)

type TelegramGateway struct {
	bot           *tgbotapi.BotAPI
	updateTimeout int
	handler       TurnHandler
}

func NewTelegram(token string, updateTimeout int, handler TurnHandler) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init telegram bot")
	}
	return &TelegramGateway{bot: bot, updateTimeout: updateTimeout, handler: handler}, nil
}

func (t *TelegramGateway) Name() string {
	return "telegram"
}

// Listen long-polls for updates and feeds each message through the engine,
// replying in the same chat. Blocks until ctx is done.
func (t *TelegramGateway) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout
	updates := t.bot.GetUpdatesChan(u)

	slog.Info("Telegram gateway listening", "user", t.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *TelegramGateway) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || t.handler == nil {
		return
	}
	msg := update.Message

	ctx = logger.WithConversationID(ctx, strconv.FormatInt(msg.Chat.ID, 10))
	result, err := t.handler(ctx, dialogue.TurnRequest{
		ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
		AccountID:      strconv.FormatInt(msg.From.ID, 10),
		Text:           msg.Text,
	})
	if err != nil {
		slog.Error("Telegram turn failed", "error", err)
		return
	}
	if err := t.Send(ctx, strconv.FormatInt(msg.Chat.ID, 10), result.Response); err != nil {
		slog.Error("Telegram reply failed", "error", err)
	}
}

func (t *TelegramGateway) Send(ctx context.Context, conversationID, text string) error {
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return errors.InvalidInput("invalid telegram conversation id: " + err.Error())
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrap(err, "failed to send telegram message")
	}
	return nil
}
