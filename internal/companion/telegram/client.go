// Package telegram wraps go-telegram/bot for the companion.
//
// The wrapper owns the transport edge: long-polling, the single-chat
// authorization gate, command and callback registration, and the two
// operations the core needs (Deliver, NotifyTyping). Everything behind those
// calls is transport-agnostic.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Config holds the Telegram connection parameters.
type Config struct {
	// Token is the bot API token.
	Token string
	// AllowedChatID is the single conversation the companion serves. Updates
	// from any other chat are dropped before core logic runs.
	AllowedChatID int64
}

// Handlers receives the authorized, already-filtered updates.
type Handlers struct {
	// OnText is called for every plain text message.
	OnText func(ctx context.Context, chatID int64, text string, at time.Time)
	// OnCommand is called for registered slash commands ("/help" etc.) and
	// returns the reply text, optionally with inline-keyboard choices.
	OnCommand func(ctx context.Context, chatID int64, command string) (string, []Choice)
	// OnCallback is called for inline-keyboard presses and returns the text
	// the prompt message is edited into.
	OnCallback func(ctx context.Context, chatID int64, data string) string
	// UnauthorizedText is sent in reply to /start from a disallowed chat.
	UnauthorizedText func() string
}

// Choice is one inline-keyboard button.
type Choice struct {
	Label string
	Data  string
}

// Client is the companion-side Telegram client.
type Client struct {
	b        *bot.Bot
	cfg      Config
	handlers Handlers
}

// Commands the client registers; everything else falls through to OnText.
var commands = []string{"/start", "/help", "/now", "/mood", "/emergency", "/clear"}

// Callback-data prefixes routed to OnCallback.
var callbackPrefixes = []string{"now_", "mood_"}

// New creates the Telegram client but does not start polling yet.
func New(cfg Config, handlers Handlers) (*Client, error) {
	c := &Client{cfg: cfg, handlers: handlers}

	b, err := bot.New(cfg.Token, bot.WithDefaultHandler(c.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	c.b = b

	for _, cmd := range commands {
		b.RegisterHandler(bot.HandlerTypeMessageText, cmd, bot.MatchTypeExact,
			func(ctx context.Context, _ *bot.Bot, update *models.Update) {
				c.handleCommand(ctx, update, cmd)
			})
	}
	for _, prefix := range callbackPrefixes {
		b.RegisterHandler(bot.HandlerTypeCallbackQueryData, prefix, bot.MatchTypePrefix, c.handleCallback)
	}

	return c, nil
}

// Start runs the long-polling loop until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	slog.Info("telegram polling started", "allowed_chat", c.cfg.AllowedChatID)
	c.b.Start(ctx)
	slog.Info("telegram polling stopped")
}

// Deliver sends a plain text message to the chat.
func (c *Client) Deliver(ctx context.Context, chatID int64, text string) error {
	_, err := c.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// NotifyTyping shows the typing indicator while the completion call runs.
// Failures are logged and dropped: the indicator is cosmetic.
func (c *Client) NotifyTyping(ctx context.Context, chatID int64) {
	_, err := c.b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil {
		slog.Debug("could not send typing action", "err", err)
	}
}

// deliverWithChoices sends text with an inline keyboard of choices.
func (c *Client) deliverWithChoices(ctx context.Context, chatID int64, text string, choices []Choice) error {
	rows := make([][]models.InlineKeyboardButton, 0, (len(choices)+1)/2)
	for i := 0; i < len(choices); i += 2 {
		row := []models.InlineKeyboardButton{
			{Text: choices[i].Label, CallbackData: choices[i].Data},
		}
		if i+1 < len(choices) {
			row = append(row, models.InlineKeyboardButton{
				Text: choices[i+1].Label, CallbackData: choices[i+1].Data,
			})
		}
		rows = append(rows, row)
	}

	_, err := c.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}
	return nil
}

func (c *Client) authorized(chatID int64) bool {
	return chatID == c.cfg.AllowedChatID
}

// handleDefault receives everything no registered handler matched: plain
// text messages and unknown commands, both forwarded to OnText.
func (c *Client) handleDefault(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	if !c.authorized(chatID) {
		slog.Debug("message from disallowed chat; ignoring", "chat_id", chatID)
		return
	}
	if c.handlers.OnText == nil {
		return
	}
	at := time.Unix(int64(update.Message.Date), 0)
	c.handlers.OnText(ctx, chatID, update.Message.Text, at)
}

func (c *Client) handleCommand(ctx context.Context, update *models.Update, command string) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !c.authorized(chatID) {
		// Only /start gets a polite refusal; silence otherwise.
		if command == "/start" && c.handlers.UnauthorizedText != nil {
			_ = c.Deliver(ctx, chatID, c.handlers.UnauthorizedText())
		}
		slog.Debug("command from disallowed chat; ignoring", "chat_id", chatID, "command", command)
		return
	}
	if c.handlers.OnCommand == nil {
		return
	}

	text, choices := c.handlers.OnCommand(ctx, chatID, command)
	if text == "" {
		return
	}

	var err error
	if len(choices) > 0 {
		err = c.deliverWithChoices(ctx, chatID, text, choices)
	} else {
		err = c.Deliver(ctx, chatID, text)
	}
	if err != nil {
		slog.Error("could not answer command", "command", command, "err", err)
	}
}

func (c *Client) handleCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		return
	}
	cb := update.CallbackQuery

	// Always answer the callback so the client stops its spinner.
	defer func() {
		_, err := c.b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
		})
		if err != nil {
			slog.Debug("could not answer callback query", "err", err)
		}
	}()

	msg := cb.Message.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	if !c.authorized(chatID) || c.handlers.OnCallback == nil {
		return
	}

	reply := c.handlers.OnCallback(ctx, chatID, cb.Data)
	if reply == "" {
		return
	}
	if _, err := c.b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: msg.ID,
		Text:      reply,
	}); err != nil {
		slog.Error("could not edit prompt message", "err", err)
	}
}
