// Package notification delivers detected changes and command replies to Telegram.
package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

// CommandHandler answers chat commands. Reply may be called any number of
// times before Handle returns.
type CommandHandler interface {
	Commands() []core.CommandSpec
	Handle(ctx context.Context, text string, reply func(text string))
}

// chatID is a recipient given by the numeric id or @username of a chat.
type chatID string

func (c chatID) Recipient() string { return string(c) }

// Telegram implements the core.NotifierWithStart interface
type Telegram struct {
	settings core.TelegramSettings
	client   *tb.Bot
	handler  CommandHandler
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Option is a function that configures a Telegram instance
type Option func(telegram *Telegram)

// WithCommandHandler routes chat commands to handler.
func WithCommandHandler(handler CommandHandler) Option {
	return func(t *Telegram) {
		t.handler = handler
	}
}

// NewTelegram creates and initializes a new Telegram service
func NewTelegram(settings core.TelegramSettings, log logger.Logger, options ...Option) (*Telegram, error) {
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	bot := &Telegram{
		settings: settings,
		log:      log.WithField("component", "telegram"),
	}
	bot.ctx, bot.cancel = context.WithCancel(context.Background())

	for _, option := range options {
		option(bot)
	}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    bot.createChatMiddleware(poller),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.client = client

	if bot.handler != nil {
		if err := bot.setupCommands(); err != nil {
			return nil, fmt.Errorf("failed to set commands: %w", err)
		}
		bot.registerHandlers()
	}

	return bot, nil
}

// createChatMiddleware drops updates from other chats when the configured
// chat id is numeric.
func (t *Telegram) createChatMiddleware(poller *tb.LongPoller) *tb.MiddlewarePoller {
	allowed, numeric := parseChatID(t.settings.ChatID)

	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Chat == nil {
			return false
		}
		if !numeric || u.Message.Chat.ID == allowed {
			return true
		}

		t.log.WithField("chat", u.Message.Chat.ID).Warn("ignoring message from unknown chat")
		return false
	})
}

func parseChatID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return id, err == nil
}

func (t *Telegram) setupCommands() error {
	specs := t.handler.Commands()
	commands := make([]tb.Command, 0, len(specs))
	for _, spec := range specs {
		commands = append(commands, tb.Command{Text: spec.Name, Description: spec.Description})
	}
	return t.client.SetCommands(commands)
}

// registerHandlers routes every known command, and any other slash text, to
// the command handler.
func (t *Telegram) registerHandlers() {
	for _, spec := range t.handler.Commands() {
		t.client.Handle("/"+spec.Name, t.handleMessage)
	}
	t.client.Handle(tb.OnText, func(m *tb.Message) {
		if strings.HasPrefix(m.Text, "/") {
			t.handleMessage(m)
		}
	})
}

func (t *Telegram) handleMessage(m *tb.Message) {
	t.log.WithField("chat", m.Chat.ID).Debugf("command %q", m.Text)
	t.handler.Handle(t.ctx, m.Text, func(text string) {
		t.sendMessage(m.Chat, text)
	})
}

// Start begins polling for updates in the background
func (t *Telegram) Start() {
	go t.client.Start()
	t.log.Info("telegram bot started")
}

// Stop ends polling and cancels commands still running
func (t *Telegram) Stop() {
	t.cancel()
	t.client.Stop()
}

// Notify sends a message to the configured chat
func (t *Telegram) Notify(text string) {
	t.sendMessage(chatID(t.settings.ChatID), text)
}

// OnEvent notifies the chat about a detected change
func (t *Telegram) OnEvent(event core.Event) {
	t.Notify(FormatEvent(event))
}

// sendMessage sends a message to a specific recipient, logging failures
func (t *Telegram) sendMessage(to tb.Recipient, text string) {
	_, err := t.client.Send(to, text, &tb.SendOptions{
		ParseMode:             tb.ModeMarkdown,
		DisableWebPagePreview: true,
	})
	if err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}
