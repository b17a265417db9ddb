package notification

import (
	"testing"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/logger/zerolog"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/tucnak/telebot.v2"
)

func messageFrom(chat int64) *tb.Update {
	return &tb.Update{Message: &tb.Message{Text: "/start", Chat: &tb.Chat{ID: chat}}}
}

func TestParseChatID(t *testing.T) {
	id, ok := parseChatID(" -100123 ")
	require.True(t, ok)
	require.Equal(t, int64(-100123), id)

	_, ok = parseChatID("@upbit_alerts")
	require.False(t, ok)
}

func TestTelegram_ChatMiddleware(t *testing.T) {
	testCases := []struct {
		name   string
		chatID string
		update *tb.Update
		want   bool
	}{
		{name: "no message", chatID: "42", update: &tb.Update{}, want: false},
		{name: "no chat", chatID: "42", update: &tb.Update{Message: &tb.Message{}}, want: false},
		{name: "configured chat", chatID: "42", update: messageFrom(42), want: true},
		{name: "other chat", chatID: "42", update: messageFrom(7), want: false},
		{name: "channel name accepts any chat", chatID: "@upbit_alerts", update: messageFrom(7), want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bot := &Telegram{
				settings: core.TelegramSettings{Token: "123:abc", ChatID: tc.chatID},
				log:      zerolog.NewNop(),
			}

			middleware := bot.createChatMiddleware(&tb.LongPoller{})
			require.Equal(t, tc.want, middleware.Filter(tc.update))
		})
	}
}
