package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bondtrader/internal/config"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain text", want: "plain text"},
		{in: "Bought 2 of `RU000A-0J` (4.90%)", want: "Bought 2 of `RU000A-0J` \\(4\\.90%\\)"},
		{in: "a_b*c[d]e(f)g~h>i#j+k-l=m|n{o}p.q!r", want: "a\\_b\\*c\\[d\\]e\\(f\\)g\\~h\\>i\\#j\\+k\\-l\\=m\\|n\\{o\\}p\\.q\\!r"},
		{in: "1.5₽ per day", want: "1\\.5₽ per day"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeMarkdownV2(tt.in))
	}
}

func TestNotifySendsMessage(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	logger, _ := logtest.NewNullLogger()
	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "42", APIURL: srv.URL + "/"}, srv.Client(), logger)

	require.NoError(t, n.Notify(context.Background(), "Yield 4.90%"))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/bot123:abc/sendMessage", got.URL.Path)
	assert.Equal(t, "42", got.PostForm.Get("chat_id"))
	assert.Equal(t, "MarkdownV2", got.PostForm.Get("parse_mode"))
	assert.Equal(t, "Yield 4\\.90%", got.PostForm.Get("text"))
}

func TestNotifyNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"can't parse entities"}`))
	}))
	defer srv.Close()

	logger, _ := logtest.NewNullLogger()
	n := NewNotifier(config.TelegramConfig{BotToken: "t", ChatID: "1", APIURL: srv.URL}, srv.Client(), logger)

	err := n.Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "can't parse entities")
}

func TestNotifyDisabledWithoutCredentials(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	logger, hook := logtest.NewNullLogger()
	n := NewNotifier(config.TelegramConfig{ChatID: "1", APIURL: srv.URL}, srv.Client(), logger)

	require.NoError(t, n.Notify(context.Background(), "one"))
	require.NoError(t, n.Notify(context.Background(), "two"))

	assert.Zero(t, calls)
	assert.Len(t, hook.AllEntries(), 1)
}
