package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"bondtrader/internal/config"
)

const maxErrorBody = 512

// Notifier sends messages through the Telegram Bot API.
type Notifier struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatID     string
	logger     *logrus.Entry
	warnOnce   sync.Once
}

// NewNotifier builds a Notifier. A missing token or chat id disables delivery.
func NewNotifier(cfg config.TelegramConfig, httpClient *http.Client, logger *logrus.Logger) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Notifier{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.BotToken,
		chatID:     cfg.ChatID,
		logger:     logger.WithField("component", "telegram"),
	}
}

// Notify sends text as a MarkdownV2 message.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n.token == "" || n.chatID == "" {
		n.warnOnce.Do(func() {
			n.logger.Warn("telegram bot token or chat id is not set, notifications are disabled")
		})
		return nil
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", EscapeMarkdownV2(text))
	form.Set("parse_mode", "MarkdownV2")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", redact(err, n.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// redact keeps the bot token out of logged transport errors, which embed the URL.
func redact(err error, token string) error {
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}
