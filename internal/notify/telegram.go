// Package notify is the outbound notification sink: it accepts formatted
// text and a destination, nothing more. Delivery failures are the
// caller's to log and swallow; a lost notification never fails a trade.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier delivers one human-readable status message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Telegram sends messages through the Bot API to a fixed chat. With no
// token or chat configured it degrades to a no-op, so the trading pipeline
// runs unchanged without notifications.
type Telegram struct {
	token      string
	chatID     string
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:      token,
		chatID:     chatID,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.With().Str("component", "telegram_notifier").Logger(),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		t.logger.Debug().Msg("telegram not configured, dropping notification")
		return nil
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
