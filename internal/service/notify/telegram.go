// Package notify delivers outcome messages to chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"HyperTrade/internal/domain/models"
	pkghttp "HyperTrade/pkg/http"
	"HyperTrade/pkg/util"
)

var ErrCredentialsRequired = errors.New("bot_token and chat_id are required when enabling Telegram")

// TelegramSettings is the runtime state of the Telegram channel.
type TelegramSettings struct {
	Enabled  bool   `json:"telegram_enabled"`
	BotToken string `json:"telegram_bot_token,omitempty"`
	ChatID   string `json:"telegram_chat_id,omitempty"`
}

// Masked hides all but the last characters of the bot token.
func (s TelegramSettings) Masked() TelegramSettings {
	s.BotToken = util.Mask(s.BotToken)
	return s
}

// Telegram implements repository.NotificationChannel over the Bot API.
// Its settings can be replaced at runtime.
type Telegram struct {
	client *pkghttp.Client
	apiURL string

	mu       sync.RWMutex
	settings TelegramSettings
}

func NewTelegram(apiURL string, timeout time.Duration, settings TelegramSettings) *Telegram {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &Telegram{
		client:   pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		apiURL:   strings.TrimRight(apiURL, "/"),
		settings: settings,
	}
}

func (t *Telegram) Enabled() bool {
	s := t.Settings()
	return s.Enabled && s.BotToken != "" && s.ChatID != ""
}

func (t *Telegram) Settings() TelegramSettings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings
}

// Update applies an admin change. Enabling requires both credentials in the
// same request; with enabled omitted, credentials are rotated only while the
// channel is enabled.
func (t *Telegram) Update(req models.TelegramSettingsRequest) (TelegramSettings, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	token := deref(req.BotToken)
	chat := deref(req.ChatID)

	switch {
	case req.Enabled != nil && *req.Enabled:
		if token == "" || chat == "" {
			return t.settings, ErrCredentialsRequired
		}
		t.settings = TelegramSettings{Enabled: true, BotToken: token, ChatID: chat}
	case req.Enabled != nil:
		t.settings.Enabled = false
	case t.settings.Enabled:
		if token != "" {
			t.settings.BotToken = token
		}
		if chat != "" {
			t.settings.ChatID = chat
		}
	}
	return t.settings, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	s := t.Settings()
	if !s.Enabled || s.BotToken == "" || s.ChatID == "" {
		return nil
	}

	var resp botResponse
	err := t.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, s.BotToken),
		Body:   sendMessageRequest{ChatID: s.ChatID, Text: text, DisableWebPagePreview: true},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", redact(err, s.BotToken))
	}
	if !resp.OK {
		return fmt.Errorf("telegram send: %s", resp.Description)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// redact keeps the bot token out of logged transport errors, which embed
// the request URL.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, util.Mask(token)))
}
