package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

const telegramAPI = "https://api.telegram.org"

// TelegramClient оборачивает Bot API. Без токена все вызовы возвращают errs.ErrNotConfigured.
type TelegramClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		token:      token,
		baseURL:    telegramAPI,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// WithBaseURL меняет адрес Bot API (для тестов).
func (c *TelegramClient) WithBaseURL(u string) *TelegramClient {
	c.baseURL = u
	return c
}

func (c *TelegramClient) Configured() bool { return c != nil && c.token != "" }

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *TelegramClient) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("telegram: %w", errs.ErrNotConfigured)
	}
	u := c.baseURL + "/bot" + c.token + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()
	var body telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("telegram: %s: status %d: decode: %w", method, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.OK {
		return nil, fmt.Errorf("telegram: %s: status %d: %s", method, resp.StatusCode, body.Description)
	}
	return body.Result, nil
}

// SendMessage отправляет Markdown-сообщение в чат.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	_, err := c.call(ctx, "sendMessage", url.Values{
		"chat_id":    {chatID},
		"text":       {text},
		"parse_mode": {"Markdown"},
	})
	return err
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"chat"`
	} `json:"message"`
}

// LatestChatID возвращает id чата из последнего сообщения боту.
func (c *TelegramClient) LatestChatID(ctx context.Context) (string, error) {
	raw, err := c.call(ctx, "getUpdates", nil)
	if err != nil {
		return "", err
	}
	var updates []telegramUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return "", fmt.Errorf("telegram: getUpdates: decode: %w", err)
	}
	for i := len(updates) - 1; i >= 0; i-- {
		if updates[i].Message != nil {
			return strconv.FormatInt(updates[i].Message.Chat.ID, 10), nil
		}
	}
	return "", fmt.Errorf("telegram: no messages found, send any message to the bot first")
}

// DestinationSource отдаёт зарегистрированные чаты.
type DestinationSource interface {
	ListTelegramDestinations(ctx context.Context) ([]model.TelegramDestination, error)
}

// Telegram рассылает новый тикет во все зарегистрированные чаты.
type Telegram struct {
	client *TelegramClient
	dests  DestinationSource
	log    *logrus.Entry
}

func NewTelegram(client *TelegramClient, dests DestinationSource, log logrus.FieldLogger) *Telegram {
	return &Telegram{client: client, dests: dests, log: logging.Component(log, "telegram")}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, ticket model.Ticket) error {
	if !t.client.Configured() || t.dests == nil {
		return nil
	}
	dests, err := t.dests.ListTelegramDestinations(ctx)
	if err != nil {
		return fmt.Errorf("list telegram destinations: %w", err)
	}
	if len(dests) == 0 {
		return nil
	}
	text, err := NewTicketMessage(ticket)
	if err != nil {
		return err
	}
	for _, d := range dests {
		if err := t.client.SendMessage(ctx, d.ChatID, text); err != nil {
			t.log.WithError(err).WithField("chat_id", d.ChatID).Warn("telegram: send failed")
		}
	}
	return nil
}

// SendTest отправляет проверочное сообщение в один чат.
func (t *Telegram) SendTest(ctx context.Context, chatID string) error {
	return t.client.SendMessage(ctx, chatID, testMessage)
}

// DiscoverChatID ищет id чата, который последним написал боту.
func (t *Telegram) DiscoverChatID(ctx context.Context) (string, error) {
	return t.client.LatestChatID(ctx)
}
