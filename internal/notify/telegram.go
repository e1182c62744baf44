package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Telegram sends notifications through a Telegram bot.
type Telegram struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Telegram client.
type Option func(*Telegram)

// NewTelegram creates a client posting to chatID as the bot owning token.
// An empty baseURL selects DefaultBaseURL.
func NewTelegram(baseURL, token, chatID string, opts ...Option) *Telegram {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	t := &Telegram{
		baseURL: baseURL,
		token:   token,
		chatID:  chatID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "telegram")

	return t
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Telegram) {
		t.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) Option {
	return func(t *Telegram) {
		t.maxRetries = max
		t.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Telegram) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Telegram) {
		t.httpClient = hc
	}
}

// message is the subset of the Bot API Message object we read.
type message struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

func (m message) ref() MessageRef {
	return MessageRef{
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		MessageID: m.MessageID,
	}
}

// SendText posts an HTML formatted message.
func (t *Telegram) SendText(ctx context.Context, text string) (MessageRef, error) {
	req := newRequest()
	req.field("chat_id", t.chatID)
	req.field("parse_mode", "html")
	req.field("text", text)
	return t.sendMessage(ctx, "sendMessage", req)
}

// SendImage uploads a JPEG. As a document the file keeps full resolution;
// as a photo Telegram recompresses it.
func (t *Telegram) SendImage(ctx context.Context, data []byte, filename, caption string, asDocument bool) (MessageRef, error) {
	req := newRequest()
	req.field("chat_id", t.chatID)
	if caption != "" {
		req.field("caption", caption)
		req.field("parse_mode", "html")
	}

	method := "sendPhoto"
	if asDocument {
		method = "sendDocument"
		req.file("document", filename, data)
	} else {
		req.file("photo", filename, data)
	}
	return t.sendMessage(ctx, method, req)
}

// EditImage replaces the photo and caption of an existing message.
func (t *Telegram) EditImage(ctx context.Context, ref MessageRef, data []byte, filename, caption string) (MessageRef, error) {
	media := map[string]string{
		"type":  "photo",
		"media": "attach://media",
	}
	if caption != "" {
		media["caption"] = caption
		media["parse_mode"] = "html"
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		return MessageRef{}, fmt.Errorf("marshal media: %w", err)
	}

	req := newRequest()
	req.field("chat_id", t.chatFor(ref))
	req.field("message_id", strconv.FormatInt(ref.MessageID, 10))
	req.field("media", string(encoded))
	req.file("media", filename, data)
	return t.sendMessage(ctx, "editMessageMedia", req)
}

// Pin pins ref without notifying chat members.
func (t *Telegram) Pin(ctx context.Context, ref MessageRef) error {
	req := newRequest()
	req.field("chat_id", t.chatFor(ref))
	req.field("message_id", strconv.FormatInt(ref.MessageID, 10))
	req.field("disable_notification", "true")
	_, err := t.call(ctx, "pinChatMessage", req)
	return err
}

// Unpin unpins ref.
func (t *Telegram) Unpin(ctx context.Context, ref MessageRef) error {
	req := newRequest()
	req.field("chat_id", t.chatFor(ref))
	req.field("message_id", strconv.FormatInt(ref.MessageID, 10))
	_, err := t.call(ctx, "unpinChatMessage", req)
	return err
}

// UnpinAll clears every pinned message in the chat.
func (t *Telegram) UnpinAll(ctx context.Context) error {
	req := newRequest()
	req.field("chat_id", t.chatID)
	_, err := t.call(ctx, "unpinAllChatMessages", req)
	return err
}

func (t *Telegram) chatFor(ref MessageRef) string {
	if ref.ChatID != "" {
		return ref.ChatID
	}
	return t.chatID
}

func (t *Telegram) sendMessage(ctx context.Context, method string, req *request) (MessageRef, error) {
	result, err := t.call(ctx, method, req)
	if err != nil {
		return MessageRef{}, err
	}

	var msg message
	if err := json.Unmarshal(result, &msg); err != nil {
		return MessageRef{}, fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return msg.ref(), nil
}
