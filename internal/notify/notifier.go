package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// MessageRef identifies a delivered message so it can be edited or pinned.
type MessageRef struct {
	ChatID    string
	MessageID int64
}

// IsZero reports whether the reference points at nothing.
func (r MessageRef) IsZero() bool {
	return r.ChatID == "" && r.MessageID == 0
}

// Notifier sends messages to the operator.
type Notifier interface {
	SendText(ctx context.Context, text string) (MessageRef, error)
	SendImage(ctx context.Context, data []byte, filename, caption string, asDocument bool) (MessageRef, error)
	EditImage(ctx context.Context, ref MessageRef, data []byte, filename, caption string) (MessageRef, error)
	Pin(ctx context.Context, ref MessageRef) error
	Unpin(ctx context.Context, ref MessageRef) error
	UnpinAll(ctx context.Context) error
}

// Log writes notifications to a logger instead of a chat.
type Log struct {
	logger *slog.Logger
	nextID atomic.Int64
}

// NewLog creates a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "notify")}
}

func (l *Log) ref() MessageRef {
	return MessageRef{ChatID: "log", MessageID: l.nextID.Add(1)}
}

func (l *Log) SendText(_ context.Context, text string) (MessageRef, error) {
	ref := l.ref()
	l.logger.Info("notification", "message_id", ref.MessageID, "text", text)
	return ref, nil
}

func (l *Log) SendImage(_ context.Context, data []byte, filename, caption string, asDocument bool) (MessageRef, error) {
	ref := l.ref()
	l.logger.Info("image notification",
		"message_id", ref.MessageID,
		"filename", filename,
		"bytes", len(data),
		"as_document", asDocument,
		"caption", caption,
	)
	return ref, nil
}

func (l *Log) EditImage(_ context.Context, ref MessageRef, data []byte, filename, caption string) (MessageRef, error) {
	l.logger.Info("image edited",
		"message_id", ref.MessageID,
		"filename", filename,
		"bytes", len(data),
		"caption", caption,
	)
	return ref, nil
}

func (l *Log) Pin(_ context.Context, ref MessageRef) error {
	l.logger.Info("message pinned", "message_id", ref.MessageID)
	return nil
}

func (l *Log) Unpin(_ context.Context, ref MessageRef) error {
	l.logger.Info("message unpinned", "message_id", ref.MessageID)
	return nil
}

func (l *Log) UnpinAll(context.Context) error {
	l.logger.Info("all messages unpinned")
	return nil
}
