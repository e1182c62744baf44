package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Job is one delivery performed by a Queue.
type Job func(ctx context.Context, n Notifier) error

// Queue delivers notifications from a single worker so that event
// handlers never wait on the network. Jobs run in the order posted.
type Queue struct {
	notifier Notifier
	jobs     chan Job
	logger   *slog.Logger

	// Owned by the worker.
	preview MessageRef

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// QueueStats provides statistics about the queue.
type QueueStats struct {
	Pending   int
	Delivered int64
	Failed    int64
	Dropped   int64
}

// NewQueue creates a queue holding at most size pending jobs.
func NewQueue(n Notifier, size int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 64
	}
	return &Queue{
		notifier: n,
		jobs:     make(chan Job, size),
		logger:   logger.With("component", "notify_queue"),
	}
}

// Post schedules job. It returns false, and drops the job, when the queue
// is full.
func (q *Queue) Post(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("notification dropped, queue full")
		return false
	}
}

// Text schedules a text message.
func (q *Queue) Text(text string) {
	q.Post(func(ctx context.Context, n Notifier) error {
		_, err := n.SendText(ctx, text)
		return err
	})
}

// Image schedules an image upload.
func (q *Queue) Image(data []byte, filename, caption string, asDocument bool) {
	q.Post(func(ctx context.Context, n Notifier) error {
		_, err := n.SendImage(ctx, data, filename, caption, asDocument)
		return err
	})
}

// Preview shows an image in a single pinned message that later previews
// edit in place. If the edit fails, for example because the message was
// deleted, a new message is sent and pinned.
func (q *Queue) Preview(data []byte, filename, caption string) {
	q.Post(func(ctx context.Context, n Notifier) error {
		if !q.preview.IsZero() {
			ref, err := n.EditImage(ctx, q.preview, data, filename, caption)
			if err == nil {
				q.preview = ref
				return nil
			}
			q.logger.Debug("preview edit failed, starting a new one", "error", err)
			if err := n.Unpin(ctx, q.preview); err != nil {
				q.logger.Debug("unpin stale preview failed", "error", err)
			}
			q.preview = MessageRef{}
		}

		ref, err := n.SendImage(ctx, data, filename, caption, false)
		if err != nil {
			return err
		}
		q.preview = ref
		return n.Pin(ctx, ref)
	})
}

// ClearPreview unpins the preview message. The next Preview starts a new
// one.
func (q *Queue) ClearPreview() {
	q.Post(func(ctx context.Context, n Notifier) error {
		if q.preview.IsZero() {
			return nil
		}
		ref := q.preview
		q.preview = MessageRef{}
		return n.Unpin(ctx, ref)
	})
}

// UnpinAll clears every pinned message in the chat, including previews
// left behind by an earlier run.
func (q *Queue) UnpinAll() {
	q.Post(func(ctx context.Context, n Notifier) error {
		q.preview = MessageRef{}
		return n.UnpinAll(ctx)
	})
}

// Run delivers jobs until ctx is cancelled. Jobs still pending at that
// point are discarded.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(q.jobs); n > 0 {
				q.logger.Info("discarding pending notifications", "count", n)
			}
			return nil
		case job := <-q.jobs:
			if err := job(ctx, q.notifier); err != nil {
				q.failed.Add(1)
				q.logger.Warn("notification failed", "error", err)
				continue
			}
			q.delivered.Add(1)
		}
	}
}

// Stats returns current statistics.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:   len(q.jobs),
		Delivered: q.delivered.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}
