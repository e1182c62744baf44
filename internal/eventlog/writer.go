package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/voyagerbot/internal/metrics"
	"github.com/rickgao/voyagerbot/internal/router"
)

const insertFrame = `INSERT INTO voyager_frames (received_at, event, payload) VALUES ($1, $2, $3)`

// Config holds batch writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// Metrics holds writer counters.
type Metrics struct {
	Inserts int64
	Flushes int64
	Errors  int64
	Dropped int64 // Rows discarded after a failed flush
}

// DB is the subset of *pgxpool.Pool the writer needs.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type frameRow struct {
	ReceivedAt time.Time
	Event      string
	Payload    string
}

// Writer consumes archived frames and writes them to voyager_frames.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	// Input from Message Router
	input *router.GrowableBuffer[router.ArchivedFrame]

	db DB

	// Batching
	batch   []frameRow
	batchMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewWriter creates a new frame archive writer.
func NewWriter(
	cfg Config,
	input *router.GrowableBuffer[router.ArchivedFrame],
	db DB,
	logger *slog.Logger,
) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Writer{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger.With("component", "eventlog"),
		batch:  make([]frameRow, 0, cfg.BatchSize),
	}
}

// Run starts the writer and blocks until ctx is cancelled, then stops it
// with a final flush bounded by the flush interval.
func (w *Writer) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*w.cfg.FlushInterval)
	defer cancel()
	return w.Stop(stopCtx)
}

// Start begins consuming frames and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("frame archive started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer and flushes whatever is buffered.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping frame archive")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("frame archive stop timed out")
	}

	// Final flush of the batch and anything left in the buffer.
	for _, f := range w.input.DrainTo(0) {
		w.add(f)
	}
	w.flush(ctx)

	w.logger.Info("frame archive stopped", "inserts", w.Stats().Inserts)
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop moves frames from the input buffer into the batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		frames := w.input.DrainTo(w.cfg.BatchSize)
		if len(frames) == 0 {
			if w.input.Closed() {
				return
			}
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		full := false
		for _, f := range frames {
			full = w.add(f) || full
		}
		if full {
			w.flush(w.ctx)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// add appends a frame to the batch and reports whether it is full.
func (w *Writer) add(f router.ArchivedFrame) bool {
	row := transform(f)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts an archived frame to a table row.
func transform(f router.ArchivedFrame) frameRow {
	at := f.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	return frameRow{
		ReceivedAt: at.UTC(),
		Event:      f.Event,
		Payload:    string(f.Payload),
	}
}

// flush writes the current batch. A failed batch is dropped: the archive
// is best-effort and must not grow without bound while the database is down.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]frameRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	err := w.batchInsert(ctx, batch)

	w.batchMu.Lock()
	if err != nil {
		w.metrics.Errors++
		w.metrics.Dropped += int64(len(batch))
	} else {
		w.metrics.Inserts += int64(len(batch))
		w.metrics.Flushes++
	}
	w.batchMu.Unlock()

	if err != nil {
		metrics.ArchiveError()
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		return
	}

	metrics.ArchiveFlushed(len(batch))
	w.logger.Debug("flushed frames",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows with a single pgx.Batch round trip.
func (w *Writer) batchInsert(ctx context.Context, rows []frameRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertFrame, r.ReceivedAt, r.Event, r.Payload)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
