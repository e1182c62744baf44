package handler

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/rickgao/voyagerbot/internal/router"
	"github.com/rickgao/voyagerbot/internal/stats"
)

// Event names handled by Voyager.
const (
	EventVersion         = "Version"
	EventNewJPGReady     = "NewJPGReady"
	EventAutoFocusResult = "AutoFocusResult"
	EventLogEvent        = "LogEvent"
	EventShotRunning     = "ShotRunning"
	EventControlData     = "ControlData"
)

// Outbox accepts notifications for delivery. Implementations must not
// block.
type Outbox interface {
	Text(text string)
	Image(data []byte, filename, caption string, asDocument bool)
	Preview(data []byte, filename, caption string)
	ClearPreview()
	UnpinAll()
}

// Config controls what is forwarded to the operator.
type Config struct {
	// ServerURL is shown in the connection notice.
	ServerURL string

	// ExposureLimit is the shortest exposure, in seconds, whose preview is
	// sent as an image.
	ExposureLimit float64 // Default: 30

	// SendImages enables JPEG previews.
	SendImages bool

	// PinPreview keeps previews in one pinned message that is edited in
	// place. It is unpinned when the running sequence changes.
	PinPreview bool

	// NotifyLogLevels lists the LogEvent types that are forwarded.
	NotifyLogLevels []int // Default: WARNING, CRITICAL, ACTION, EMERGENCY
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		ExposureLimit:   30,
		SendImages:      true,
		NotifyLogLevels: []int{LogWarning, LogCritical, LogAction, LogEmergency},
	}
}

// Voyager handles the events of one imaging server.
type Voyager struct {
	cfg     Config
	outbox  Outbox
	tracker *stats.Tracker
	logger  *slog.Logger

	mu         sync.Mutex
	runningSeq string
	shotFile   string
	guideIdx   float64
	guided     bool
}

// New creates a handler. tracker may be nil.
func New(cfg Config, outbox Outbox, tracker *stats.Tracker, logger *slog.Logger) *Voyager {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = stats.NewTracker()
	}
	return &Voyager{
		cfg:      cfg,
		outbox:   outbox,
		tracker:  tracker,
		logger:   logger.With("component", "handler"),
		guideIdx: -1,
	}
}

// Events implements router.EventHandler.
func (v *Voyager) Events() []string {
	return []string{
		EventVersion,
		EventNewJPGReady,
		EventAutoFocusResult,
		EventLogEvent,
		EventShotRunning,
		EventControlData,
		router.EventRemoteActionResult,
		router.EventCompletion,
	}
}

// Handle implements router.EventHandler.
func (v *Voyager) Handle(ctx context.Context, name string, p router.Payload) error {
	switch name {
	case EventVersion:
		return v.handleVersion(p)
	case EventNewJPGReady:
		return v.handleJPGReady(p)
	case EventAutoFocusResult:
		return v.handleFocusResult(p)
	case EventLogEvent:
		return v.handleLog(ctx, p)
	case EventShotRunning:
		return v.handleShotRunning(p)
	case EventControlData:
		return v.handleControlData(p)
	case router.EventRemoteActionResult:
		return v.handleActionResult(p)
	case router.EventCompletion:
		return v.handleCompletion(p)
	default:
		v.logger.Debug("event not handled", "event", name)
		return nil
	}
}

// RunningSequence returns the sequence currently reported by the server.
func (v *Voyager) RunningSequence() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.runningSeq
}

// Tracker returns the statistics store.
func (v *Voyager) Tracker() *stats.Tracker {
	return v.tracker
}

func (v *Voyager) notifiesLevel(level int) bool {
	return slices.Contains(v.cfg.NotifyLogLevels, level)
}
