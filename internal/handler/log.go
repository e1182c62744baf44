package handler

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/rickgao/voyagerbot/internal/router"
)

// LogEvent types.
const (
	LogDebug     = 1
	LogInfo      = 2
	LogWarning   = 3
	LogCritical  = 4
	LogAction    = 5
	LogSubtitle  = 6
	LogEvent     = 7
	LogRequest   = 8
	LogEmergency = 9
)

var logLevelNames = map[int]string{
	LogDebug:     "DEBUG",
	LogInfo:      "INFO",
	LogWarning:   "WARNING",
	LogCritical:  "CRITICAL",
	LogAction:    "ACTION",
	LogSubtitle:  "SUBTITLE",
	LogEvent:     "EVENT",
	LogRequest:   "REQUEST",
	LogEmergency: "EMERGENCY",
}

// LogLevelName returns the display name of a LogEvent type.
func LogLevelName(level int) string {
	if name, ok := logLevelNames[level]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL%d", level)
}

func slogLevel(level int) slog.Level {
	switch level {
	case LogDebug:
		return slog.LevelDebug
	case LogWarning:
		return slog.LevelWarn
	case LogCritical, LogEmergency:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (v *Voyager) handleLog(ctx context.Context, p router.Payload) error {
	level := p.Int("Type")
	text := p.String("Text")
	name := LogLevelName(level)

	v.logger.Log(ctx, slogLevel(level), "voyager log", "level", name, "text", text)

	if !v.notifiesLevel(level) {
		return nil
	}
	v.outbox.Text(fmt.Sprintf("<b><pre>[%s]%s</pre></b>", name, html.EscapeString(text)))
	return nil
}
