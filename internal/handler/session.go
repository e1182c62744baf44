package handler

import (
	"fmt"
	"html"

	"github.com/rickgao/voyagerbot/internal/router"
)

// ActionResultInt values reported in RemoteActionResult.
const (
	ActionOK            = 4
	ActionFinishedError = 5
	ActionAborted       = 7
	ActionTimeout       = 8
	ActionOKPartial     = 10
)

func (v *Voyager) handleVersion(p router.Payload) error {
	host := p.String("Host")
	version := p.String("VOYVersion")
	v.logger.Info("connected to voyager", "host", host, "version", version)

	v.outbox.Text(fmt.Sprintf("Connected to <b>%s(%s)</b> [%s]",
		html.EscapeString(host),
		html.EscapeString(v.cfg.ServerURL),
		html.EscapeString(version),
	))
	if v.cfg.PinPreview {
		v.outbox.UnpinAll()
	}
	return nil
}

func actionFailed(code int) bool {
	switch code {
	case ActionFinishedError, ActionAborted, ActionTimeout:
		return true
	default:
		return false
	}
}

func (v *Voyager) handleActionResult(p router.Payload) error {
	method := p.String(router.KeyMethodName)
	code := p.Int("ActionResultInt")
	reason := p.String("Motivo")

	if !actionFailed(code) {
		v.logger.Debug("remote action result",
			"method", method,
			"result", code,
			"uid", p.String(router.KeyUID),
		)
		return nil
	}

	v.logger.Warn("remote action failed",
		"method", method,
		"result", code,
		"reason", reason,
	)
	msg := fmt.Sprintf("<b>%s</b> failed (result %d)", html.EscapeString(method), code)
	if reason != "" {
		msg += ": " + html.EscapeString(reason)
	}
	v.outbox.Text(msg)
	return nil
}

func (v *Voyager) handleCompletion(p router.Payload) error {
	v.logger.Debug("command completion",
		"id", p.String("id"),
		"has_error", p.Has("error"),
	)
	return nil
}
