package handler

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/rickgao/voyagerbot/internal/router"
	"github.com/rickgao/voyagerbot/internal/stats"
)

func (v *Voyager) handleFocusResult(p router.Payload) error {
	if p.Bool("IsEmpty") {
		return nil
	}

	if !p.Bool("Done") {
		reason := p.String("LastError")
		v.logger.Warn("autofocus failed", "reason", reason)
		v.outbox.Text("Auto focusing failed with reason: " + html.EscapeString(reason))
		return nil
	}

	filter := p.Int("FilterIndex")
	position := p.Int("Position")
	hfd := p.Float("HFD")
	v.logger.Info("autofocus done",
		"filter_index", filter,
		"position", position,
		"hfd", hfd,
	)
	v.outbox.Text(fmt.Sprintf("AutoFocusing for filter %d is done with position %d, HFD: %f",
		filter, position, hfd))
	return nil
}

func (v *Voyager) handleJPGReady(p router.Payload) error {
	expo := p.Float("Expo")
	filter := p.String("Filter")
	hfd := p.Float("HFD")
	starIndex := p.Float("StarIndex")
	target := p.String("SequenceTarget")

	v.tracker.AddExposure(v.RunningSequence(), stats.Exposure{
		Filter:    filter,
		Seconds:   expo,
		HFD:       hfd,
		StarIndex: starIndex,
	})

	caption := fmt.Sprintf("Exposure of %s for %dsec using %s filter. HFD: %.2f, StarIndex: %.2f",
		html.EscapeString(target), int(expo), html.EscapeString(filter), hfd, starIndex)

	if expo < v.cfg.ExposureLimit || !v.cfg.SendImages {
		v.outbox.Text(caption)
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(p.String("Base64Data"))
	if err != nil || len(data) == 0 {
		v.outbox.Text(caption)
		if err == nil {
			return fmt.Errorf("NewJPGReady %s: empty image", target)
		}
		return fmt.Errorf("decode NewJPGReady image: %w", err)
	}

	if v.cfg.PinPreview {
		v.outbox.Preview(data, PreviewFilename(p.String("File")), caption)
		return nil
	}
	v.outbox.Image(data, PreviewFilename(p.String("File")), caption, true)
	return nil
}

// PreviewFilename derives the JPEG name from the FIT path reported by the
// server, e.g. `C:\Data\M42_L_300s.fit` becomes `M42_L_300s.jpg`.
func PreviewFilename(fitPath string) string {
	base := fitPath
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		base = "preview"
	}
	return base + ".jpg"
}

func (v *Voyager) handleShotRunning(p router.Payload) error {
	file := p.String("File")
	idx := p.Float("ElapsedPerc")

	v.mu.Lock()
	defer v.mu.Unlock()
	if file != v.shotFile || idx != v.guideIdx {
		v.shotFile = file
		v.guideIdx = idx
		v.guided = true
	}
	return nil
}

func (v *Voyager) handleControlData(p router.Payload) error {
	running := p.String("RUNSEQ")
	dragScript := p.String("RUNDS")

	v.mu.Lock()
	current := v.runningSeq
	guided := v.guided
	v.guided = false
	changed := running != current
	if changed {
		v.runningSeq = running
	}
	v.mu.Unlock()

	if guided {
		v.tracker.AddGuideError(current, p.Float("GUIDEX"), p.Float("GUIDEY"))
	}

	if changed {
		v.logger.Info("running sequence changed", "from", current, "to", running)
		v.sendSummary(current)
		if v.cfg.PinPreview {
			v.outbox.ClearPreview()
		}
	}

	if dragScript == "" && v.tracker.Len() > 0 {
		v.tracker.Reset()
	}
	return nil
}

// sendSummary reports the statistics of a finished sequence. One-off shots
// outside a sequence are not reported.
func (v *Voyager) sendSummary(name string) {
	if name == "" {
		return
	}
	summary, ok := v.tracker.Summary(name)
	if !ok {
		return
	}
	v.outbox.Text(summary)
}
