package stats

import (
	"fmt"
	"html"
	"math"
	"slices"
	"strings"
	"sync"
)

// Exposure is one finished frame.
type Exposure struct {
	Filter    string
	Seconds   float64
	HFD       float64
	StarIndex float64
}

// Series describes a list of samples.
type Series struct {
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64 // Sample standard deviation; zero when Count < 2
}

// Describe computes count, mean, min, max and the sample standard
// deviation. ok is false for an empty input.
func Describe(values []float64) (s Series, ok bool) {
	if len(values) == 0 {
		return Series{}, false
	}

	s.Count = len(values)
	s.Min, s.Max = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	s.Mean = sum / float64(s.Count)

	if s.Count >= 2 {
		var sq float64
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}
		s.StdDev = math.Sqrt(sq / float64(s.Count-1))
	}
	return s, true
}

// Sequence holds the statistics of one running sequence.
type Sequence struct {
	Name      string
	Exposures []Exposure
	GuideX    []float64
	GuideY    []float64
}

// AddExposure records a finished frame.
func (s *Sequence) AddExposure(e Exposure) {
	s.Exposures = append(s.Exposures, e)
}

// AddGuideError records one guiding sample.
func (s *Sequence) AddGuideError(x, y float64) {
	s.GuideX = append(s.GuideX, x)
	s.GuideY = append(s.GuideY, y)
}

// ExposureCount returns the number of recorded frames.
func (s *Sequence) ExposureCount() int {
	return len(s.Exposures)
}

// ExposureByFilter returns cumulative exposure seconds per filter.
func (s *Sequence) ExposureByFilter() map[string]float64 {
	out := make(map[string]float64)
	for _, e := range s.Exposures {
		out[e.Filter] += e.Seconds
	}
	return out
}

// TotalExposure returns the cumulative exposure of all frames in seconds.
func (s *Sequence) TotalExposure() float64 {
	var total float64
	for _, e := range s.Exposures {
		total += e.Seconds
	}
	return total
}

// HFD describes the half-flux diameter of all frames.
func (s *Sequence) HFD() (Series, bool) {
	values := make([]float64, len(s.Exposures))
	for i, e := range s.Exposures {
		values[i] = e.HFD
	}
	return Describe(values)
}

// Summary renders an HTML report for the operator.
func (s *Sequence) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Statistics for %s</b>\n", html.EscapeString(s.Name))
	fmt.Fprintf(&b, "Exposures: %d (%s total)\n", s.ExposureCount(), formatSeconds(s.TotalExposure()))

	byFilter := s.ExposureByFilter()
	filters := make([]string, 0, len(byFilter))
	for f := range byFilter {
		filters = append(filters, f)
	}
	slices.Sort(filters)
	for _, f := range filters {
		fmt.Fprintf(&b, "  %s: %s\n", html.EscapeString(f), formatSeconds(byFilter[f]))
	}

	if hfd, ok := s.HFD(); ok {
		fmt.Fprintf(&b, "HFD: mean %.2f, min %.2f, max %.2f\n", hfd.Mean, hfd.Min, hfd.Max)
	}

	writeGuide(&b, "X", s.GuideX)
	writeGuide(&b, "Y", s.GuideY)

	return strings.TrimRight(b.String(), "\n")
}

// writeGuide prints mean/min/max/stddev; stddev needs two samples.
func writeGuide(b *strings.Builder, axis string, values []float64) {
	g, ok := Describe(values)
	if !ok {
		return
	}
	if g.Count < 2 {
		fmt.Fprintf(b, "Guide %s: %.3f/%.3f/%.3f/n/a\n", axis, g.Mean, g.Min, g.Max)
		return
	}
	fmt.Fprintf(b, "Guide %s: %.3f/%.3f/%.3f/%.3f\n", axis, g.Mean, g.Min, g.Max, g.StdDev)
}

func formatSeconds(sec float64) string {
	if sec >= 3600 {
		return fmt.Sprintf("%.1fh", sec/3600)
	}
	if sec >= 60 {
		return fmt.Sprintf("%.1fm", sec/60)
	}
	return fmt.Sprintf("%gs", sec)
}

// Tracker keeps the statistics of every sequence seen since the last
// reset. It is safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	seqs map[string]*Sequence
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seqs: make(map[string]*Sequence)}
}

// Sequence returns the statistics for name, creating them on first use.
func (t *Tracker) Sequence(name string) *Sequence {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq, ok := t.seqs[name]
	if !ok {
		seq = &Sequence{Name: name}
		t.seqs[name] = seq
	}
	return seq
}

// AddExposure records e against sequence name.
func (t *Tracker) AddExposure(name string, e Exposure) {
	seq := t.Sequence(name)
	t.mu.Lock()
	seq.AddExposure(e)
	t.mu.Unlock()
}

// AddGuideError records a guiding sample against sequence name.
func (t *Tracker) AddGuideError(name string, x, y float64) {
	seq := t.Sequence(name)
	t.mu.Lock()
	seq.AddGuideError(x, y)
	t.mu.Unlock()
}

// Summary renders the report for name. ok is false when nothing was
// recorded for it.
func (t *Tracker) Summary(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq, found := t.seqs[name]
	if !found || (seq.ExposureCount() == 0 && len(seq.GuideX) == 0) {
		return "", false
	}
	return seq.Summary(), true
}

// Len returns the number of tracked sequences.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seqs)
}

// Reset forgets every sequence.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.seqs = make(map[string]*Sequence)
	t.mu.Unlock()
}
