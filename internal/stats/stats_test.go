package stats

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	_, ok := Describe(nil)
	assert.False(t, ok)

	one, ok := Describe([]float64{0.5})
	require.True(t, ok)
	assert.Equal(t, Series{Count: 1, Mean: 0.5, Min: 0.5, Max: 0.5}, one)

	s, ok := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.True(t, ok)
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-9)
}

func TestSequenceAggregates(t *testing.T) {
	seq := &Sequence{Name: "M42"}
	seq.AddExposure(Exposure{Filter: "Ha", Seconds: 300, HFD: 2.0, StarIndex: 5})
	seq.AddExposure(Exposure{Filter: "Ha", Seconds: 300, HFD: 3.0, StarIndex: 6})
	seq.AddExposure(Exposure{Filter: "OIII", Seconds: 600, HFD: 4.0, StarIndex: 7})

	assert.Equal(t, 3, seq.ExposureCount())
	assert.Equal(t, map[string]float64{"Ha": 600, "OIII": 600}, seq.ExposureByFilter())
	assert.Equal(t, 1200.0, seq.TotalExposure())

	hfd, ok := seq.HFD()
	require.True(t, ok)
	assert.InDelta(t, 3.0, hfd.Mean, 1e-9)
}

func TestSequenceSummary(t *testing.T) {
	seq := &Sequence{Name: "NGC <7000>"}
	seq.AddExposure(Exposure{Filter: "SII", Seconds: 300, HFD: 2.5})
	seq.AddExposure(Exposure{Filter: "Ha", Seconds: 4000, HFD: 3.5})
	seq.AddGuideError(0.1, -0.2)
	seq.AddGuideError(0.3, 0.2)

	got := seq.Summary()
	assert.Contains(t, got, "<b>Statistics for NGC &lt;7000&gt;</b>")
	assert.Contains(t, got, "Exposures: 2 (1.2h total)")
	assert.Contains(t, got, "  Ha: 1.1h\n  SII: 5.0m")
	assert.Contains(t, got, "HFD: mean 3.00, min 2.50, max 3.50")
	assert.Contains(t, got, "Guide X: 0.200/0.100/0.300/0.141")
	assert.Contains(t, got, "Guide Y: 0.000/-0.200/0.200/0.283")
}

func TestSequenceSummarySingleGuideSample(t *testing.T) {
	seq := &Sequence{Name: "M31"}
	seq.AddGuideError(0.5, 0.25)

	got := seq.Summary()
	assert.Contains(t, got, "Guide X: 0.500/0.500/0.500/n/a")
	assert.NotContains(t, got, "HFD")
}

func TestTracker(t *testing.T) {
	tr := NewTracker()

	_, ok := tr.Summary("M42")
	assert.False(t, ok)

	tr.AddExposure("M42", Exposure{Filter: "L", Seconds: 120})
	tr.AddGuideError("M42", 0.1, 0.1)
	tr.AddExposure("", Exposure{Filter: "L", Seconds: 1})

	assert.Equal(t, 2, tr.Len())
	assert.Same(t, tr.Sequence("M42"), tr.Sequence("M42"))

	summary, ok := tr.Summary("M42")
	require.True(t, ok)
	assert.Contains(t, summary, "Exposures: 1 (2.0m total)")

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
	_, ok = tr.Summary("M42")
	assert.False(t, ok)
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.AddExposure("seq", Exposure{Filter: "R", Seconds: 1})
				tr.AddGuideError("seq", 0, 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, tr.Sequence("seq").ExposureCount())
	assert.Len(t, tr.Sequence("seq").GuideX, 800)
}
