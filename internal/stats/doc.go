// Package stats accumulates per-sequence imaging statistics: exposures by
// filter, focus quality (HFD and star index) and guiding error, and renders
// the end-of-sequence summary sent to the operator.
package stats
