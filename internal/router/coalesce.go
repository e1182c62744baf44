package router

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// coalescer counts suppressed events and logs one summary line every
// `every` events. Not safe for concurrent use.
type coalescer struct {
	every  int
	logger *slog.Logger

	counts map[string]int
	total  int
}

func newCoalescer(every int, logger *slog.Logger) *coalescer {
	if every < 1 {
		every = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &coalescer{
		every:  every,
		logger: logger,
		counts: make(map[string]int),
	}
}

// add records one event and reports whether a summary was emitted.
func (c *coalescer) add(name string) bool {
	c.counts[name]++
	c.total++
	if c.total < c.every {
		return false
	}
	c.flush()
	return true
}

// flush logs and resets the pending counts.
func (c *coalescer) flush() {
	if c.total == 0 {
		return
	}
	c.logger.Debug("suppressed events",
		"total", c.total,
		"events", c.summary(),
	)
	clear(c.counts)
	c.total = 0
}

// summary renders counts as "Name=n" pairs sorted by name.
func (c *coalescer) summary() string {
	names := make([]string, 0, len(c.counts))
	for name := range c.counts {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strconv.Itoa(c.counts[name]))
	}
	return sb.String()
}
