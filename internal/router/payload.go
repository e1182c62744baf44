package router

import (
	"maps"
	"strconv"
)

// Payload is a decoded frame. Numbers are float64 as produced by
// encoding/json.
type Payload map[string]any

// Event returns the push event name, empty for completions.
func (p Payload) Event() string {
	return p.String(KeyEvent)
}

// IsCompletion reports whether the frame is a command completion.
func (p Payload) IsCompletion() bool {
	_, ok := p[KeyJSONRPC]
	return ok
}

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns key as a string. Numbers and booleans are formatted.
func (p Payload) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Float returns key as a float64, parsing numeric strings.
func (p Payload) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Int returns key truncated to an int.
func (p Payload) Int(key string) int {
	return int(p.Float(key))
}

// Bool returns key as a bool. Non-zero numbers count as true.
func (p Payload) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	return maps.Clone(p)
}
