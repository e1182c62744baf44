package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	Version = "1.2.3"
	defer func() { Version = old }()

	got := String()
	if !strings.HasPrefix(got, "voyagerbot 1.2.3 (") {
		t.Errorf("String() = %q, want prefix %q", got, "voyagerbot 1.2.3 (")
	}
	if !strings.Contains(got, ") built ") {
		t.Errorf("String() = %q, missing build time", got)
	}
}
