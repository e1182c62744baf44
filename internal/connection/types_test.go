package connection

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestBackoff_Sequence(t *testing.T) {
	b := NewBackoff(time.Second, 512*time.Second)

	want := []time.Duration{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 512, 512}
	for i, w := range want {
		if got := b.Next(); got != w*time.Second {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w*time.Second)
		}
	}

	b.Reset()
	if got := b.Current(); got != 0 {
		t.Errorf("Current after Reset = %v, want 0", got)
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("Next after Reset = %v, want 1s", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(0, 0)
	if b.Base != time.Second {
		t.Errorf("Base = %v, want 1s", b.Base)
	}
	if b.Max != time.Second {
		t.Errorf("Max = %v, want 1s", b.Max)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateReady, "ready"},
		{StateClosing, "closing"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestTransportError(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrTerminalShutdown, &TransportError{Op: "read", Err: io.EOF})

	if !errors.Is(err, ErrTerminalShutdown) {
		t.Error("expected ErrTerminalShutdown in chain")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("expected io.EOF in chain")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatal("expected *TransportError in chain")
	}
	if terr.Op != "read" {
		t.Errorf("Op = %q, want read", terr.Op)
	}
}

func TestSessionConfig_URL(t *testing.T) {
	cfg := SessionConfig{Host: "observatory.local", Port: 5950}
	if got, want := cfg.URL(), "ws://observatory.local:5950/"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestEncodeHeartbeat(t *testing.T) {
	data, err := EncodeHeartbeat(time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("EncodeHeartbeat: %v", err)
	}

	want := `{"Event":"Polling","Timestamp":1700000000,"Inst":1}`
	if string(data) != want {
		t.Errorf("EncodeHeartbeat = %s, want %s", data, want)
	}
}
