package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rickgao/voyagerbot/internal/command"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrTerminalShutdown = errors.New("connection lost and auto-reconnect disabled")
	ErrSessionStopped   = errors.New("session stopped")
	ErrReadTimeout      = errors.New("no frame received within read timeout")
)

// TransportError is a dial, read or write failure on the socket.
type TransportError struct {
	Op  string // "dial", "read" or "write"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// State is the lifecycle state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Message is one inbound WebSocket message with its receive time.
type Message struct {
	Data       []byte    // Raw bytes, line delimiter included
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// FrameHandler consumes inbound messages. It is called from the session's
// run loop, one message at a time, in arrival order.
type FrameHandler interface {
	HandleFrame(ctx context.Context, msg Message)
}

// FrameHandlerFunc is a function adapter for FrameHandler.
type FrameHandlerFunc func(ctx context.Context, msg Message)

func (f FrameHandlerFunc) HandleFrame(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Dispatcher is the part of the command dispatcher the session drives.
type Dispatcher interface {
	Enqueue(method string, params command.Params) string
	Suspend()
	Resume(priority ...command.Request) []string
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:5950/)
	HandshakeTimeout time.Duration // Dial handshake limit
	ReadTimeout      time.Duration // Max silence before the connection is considered stale (0 = none)
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Host     string
	Port     int
	Username string // Empty skips AuthenticateUserBase
	Password string

	AutoReconnect      bool
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	KeepAliveInterval  time.Duration

	Client ClientConfig // URL is derived from Host and Port
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Host:               "localhost",
		Port:               5950,
		AutoReconnect:      true,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  512 * time.Second,
		KeepAliveInterval:  5 * time.Second,
		Client:             DefaultClientConfig(),
	}
}

// URL returns the server endpoint, ws://host:port/.
func (c SessionConfig) URL() string {
	return "ws://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + "/"
}

// SessionStats provides statistics about the session.
type SessionStats struct {
	State          State
	Connects       int64
	Reconnects     int64
	ReconnectDelay time.Duration
	Heartbeats     int64
	FramesReceived int64
}
