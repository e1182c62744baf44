package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ParamUID is the params key carrying the correlation token.
const ParamUID = "UID"

// Well-known methods issued by the session bootstrap.
const (
	MethodAuthenticate           = "AuthenticateUserBase"
	MethodSetDashboardMode       = "RemoteSetDashboardMode"
	MethodSetLogEvent            = "RemoteSetLogEvent"
	MethodGetFilterConfiguration = "RemoteGetFilterConfiguration"
)

// Errors
var (
	ErrEmptyMethod = errors.New("command method is empty")
)

// Params are the named arguments of a command. Insertion order is not
// preserved on the wire; the server keys on names only.
type Params map[string]any

// Request is a command that has not been assigned an id or UID yet.
type Request struct {
	Method string
	Params Params
}

// Command is a single outbound request.
type Command struct {
	ID     int64
	UID    string
	Method string
	Params Params
}

// Sender writes one serialised command frame to the server.
type Sender interface {
	Send(frame []byte) error
}

// SenderFunc is a function adapter for Sender.
type SenderFunc func([]byte) error

func (f SenderFunc) Send(frame []byte) error {
	return f(frame)
}

// wireCommand is the wire format for an outbound command.
type wireCommand struct {
	Method string `json:"method"`
	Params Params `json:"params"`
	ID     int64  `json:"id"`
}

// Encode serialises the command as {"method","params","id"}.
// The line delimiter is appended by the transport.
func (c Command) Encode() ([]byte, error) {
	params := c.Params
	if params == nil {
		params = Params{}
	}
	data, err := json.Marshal(wireCommand{
		Method: c.Method,
		Params: params,
		ID:     c.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode command %s: %w", c.Method, err)
	}
	return data, nil
}

// NewUID returns a fresh correlation token. Time-based UUIDs are preferred
// because they sort roughly by creation; a random one is used if the
// node/clock source is unavailable.
func NewUID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
