package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	// ErrInvalidInput indicates a submission was rejected before any network activity.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedFrame indicates a line that is not a usable JSON frame.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrIncompleteStream indicates the body ended without a complete or error frame.
	ErrIncompleteStream = errors.New("stream ended without completion")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrSessionReset indicates the stream was detached by a session reset.
	ErrSessionReset = errors.New("session reset")
)

// ProtocolError is a failure reported by the server through an error frame.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return "remote error"
	}
	return e.Message
}

// TransportError is a failure of the HTTP exchange: a non-2xx status, a
// connection drop, a read fault, or a body that ended prematurely.
type TransportError struct {
	StatusCode int    // 0 when no status applies
	Body       string // bounded excerpt of a non-2xx body
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return "transport: " + e.Err.Error()
	default:
		return "transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
