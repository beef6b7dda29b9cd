package relay

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateIdle      StreamState = iota // Submitted, no response yet.
	StreamStateActive                       // Response body is being read.
	StreamStateCompleted                    // A complete frame was received.
	StreamStateFailed                       // Error frame, transport fault or unexpected end.
	StreamStateCancelled                    // Cancelled by the caller or by a reset.
)

// String returns a lower-case name for the state.
func (s StreamState) String() string {
	switch s {
	case StreamStateIdle:
		return "idle"
	case StreamStateActive:
		return "active"
	case StreamStateCompleted:
		return "completed"
	case StreamStateFailed:
		return "failed"
	case StreamStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s StreamState) Terminal() bool {
	return s == StreamStateCompleted || s == StreamStateFailed || s == StreamStateCancelled
}

// Stream uses a pull-based iterator pattern. Cancellation flows through the
// context passed to Chat.Submit() and through Close().
//
// Next() returns one Snapshot per token frame, then one terminal Snapshot
// whose State is Completed, Failed or Cancelled, then io.EOF. Failures are
// reported in the terminal snapshot (an Error-kind message is appended) and
// by Err(), not by Next()'s error return.
//
// Err() returns nil unless the stream ended in Failed or Cancelled; the value
// is a *ProtocolError, a *TransportError or an error wrapping
// context.Canceled.
//
// Close() releases the response body. Closing a non-terminal stream moves it
// to Cancelled; subsequent Next() calls return ErrStreamClosed.
type Stream interface {
	Next() (Snapshot, error)
	State() StreamState
	Err() error
	Close() error
}

// Chat is the conversation surface consumed by front ends.
//
// Submit appends the query to the conversation and returns the stream of
// its reply. Reset starts a new empty session and returns its id. SetModel
// changes the model of later submissions and keeps the history; it fails with
// ErrInvalidInput while a submission is active.
type Chat interface {
	Submit(ctx context.Context, query string) (Stream, error)
	Reset() string
	SetModel(model string) error
	Snapshot() Snapshot
}
