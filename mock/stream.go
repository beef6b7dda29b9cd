package mock

import (
	"io"

	"github.com/fwojciec/relay"
)

// Interface compliance check.
var _ relay.Stream = (*Stream)(nil)

// Stream is a test double for relay.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. StateFn, ErrFn and CloseFn are nil-safe (Idle,
// nil and no-op) because test code commonly calls defer stream.Close() and
// these methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (relay.Snapshot, error)
	StateFn func() relay.StreamState
	ErrFn   func() error
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (relay.Snapshot, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateIdle when StateFn is nil.
func (s *Stream) State() relay.StreamState {
	if s.StateFn == nil {
		return relay.StreamStateIdle
	}
	return s.StateFn()
}

// Err delegates to ErrFn. Returns nil when ErrFn is nil.
func (s *Stream) Err() error {
	if s.ErrFn == nil {
		return nil
	}
	return s.ErrFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Snapshots returns a Stream that yields snaps in order and then io.EOF.
// The state reported is the State of the last snapshot handed out.
func Snapshots(snaps ...relay.Snapshot) *Stream {
	var (
		i     int
		state = relay.StreamStateIdle
	)
	return &Stream{
		NextFn: func() (relay.Snapshot, error) {
			if i >= len(snaps) {
				return relay.Snapshot{}, io.EOF
			}
			s := snaps[i]
			i++
			state = s.State
			return s, nil
		},
		StateFn: func() relay.StreamState { return state },
	}
}
