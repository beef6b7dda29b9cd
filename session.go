package relay

import "slices"

// Conversation is the ordered history of one session.
//
// Invariant: when a stream is active, only the assistant message it created
// may change; all earlier messages are immutable.
type Conversation struct {
	SessionID string
	Model     string
	Messages  []Message
}

// Clone returns a copy that shares no mutable state with c.
func (c Conversation) Clone() Conversation {
	c.Messages = slices.Clone(c.Messages)
	return c
}

// Snapshot is an immutable view of a conversation at a point in time.
type Snapshot struct {
	SessionID string
	Model     string
	Messages  []Message
	State     StreamState
	// Waiting reports that a submission is in flight and has not produced
	// its first token yet.
	Waiting bool
}

// Last returns the trailing message, if any.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
