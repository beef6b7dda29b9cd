package relay

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Accumulator folds the frames of one submission into a Conversation.
//
// It is the only writer of the assistant message it creates: the first token
// frame appends that message and every later token replaces its content with
// the accumulated text. Once a terminal state is reached all further input is
// ignored. The zero value is ready to use and starts Idle.
type Accumulator struct {
	state   StreamState
	err     error
	text    strings.Builder
	index   int // position of the assistant message in Conversation.Messages
	started bool
	tokens  int
}

// Activate moves an Idle accumulator to Active. Called once response bytes
// are available.
func (a *Accumulator) Activate() {
	if a.state == StreamStateIdle {
		a.state = StreamStateActive
	}
}

// Apply transitions on f and reports whether the conversation should be
// published as a new snapshot. Unknown frames and frames after a terminal
// state report false.
func (a *Accumulator) Apply(c *Conversation, f Frame) bool {
	if a.state.Terminal() {
		return false
	}
	switch f.Kind {
	case FrameToken:
		a.state = StreamStateActive
		a.text.WriteString(f.Content)
		a.tokens++
		if !a.started {
			a.started = true
			a.index = len(c.Messages)
			c.Messages = append(c.Messages, Message{
				Role:      RoleAssistant,
				Content:   a.text.String(),
				Timestamp: time.Now(),
			})
			return true
		}
		c.Messages[a.index].Content = a.text.String()
		return true
	case FrameComplete:
		a.state = StreamStateCompleted
		return true
	case FrameError:
		return a.Fail(c, &ProtocolError{Message: f.Content})
	default:
		return false
	}
}

// Fail terminates the stream with err and appends an Error-kind message.
// Partial assistant content is kept. Errors wrapping context.Canceled yield
// Cancelled instead of Failed. Reports false if already terminal.
func (a *Accumulator) Fail(c *Conversation, err error) bool {
	if a.state.Terminal() {
		return false
	}
	a.state = StreamStateFailed
	if errors.Is(err, context.Canceled) {
		a.state = StreamStateCancelled
	}
	a.err = err
	c.Messages = append(c.Messages, NewErrorMessage(err))
	return true
}

// State returns the current stream state.
func (a *Accumulator) State() StreamState { return a.state }

// Err returns the terminal failure, or nil.
func (a *Accumulator) Err() error { return a.err }

// Waiting reports whether no token has arrived yet on a live stream.
func (a *Accumulator) Waiting() bool { return !a.started && !a.state.Terminal() }

// Tokens returns the number of token frames applied.
func (a *Accumulator) Tokens() int { return a.tokens }

// Content returns the accumulated assistant text.
func (a *Accumulator) Content() string { return a.text.String() }
