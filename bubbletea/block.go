package bubbletea

import "github.com/fwojciec/relay"

const (
	userLabel      = "You"
	assistantLabel = "Assistant"
)

// MessageBlock is a renderable element in the conversation.
// View takes a width parameter so the root model controls layout and blocks
// are testable in isolation.
type MessageBlock interface {
	View(width int) string
}

// NewBlock returns the block that renders msg.
func NewBlock(msg relay.Message, styles Styles) MessageBlock {
	switch {
	case msg.Role == relay.RoleUser:
		return NewUserMessageBlock(msg.Content, styles)
	case msg.IsError:
		return NewErrorBlock(msg.Content, styles)
	default:
		return NewAssistantTextBlock(msg.Content, styles)
	}
}
