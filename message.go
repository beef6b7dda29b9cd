package relay

import "time"

// Message is one entry of a conversation.
//
// Assistant messages with IsError set are terminal failure entries: Content
// carries the human-readable reason ("Error: ...") so the history shows why a
// turn ended. They are never extended by later frames.
type Message struct {
	Role      Role
	Content   string
	IsError   bool
	Timestamp time.Time
}

// NewUserMessage returns a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewErrorMessage returns the Error-kind assistant entry for err.
func NewErrorMessage(err error) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   "Error: " + err.Error(),
		IsError:   true,
		Timestamp: time.Now(),
	}
}
