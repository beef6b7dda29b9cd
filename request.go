package relay

import (
	"fmt"
	"strings"
)

// Request carries one query and the identity of the session it belongs to.
type Request struct {
	Query     string
	Model     string // opaque model selector; empty = server default
	UserID    string
	TenantID  string
	SessionID string
}

// Validate checks that the request can be sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query must not be empty: %w", ErrInvalidInput)
	}
	if r.SessionID == "" {
		return fmt.Errorf("session id must not be empty: %w", ErrInvalidInput)
	}
	return nil
}
