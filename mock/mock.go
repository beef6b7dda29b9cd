// Package mock provides test doubles for relay interfaces using function fields.
package mock

import (
	"context"
	"io"

	"github.com/fwojciec/relay"
)

// Interface compliance checks.
var (
	_ relay.Transport = (*Transport)(nil)
	_ relay.Chat      = (*Chat)(nil)
)

// Transport is a test double for relay.Transport.
// Set SendFn before calling Send.
type Transport struct {
	SendFn func(ctx context.Context, req relay.Request) (io.ReadCloser, error)
}

// Send delegates to SendFn.
func (t *Transport) Send(ctx context.Context, req relay.Request) (io.ReadCloser, error) {
	return t.SendFn(ctx, req)
}

// Chat is a test double for relay.Chat.
// SubmitFn panics when nil to catch missing setup. ResetFn, SetModelFn and
// SnapshotFn are nil-safe because views call them freely.
type Chat struct {
	SubmitFn   func(ctx context.Context, query string) (relay.Stream, error)
	ResetFn    func() string
	SetModelFn func(model string) error
	SnapshotFn func() relay.Snapshot
}

// Submit delegates to SubmitFn.
func (c *Chat) Submit(ctx context.Context, query string) (relay.Stream, error) {
	return c.SubmitFn(ctx, query)
}

// Reset delegates to ResetFn. Returns "" when ResetFn is nil.
func (c *Chat) Reset() string {
	if c.ResetFn == nil {
		return ""
	}
	return c.ResetFn()
}

// SetModel delegates to SetModelFn. Returns nil when SetModelFn is nil.
func (c *Chat) SetModel(model string) error {
	if c.SetModelFn == nil {
		return nil
	}
	return c.SetModelFn(model)
}

// Snapshot delegates to SnapshotFn. Returns a zero Snapshot when SnapshotFn is nil.
func (c *Chat) Snapshot() relay.Snapshot {
	if c.SnapshotFn == nil {
		return relay.Snapshot{}
	}
	return c.SnapshotFn()
}
