// Package session implements the session controller: it owns one
// conversation, issues submissions over a relay.Transport and folds the
// streamed frames into the conversation through a relay.Accumulator.
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fwojciec/relay"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/fwojciec/relay/session"

// Interface compliance check.
var _ relay.Chat = (*Controller)(nil)

// Controller manages one conversation and at most one in-flight submission.
// It is safe for concurrent use.
type Controller struct {
	transport relay.Transport
	logger    zerolog.Logger
	tracer    trace.Tracer
	newID     func() string
	userID    string
	tenantID  string

	mu     sync.Mutex
	conv   relay.Conversation
	gen    uint64 // bumped on every Start; streams from older generations are detached
	active *stream
	last   relay.StreamState
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithTracerProvider sets the provider used to create submission spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) {
		c.tracer = tp.Tracer(instrumentationName)
	}
}

// WithIDGenerator replaces the generator used for session, user and tenant
// ids. The default is uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

// WithUserID fixes the user id sent with every request.
func WithUserID(id string) Option {
	return func(c *Controller) {
		c.userID = id
	}
}

// WithTenantID fixes the tenant id sent with every request.
func WithTenantID(id string) Option {
	return func(c *Controller) {
		c.tenantID = id
	}
}

// WithModel sets the model of the initial session. Empty means the server
// default.
func WithModel(model string) Option {
	return func(c *Controller) {
		c.conv.Model = model
	}
}

// New creates a Controller with a fresh session. User and tenant ids not set
// through options are generated once and kept for the controller's lifetime.
func New(transport relay.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		logger:    zerolog.Nop(),
		tracer:    noop.NewTracerProvider().Tracer(instrumentationName),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.userID == "" {
		c.userID = c.newID()
	}
	if c.tenantID == "" {
		c.tenantID = c.newID()
	}
	c.conv.SessionID = c.newID()
	return c
}

// Start begins a new session with the given model and returns its id. The
// conversation is cleared and any in-flight stream is cancelled and detached:
// none of its frames will reach the new session.
func (c *Controller) Start(model string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(model)
}

// Reset starts a new session with the current model.
func (c *Controller) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(c.conv.Model)
}

func (c *Controller) startLocked(model string) string {
	if c.active != nil {
		c.active.detachLocked()
		c.active = nil
	}
	c.gen++
	c.conv = relay.Conversation{SessionID: c.newID(), Model: model}
	c.last = relay.StreamStateIdle
	c.logger.Debug().Str("session_id", c.conv.SessionID).Str("model", model).Msg("session started")
	return c.conv.SessionID
}

// SetModel changes the model of later submissions in the current session.
// The conversation is kept. It fails while a submission is active.
func (c *Controller) SetModel(model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return fmt.Errorf("session: cannot change model during a submission: %w", relay.ErrInvalidInput)
	}
	c.conv.Model = model
	return nil
}

// SessionID returns the current session id.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.SessionID
}

// Model returns the current model selector.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Model
}

// Submit appends query to the conversation as a user message and returns a
// stream for the reply. No network activity happens until the first call to
// Next. A blank query, or a submission while another is still active, is
// rejected with relay.ErrInvalidInput and leaves the conversation untouched.
//
// The caller must drain the stream to io.EOF or Close it; until then the
// submission counts as active.
func (c *Controller) Submit(ctx context.Context, query string) (relay.Stream, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("session: query must not be empty: %w", relay.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, fmt.Errorf("session: submission already in progress: %w", relay.ErrInvalidInput)
	}
	req := relay.Request{
		Query:     query,
		Model:     c.conv.Model,
		UserID:    c.userID,
		TenantID:  c.tenantID,
		SessionID: c.conv.SessionID,
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	c.conv.Messages = append(c.conv.Messages, relay.NewUserMessage(query))

	ctx, cancel := context.WithCancel(ctx)
	ctx, span := c.tracer.Start(ctx, "relay.submit", trace.WithAttributes(
		attribute.String("relay.session_id", req.SessionID),
		attribute.String("relay.model", req.Model),
	))
	logger := c.logger.With().Str("session_id", req.SessionID).Logger()
	s := &stream{
		ctl:    c,
		gen:    c.gen,
		ctx:    ctx,
		cancel: cancel,
		span:   span,
		req:    req,
		logger: logger,
	}
	c.active = s
	c.last = relay.StreamStateIdle
	logger.Debug().Str("model", req.Model).Int("query_len", len(query)).Msg("submission started")
	return s, nil
}

// Snapshot returns an immutable copy of the current conversation.
func (c *Controller) Snapshot() relay.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() relay.Snapshot {
	snap := relay.Snapshot{
		SessionID: c.conv.SessionID,
		Model:     c.conv.Model,
		Messages:  slices.Clone(c.conv.Messages),
		State:     c.last,
	}
	if c.active != nil {
		snap.State = c.active.acc.State()
		snap.Waiting = c.active.acc.Waiting()
	}
	return snap
}
