package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/relay"
	"github.com/fwojciec/relay/ndjson"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	errCancelled = fmt.Errorf("request cancelled: %w", context.Canceled)
	errDetached  = fmt.Errorf("%w: %w", relay.ErrSessionReset, context.Canceled)
)

// Interface compliance check.
var _ relay.Stream = (*stream)(nil)

// stream drives one submission: transport body → ndjson lines → frames →
// accumulator. Fields below mu are guarded by ctl.mu; lines and done belong to
// the goroutine calling Next.
type stream struct {
	ctl    *Controller
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span
	req    relay.Request
	logger zerolog.Logger

	acc      relay.Accumulator
	body     io.ReadCloser
	closed   bool // Close was called
	detached bool // a reset replaced the session
	finished bool // no longer the controller's active stream

	lines *ndjson.Reader
	done  bool
}

// Next returns the snapshot produced by the next token or terminal frame.
// The request is sent on the first call.
func (s *stream) Next() (relay.Snapshot, error) {
	s.ctl.mu.Lock()
	closed, detached := s.closed, s.detached
	s.ctl.mu.Unlock()
	switch {
	case closed:
		return relay.Snapshot{}, relay.ErrStreamClosed
	case detached:
		s.done = true
		return relay.Snapshot{}, io.EOF
	case s.done:
		return relay.Snapshot{}, io.EOF
	}

	if s.lines == nil {
		if err := s.open(); err != nil {
			return s.fail(err)
		}
	}

	for {
		line, err := s.lines.ReadLine()
		if errors.Is(err, io.EOF) {
			return s.fail(&relay.TransportError{Err: relay.ErrIncompleteStream})
		}
		if err != nil {
			return s.fail(s.classify(err))
		}
		frame, err := ndjson.ParseFrame(line)
		if err != nil {
			s.logger.Warn().Err(err).Int("line_len", len(line)).Msg("skipping malformed frame")
			continue
		}
		if frame.Kind == relay.FrameUnknown {
			s.logger.Debug().Str("type", frame.Type).Msg("skipping unknown frame")
			continue
		}
		snap, ok, err := s.apply(func(c *relay.Conversation) bool {
			return s.acc.Apply(c, frame)
		})
		if err != nil || ok {
			return snap, err
		}
	}
}

// open sends the request and activates the accumulator once the body is
// available.
func (s *stream) open() error {
	body, err := s.ctl.transport.Send(s.ctx, s.req)
	if err != nil {
		return s.classify(err)
	}

	s.ctl.mu.Lock()
	defer s.ctl.mu.Unlock()
	if s.closed || s.detached {
		_ = body.Close()
		return errCancelled
	}
	s.body = body
	s.acc.Activate()
	s.lines = ndjson.NewReader(body)
	s.logger.Debug().Msg("response stream opened")
	return nil
}

func (s *stream) fail(err error) (relay.Snapshot, error) {
	snap, _, applyErr := s.apply(func(c *relay.Conversation) bool {
		return s.acc.Fail(c, err)
	})
	return snap, applyErr
}

// apply runs fn against the controller's conversation unless the stream was
// closed or detached, and returns the resulting snapshot when fn reports a
// change.
func (s *stream) apply(fn func(*relay.Conversation) bool) (relay.Snapshot, bool, error) {
	s.ctl.mu.Lock()
	defer s.ctl.mu.Unlock()
	if s.closed {
		return relay.Snapshot{}, false, relay.ErrStreamClosed
	}
	if s.detached || s.gen != s.ctl.gen {
		s.done = true
		return relay.Snapshot{}, false, io.EOF
	}
	if !fn(&s.ctl.conv) {
		return relay.Snapshot{}, false, nil
	}
	if s.acc.State().Terminal() {
		s.finishLocked()
		s.done = true
	}
	return s.ctl.snapshotLocked(), true, nil
}

// classify maps transport and read failures onto the error taxonomy.
func (s *stream) classify(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return errCancelled
		}
		return &relay.TransportError{Err: ctxErr}
	}
	var te *relay.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &relay.TransportError{Err: err}
}

// finishLocked releases the controller's active slot, ends the span and
// releases the request.
func (s *stream) finishLocked() {
	if s.finished {
		return
	}
	s.finished = true
	state := s.acc.State()
	if s.ctl.active == s {
		s.ctl.active = nil
		s.ctl.last = state
	}

	s.span.SetAttributes(
		attribute.String("relay.state", state.String()),
		attribute.Int("relay.tokens", s.acc.Tokens()),
		attribute.Int("relay.reply_bytes", len(s.acc.Content())),
	)
	if err := s.acc.Err(); err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Str("state", state.String()).Msg("submission ended")
	} else {
		s.logger.Debug().
			Str("state", state.String()).
			Int("tokens", s.acc.Tokens()).
			Int("reply_bytes", len(s.acc.Content())).
			Msg("submission ended")
	}
	s.span.End()
	s.releaseLocked()
}

// detachLocked is called by the controller when a reset replaces the session.
func (s *stream) detachLocked() {
	if s.finished {
		return
	}
	s.finished = true
	s.detached = true
	s.span.SetAttributes(attribute.String("relay.state", relay.StreamStateCancelled.String()))
	s.span.AddEvent("session reset")
	s.span.End()
	s.releaseLocked()
	s.logger.Debug().Msg("submission detached by reset")
}

func (s *stream) releaseLocked() {
	s.cancel()
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
}

// State returns the current state. A detached stream reports Cancelled.
func (s *stream) State() relay.StreamState {
	s.ctl.mu.Lock()
	defer s.ctl.mu.Unlock()
	if s.detached {
		return relay.StreamStateCancelled
	}
	return s.acc.State()
}

// Err returns the terminal failure, or nil.
func (s *stream) Err() error {
	s.ctl.mu.Lock()
	defer s.ctl.mu.Unlock()
	if s.detached {
		return errDetached
	}
	return s.acc.Err()
}

// Close cancels the request. A stream that has not reached a terminal state
// becomes Cancelled and its conversation gains an Error-kind entry.
func (s *stream) Close() error {
	s.ctl.mu.Lock()
	defer s.ctl.mu.Unlock()
	if s.closed {
		return nil
	}
	if !s.finished {
		s.acc.Fail(&s.ctl.conv, errCancelled)
		s.finishLocked()
	}
	s.closed = true
	s.releaseLocked()
	return nil
}
