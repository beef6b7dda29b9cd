package session_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/fwojciec/relay"
	"github.com/fwojciec/relay/mock"
	"github.com/fwojciec/relay/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func bodyTransport(body string) *mock.Transport {
	return &mock.Transport{
		SendFn: func(_ context.Context, _ relay.Request) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func drain(t *testing.T, s relay.Stream) []relay.Snapshot {
	t.Helper()
	var snaps []relay.Snapshot
	for {
		snap, err := s.Next()
		if errors.Is(err, io.EOF) {
			return snaps
		}
		require.NoError(t, err)
		snaps = append(snaps, snap)
	}
}

func contents(msgs []relay.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := session.New(&mock.Transport{},
		session.WithIDGenerator(sequentialIDs()),
		session.WithModel("gpt-4.1"),
	)
	assert.Equal(t, "id-3", c.SessionID())
	assert.Equal(t, "gpt-4.1", c.Model())

	snap := c.Snapshot()
	assert.Equal(t, "id-3", snap.SessionID)
	assert.Equal(t, relay.StreamStateIdle, snap.State)
	assert.False(t, snap.Waiting)
	assert.Empty(t, snap.Messages)
}

func TestController_Submit(t *testing.T) {
	t.Parallel()

	t.Run("streams tokens into one assistant message", func(t *testing.T) {
		t.Parallel()
		body := `{"type":"token","content":"Hel"}` + "\n" +
			`{"type":"token","content":"lo"}` + "\n" +
			`{"type":"complete"}` + "\n"
		c := session.New(bodyTransport(body))

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 3)
		assert.Equal(t, []string{"hi", "Hel"}, contents(snaps[0].Messages))
		assert.Equal(t, relay.StreamStateActive, snaps[0].State)
		assert.Equal(t, []string{"hi", "Hello"}, contents(snaps[1].Messages))
		assert.Equal(t, relay.StreamStateActive, snaps[1].State)
		assert.Equal(t, []string{"hi", "Hello"}, contents(snaps[2].Messages))
		assert.Equal(t, relay.StreamStateCompleted, snaps[2].State)
		for _, snap := range snaps {
			assert.False(t, snap.Waiting)
		}

		assert.Equal(t, relay.StreamStateCompleted, s.State())
		assert.NoError(t, s.Err())
		final := c.Snapshot()
		assert.Equal(t, relay.StreamStateCompleted, final.State)
		assert.Equal(t, relay.RoleUser, final.Messages[0].Role)
		assert.Equal(t, relay.RoleAssistant, final.Messages[1].Role)
		assert.NoError(t, s.Close())
	})

	t.Run("error frame keeps partial content", func(t *testing.T) {
		t.Parallel()
		body := `{"type":"token","content":"Par"}` + "\n" +
			`{"type":"error","content":"rate limited"}` + "\n" +
			`{"type":"token","content":"ignored"}` + "\n"
		c := session.New(bodyTransport(body))

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 2)
		last := snaps[1]
		assert.Equal(t, relay.StreamStateFailed, last.State)
		assert.Equal(t, []string{"hi", "Par", "Error: rate limited"}, contents(last.Messages))
		assert.True(t, last.Messages[2].IsError)

		var pe *relay.ProtocolError
		require.ErrorAs(t, s.Err(), &pe)
		assert.Equal(t, "rate limited", pe.Message)
		assert.Equal(t, relay.StreamStateFailed, s.State())
	})

	t.Run("rejects blank query without network activity", func(t *testing.T) {
		t.Parallel()
		c := session.New(&mock.Transport{})

		for _, q := range []string{"", "   ", "\n\t"} {
			s, err := c.Submit(context.Background(), q)
			assert.ErrorIs(t, err, relay.ErrInvalidInput)
			assert.Nil(t, s)
		}
		assert.Empty(t, c.Snapshot().Messages)
	})

	t.Run("complete without tokens adds no assistant message", func(t *testing.T) {
		t.Parallel()
		c := session.New(bodyTransport(`{"type":"complete"}` + "\n"))

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 1)
		assert.Equal(t, relay.StreamStateCompleted, snaps[0].State)
		assert.Equal(t, []string{"hi"}, contents(snaps[0].Messages))
	})

	t.Run("skips malformed and unknown lines", func(t *testing.T) {
		t.Parallel()
		body := "not json\n" +
			`{"type":"token","content":"a"}` + "\n" +
			`{"type":"token"}` + "\n" +
			`{"type":"mystery","content":"x"}` + "\n" +
			"\n" +
			`{"type":"token","content":"b"}` + "\n" +
			`{"type":"complete"}`
		var logs bytes.Buffer
		c := session.New(bodyTransport(body), session.WithLogger(zerolog.New(&logs)))

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 3)
		assert.Equal(t, []string{"hi", "ab"}, contents(snaps[2].Messages))
		assert.Equal(t, relay.StreamStateCompleted, snaps[2].State)
		assert.Contains(t, logs.String(), "skipping malformed frame")
	})

	t.Run("end of body without completion fails", func(t *testing.T) {
		t.Parallel()
		c := session.New(bodyTransport(`{"type":"token","content":"Hi"}` + "\n"))

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 2)
		assert.Equal(t, relay.StreamStateFailed, snaps[1].State)
		assert.Equal(t, "Hi", snaps[1].Messages[1].Content)
		assert.True(t, snaps[1].Messages[2].IsError)

		var te *relay.TransportError
		require.ErrorAs(t, s.Err(), &te)
		assert.ErrorIs(t, s.Err(), relay.ErrIncompleteStream)
	})

	t.Run("transport failure ends the stream", func(t *testing.T) {
		t.Parallel()
		tr := &mock.Transport{
			SendFn: func(_ context.Context, _ relay.Request) (io.ReadCloser, error) {
				return nil, &relay.TransportError{StatusCode: 500, Body: "boom"}
			},
		}
		c := session.New(tr)

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 1)
		assert.Equal(t, relay.StreamStateFailed, snaps[0].State)
		assert.Equal(t, []string{"hi", "Error: HTTP 500 Internal Server Error: boom"}, contents(snaps[0].Messages))
		var te *relay.TransportError
		require.ErrorAs(t, s.Err(), &te)
		assert.Equal(t, 500, te.StatusCode)
	})

	t.Run("read failure becomes a transport error", func(t *testing.T) {
		t.Parallel()
		readErr := errors.New("connection reset")
		tr := &mock.Transport{
			SendFn: func(_ context.Context, _ relay.Request) (io.ReadCloser, error) {
				r := io.MultiReader(
					strings.NewReader(`{"type":"token","content":"Hi"}`+"\n"),
					iotest.ErrReader(readErr),
				)
				return io.NopCloser(r), nil
			},
		}
		c := session.New(tr)

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 2)
		assert.Equal(t, relay.StreamStateFailed, s.State())
		assert.ErrorIs(t, s.Err(), readErr)
		assert.Equal(t, "Error: transport: connection reset", snaps[1].Messages[2].Content)
	})

	t.Run("sends session metadata", func(t *testing.T) {
		t.Parallel()
		var got relay.Request
		tr := &mock.Transport{
			SendFn: func(_ context.Context, req relay.Request) (io.ReadCloser, error) {
				got = req
				return io.NopCloser(strings.NewReader(`{"type":"complete"}`)), nil
			},
		}
		c := session.New(tr,
			session.WithIDGenerator(sequentialIDs()),
			session.WithUserID("user-1"),
			session.WithTenantID("tenant-1"),
			session.WithModel("gpt-4.1"),
		)

		s, err := c.Submit(context.Background(), "what is NDJSON?")
		require.NoError(t, err)
		drain(t, s)

		assert.Equal(t, relay.Request{
			Query:     "what is NDJSON?",
			Model:     "gpt-4.1",
			UserID:    "user-1",
			TenantID:  "tenant-1",
			SessionID: "id-1",
		}, got)
	})

	t.Run("reuses user and tenant ids across sessions", func(t *testing.T) {
		t.Parallel()
		var reqs []relay.Request
		tr := &mock.Transport{
			SendFn: func(_ context.Context, req relay.Request) (io.ReadCloser, error) {
				reqs = append(reqs, req)
				return io.NopCloser(strings.NewReader(`{"type":"complete"}`)), nil
			},
		}
		c := session.New(tr, session.WithIDGenerator(sequentialIDs()))

		s, err := c.Submit(context.Background(), "one")
		require.NoError(t, err)
		drain(t, s)
		c.Reset()
		s, err = c.Submit(context.Background(), "two")
		require.NoError(t, err)
		drain(t, s)

		require.Len(t, reqs, 2)
		assert.Equal(t, reqs[0].UserID, reqs[1].UserID)
		assert.Equal(t, reqs[0].TenantID, reqs[1].TenantID)
		assert.NotEqual(t, reqs[0].SessionID, reqs[1].SessionID)
	})

	t.Run("is lazy until Next", func(t *testing.T) {
		t.Parallel()
		called := false
		tr := &mock.Transport{
			SendFn: func(_ context.Context, _ relay.Request) (io.ReadCloser, error) {
				called = true
				return io.NopCloser(strings.NewReader(`{"type":"complete"}`)), nil
			},
		}
		c := session.New(tr)

		s, err := c.Submit(context.Background(), "hi")
		require.NoError(t, err)
		assert.False(t, called)

		snap := c.Snapshot()
		assert.True(t, snap.Waiting)
		assert.Equal(t, relay.StreamStateIdle, snap.State)
		assert.Equal(t, []string{"hi"}, contents(snap.Messages))

		drain(t, s)
		assert.True(t, called)
		assert.False(t, c.Snapshot().Waiting)
	})

	t.Run("rejects a second submission while one is active", func(t *testing.T) {
		t.Parallel()
		c := session.New(bodyTransport(`{"type":"complete"}`))

		s, err := c.Submit(context.Background(), "first")
		require.NoError(t, err)

		_, err = c.Submit(context.Background(), "second")
		require.ErrorIs(t, err, relay.ErrInvalidInput)
		assert.Equal(t, []string{"first"}, contents(c.Snapshot().Messages))

		drain(t, s)
		s, err = c.Submit(context.Background(), "second")
		require.NoError(t, err)
		drain(t, s)
		assert.Equal(t, []string{"first", "second"}, contents(c.Snapshot().Messages))
	})

	t.Run("caller cancellation ends in cancelled state", func(t *testing.T) {
		t.Parallel()
		tr := &mock.Transport{
			SendFn: func(ctx context.Context, _ relay.Request) (io.ReadCloser, error) {
				return nil, ctx.Err()
			},
		}
		c := session.New(tr)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s, err := c.Submit(ctx, "hi")
		require.NoError(t, err)
		snaps := drain(t, s)

		require.Len(t, snaps, 1)
		assert.Equal(t, relay.StreamStateCancelled, snaps[0].State)
		assert.ErrorIs(t, s.Err(), context.Canceled)
		assert.True(t, snaps[0].Messages[1].IsError)
	})
}

func TestController_TokenPrefixes(t *testing.T) {
	t.Parallel()

	tokens := []string{"Zaż", "ółć ", "gęślą", " ", "jaźń", "🙂"}
	var body strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&body, `{"type":"token","content":%q}`+"\n", tok)
	}
	body.WriteString(`{"type":"complete"}` + "\n")

	tr := &mock.Transport{
		SendFn: func(_ context.Context, _ relay.Request) (io.ReadCloser, error) {
			return io.NopCloser(iotest.OneByteReader(strings.NewReader(body.String()))), nil
		},
	}
	c := session.New(tr)
	s, err := c.Submit(context.Background(), "hi")
	require.NoError(t, err)
	snaps := drain(t, s)

	require.Len(t, snaps, len(tokens)+1)
	var want string
	for i, tok := range tokens {
		want += tok
		last, ok := snaps[i].Last()
		require.True(t, ok)
		assert.Equal(t, want, last.Content)
	}
	assert.Equal(t, relay.StreamStateCompleted, snaps[len(tokens)].State)
}

func TestController_SetModel(t *testing.T) {
	t.Parallel()

	var models []string
	tr := &mock.Transport{
		SendFn: func(_ context.Context, req relay.Request) (io.ReadCloser, error) {
			models = append(models, req.Model)
			return io.NopCloser(strings.NewReader(`{"type":"complete"}`)), nil
		},
	}
	c := session.New(tr, session.WithModel("gpt-4.1"))
	id := c.SessionID()

	s, err := c.Submit(context.Background(), "one")
	require.NoError(t, err)
	assert.ErrorIs(t, c.SetModel("claude"), relay.ErrInvalidInput)
	drain(t, s)

	require.NoError(t, c.SetModel("claude"))
	s, err = c.Submit(context.Background(), "two")
	require.NoError(t, err)
	drain(t, s)

	assert.Equal(t, []string{"gpt-4.1", "claude"}, models)
	assert.Equal(t, id, c.SessionID())
	assert.Equal(t, []string{"one", "two"}, contents(c.Snapshot().Messages))
}
