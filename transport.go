package relay

import (
	"context"
	"io"
)

// Transport sends one request and returns the streaming response body.
// Implementations return a *TransportError for non-2xx responses.
type Transport interface {
	Send(ctx context.Context, req Request) (io.ReadCloser, error)
}
