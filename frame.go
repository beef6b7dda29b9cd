package relay

// FrameKind classifies a decoded wire frame.
type FrameKind int

const (
	FrameUnknown  FrameKind = iota // Missing or unrecognised "type"; ignored.
	FrameToken                     // Incremental assistant text.
	FrameComplete                  // Clean end of stream.
	FrameError                     // Remote failure; Content is the reason.
)

// String returns the wire name of the kind.
func (k FrameKind) String() string {
	switch k {
	case FrameToken:
		return "token"
	case FrameComplete:
		return "complete"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is one classified line of the response body.
type Frame struct {
	Kind    FrameKind
	Type    string // raw "type" value as sent by the server
	Content string // token text or error reason; empty for complete
}
