package ndjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/relay"
)

// wireFrame is the JSON shape of one line of the response body.
type wireFrame struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ParseFrame classifies one decoded line.
//
// A line that is not a JSON object, or a token frame without a string
// content, returns an error wrapping relay.ErrMalformedFrame; callers skip
// the line. A missing or unrecognised type yields relay.FrameUnknown.
func ParseFrame(line string) (relay.Frame, error) {
	data := bytes.TrimSpace([]byte(line))
	if len(data) == 0 || data[0] != '{' {
		return relay.Frame{}, fmt.Errorf("ndjson: not a JSON object: %w", relay.ErrMalformedFrame)
	}
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return relay.Frame{}, fmt.Errorf("ndjson: %w: %w", relay.ErrMalformedFrame, err)
	}

	f := relay.Frame{Type: w.Type}
	switch w.Type {
	case "token":
		s, ok, err := stringContent(w.Content)
		if err != nil {
			return relay.Frame{}, fmt.Errorf("ndjson: token content: %w: %w", relay.ErrMalformedFrame, err)
		}
		if !ok {
			return relay.Frame{}, fmt.Errorf("ndjson: token without content: %w", relay.ErrMalformedFrame)
		}
		f.Kind = relay.FrameToken
		f.Content = s
	case "complete":
		f.Kind = relay.FrameComplete
	case "error":
		f.Kind = relay.FrameError
		s, _, err := stringContent(w.Content)
		if err != nil {
			// Keep a structured reason readable rather than dropping the failure.
			s = string(w.Content)
		}
		f.Content = s
	default:
		f.Kind = relay.FrameUnknown
	}
	return f, nil
}

// stringContent decodes a JSON string. A missing or null value reports false.
func stringContent(raw json.RawMessage) (string, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, err
	}
	return s, true, nil
}
