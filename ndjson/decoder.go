// Package ndjson decodes newline-delimited JSON frame streams.
//
// Decoder and Reader turn raw body bytes into lines, tolerating chunk
// boundaries that split a line or a multi-byte character. ParseFrame
// classifies one line into a relay.Frame.
package ndjson

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns byte chunks that arrive at arbitrary boundaries into lines.
//
// Between calls it retains at most one incomplete UTF-8 sequence and at most
// one unterminated line. Invalid bytes are replaced with U+FFFD; decoding
// never fails. Blank lines are dropped. The zero value is ready to use.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte // undecoded tail: an incomplete UTF-8 sequence
	text    []byte // decoded text not yet terminated by '\n'
	scratch []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write decodes chunk and returns the lines it completed, in order.
func (d *Decoder) Write(chunk []byte) []string {
	d.decode(chunk, false)
	return d.lines()
}

// Flush ends the input. A remaining unterminated line is returned if it is
// not blank; an incomplete trailing UTF-8 sequence decodes as U+FFFD. The
// Decoder is empty afterwards.
func (d *Decoder) Flush() (string, bool) {
	d.decode(nil, true)
	// Write consumed every newline, so the text left is a single partial line.
	rest, ok := cleanLine(d.text)
	d.text = d.text[:0]
	return rest, ok
}

// Buffered returns the number of bytes held for the next call.
func (d *Decoder) Buffered() int {
	return len(d.pending) + len(d.text)
}

func (d *Decoder) decode(chunk []byte, atEOF bool) {
	if d.utf8 == nil {
		d.utf8 = unicode.UTF8.NewDecoder()
		d.scratch = make([]byte, 4096)
	}
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	for {
		nDst, nSrc, err := d.utf8.Transform(d.scratch, src, atEOF)
		d.text = append(d.text, d.scratch[:nDst]...)
		src = src[nSrc:]
		switch err {
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
		}
		return
	}
}

func (d *Decoder) lines() []string {
	var out []string
	start := 0
	for {
		i := bytes.IndexByte(d.text[start:], '\n')
		if i < 0 {
			break
		}
		if line, ok := cleanLine(d.text[start : start+i]); ok {
			out = append(out, line)
		}
		start += i + 1
	}
	d.text = d.text[:copy(d.text, d.text[start:])]
	return out
}

// cleanLine trims surrounding whitespace, including a CR left by CRLF
// delimiters, and reports whether anything remains.
func cleanLine(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return "", false
	}
	return string(b), true
}
