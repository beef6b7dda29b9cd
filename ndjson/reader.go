package ndjson

import "io"

// readSize is the size of a single read from the underlying reader.
const readSize = 4096

// Reader pulls lines from an io.Reader. It reads only when no decoded line
// is queued, so a slow consumer slows the reads down.
type Reader struct {
	r     io.Reader
	dec   Decoder
	buf   []byte
	lines []string
	err   error // sticky; io.EOF after a clean end
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, readSize)}
}

// ReadLine returns the next non-blank line without its delimiter.
//
// At a clean end of input an unterminated, non-blank remainder is returned
// as the final line, followed by io.EOF. Any other read error is returned
// unchanged once the lines decoded before it are drained; the unterminated
// remainder is discarded in that case.
func (r *Reader) ReadLine() (string, error) {
	for len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		n, err := r.r.Read(r.buf)
		if n > 0 {
			r.lines = r.dec.Write(r.buf[:n])
		}
		switch {
		case err == io.EOF:
			if line, ok := r.dec.Flush(); ok {
				r.lines = append(r.lines, line)
			}
			r.err = io.EOF
		case err != nil:
			r.err = err
		}
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}
