package framing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxBuffer caps the inbound backlog. A peer that never sends a frame
// terminator would otherwise grow the buffer without bound; the connection
// must be reset when the cap is hit.
const DefaultMaxBuffer = 1 << 20

var ErrOverflow = errors.New("framing: buffer exceeded limit without a frame terminator")

// Codec accumulates received bytes and splits them into newline-terminated
// frames. A partial frame is retained across Feed calls.
type Codec struct {
	buf []byte
	max int
}

func NewCodec() *Codec {
	return NewCodecWithLimit(DefaultMaxBuffer)
}

func NewCodecWithLimit(max int) *Codec {
	if max <= 0 {
		max = DefaultMaxBuffer
	}
	return &Codec{max: max}
}

// Feed appends received bytes to the backlog. Noise bytes (NUL and other
// control characters that cannot appear in single-line JSON) are dropped
// instead of poisoning the frame they land in. Returns ErrOverflow when the
// backlog exceeds the limit; the caller should reset the connection and the
// codec.
func (c *Codec) Feed(p []byte) error {
	for _, b := range p {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' {
			continue
		}
		c.buf = append(c.buf, b)
	}
	if len(c.buf) > c.max {
		return ErrOverflow
	}
	return nil
}

// TryLine extracts at most one complete frame, trimmed of surrounding
// whitespace, and removes it together with its terminator from the backlog.
func (c *Codec) TryLine() (string, bool) {
	i := bytes.IndexByte(c.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := strings.TrimSpace(string(c.buf[:i]))
	c.buf = c.buf[i+1:]
	return line, true
}

// Pending returns the number of buffered bytes not yet extracted.
func (c *Codec) Pending() int {
	return len(c.buf)
}

// Reset drops the backlog. Used after a forced connection reset.
func (c *Codec) Reset() {
	c.buf = c.buf[:0]
}

// EncodeLine serializes v as a single-line JSON object with a trailing
// newline, ready for transmission.
func EncodeLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("framing: encode: %w", err)
	}
	if bytes.IndexByte(b, '\n') >= 0 {
		return nil, errors.New("framing: encoded message contains embedded newline")
	}
	return append(b, '\n'), nil
}
