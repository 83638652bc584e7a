package framing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecSplitsFrames(t *testing.T) {
	c := NewCodec()
	require.NoError(t, c.Feed([]byte("{\"a\":1}\n{\"b\":2}\n")))

	line, ok := c.TryLine()
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, line)

	line, ok = c.TryLine()
	require.True(t, ok)
	assert.Equal(t, `{"b":2}`, line)

	_, ok = c.TryLine()
	assert.False(t, ok)
}

func TestCodecRetainsPartialFrame(t *testing.T) {
	c := NewCodec()
	require.NoError(t, c.Feed([]byte(`{"a":`)))

	_, ok := c.TryLine()
	assert.False(t, ok)
	assert.Equal(t, 5, c.Pending())

	require.NoError(t, c.Feed([]byte("1}\n")))
	line, ok := c.TryLine()
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, line)
	assert.Equal(t, 0, c.Pending())
}

func TestCodecDropsControlNoise(t *testing.T) {
	c := NewCodec()
	require.NoError(t, c.Feed([]byte("\x00\x01{\"a\"\x00:1}\x02\n")))

	line, ok := c.TryLine()
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, line)
}

func TestCodecTrimsCarriageReturn(t *testing.T) {
	c := NewCodec()
	require.NoError(t, c.Feed([]byte("{\"a\":1}\r\n")))

	line, ok := c.TryLine()
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, line)
}

func TestCodecOverflow(t *testing.T) {
	c := NewCodecWithLimit(16)
	err := c.Feed([]byte(strings.Repeat("x", 17)))
	require.ErrorIs(t, err, ErrOverflow)

	c.Reset()
	assert.Equal(t, 0, c.Pending())
	require.NoError(t, c.Feed([]byte("ok\n")))
}

func TestEncodeLine(t *testing.T) {
	b, err := EncodeLine(map[string]string{"type": "heartbeat"})
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"heartbeat\"}\n", string(b))
}
