package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsCoercion(t *testing.T) {
	var q Query
	require.NoError(t, json.Unmarshal([]byte(
		`{"type":"query","params":{"symbol":"EURUSD","count":50,"ratio":"1.5","empty":""}}`), &q))

	s, ok := q.Params.String("symbol")
	require.True(t, ok)
	assert.Equal(t, "EURUSD", s)

	_, ok = q.Params.String("empty")
	assert.False(t, ok)

	n, ok := q.Params.Int("count")
	require.True(t, ok)
	assert.Equal(t, 50, n)

	f, ok := q.Params.Float("ratio")
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = q.Params.Float("missing")
	assert.False(t, ok)
}

func TestParamsTime(t *testing.T) {
	p := Params{
		"unix":    float64(1788048000),
		"rfc":     "2026-08-30T00:00:00Z",
		"date":    "2026-08-30",
		"unixstr": "1788048000",
		"junk":    "not a time",
	}

	want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	for _, key := range []string{"unix", "rfc", "date", "unixstr"} {
		got, ok := p.Time(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok := p.Time("junk")
	assert.False(t, ok)
	_, ok = p.Time("missing")
	assert.False(t, ok)
}
