package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV(t *testing.T) {
	kv := NewMemory()
	defer kv.Close()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("daily_balance:100:2026-08-30", "10000"))
	v, ok, err := kv.Get("daily_balance:100:2026-08-30")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10000", v)

	require.NoError(t, kv.Set("daily_balance:100:2026-08-30", "9000"))
	v, _, _ = kv.Get("daily_balance:100:2026-08-30")
	assert.Equal(t, "9000", v)
}
