package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDBBasicOps(t *testing.T) {
	p := NewMemDBProvider()

	value, err := p.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, p.Put([]byte("k"), []byte("v")))
	value, err = p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	has, err := p.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, p.Delete([]byte("k")))
	has, err = p.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemDBGetReturnsCopy(t *testing.T) {
	p := NewMemDBProvider()
	require.NoError(t, p.Put([]byte("k"), []byte("abc")))

	value, err := p.Get([]byte("k"))
	require.NoError(t, err)
	value[0] = 'x'

	again, err := p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemDBBatch(t *testing.T) {
	p := NewMemDBProvider()
	require.NoError(t, p.Put([]byte("stale"), []byte("1")))

	batch := p.Batch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("stale"))

	// Nothing lands before Write
	has, err := p.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, batch.Write())

	value, err := p.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
	has, err = p.Has([]byte("stale"))
	require.NoError(t, err)
	assert.False(t, has)

	// A reset batch writes nothing
	batch.Reset()
	batch.Put([]byte("c"), []byte("3"))
	batch.Reset()
	require.NoError(t, batch.Write())
	has, err = p.Has([]byte("c"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemDBIteratePrefix(t *testing.T) {
	p := NewMemDBProvider()
	require.NoError(t, p.Put([]byte("account:alice"), []byte("1")))
	require.NoError(t, p.Put([]byte("account:bob"), []byte("2")))
	require.NoError(t, p.Put([]byte("state:token"), []byte("3")))

	var keys []string
	err := p.IteratePrefix([]byte("account:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"account:alice", "account:bob"}, keys)

	// Callback returning false stops iteration
	keys = keys[:0]
	err = p.IteratePrefix([]byte("account:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return false
	})
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
