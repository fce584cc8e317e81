package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type PlaceholderStorage func(t *testing.T) (KV, func())

// TestStorage tests a set of tests on a storage
func TestStorage(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	t.Run("testSetGet", func(t *testing.T) {
		testSetGet(t, m)
	})
	t.Run("testDelete", func(t *testing.T) {
		testDelete(t, m)
	})
	t.Run("testBatch", func(t *testing.T) {
		testBatch(t, m)
	})
	t.Run("testIterate", func(t *testing.T) {
		testIterate(t, m)
	})
	t.Run("testBatchReuse", func(t *testing.T) {
		testBatchReuse(t, m)
	})
}

func testSetGet(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	_, ok, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set([]byte("k"), []byte("v1")))

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Set([]byte("k"), []byte("v2")))

	v, _, err = s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	// returned values must not alias the stored ones
	v[0] = 'x'

	v, _, err = s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}

func testDelete(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	require.NoError(t, s.Delete([]byte("k")))

	_, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing key is not an error
	require.NoError(t, s.Delete([]byte("k")))
}

func testBatch(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	require.NoError(t, s.Set([]byte("stale"), []byte("1")))

	batch := s.NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("stale"))

	// nothing is visible before the batch is written
	_, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, batch.Write())

	for k, expected := range map[string]string{"a": "1", "b": "2"} {
		v, ok, err := s.Get([]byte(k))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte(expected), v)
	}

	_, ok, err = s.Get([]byte("stale"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testIterate(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	for i := uint64(0); i < 5; i++ {
		require.NoError(t, s.Set(Key(EVENT, EncodeUint(4-i)), []byte{byte(4 - i)}))
	}

	require.NoError(t, s.Set(Key(ACCOUNT, []byte("x")), []byte("acct")))
	require.NoError(t, s.Set([]byte("f"), []byte("after")))

	var seen []uint64

	err := s.Iterate(EVENT, nil, func(k, v []byte) bool {
		n, ok := DecodeUint(k[len(EVENT):])
		require.True(t, ok)
		require.Equal(t, []byte{byte(n)}, v)

		seen = append(seen, n)

		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, seen)

	// early stop
	count := 0

	err = s.Iterate(EVENT, nil, func(k, v []byte) bool {
		count++

		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// seek to a start key inside the prefix
	seen = nil

	err = s.Iterate(EVENT, Key(EVENT, EncodeUint(3)), func(k, v []byte) bool {
		n, _ := DecodeUint(k[len(EVENT):])
		seen = append(seen, n)

		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4}, seen)

	// a start past the prefix visits nothing
	err = s.Iterate(EVENT, Key(EVENT, EncodeUint(9)), func(k, v []byte) bool {
		t.Fatalf("unexpected key %x", k)

		return false
	})
	require.NoError(t, err)
}

func testBatchReuse(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	batch := s.NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	require.NoError(t, batch.Write())

	require.NoError(t, s.Set([]byte("a"), []byte("2")))

	// a written batch does not replay its earlier operations
	batch.Put([]byte("b"), []byte("1"))
	require.NoError(t, batch.Write())

	v, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)

	v, ok, err = s.Get([]byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	// an empty batch writes nothing
	require.NoError(t, s.NewBatch().Write())
}
