package common

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeAddUint64(t *testing.T) {
	t.Parallel()

	sum, err := SafeAddUint64(1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), sum)

	_, err = SafeAddUint64(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrUint64Overflow)
}

func TestEncodeUint64ToBytes(t *testing.T) {
	t.Parallel()

	for _, v := range []uint64{0, 1, 7001, math.MaxUint64} {
		require.Equal(t, v, EncodeBytesToUint64(EncodeUint64ToBytes(v)))
	}

	// big endian keeps byte order equal to numeric order
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, EncodeUint64ToBytes(256))
}

func TestSetupDataDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, SetupDataDir(dir, []string{"ledger", "relayer"}))

	for _, sub := range []string{"ledger", "relayer"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
