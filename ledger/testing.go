package ledger

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/custody-gateway/ledger/storage/memory"
)

// NewTestLedger returns an in-memory ledger closed at the end of the test
func NewTestLedger(t *testing.T) *Ledger {
	t.Helper()

	db, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	l, err := NewLedger(db, hclog.NewNullLogger(), 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, l.Close())
	})

	return l
}
