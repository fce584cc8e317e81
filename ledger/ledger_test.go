package ledger

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/custody-gateway/ledger/storage"
	"github.com/0xPolygon/custody-gateway/ledger/storage/boltdb"
	"github.com/0xPolygon/custody-gateway/ledger/storage/memory"
	"github.com/0xPolygon/custody-gateway/types"
)

var (
	alice = types.StringToIdentity("0xa1")
	bob   = types.StringToIdentity("0xb0b")
	mint  = types.StringToIdentity("0x6d696e74")
)

func seed(t *testing.T, l *Ledger, f func(txn *Txn)) {
	t.Helper()

	txn := l.Begin()
	f(txn)

	_, err := txn.Commit()
	require.NoError(t, err)
}

func TestTxn_Transfer(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	seed(t, l, func(txn *Txn) {
		require.NoError(t, txn.Allocate(alice, 100))
	})

	txn := l.Begin()
	require.NoError(t, txn.Transfer(alice, bob, 40))

	// nothing is visible before commit
	_, err := l.GetAccount(bob)
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = txn.Commit()
	require.NoError(t, err)

	a, err := l.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), a.Balance)
	assert.Equal(t, uint64(2), a.Version)

	b, err := l.GetAccount(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), b.Balance)
	assert.Equal(t, uint64(1), b.Version)
}

func TestTxn_TransferInsufficientFunds(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	seed(t, l, func(txn *Txn) {
		require.NoError(t, txn.Allocate(alice, 10))
	})

	txn := l.Begin()
	require.ErrorIs(t, txn.Transfer(alice, bob, 11), ErrInsufficientFunds)

	ok, err := txn.HasAccount(bob)
	require.NoError(t, err)
	assert.False(t, ok)

	require.ErrorIs(t, txn.Transfer(bob, alice, 1), ErrAccountNotFound)
}

func TestTxn_TransferOverflowReverts(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	seed(t, l, func(txn *Txn) {
		require.NoError(t, txn.Allocate(alice, 10))
		require.NoError(t, txn.Allocate(bob, math.MaxUint64))
	})

	txn := l.Begin()
	require.Error(t, txn.Transfer(alice, bob, 1))

	a, err := txn.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), a.Balance)
}

func TestTxn_Snapshot(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	txn := l.Begin()

	require.NoError(t, txn.Allocate(alice, 5))
	snap := txn.Snapshot()

	require.NoError(t, txn.Allocate(alice, 5))
	txn.Emit("x", []byte{1})

	require.NoError(t, txn.RevertToSnapshot(snap))

	a, err := txn.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), a.Balance)
	assert.Empty(t, txn.Events())

	require.Error(t, txn.RevertToSnapshot(10))
}

func TestTxn_Conflict(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	seed(t, l, func(txn *Txn) {
		require.NoError(t, txn.Allocate(alice, 100))
	})

	first := l.Begin()
	second := l.Begin()

	require.NoError(t, first.Transfer(alice, bob, 10))
	require.NoError(t, second.Transfer(alice, bob, 20))

	_, err := first.Commit()
	require.NoError(t, err)

	_, err = second.Commit()
	require.ErrorIs(t, err, ErrConflict)

	a, err := l.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), a.Balance)

	// a closed txn cannot be reused
	_, err = second.Commit()
	require.ErrorIs(t, err, ErrTxnClosed)
}

func TestTxn_CreateConflict(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)

	first := l.Begin()
	second := l.Begin()

	require.NoError(t, first.CreateAccount(alice, bob, []byte("a")))
	require.NoError(t, second.CreateAccount(alice, bob, []byte("b")))

	_, err := first.Commit()
	require.NoError(t, err)

	_, err = second.Commit()
	require.ErrorIs(t, err, ErrConflict)

	txn := l.Begin()
	require.ErrorIs(t, txn.CreateAccount(alice, bob, nil), ErrAccountExists)
}

func TestTxn_TokenAccounts(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	otherMint := types.StringToIdentity("0x07")

	seed(t, l, func(txn *Txn) {
		require.NoError(t, txn.AllocateToken(alice, mint, alice, 50))
		require.NoError(t, txn.CreateTokenAccount(bob, mint, bob))
		require.NoError(t, txn.AllocateToken(types.StringToIdentity("0x99"), otherMint, bob, 1))
	})

	txn := l.Begin()
	require.NoError(t, txn.TransferToken(alice, bob, 20))
	require.ErrorIs(t, txn.TransferToken(alice, bob, 31), ErrInsufficientFunds)
	require.ErrorIs(t, txn.TransferToken(alice, types.StringToIdentity("0x99"), 1), ErrMintMismatch)

	_, err := txn.Commit()
	require.NoError(t, err)

	a, err := l.GetTokenAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), a.Amount)
	assert.Equal(t, alice, a.Authority)

	b, err := l.GetTokenAccount(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), b.Amount)
	assert.Equal(t, mint, b.Mint)
}

func TestTxn_NotTokenAccount(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	seed(t, l, func(txn *Txn) {
		require.NoError(t, txn.Allocate(alice, 1))
	})

	_, err := l.GetTokenAccount(alice)
	require.ErrorIs(t, err, ErrNotTokenAccount)
}

func TestLedger_Events(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)
	notify, cancel := l.Subscribe()

	defer cancel()

	txn := l.Begin()
	txn.Emit("a", []byte{1})
	txn.Emit("b", []byte{2})

	committed, err := txn.Commit()
	require.NoError(t, err)
	require.Len(t, committed, 2)
	assert.Equal(t, uint64(0), committed[0].Seq)
	assert.Equal(t, uint64(1), committed[1].Seq)

	select {
	case <-notify:
	default:
		t.Fatal("expected a commit notification")
	}

	txn = l.Begin()
	txn.Emit("c", []byte{3})
	_, err = txn.Commit()
	require.NoError(t, err)

	assert.Equal(t, uint64(3), l.NextEventSeq())

	events, err := l.Events(1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Name)
	assert.Equal(t, []byte{3}, events[1].Data)

	events, err = l.Events(0, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Name)
}

// visitCountingKV counts the keys handed to Iterate callbacks
type visitCountingKV struct {
	storage.KV
	visited int
}

func (c *visitCountingKV) Iterate(prefix, start []byte, fn func(k, v []byte) bool) error {
	return c.KV.Iterate(prefix, start, func(k, v []byte) bool {
		c.visited++

		return fn(k, v)
	})
}

func TestLedger_EventsSeekToStart(t *testing.T) {
	t.Parallel()

	db, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	kv := &visitCountingKV{KV: db}

	l, err := NewLedger(kv, hclog.NewNullLogger(), 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, l.Close())
	})

	txn := l.Begin()
	for i := 0; i < 100; i++ {
		txn.Emit("e", []byte{byte(i)})
	}

	_, err = txn.Commit()
	require.NoError(t, err)

	kv.visited = 0

	events, err := l.Events(95, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(95), events[0].Seq)
	assert.Equal(t, uint64(96), events[1].Seq)

	// only the returned events are read from storage
	assert.Equal(t, 2, kv.visited)
}

func TestTxn_DiscardWritesNothing(t *testing.T) {
	t.Parallel()

	l := NewTestLedger(t)

	txn := l.Begin()
	require.NoError(t, txn.Allocate(alice, 1))
	txn.Emit("a", nil)
	txn.Discard()

	_, err := txn.Commit()
	require.ErrorIs(t, err, ErrTxnClosed)

	_, err = l.GetAccount(alice)
	require.True(t, errors.Is(err, ErrAccountNotFound))
	assert.Equal(t, uint64(0), l.NextEventSeq())
}

func TestLedger_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := boltdb.NewBoltDBStorage(path, hclog.NewNullLogger())
	require.NoError(t, err)

	l, err := NewLedger(db, hclog.NewNullLogger(), 16)
	require.NoError(t, err)

	txn := l.Begin()
	require.NoError(t, txn.Allocate(alice, 7))
	txn.Emit("a", []byte{1})
	_, err = txn.Commit()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	db, err = boltdb.NewBoltDBStorage(path, hclog.NewNullLogger())
	require.NoError(t, err)

	l, err = NewLedger(db, hclog.NewNullLogger(), 16)
	require.NoError(t, err)

	defer l.Close()

	assert.Equal(t, uint64(1), l.NextEventSeq())

	a, err := l.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), a.Balance)
}

func TestAccount_RLP(t *testing.T) {
	t.Parallel()

	token := &TokenAccount{Mint: mint, Authority: alice, Amount: 12}
	acct := &Account{Owner: TokenProgramID, Balance: 3, Data: token.MarshalRLPTo(nil), Version: 9}

	decoded := new(Account)
	require.NoError(t, decoded.UnmarshalRLP(acct.MarshalRLPTo(nil)))
	assert.Equal(t, acct, decoded)

	decodedToken, err := decodeTokenAccount(alice, decoded)
	require.NoError(t, err)
	assert.Equal(t, token, decodedToken)
}
