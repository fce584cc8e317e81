package ledger

import (
	"fmt"

	"github.com/armon/go-metrics"
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/0xPolygon/custody-gateway/helper/common"
	"github.com/0xPolygon/custody-gateway/ledger/storage"
	"github.com/0xPolygon/custody-gateway/types"
)

var (
	// eventsIndex is the key of the pending events in the txn tree
	eventsIndex = []byte{0x00}

	// accountPrefix prefixes account keys in the txn tree
	accountPrefix = []byte{0x01}
)

// Txn is a unit of work against the ledger. Mutations are buffered in a
// copy-on-write tree and become visible only on Commit.
type Txn struct {
	ledger    *Ledger
	snapshots []*iradix.Tree
	txn       *iradix.Txn

	// readSet holds the committed version of every account the txn observed,
	// zero for accounts that did not exist
	readSet map[types.Identity]uint64
	closed  bool
}

func newTxn(ledger *Ledger) *Txn {
	i := iradix.New()

	return &Txn{
		ledger:    ledger,
		snapshots: []*iradix.Tree{},
		txn:       i.Txn(),
		readSet:   map[types.Identity]uint64{},
	}
}

// Snapshot takes a snapshot at this point in time
func (txn *Txn) Snapshot() int {
	t := txn.txn.CommitOnly()

	id := len(txn.snapshots)
	txn.snapshots = append(txn.snapshots, t)

	return id
}

// RevertToSnapshot reverts to a given snapshot
func (txn *Txn) RevertToSnapshot(id int) error {
	if id >= len(txn.snapshots) {
		return fmt.Errorf("snapshot %d does not exist", id)
	}

	tree := txn.snapshots[id]
	txn.txn = tree.Txn()

	return nil
}

func accountKey(addr types.Identity) []byte {
	return storage.Key(accountPrefix, addr.Bytes())
}

// getAccount resolves an account from the pending tree or the committed state
func (txn *Txn) getAccount(addr types.Identity) (*Account, bool, error) {
	if txn.closed {
		return nil, false, ErrTxnClosed
	}

	if val, ok := txn.txn.Get(accountKey(addr)); ok {
		acct, ok := val.(*Account)
		if !ok {
			return nil, false, ErrInvalidAccountTypeAssert
		}

		return acct.Copy(), true, nil
	}

	txn.ledger.lock.RLock()
	acct, ok, err := txn.ledger.readAccount(addr)
	txn.ledger.lock.RUnlock()

	if err != nil {
		return nil, false, err
	}

	if _, seen := txn.readSet[addr]; !seen {
		if ok {
			txn.readSet[addr] = acct.Version
		} else {
			txn.readSet[addr] = 0
		}
	}

	if !ok {
		return nil, false, nil
	}

	return acct.Copy(), true, nil
}

// GetAccount returns the account as seen by this txn
func (txn *Txn) GetAccount(addr types.Identity) (*Account, error) {
	acct, ok, err := txn.getAccount(addr)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}

	return acct, nil
}

// HasAccount reports whether an account exists at addr
func (txn *Txn) HasAccount(addr types.Identity) (bool, error) {
	_, ok, err := txn.getAccount(addr)

	return ok, err
}

// SetAccount overwrites the account at addr
func (txn *Txn) SetAccount(addr types.Identity, acct *Account) error {
	// resolve first so the committed version joins the read set
	if _, _, err := txn.getAccount(addr); err != nil {
		return err
	}

	txn.txn.Insert(accountKey(addr), acct.Copy())

	return nil
}

// CreateAccount creates an empty account owned by owner
func (txn *Txn) CreateAccount(addr types.Identity, owner types.Identity, data []byte) error {
	_, ok, err := txn.getAccount(addr)
	if err != nil {
		return err
	}

	if ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}

	return txn.SetAccount(addr, &Account{Owner: owner, Data: data})
}

// upsertAccount runs f against the account at addr, creating it when allowed
func (txn *Txn) upsertAccount(addr types.Identity, create bool, f func(acct *Account) error) error {
	acct, ok, err := txn.getAccount(addr)
	if err != nil {
		return err
	}

	if !ok {
		if !create {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}

		acct = &Account{}
	}

	if err := f(acct); err != nil {
		return err
	}

	txn.txn.Insert(accountKey(addr), acct)

	return nil
}

// Transfer moves native value between two accounts. The recipient is
// created when it does not exist.
func (txn *Txn) Transfer(from, to types.Identity, amount uint64) error {
	if from == to {
		_, err := txn.GetAccount(from)

		return err
	}

	snapshot := txn.Snapshot()

	err := txn.upsertAccount(from, false, func(acct *Account) error {
		if acct.Balance < amount {
			return fmt.Errorf("%w: account %s holds %d, required %d", ErrInsufficientFunds, from, acct.Balance, amount)
		}

		acct.Balance -= amount

		return nil
	})
	if err != nil {
		return err
	}

	err = txn.upsertAccount(to, true, func(acct *Account) error {
		balance, err := common.SafeAddUint64(acct.Balance, amount)
		if err != nil {
			return fmt.Errorf("credit of account %s: %w", to, err)
		}

		acct.Balance = balance

		return nil
	})
	if err != nil {
		_ = txn.RevertToSnapshot(snapshot)

		return err
	}

	return nil
}

// Allocate credits native value without a matching debit. Used only to seed
// genesis balances.
func (txn *Txn) Allocate(addr types.Identity, amount uint64) error {
	return txn.upsertAccount(addr, true, func(acct *Account) error {
		balance, err := common.SafeAddUint64(acct.Balance, amount)
		if err != nil {
			return err
		}

		acct.Balance = balance

		return nil
	})
}

// GetTokenAccount returns the token account at addr as seen by this txn
func (txn *Txn) GetTokenAccount(addr types.Identity) (*TokenAccount, error) {
	acct, err := txn.GetAccount(addr)
	if err != nil {
		return nil, err
	}

	return decodeTokenAccount(addr, acct)
}

func decodeTokenAccount(addr types.Identity, acct *Account) (*TokenAccount, error) {
	if acct.Owner != TokenProgramID {
		return nil, fmt.Errorf("%w: %s", ErrNotTokenAccount, addr)
	}

	token := new(TokenAccount)
	if err := token.UnmarshalRLP(acct.Data); err != nil {
		return nil, fmt.Errorf("failed to decode token account %s: %w", addr, err)
	}

	return token, nil
}

// CreateTokenAccount creates an empty token account for mint controlled by authority
func (txn *Txn) CreateTokenAccount(addr, mint, authority types.Identity) error {
	token := &TokenAccount{Mint: mint, Authority: authority}

	return txn.CreateAccount(addr, TokenProgramID, token.MarshalRLPTo(nil))
}

func (txn *Txn) updateTokenAccount(addr types.Identity, f func(token *TokenAccount) error) error {
	return txn.upsertAccount(addr, false, func(acct *Account) error {
		token, err := decodeTokenAccount(addr, acct)
		if err != nil {
			return err
		}

		if err := f(token); err != nil {
			return err
		}

		acct.Data = token.MarshalRLPTo(nil)

		return nil
	})
}

// TransferToken moves token amount between two token accounts of the same mint
func (txn *Txn) TransferToken(from, to types.Identity, amount uint64) error {
	src, err := txn.GetTokenAccount(from)
	if err != nil {
		return err
	}

	dst, err := txn.GetTokenAccount(to)
	if err != nil {
		return err
	}

	if src.Mint != dst.Mint {
		return fmt.Errorf("%w: %s and %s", ErrMintMismatch, src.Mint, dst.Mint)
	}

	if src.Amount < amount {
		return fmt.Errorf("%w: token account %s holds %d, required %d", ErrInsufficientFunds, from, src.Amount, amount)
	}

	if from == to {
		return nil
	}

	if _, err := common.SafeAddUint64(dst.Amount, amount); err != nil {
		return fmt.Errorf("credit of token account %s: %w", to, err)
	}

	if err := txn.updateTokenAccount(from, func(token *TokenAccount) error {
		token.Amount -= amount

		return nil
	}); err != nil {
		return err
	}

	return txn.updateTokenAccount(to, func(token *TokenAccount) error {
		token.Amount += amount

		return nil
	})
}

// AllocateToken credits token amount without a matching debit, creating the
// token account when needed. Used only to seed genesis balances.
func (txn *Txn) AllocateToken(addr, mint, authority types.Identity, amount uint64) error {
	ok, err := txn.HasAccount(addr)
	if err != nil {
		return err
	}

	if !ok {
		if err := txn.CreateTokenAccount(addr, mint, authority); err != nil {
			return err
		}
	}

	return txn.updateTokenAccount(addr, func(token *TokenAccount) error {
		if token.Mint != mint {
			return fmt.Errorf("%w: %s and %s", ErrMintMismatch, token.Mint, mint)
		}

		amount, err := common.SafeAddUint64(token.Amount, amount)
		if err != nil {
			return err
		}

		token.Amount = amount

		return nil
	})
}

// Emit appends an event to the pending event log
func (txn *Txn) Emit(name string, data []byte) {
	pending := txn.Events()

	events := make([]*Event, 0, len(pending)+1)
	events = append(events, pending...)
	events = append(events, &Event{Name: name, Data: append([]byte{}, data...)})

	txn.txn.Insert(eventsIndex, events)
}

// Events returns the pending events in emission order
func (txn *Txn) Events() []*Event {
	data, exists := txn.txn.Get(eventsIndex)
	if !exists {
		return nil
	}

	events, _ := data.([]*Event)

	return events
}

// Discard drops every pending mutation
func (txn *Txn) Discard() {
	txn.closed = true
	txn.snapshots = nil
	txn.txn = iradix.New().Txn()
}

// Commit validates the read set against the committed state and writes all
// pending accounts and events in a single storage batch. Committed events are
// returned with their assigned sequence numbers.
func (txn *Txn) Commit() ([]*Event, error) {
	if txn.closed {
		return nil, ErrTxnClosed
	}

	txn.closed = true

	l := txn.ledger

	l.lock.Lock()
	defer l.lock.Unlock()

	for addr, seen := range txn.readSet {
		acct, ok, err := l.readAccount(addr)
		if err != nil {
			return nil, err
		}

		current := uint64(0)
		if ok {
			current = acct.Version
		}

		if current != seen {
			metrics.IncrCounter([]string{"ledger", "conflict"}, 1)

			return nil, fmt.Errorf("%w: account %s at version %d, observed %d", ErrConflict, addr, current, seen)
		}
	}

	tree := txn.txn.Commit()
	batch := l.db.NewBatch()
	written := map[types.Identity]*Account{}

	var walkErr error

	tree.Root().WalkPrefix(accountPrefix, func(k []byte, v interface{}) bool {
		acct, ok := v.(*Account)
		if !ok {
			walkErr = ErrInvalidAccountTypeAssert

			return true
		}

		addr := types.BytesToIdentity(k[len(accountPrefix):])

		acct = acct.Copy()
		acct.Version = txn.readSet[addr] + 1

		batch.Put(storage.Key(storage.ACCOUNT, addr.Bytes()), acct.MarshalRLPTo(nil))
		written[addr] = acct

		return false
	})

	if walkErr != nil {
		return nil, walkErr
	}

	var committed []*Event

	if data, ok := tree.Get(eventsIndex); ok {
		pending, _ := data.([]*Event)
		committed = make([]*Event, 0, len(pending))

		for i, evnt := range pending {
			evnt = evnt.Copy()
			evnt.Seq = l.nextEventSeq + uint64(i)

			batch.Put(storage.Key(storage.EVENT, storage.EncodeUint(evnt.Seq)), evnt.MarshalRLPTo(nil))
			committed = append(committed, evnt)
		}

		batch.Put(
			storage.Key(storage.HEAD, storage.EVENT_SEQ),
			storage.EncodeUint(l.nextEventSeq+uint64(len(pending))),
		)
	}

	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("failed to write ledger batch: %w", err)
	}

	for addr, acct := range written {
		l.accountCache.Add(addr, acct)
	}

	l.nextEventSeq += uint64(len(committed))

	metrics.IncrCounter([]string{"ledger", "commit"}, 1)
	l.logger.Debug("committed", "accounts", len(written), "events", len(committed), "next event", l.nextEventSeq)

	if len(committed) > 0 {
		l.notify()
	}

	return committed, nil
}
