package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/0xPolygon/custody-gateway/ledger/storage"
	"github.com/0xPolygon/custody-gateway/types"
)

const (
	// DefaultAccountCacheSize is the number of committed accounts kept in memory
	DefaultAccountCacheSize = 1024
)

var (
	ErrAccountNotFound          = errors.New("account not found")
	ErrAccountExists            = errors.New("account already exists")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrConflict                 = errors.New("transaction conflicts with a concurrent commit")
	ErrTxnClosed                = errors.New("transaction already committed or discarded")
	ErrNotTokenAccount          = errors.New("account is not a token account")
	ErrMintMismatch             = errors.New("token accounts hold different mints")
	ErrInvalidAccountTypeAssert = errors.New("invalid type assertion for account")
)

// Ledger is the committed account state and the append-only event log
// on top of a key value storage
type Ledger struct {
	logger hclog.Logger
	db     storage.KV

	// lock guards committed state; commits take it exclusively
	lock         sync.RWMutex
	accountCache *lru.Cache
	nextEventSeq uint64

	subsLock sync.Mutex
	subs     map[int]chan struct{}
	subsID   int
}

// NewLedger opens a ledger on top of db
func NewLedger(db storage.KV, logger hclog.Logger, cacheSize int) (*Ledger, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultAccountCacheSize
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create account cache, %w", err)
	}

	l := &Ledger{
		logger:       logger.Named("ledger"),
		db:           db,
		accountCache: cache,
		subs:         map[int]chan struct{}{},
	}

	data, ok, err := db.Get(storage.Key(storage.HEAD, storage.EVENT_SEQ))
	if err != nil {
		return nil, err
	}

	if ok {
		seq, valid := storage.DecodeUint(data)
		if !valid {
			return nil, fmt.Errorf("malformed event sequence head of %d bytes", len(data))
		}

		l.nextEventSeq = seq
	}

	l.logger.Debug("ledger opened", "next event", l.nextEventSeq)

	return l, nil
}

// Begin starts a new unit of work on top of the committed state
func (l *Ledger) Begin() *Txn {
	return newTxn(l)
}

// GetAccount returns the committed account at addr
func (l *Ledger) GetAccount(addr types.Identity) (*Account, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	acct, ok, err := l.readAccount(addr)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}

	return acct.Copy(), nil
}

// GetTokenAccount returns the committed token account at addr
func (l *Ledger) GetTokenAccount(addr types.Identity) (*TokenAccount, error) {
	acct, err := l.GetAccount(addr)
	if err != nil {
		return nil, err
	}

	return decodeTokenAccount(addr, acct)
}

// readAccount reads committed state, the caller holds lock
func (l *Ledger) readAccount(addr types.Identity) (*Account, bool, error) {
	if cached, ok := l.accountCache.Get(addr); ok {
		acct, ok := cached.(*Account)
		if !ok {
			return nil, false, ErrInvalidAccountTypeAssert
		}

		return acct, true, nil
	}

	data, ok, err := l.db.Get(storage.Key(storage.ACCOUNT, addr.Bytes()))
	if err != nil || !ok {
		return nil, false, err
	}

	acct := new(Account)
	if err := acct.UnmarshalRLP(data); err != nil {
		return nil, false, fmt.Errorf("failed to decode account %s: %w", addr, err)
	}

	l.accountCache.Add(addr, acct)

	return acct, true, nil
}

// NextEventSeq returns the sequence number the next committed event gets
func (l *Ledger) NextEventSeq() uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.nextEventSeq
}

// Events returns at most limit committed events starting at sequence from
func (l *Ledger) Events(from uint64, limit int) ([]*Event, error) {
	events := make([]*Event, 0)

	if limit <= 0 {
		return events, nil
	}

	var decodeErr error

	start := storage.Key(storage.EVENT, storage.EncodeUint(from))

	err := l.db.Iterate(storage.EVENT, start, func(k, v []byte) bool {
		seq, ok := storage.DecodeUint(k[len(storage.EVENT):])
		if !ok {
			return true
		}

		evnt := new(Event)
		if decodeErr = evnt.UnmarshalRLP(v); decodeErr != nil {
			decodeErr = fmt.Errorf("failed to decode event %d: %w", seq, decodeErr)

			return false
		}

		events = append(events, evnt)

		return len(events) < limit
	})
	if err != nil {
		return nil, err
	}

	if decodeErr != nil {
		return nil, decodeErr
	}

	return events, nil
}

// Subscribe returns a channel notified after every commit that emitted events.
// The notification is coalesced, receivers must query Events for the content.
func (l *Ledger) Subscribe() (<-chan struct{}, func()) {
	l.subsLock.Lock()
	defer l.subsLock.Unlock()

	id := l.subsID
	l.subsID++

	ch := make(chan struct{}, 1)
	l.subs[id] = ch

	cancel := func() {
		l.subsLock.Lock()
		defer l.subsLock.Unlock()

		delete(l.subs, id)
	}

	return ch, cancel
}

func (l *Ledger) notify() {
	l.subsLock.Lock()
	defer l.subsLock.Unlock()

	for _, ch := range l.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close closes the underlying storage
func (l *Ledger) Close() error {
	return l.db.Close()
}
