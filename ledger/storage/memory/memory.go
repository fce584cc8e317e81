package memory

import (
	"bytes"
	"sync"

	"github.com/hashicorp/go-hclog"
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/0xPolygon/custody-gateway/ledger/storage"
)

// NewMemoryStorage creates the new storage reference with inmemory
func NewMemoryStorage(logger hclog.Logger) (storage.KV, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &memoryKV{
		db:     iradix.New(),
		logger: logger.Named("memory"),
	}, nil
}

// memoryKV is an in memory implementation of the kv storage. The tree is
// immutable, so readers iterate a root without holding the lock.
type memoryKV struct {
	lock   sync.RWMutex
	db     *iradix.Tree
	logger hclog.Logger
}

func (m *memoryKV) root() *iradix.Tree {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.db
}

func (m *memoryKV) Set(p []byte, v []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.db, _, _ = m.db.Insert(p, copyBytes(v))

	return nil
}

func (m *memoryKV) Get(p []byte) ([]byte, bool, error) {
	v, ok := m.root().Get(p)
	if !ok {
		return nil, false, nil
	}

	return copyBytes(v.([]byte)), true, nil
}

func (m *memoryKV) Delete(p []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.db, _, _ = m.db.Delete(p)

	return nil
}

func (m *memoryKV) NewBatch() storage.Batch {
	return &batchMemory{db: m}
}

func (m *memoryKV) Iterate(prefix, start []byte, fn func(k, v []byte) bool) error {
	iter := m.root().Root().Iterator()
	iter.SeekLowerBound(storage.IterStart(prefix, start))

	for k, v, ok := iter.Next(); ok && bytes.HasPrefix(k, prefix); k, v, ok = iter.Next() {
		if !fn(copyBytes(k), copyBytes(v.([]byte))) {
			break
		}
	}

	return nil
}

func (m *memoryKV) Close() error {
	m.logger.Debug("closing in-memory storage", "keys", m.root().Len())

	return nil
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// batchMemory buffers writes and applies them in one radix transaction
type batchMemory struct {
	db  *memoryKV
	ops []batchOp
}

func (b *batchMemory) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: copyBytes(key), delete: true})
}

func (b *batchMemory) Put(k []byte, v []byte) {
	b.ops = append(b.ops, batchOp{key: copyBytes(k), value: copyBytes(v)})
}

func (b *batchMemory) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	txn := b.db.db.Txn()

	for _, op := range b.ops {
		if op.delete {
			txn.Delete(op.key)
		} else {
			txn.Insert(op.key, op.value)
		}
	}

	b.db.db = txn.Commit()
	b.ops = nil

	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}
