package boltdb

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"

	"github.com/0xPolygon/custody-gateway/ledger/storage"
)

var (
	// bucket holding every key of the ledger
	ledgerBucket = []byte("ledger")
)

// NewBoltDBStorage creates the new storage reference with boltdb
func NewBoltDBStorage(path string, logger hclog.Logger) (storage.KV, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create bucket=%s: %w", string(ledgerBucket), err)
	}

	logger.Named("boltdb").Info("opened storage", "path", path)

	return &boltDBKV{db: db}, nil
}

// boltDBKV is the boltdb implementation of the kv storage
type boltDBKV struct {
	db *bolt.DB
}

func (l *boltDBKV) Set(p []byte, v []byte) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).Put(p, v)
	})
}

func (l *boltDBKV) Get(p []byte) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)

	err := l.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(ledgerBucket).Get(p); v != nil {
			// v is only valid for the lifetime of the tx, therefore copying
			data = make([]byte, len(v))
			copy(data, v)
			found = true
		}

		return nil
	})

	return data, found, err
}

func (l *boltDBKV) Delete(p []byte) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).Delete(p)
	})
}

func (l *boltDBKV) NewBatch() storage.Batch {
	return &batchBoltDB{db: l.db}
}

func (l *boltDBKV) Iterate(prefix, start []byte, fn func(k, v []byte) bool) error {
	return l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(ledgerBucket).Cursor()

		for k, v := c.Seek(storage.IterStart(prefix, start)); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !fn(append([]byte{}, k...), append([]byte{}, v...)) {
				break
			}
		}

		return nil
	})
}

func (l *boltDBKV) Close() error {
	return l.db.Close()
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// batchBoltDB applies all buffered writes inside one bolt transaction
type batchBoltDB struct {
	db  *bolt.DB
	ops []batchOp
}

func (b *batchBoltDB) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte{}, key...), delete: true})
}

func (b *batchBoltDB) Put(k []byte, v []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte{}, k...), value: append([]byte{}, v...)})
}

func (b *batchBoltDB) Write() error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ledgerBucket)

		for _, op := range b.ops {
			var err error

			if op.delete {
				err = bucket.Delete(op.key)
			} else {
				err = bucket.Put(op.key, op.value)
			}

			if err != nil {
				return err
			}
		}

		return nil
	})
	if err == nil {
		b.ops = nil
	}

	return err
}
