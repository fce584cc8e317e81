package leveldb

import (
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/0xPolygon/custody-gateway/ledger/storage"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// NewLevelDBStorage creates the new storage reference with leveldb
func NewLevelDBStorage(path string, logger hclog.Logger) (storage.KV, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	options := &opt.Options{
		OpenFilesCacheCapacity: minHandles,
		BlockCacheCapacity:     minCache / 2 * opt.MiB,
		WriteBuffer:            minCache / 4 * opt.MiB,
	}

	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, err
	}

	logger.Named("leveldb").Info("opened storage", "path", path)

	return &levelDBKV{db: db}, nil
}

// levelDBKV is the leveldb implementation of the kv storage
type levelDBKV struct {
	db *leveldb.DB
}

// Set sets the key-value pair in leveldb storage
func (l *levelDBKV) Set(p []byte, v []byte) error {
	return l.db.Put(p, v, nil)
}

// Get retrieves the key-value pair in leveldb storage
func (l *levelDBKV) Get(p []byte) ([]byte, bool, error) {
	data, err := l.db.Get(p, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return data, true, nil
}

// Delete removes the key from leveldb storage
func (l *levelDBKV) Delete(p []byte) error {
	return l.db.Delete(p, nil)
}

func (l *levelDBKV) NewBatch() storage.Batch {
	return &ledgerBatch{db: l.db, writes: new(leveldb.Batch)}
}

// Iterate walks the keys under prefix from start in ascending order
func (l *levelDBKV) Iterate(prefix, start []byte, fn func(k, v []byte) bool) error {
	rng := util.BytesPrefix(prefix)
	rng.Start = storage.IterStart(prefix, start)

	iter := l.db.NewIterator(rng, nil)
	defer iter.Release()

	for iter.Next() {
		// iterator buffers are reused between steps
		k := append([]byte{}, iter.Key()...)
		v := append([]byte{}, iter.Value()...)

		if !fn(k, v) {
			break
		}
	}

	return iter.Error()
}

// Close closes the leveldb storage instance
func (l *levelDBKV) Close() error {
	return l.db.Close()
}
