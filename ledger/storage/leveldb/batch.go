package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/0xPolygon/custody-gateway/ledger/storage"
)

var _ storage.Batch = (*ledgerBatch)(nil)

// ledgerBatch is the commit batch of a ledger transaction. A successful
// Write empties it, so it can collect the next commit.
type ledgerBatch struct {
	db     *leveldb.DB
	writes *leveldb.Batch
}

func (b *ledgerBatch) Delete(key []byte) {
	b.writes.Delete(key)
}

func (b *ledgerBatch) Put(k []byte, v []byte) {
	b.writes.Put(k, v)
}

func (b *ledgerBatch) Write() error {
	if b.writes.Len() == 0 {
		return nil
	}

	if err := b.db.Write(b.writes, nil); err != nil {
		return err
	}

	b.writes.Reset()

	return nil
}
