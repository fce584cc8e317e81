package storage

import (
	"bytes"
	"encoding/binary"
)

// prefix

var (
	// ACCOUNT is the prefix for ledger accounts
	ACCOUNT = []byte("a")

	// EVENT is the prefix for emitted events, keyed by sequence number
	EVENT = []byte("e")

	// HEAD is the prefix for ledger head metadata
	HEAD = []byte("o")
)

// sub-prefix

var (
	EVENT_SEQ = []byte("eventSeq")
)

// KV is a key value storage interface
type KV interface {
	Close() error
	Set(k []byte, v []byte) error
	Get(k []byte) ([]byte, bool, error)
	Delete(k []byte) error
	NewBatch() Batch

	// Iterate walks the keys with the given prefix that sort at or after
	// start, in ascending byte order, until fn returns false. A start below
	// the prefix walks the whole prefix.
	Iterate(prefix, start []byte, fn func(k, v []byte) bool) error
}

// Batch accumulates writes that are applied atomically by Write
type Batch interface {
	Delete(key []byte)
	Put(k []byte, v []byte)
	Write() error
}

// Key joins a prefix with a key into a fresh slice
func Key(prefix []byte, key []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(key))
	buf = append(buf, prefix...)

	return append(buf, key...)
}

// IterStart returns the first key Iterate visits for prefix and start
func IterStart(prefix, start []byte) []byte {
	if bytes.Compare(start, prefix) > 0 {
		return start
	}

	return prefix
}

// EncodeUint encodes n as a sortable big-endian key
func EncodeUint(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)

	return b
}

// DecodeUint decodes a big-endian key, returning false for malformed input
func DecodeUint(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}

	return binary.BigEndian.Uint64(b), true
}
