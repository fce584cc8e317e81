package relayer

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/0xPolygon/custody-gateway/helper/common"
)

var (
	relayerCursorBucket = []byte("relayerCursor")
	relayerEventsBucket = []byte("relayerEvents")

	nextSeqKey = []byte("next")
)

// EventData keeps the delivery state of a ledger event
type EventData struct {
	Seq        uint64 `json:"seq"`
	Name       string `json:"name"`
	DeliveryID string `json:"deliveryID"`
	CountTries uint64 `json:"countTries"`
	Failed     bool   `json:"failed"`
	LastError  string `json:"lastError,omitempty"`
}

func (ed EventData) String() string {
	return fmt.Sprintf("%d", ed.Seq)
}

/*
Bolt DB schema:

relayerCursor/
|--> next -> sequence of the next event to relay
relayerEvents/
|--> EventData.Seq -> *EventData (json marshalled)
*/
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the relayer store at the given path
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(s.initialize); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// initialize creates necessary buckets in DB if they don't already exist
func (s *Store) initialize(tx *bolt.Tx) error {
	if _, err := tx.CreateBucketIfNotExists(relayerCursorBucket); err != nil {
		return fmt.Errorf("failed to create bucket=%s: %w", string(relayerCursorBucket), err)
	}

	if _, err := tx.CreateBucketIfNotExists(relayerEventsBucket); err != nil {
		return fmt.Errorf("failed to create bucket=%s: %w", string(relayerEventsBucket), err)
	}

	return nil
}

// NextSeq returns the sequence of the first event not yet relayed
func (s *Store) NextSeq() (uint64, error) {
	var next uint64

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(relayerCursorBucket).Get(nextSeqKey); v != nil {
			next = common.EncodeBytesToUint64(v)
		}

		return nil
	})

	return next, err
}

// getEvent returns the delivery state of an event, nil if the event was never attempted
func (s *Store) getEvent(seq uint64) (*EventData, error) {
	var data *EventData

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(relayerEventsBucket).Get(common.EncodeUint64ToBytes(seq))
		if v == nil {
			return nil
		}

		data = new(EventData)

		return json.Unmarshal(v, data)
	})

	return data, err
}

// updateEvent persists the delivery state of an event
func (s *Store) updateEvent(data *EventData) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putEvent(tx, data)
	})
}

// complete moves the cursor past the event. Failed events are kept for inspection,
// delivered ones are removed.
func (s *Store) complete(data *EventData) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := common.EncodeUint64ToBytes(data.Seq)

		if data.Failed {
			if err := putEvent(tx, data); err != nil {
				return err
			}
		} else if err := tx.Bucket(relayerEventsBucket).Delete(key); err != nil {
			return err
		}

		return tx.Bucket(relayerCursorBucket).Put(nextSeqKey, common.EncodeUint64ToBytes(data.Seq+1))
	})
}

// FailedEvents returns the events given up after exhausting all delivery attempts
func (s *Store) FailedEvents() ([]*EventData, error) {
	var events []*EventData

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(relayerEventsBucket).ForEach(func(_, v []byte) error {
			data := new(EventData)
			if err := json.Unmarshal(v, data); err != nil {
				return err
			}

			if data.Failed {
				events = append(events, data)
			}

			return nil
		})
	})

	return events, err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func putEvent(tx *bolt.Tx, data *EventData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return tx.Bucket(relayerEventsBucket).Put(common.EncodeUint64ToBytes(data.Seq), raw)
}
