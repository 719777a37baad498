package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"pdfrag/internal/domain"
)

var bucketMeta = []byte("meta")

// BoltRecordStore implements port.RecordStore on a single bbolt file.
//
// Each table is a top-level bucket holding one nested bucket per document.
// Records inside a document bucket are keyed by the bucket sequence, so a
// cursor walk yields them in insertion order.
type BoltRecordStore struct {
	db        *bbolt.DB
	dimension int
}

type storedRecord struct {
	ID        string    `json:"id"`
	Index     int       `json:"i"`
	Text      string    `json:"t"`
	Source    string    `json:"s,omitempty"`
	Vector    []float32 `json:"v"`
	Timestamp time.Time `json:"ts"`
}

// NewBoltRecordStore opens (or creates) the store at path. dimension is the
// vector length every inserted record must have.
func NewBoltRecordStore(path string, dimension int) (*BoltRecordStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltRecordStore{db: db, dimension: dimension}, nil
}

func (s *BoltRecordStore) EnsureTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name == string(bucketMeta) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		return nil
	})
}

// Insert writes all records in one transaction; any invalid record aborts
// the whole batch.
func (s *BoltRecordStore) Insert(ctx context.Context, table string, records []domain.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		tb := tx.Bucket([]byte(table))
		if tb == nil {
			return fmt.Errorf("table %s does not exist", table)
		}

		for _, rec := range records {
			if len(rec.Vector) != s.dimension {
				return fmt.Errorf("record %s: %w: expected dimension %d, got %d",
					rec.ID, domain.ErrInvalidVector, s.dimension, len(rec.Vector))
			}
			if rec.DocumentID == "" {
				return fmt.Errorf("record %s has no document id", rec.ID)
			}

			docBucket, err := tb.CreateBucketIfNotExists([]byte(rec.DocumentID))
			if err != nil {
				return fmt.Errorf("failed to create document bucket: %w", err)
			}
			seq, err := docBucket.NextSequence()
			if err != nil {
				return err
			}

			data, err := json.Marshal(storedRecord{
				ID:        rec.ID,
				Index:     rec.Index,
				Text:      rec.Text,
				Source:    rec.Source,
				Vector:    rec.Vector,
				Timestamp: rec.Timestamp,
			})
			if err != nil {
				return err
			}
			if err := docBucket.Put(seqKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Search returns the document's records in insertion order. The query vector
// is not used for ordering; ranking is left to the caller.
func (s *BoltRecordStore) Search(ctx context.Context, table, documentID string, query []float32, limit int) ([]domain.VectorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []domain.VectorRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		tb := tx.Bucket([]byte(table))
		if tb == nil {
			return nil
		}
		docBucket := tb.Bucket([]byte(documentID))
		if docBucket == nil {
			return nil
		}

		c := docBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("failed to decode record %x: %w", k, err)
			}
			records = append(records, domain.VectorRecord{
				ID:         stored.ID,
				DocumentID: documentID,
				Index:      stored.Index,
				Text:       stored.Text,
				Source:     stored.Source,
				Vector:     stored.Vector,
				Timestamp:  stored.Timestamp,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BoltRecordStore) Documents(ctx context.Context, table string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		tb := tx.Bucket([]byte(table))
		if tb == nil {
			return nil
		}
		return tb.ForEach(func(k, v []byte) error {
			// nested buckets have a nil value
			if v == nil {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	return ids, err
}

// Count returns the number of records stored for a document.
func (s *BoltRecordStore) Count(table, documentID string) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		tb := tx.Bucket([]byte(table))
		if tb == nil {
			return nil
		}
		if docBucket := tb.Bucket([]byte(documentID)); docBucket != nil {
			n = docBucket.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (s *BoltRecordStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
