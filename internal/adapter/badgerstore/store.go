// Package badgerstore is a port.RecordStore backed by badgerhold.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"pdfrag/internal/domain"
)

type tableEntry struct {
	Name string
}

type documentEntry struct {
	Table      string `badgerhold:"index"`
	DocumentID string
}

// nodeRecord is the stored form of a domain.VectorRecord. Batch and Pos
// reproduce insertion order across re-ingestions.
type nodeRecord struct {
	Table      string
	DocumentID string `badgerhold:"index"`
	Batch      int64
	Pos        int
	ID         string
	Index      int
	Text       string
	Source     string
	Vector     []float32
	Timestamp  time.Time
}

type Store struct {
	store     *badgerhold.Store
	dimension int
	logger    arbor.ILogger
}

// Open opens (or creates) a badger database in dir.
func Open(dir string, dimension int, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", dir).Msg("Opening badger record store")

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Store{store: store, dimension: dimension, logger: logger}, nil
}

func (s *Store) EnsureTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("invalid table name %q", name)
	}
	if err := s.store.Upsert(name, tableEntry{Name: name}); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// Insert writes the whole batch inside one badger transaction.
func (s *Store) Insert(ctx context.Context, table string, records []domain.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var t tableEntry
	if err := s.store.Get(table, &t); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("table %s does not exist", table)
		}
		return fmt.Errorf("failed to read table %s: %w", table, err)
	}

	for _, rec := range records {
		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("record %s: %w: expected dimension %d, got %d",
				rec.ID, domain.ErrInvalidVector, s.dimension, len(rec.Vector))
		}
		if rec.DocumentID == "" {
			return fmt.Errorf("record %s has no document id", rec.ID)
		}
	}

	batch := time.Now().UnixNano()
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		for i, rec := range records {
			key := table + "/" + rec.ID
			node := nodeRecord{
				Table:      table,
				DocumentID: rec.DocumentID,
				Batch:      batch,
				Pos:        i,
				ID:         rec.ID,
				Index:      rec.Index,
				Text:       rec.Text,
				Source:     rec.Source,
				Vector:     rec.Vector,
				Timestamp:  rec.Timestamp,
			}
			if err := s.store.TxInsert(tx, key, node); err != nil {
				return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
			}
			doc := documentEntry{Table: table, DocumentID: rec.DocumentID}
			if err := s.store.TxUpsert(tx, table+"/"+rec.DocumentID, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("table", table).Int("records", len(records)).Msg("Inserted records")
	return nil
}

// Search returns the document's records in insertion order. The query vector
// is not used.
func (s *Store) Search(ctx context.Context, table, documentID string, _ []float32, limit int) ([]domain.VectorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := badgerhold.Where("DocumentID").Eq(documentID).
		And("Table").Eq(table).
		SortBy("Batch", "Pos")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var nodes []nodeRecord
	if err := s.store.Find(&nodes, query); err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}

	records := make([]domain.VectorRecord, len(nodes))
	for i, n := range nodes {
		records[i] = domain.VectorRecord{
			ID:         n.ID,
			DocumentID: n.DocumentID,
			Index:      n.Index,
			Text:       n.Text,
			Source:     n.Source,
			Vector:     n.Vector,
			Timestamp:  n.Timestamp,
		}
	}
	return records, nil
}

func (s *Store) Documents(ctx context.Context, table string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []documentEntry
	if err := s.store.Find(&entries, badgerhold.Where("Table").Eq(table).SortBy("DocumentID")); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.DocumentID
	}
	return ids, nil
}

func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
