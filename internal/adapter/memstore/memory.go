package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pdfrag/internal/domain"
)

// MemoryStore is an in-process port.RecordStore. Nothing survives Close.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	tables    map[string]map[string][]domain.VectorRecord
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		tables:    make(map[string]map[string][]domain.VectorRecord),
	}
}

func (s *MemoryStore) EnsureTable(_ context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("invalid table name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		s.tables[name] = make(map[string][]domain.VectorRecord)
	}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, table string, records []domain.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.tables[table]
	if !ok {
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
	}
	for _, rec := range records {
		rec.Vector = append([]float32(nil), rec.Vector...)
		docs[rec.DocumentID] = append(docs[rec.DocumentID], rec)
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, table, documentID string, _ []float32, limit int) ([]domain.VectorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.tables[table][documentID]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	out := make([]domain.VectorRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (s *MemoryStore) Documents(_ context.Context, table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tables[table]))
	for id := range s.tables[table] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]map[string][]domain.VectorRecord)
	return nil
}
