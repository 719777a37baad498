package port

import (
	"context"

	"pdfrag/internal/domain"
)

// RecordStore persists chunk records and searches them by document.
type RecordStore interface {
	// EnsureTable creates the named table if it does not exist yet.
	EnsureTable(ctx context.Context, name string) error

	// Insert appends records to a table in a single batch. Either all
	// records are written or none are.
	Insert(ctx context.Context, table string, records []domain.VectorRecord) error

	// Search returns the records of one document, vectors included, in
	// insertion order. A limit <= 0 returns every record of the document.
	// The query vector may be used by implementations that pre-rank; callers
	// must not rely on any ordering other than insertion order.
	Search(ctx context.Context, table, documentID string, query []float32, limit int) ([]domain.VectorRecord, error)

	// Documents lists the distinct document ids stored in a table.
	Documents(ctx context.Context, table string) ([]string, error)

	Close() error
}
