package port

import (
	"context"

	"pdfrag/internal/domain"
)

// Retriever ranks a document's chunks against a query.
type Retriever interface {
	Retrieve(ctx context.Context, documentID, query string, topK int) ([]domain.RetrievalResult, error)
}
