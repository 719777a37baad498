package port

import (
	"context"

	"pdfrag/internal/domain"
)

// AnswerGenerator answers a query from retrieved chunks. The returned string
// is the raw structured output of the model and still has to be parsed into
// a domain.RelevanceDecision.
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, chunks []domain.RetrievalResult) (string, error)
}

// FallbackAgent answers a query from general knowledge when the document
// holds nothing relevant.
type FallbackAgent interface {
	Run(ctx context.Context, query string) (string, error)
}
