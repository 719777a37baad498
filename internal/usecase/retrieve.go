package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
	"pdfrag/internal/similarity"
)

// DefaultTopK is used when neither the caller nor the config sets top_k.
const DefaultTopK = 3

// Retriever ranks the stored chunks of one document against a query. It is
// read-only and safe for concurrent use.
type Retriever struct {
	embedder    port.Embedder
	store       port.RecordStore
	table       string
	defaultTopK int
	timeout     time.Duration
	logger      arbor.ILogger
}

func NewRetriever(embedder port.Embedder, store port.RecordStore, table string, defaultTopK int, timeout time.Duration, logger arbor.ILogger) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{
		embedder:    embedder,
		store:       store,
		table:       table,
		defaultTopK: defaultTopK,
		timeout:     timeout,
		logger:      logger,
	}
}

// Retrieve ranks every chunk of the document against the query, keeps the
// topK best and returns those with non-blank text, ordered by descending
// similarity. topK <= 0 selects the default.
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	queryVec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	records, err := r.store.Search(ctx, r.table, documentID, queryVec, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageRead, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
	}

	// A blank chunk still takes its slot in the ranking and is dropped after
	// truncation, so it can push a weaker non-blank chunk out of the top k.
	candidates := make([]domain.VectorRecord, 0, len(records))
	for _, rec := range records {
		if isBlank(rec.Text) && !usableVector(rec.Vector, len(queryVec)) {
			continue
		}
		candidates = append(candidates, rec)
	}

	vectors := make([][]float32, len(candidates))
	for i, c := range candidates {
		vectors[i] = c.Vector
	}
	scores, err := similarity.CosineBatch(queryVec, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to score document %s: %w", documentID, err)
	}

	ranked := make([]domain.RetrievalResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.RetrievalResult{
			NodeID:     c.ID,
			Text:       c.Text,
			Similarity: scores[i],
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]domain.RetrievalResult, 0, len(ranked))
	for _, res := range ranked {
		if !isBlank(res.Text) {
			results = append(results, res)
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNoRelevantChunks, documentID)
	}

	r.logger.Debug().
		Str("document_id", documentID).
		Int("candidates", len(records)).
		Int("returned", len(results)).
		Msg("Retrieved chunks")

	return results, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	vecs, err := r.embedder.Embed(callCtx, []string{query})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmbedding):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %w: query embedding", domain.ErrEmbedding, domain.ErrUpstreamTimeout)
		default:
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vector for the query", domain.ErrEmbedding)
	}
	if zeroMagnitude(vecs[0]) {
		return nil, fmt.Errorf("%w: %w: zero-magnitude query vector", domain.ErrEmbedding, domain.ErrInvalidVector)
	}
	return vecs[0], nil
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

func usableVector(v []float32, dim int) bool {
	return len(v) == dim && !zeroMagnitude(v)
}

func zeroMagnitude(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
