package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
	"pdfrag/internal/similarity"
)

// GraphBuilder persists a document's embedded chunks and links chunks whose
// cosine similarity exceeds the threshold.
type GraphBuilder struct {
	store     port.RecordStore
	table     string
	threshold float64
	logger    arbor.ILogger
	now       func() time.Time
}

func NewGraphBuilder(store port.RecordStore, table string, threshold float64, logger arbor.ILogger) *GraphBuilder {
	return &GraphBuilder{
		store:     store,
		table:     table,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Build stores pairs under documentID and returns the similarity graph.
func (b *GraphBuilder) Build(ctx context.Context, documentID string, pairs []domain.EmbeddedText) (*domain.Graph, error) {
	return b.BuildWithSource(ctx, documentID, "", pairs)
}

// BuildWithSource is Build with the origin of the PDF recorded on every
// record. Records are written before any edge is computed; a failed write
// aborts the build. A chunk with text but a zero-magnitude embedding can
// never be scored, so it fails the build before anything is stored.
func (b *GraphBuilder) BuildWithSource(ctx context.Context, documentID, source string, pairs []domain.EmbeddedText) (*domain.Graph, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}

	ts := b.now()
	chunks := make([]domain.Chunk, len(pairs))
	records := make([]domain.VectorRecord, len(pairs))
	for i, p := range pairs {
		if !isBlank(p.Text) && zeroMagnitude(p.Embedding) {
			return nil, fmt.Errorf("%w: chunk %d: %w: zero-magnitude embedding", domain.ErrStorageWrite, i, domain.ErrInvalidVector)
		}
		chunks[i] = domain.Chunk{
			Index:      i,
			DocumentID: documentID,
			Text:       p.Text,
			Embedding:  p.Embedding,
		}
		records[i] = domain.VectorRecord{
			ID:         RecordID(documentID, i, ts),
			DocumentID: documentID,
			Index:      i,
			Text:       p.Text,
			Source:     source,
			Vector:     p.Embedding,
			Timestamp:  ts,
		}
	}

	if err := b.store.EnsureTable(ctx, b.table); err != nil {
		return nil, fmt.Errorf("%w: failed to ensure table %s: %w", domain.ErrStorageWrite, b.table, err)
	}
	if err := b.store.Insert(ctx, b.table, records); err != nil {
		return nil, fmt.Errorf("%w: failed to insert %d records: %w", domain.ErrStorageWrite, len(records), err)
	}

	graph := BuildGraph(documentID, chunks, b.threshold)

	b.logger.Info().
		Str("document_id", documentID).
		Int("nodes", len(graph.Nodes)).
		Int("edges", len(graph.Edges)).
		Msg("Stored document graph")

	return graph, nil
}

// RecordID is unique per ingestion attempt, so re-ingesting a document never
// overwrites earlier records.
func RecordID(documentID string, index int, ts time.Time) string {
	return fmt.Sprintf("%s_%d_%d", documentID, index, ts.UnixNano())
}

// BuildGraph links every pair i<j whose similarity is strictly greater than
// threshold. Pairs with unusable vectors get no edge.
func BuildGraph(documentID string, chunks []domain.Chunk, threshold float64) *domain.Graph {
	graph := &domain.Graph{
		DocumentID: documentID,
		Nodes:      chunks,
		Edges:      []domain.SimilarityEdge{},
	}
	for i := 0; i < len(chunks); i++ {
		for j := i + 1; j < len(chunks); j++ {
			sim, err := similarity.Cosine(chunks[i].Embedding, chunks[j].Embedding)
			if err != nil {
				continue
			}
			if sim > threshold {
				graph.Edges = append(graph.Edges, domain.SimilarityEdge{
					NodeA:  chunks[i].Index,
					NodeB:  chunks[j].Index,
					Weight: sim,
				})
			}
		}
	}
	return graph
}

// GraphFromRecords rebuilds the graph of the most recent ingestion found
// among records.
func GraphFromRecords(documentID string, records []domain.VectorRecord, threshold float64) *domain.Graph {
	var latest time.Time
	for _, r := range records {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}

	var chunks []domain.Chunk
	for _, r := range records {
		if !r.Timestamp.Equal(latest) {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Index:      r.Index,
			DocumentID: documentID,
			Text:       r.Text,
			Embedding:  r.Vector,
		})
	}
	return BuildGraph(documentID, chunks, threshold)
}
