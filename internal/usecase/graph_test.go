package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
)

const testTable = "document_graph_nodes"

func chunksOf(vectors ...[]float32) []domain.Chunk {
	out := make([]domain.Chunk, len(vectors))
	for i, v := range vectors {
		out[i] = domain.Chunk{Index: i, DocumentID: "doc", Text: "t", Embedding: v}
	}
	return out
}

func TestBuildGraph_Threshold(t *testing.T) {
	chunks := chunksOf(
		[]float32{1, 0},
		[]float32{0.9, 0.1}, // ~0.994 to chunk 0
		[]float32{0, 1},     // 0 to chunk 0, ~0.11 to chunk 1
	)

	g := BuildGraph("doc", chunks, 0.7)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, 0, g.Edges[0].NodeA)
	assert.Equal(t, 1, g.Edges[0].NodeB)
	assert.InDelta(t, 0.9939, g.Edges[0].Weight, 1e-3)
	assert.Len(t, g.Nodes, 3)
	assert.Equal(t, []int{1}, g.Neighbors(0))
	assert.Empty(t, g.Neighbors(2))
}

func TestBuildGraph_StrictlyGreater(t *testing.T) {
	chunks := chunksOf([]float32{1, 2}, []float32{1, 2})

	assert.Empty(t, BuildGraph("doc", chunks, 1).Edges, "similarity equal to the threshold is not an edge")
	assert.Len(t, BuildGraph("doc", chunks, 0.99).Edges, 1)
}

func TestBuildGraph_SkipsUnusableVectors(t *testing.T) {
	chunks := chunksOf([]float32{1, 0}, []float32{0, 0}, []float32{1, 0})

	g := BuildGraph("doc", chunks, 0.7)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, domain.SimilarityEdge{NodeA: 0, NodeB: 2, Weight: 1}, g.Edges[0])
	for _, e := range g.Edges {
		assert.Less(t, e.NodeA, e.NodeB)
	}
}

func TestBuildGraph_Empty(t *testing.T) {
	g := BuildGraph("doc", nil, 0.7)
	assert.NotNil(t, g.Edges)
	assert.Empty(t, g.Edges)
}

func TestGraphBuilder_BuildStoresRecords(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewMemoryStore(2)
	b := NewGraphBuilder(store, testTable, 0.7, arbor.NewLogger())
	ts := time.Unix(1700000000, 42)
	b.now = func() time.Time { return ts }

	g, err := b.BuildWithSource(ctx, "doc", "paper.pdf", []domain.EmbeddedText{
		{Text: "a", Embedding: []float32{1, 0}},
		{Text: "b", Embedding: []float32{1, 0.1}},
	})
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1)

	recs, err := store.Search(ctx, testTable, "doc", nil, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for i, r := range recs {
		assert.Equal(t, RecordID("doc", i, ts), r.ID)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "paper.pdf", r.Source)
		assert.True(t, ts.Equal(r.Timestamp))
	}
	assert.Equal(t, "doc_1_1700000000000000042", recs[1].ID)
}

func TestGraphBuilder_StoreFailure(t *testing.T) {
	ctx := context.Background()

	b := NewGraphBuilder(brokenStore{}, testTable, 0.7, arbor.NewLogger())
	_, err := b.Build(ctx, "doc", []domain.EmbeddedText{{Text: "a", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrStorageWrite)
	assert.ErrorIs(t, err, errBroken)

	store := memstore.NewMemoryStore(3)
	b = NewGraphBuilder(store, testTable, 0.7, arbor.NewLogger())
	_, err = b.Build(ctx, "doc", []domain.EmbeddedText{
		{Text: "a", Embedding: []float32{1, 0, 0}},
		{Text: "b", Embedding: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrStorageWrite)
	assert.ErrorIs(t, err, domain.ErrInvalidVector)

	recs, err := store.Search(ctx, testTable, "doc", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGraphBuilder_RejectsZeroMagnitudeText(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewMemoryStore(2)
	b := NewGraphBuilder(store, testTable, 0.7, arbor.NewLogger())

	_, err := b.Build(ctx, "doc", []domain.EmbeddedText{
		{Text: "hello world", Embedding: []float32{1, 0}},
		{Text: "* * * ---", Embedding: []float32{0, 0}},
		{Text: "another hello", Embedding: []float32{1, 0.2}},
	})
	assert.ErrorIs(t, err, domain.ErrStorageWrite)
	assert.ErrorIs(t, err, domain.ErrInvalidVector)

	recs, err := store.Search(ctx, testTable, "doc", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, recs, "nothing is stored when a chunk cannot be scored")

	_, err = b.Build(ctx, "doc", []domain.EmbeddedText{
		{Text: "hello world", Embedding: []float32{1, 0}},
		{Text: "  ", Embedding: []float32{0, 0}},
	})
	require.NoError(t, err, "blank chunks are never scored")
}

func TestGraphBuilder_RequiresDocumentID(t *testing.T) {
	b := NewGraphBuilder(memstore.NewMemoryStore(1), testTable, 0.7, arbor.NewLogger())
	_, err := b.Build(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestGraphFromRecords_LatestIngestion(t *testing.T) {
	old := time.Unix(100, 0)
	latest := time.Unix(200, 0)
	records := []domain.VectorRecord{
		{ID: "doc_0_100", Index: 0, Text: "old", Vector: []float32{1, 0}, Timestamp: old},
		{ID: "doc_1_100", Index: 1, Text: "old", Vector: []float32{1, 0}, Timestamp: old},
		{ID: "doc_0_200", Index: 0, Text: "new", Vector: []float32{1, 0}, Timestamp: latest},
		{ID: "doc_1_200", Index: 1, Text: "new", Vector: []float32{0, 1}, Timestamp: latest},
	}

	g := GraphFromRecords("doc", records, 0.7)

	require.Len(t, g.Nodes, 2)
	for _, n := range g.Nodes {
		assert.Equal(t, "new", n.Text)
	}
	assert.Empty(t, g.Edges)
}
