package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"pdfrag/config"
	"pdfrag/internal/adapter/badgerstore"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

func TestOpenStore_Backends(t *testing.T) {
	tests := []struct {
		backend string
		check   func(t *testing.T, v any)
	}{
		{"bolt", func(t *testing.T, v any) { assert.IsType(t, &store.BoltRecordStore{}, v) }},
		{"badger", func(t *testing.T, v any) { assert.IsType(t, &badgerstore.Store{}, v) }},
		{"memory", func(t *testing.T, v any) { assert.IsType(t, &memstore.MemoryStore{}, v) }},
	}

	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Store.Backend = tc.backend

			st, err := OpenStore(cfg, t.TempDir(), arbor.NewLogger())
			require.NoError(t, err)
			defer st.Close()
			tc.check(t, st)
		})
	}
}

func TestOpenStore_RejectsChangedEmbeddingModel(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	st, err := OpenStore(cfg, dir, arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cfg.Embedding.Model = "text-embedding-3-large"
	_, err = OpenStore(cfg, dir, arbor.NewLogger())
	assert.ErrorContains(t, err, "incompatible")
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = "lancedb"
	_, err := OpenStore(cfg, t.TempDir(), arbor.NewLogger())
	assert.Error(t, err)
}

func TestNewAnswerUseCase_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "none"
	_, err := NewAnswerUseCase(cfg, nil, arbor.NewLogger())
	assert.Error(t, err)
}

func TestNewQueryCache(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.NotNil(t, NewQueryCache(cfg))

	cfg.Retrieve.CacheSize = 0
	assert.Nil(t, NewQueryCache(cfg))
}

// Store chunks embedded by the mock embedder in bolt and rank them back.
func TestStoreAndRetrieve_Mock(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 32
	cfg.Store.Dimension = 32
	logger := arbor.NewLogger()

	st, err := OpenStore(cfg, t.TempDir(), logger)
	require.NoError(t, err)
	defer st.Close()
	emb, err := NewEmbedder(cfg, logger)
	require.NoError(t, err)

	assert.NotNil(t, NewIngestUseCase(cfg, st, emb, logger))

	var pairs []domain.EmbeddedText
	for _, text := range []string{"the invoice is due in thirty days", "the cat sat on the mat"} {
		v, err := emb.Embed(ctx, []string{text})
		require.NoError(t, err)
		pairs = append(pairs, domain.EmbeddedText{Text: text, Embedding: v[0]})
	}
	_, err = usecase.NewGraphBuilder(st, cfg.Store.Table, cfg.Graph.EdgeThreshold, logger).Build(ctx, "doc", pairs)
	require.NoError(t, err)

	results, err := NewRetriever(cfg, st, emb, logger).Retrieve(ctx, "doc", "when is the invoice due", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "the invoice is due in thirty days", results[0].Text)
}
