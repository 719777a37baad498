package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pdfrag/config"
	"pdfrag/internal/domain"
)

const testTable = "document_graph_nodes"

func newTestStore(t *testing.T, dim int) *BoltRecordStore {
	t.Helper()
	s, err := NewBoltRecordStore(filepath.Join(t.TempDir(), "records.db"), dim)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureTable(context.Background(), testTable))
	return s
}

func record(doc string, idx int, text string, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:         fmt.Sprintf("%s_%d_1", doc, idx),
		DocumentID: doc,
		Index:      idx,
		Text:       text,
		Source:     "test.pdf",
		Vector:     vec,
		Timestamp:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestBoltRecordStore_InsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)

	recs := []domain.VectorRecord{
		record("doc-a", 0, "alpha", 1, 0),
		record("doc-b", 0, "other", 0, 1),
		record("doc-a", 1, "beta", 0, 1),
		record("doc-a", 2, "gamma", 1, 1),
	}
	require.NoError(t, s.Insert(ctx, testTable, recs))

	got, err := s.Search(ctx, testTable, "doc-a", []float32{1, 0}, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// insertion order, regardless of the query vector
	assert.Equal(t, "alpha", got[0].Text)
	assert.Equal(t, "beta", got[1].Text)
	assert.Equal(t, "gamma", got[2].Text)
	for _, r := range got {
		assert.Equal(t, "doc-a", r.DocumentID)
		assert.Equal(t, "test.pdf", r.Source)
		assert.Len(t, r.Vector, 2)
	}
	assert.True(t, recs[0].Timestamp.Equal(got[0].Timestamp))

	limited, err := s.Search(ctx, testTable, "doc-a", nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestBoltRecordStore_SearchUnknown(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)

	got, err := s.Search(ctx, testTable, "missing", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Search(ctx, "no_such_table", "missing", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoltRecordStore_InsertIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 3)

	recs := []domain.VectorRecord{
		record("doc", 0, "ok", 1, 2, 3),
		record("doc", 1, "short", 1, 2),
	}
	err := s.Insert(ctx, testTable, recs)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidVector)

	got, err := s.Search(ctx, testTable, "doc", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got, "a failed batch must not leave partial records")
}

func TestBoltRecordStore_InsertWithoutTable(t *testing.T) {
	s := newTestStore(t, 1)
	err := s.Insert(context.Background(), "never_created", []domain.VectorRecord{record("doc", 0, "x", 1)})
	assert.Error(t, err)
}

func TestBoltRecordStore_RequiresDocumentID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 1)

	orphan := record("", 1, "y", 1)
	err := s.Insert(ctx, testTable, []domain.VectorRecord{record("doc", 0, "x", 1), orphan})
	assert.Error(t, err)

	ids, err := s.Documents(ctx, testTable)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBoltRecordStore_ReingestAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 1)

	first := []domain.VectorRecord{record("doc", 0, "one", 1), record("doc", 1, "two", 1)}
	require.NoError(t, s.Insert(ctx, testTable, first))

	second := []domain.VectorRecord{record("doc", 0, "uno", 1)}
	second[0].ID = "doc_0_2"
	require.NoError(t, s.Insert(ctx, testTable, second))

	got, err := s.Search(ctx, testTable, "doc", nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "uno", got[2].Text)

	n, err := s.Count(testTable, "doc")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBoltRecordStore_Documents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 1)

	require.NoError(t, s.Insert(ctx, testTable, []domain.VectorRecord{
		record("b", 0, "x", 1),
		record("a", 0, "y", 1),
		record("b", 1, "z", 1),
	}))

	ids, err := s.Documents(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestBoltRecordStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	s, err := NewBoltRecordStore(path, 1)
	require.NoError(t, err)
	require.NoError(t, s.EnsureTable(ctx, testTable))
	require.NoError(t, s.Insert(ctx, testTable, []domain.VectorRecord{record("doc", 0, "kept", 1)}))
	require.NoError(t, s.Close())

	s, err = NewBoltRecordStore(path, 1)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Search(ctx, testTable, "doc", nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}

func TestBoltRecordStore_CanceledContext(t *testing.T) {
	s := newTestStore(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, testTable, "doc", nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoltRecordStore_Migrate(t *testing.T) {
	s := newTestStore(t, 1536)
	cfg := config.DefaultConfig()

	result, err := s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsMigration)

	require.NoError(t, s.Migrate(cfg))

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
	assert.Equal(t, ComputeConfigHash(cfg), info.ConfigHash)

	result, err = s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.False(t, result.NeedsMigration)
	assert.False(t, result.Incompatible)

	changed := config.DefaultConfig()
	changed.Embedding.Model = "text-embedding-3-large"
	result, err = s.CheckMigration(changed)
	require.NoError(t, err)
	assert.True(t, result.Incompatible)
	assert.Error(t, s.Migrate(changed))
}

func TestBoltRecordStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 1536)
	cfg := config.DefaultConfig()
	require.NoError(t, s.Migrate(cfg))

	vec := make([]float32, 1536)
	vec[0] = 1
	require.NoError(t, s.Insert(ctx, testTable, []domain.VectorRecord{record("doc", 0, "x", vec...)}))

	require.NoError(t, s.Reset())

	ids, err := s.Documents(ctx, testTable)
	require.NoError(t, err)
	assert.Empty(t, ids)

	changed := config.DefaultConfig()
	changed.Embedding.Model = "text-embedding-3-large"
	require.NoError(t, s.Migrate(changed), "reset clears the config hash")
}

func TestComputeConfigHash(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	assert.Equal(t, ComputeConfigHash(a), ComputeConfigHash(b))

	b.Chunking.ChunkSize = 800
	assert.NotEqual(t, ComputeConfigHash(a), ComputeConfigHash(b))

	c := config.DefaultConfig()
	c.Retrieve.TopK = 10
	assert.Equal(t, ComputeConfigHash(a), ComputeConfigHash(c), "retrieval settings do not affect stored vectors")
}
