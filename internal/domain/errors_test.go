package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessageAndExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		message  string
		exitCode int
	}{
		{"nil", nil, "", 0},
		{"not found", fmt.Errorf("%w: doc-1", ErrDocumentNotFound), "no chunks found for this document id, or the document does not exist", 4},
		{"no chunks", fmt.Errorf("%w: doc-1", ErrNoRelevantChunks), "the document has no usable text chunks", 4},
		{"embedding timeout", fmt.Errorf("%w: %w: query", ErrEmbedding, ErrUpstreamTimeout), "an upstream service took too long to respond, please retry", 5},
		{"embedding", fmt.Errorf("%w: bad key", ErrEmbedding), "could not compute embeddings", 1},
		{"storage write", fmt.Errorf("%w: %w", ErrStorageWrite, ErrInvalidVector), "the document could not be stored, please retry the upload", 1},
		{"unknown", errors.New("cursor exploded"), "internal error", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.message, UserMessage(tc.err))
			assert.Equal(t, tc.exitCode, ExitCode(tc.err))
		})
	}
}

func TestCategorized(t *testing.T) {
	assert.True(t, Categorized(fmt.Errorf("wrapped: %w", ErrRelevanceParse)))
	assert.False(t, Categorized(errors.New("flag provided but not defined")))
	assert.False(t, Categorized(nil))
}

func TestGraphNeighbors(t *testing.T) {
	g := &Graph{Edges: []SimilarityEdge{
		{NodeA: 0, NodeB: 1, Weight: 0.9},
		{NodeA: 1, NodeB: 3, Weight: 0.8},
	}}

	assert.Equal(t, []int{1}, g.Neighbors(0))
	assert.Equal(t, []int{0, 3}, g.Neighbors(1))
	assert.Nil(t, g.Neighbors(2))
}
