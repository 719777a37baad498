package domain

import "time"

// EmbeddingDimension is the vector length produced by text-embedding-3-small.
const EmbeddingDimension = 1536

// EmbeddedText is one chunk of extracted text paired with its embedding,
// in document order.
type EmbeddedText struct {
	Text      string
	Embedding []float32
}

// Chunk is a node of a document's similarity graph.
type Chunk struct {
	Index      int       `json:"index"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}

// VectorRecord is the persisted form of a Chunk.
type VectorRecord struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id" badgerhold:"index"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Source     string    `json:"source,omitempty"`
	Vector     []float32 `json:"vector"`
	Timestamp  time.Time `json:"timestamp"`
}

type SimilarityEdge struct {
	NodeA  int     `json:"node_a"`
	NodeB  int     `json:"node_b"`
	Weight float64 `json:"weight"`
}

// Graph is the chunk similarity graph built at ingestion time. Retrieval
// never reads it; it is kept for inspection and export.
type Graph struct {
	DocumentID string           `json:"document_id"`
	Nodes      []Chunk          `json:"nodes"`
	Edges      []SimilarityEdge `json:"edges"`
}

// Neighbors returns the indexes connected to node i.
func (g *Graph) Neighbors(i int) []int {
	var out []int
	for _, e := range g.Edges {
		switch i {
		case e.NodeA:
			out = append(out, e.NodeB)
		case e.NodeB:
			out = append(out, e.NodeA)
		}
	}
	return out
}

type RetrievalResult struct {
	NodeID     string  `json:"node_id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// RelevanceDecision is the answer generator's verdict on whether the
// retrieved chunks were enough to answer the query.
type RelevanceDecision struct {
	Content  string `json:"content"`
	Relevant bool   `json:"relevant"`
}

type Answer struct {
	Text     string            `json:"answer"`
	Grounded bool              `json:"grounded"`
	Sources  []RetrievalResult `json:"sources,omitempty"`
}
