//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"syscall/js"
	"time"

	"github.com/ternarybob/arbor"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

const (
	table     = "document_graph_nodes"
	dimension = 256
)

var (
	store     *memstore.MemoryStore
	embedder  *embedding.MockEmbedder
	ingester  *usecase.IngestUseCase
	retriever port.Retriever
	logger    = arbor.NewNoOpLogger()
)

// plainText treats the input as already extracted text. Browsers hand us
// text from pdf.js, so no PDF parsing happens here.
type plainText struct{}

func (plainText) ExtractText(_ context.Context, r io.ReadSeeker) (string, error) {
	data, err := io.ReadAll(r)
	return string(data), err
}

func init() {
	embedder = embedding.NewMockEmbedder(dimension)
	reset()
}

func reset() {
	store = memstore.NewMemoryStore(dimension)
	queries := cache.NewQueryCache(100, 5*time.Minute)
	builder := usecase.NewGraphBuilder(store, table, 0.7, logger)
	ingester = usecase.NewIngestUseCase(plainText{}, chunker.NewRecursiveChunker(500, 50), embedder, builder, logger).
		WithInvalidator(queries)
	retriever = cache.NewCachedRetriever(usecase.NewRetriever(embedder, store, table, 3, 0, logger), queries)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("pdfragIngest", js.FuncOf(ingestText))
	js.Global().Set("pdfragRetrieve", js.FuncOf(retrieve))
	js.Global().Set("pdfragClear", js.FuncOf(clearStore))
	js.Global().Set("pdfragDocs", js.FuncOf(listDocs))

	<-c
}

// ingestText(source, text): pages separated by form feeds.
func ingestText(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: pdfragIngest(source, text)")
	}

	source := args[0].String()
	text := args[1].String()

	res, err := ingester.Ingest(context.Background(), strings.NewReader(text), usecase.IngestOptions{Source: source})
	if err != nil {
		return makeError(domain.UserMessage(err))
	}

	return makeResult(map[string]interface{}{
		"documentId": res.DocumentID,
		"chunks":     res.Chunks,
		"edges":      res.Edges,
		"source":     source,
	})
}

func retrieve(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: pdfragRetrieve(documentId, query, [topK])")
	}

	documentID := args[0].String()
	query := args[1].String()
	topK := 0
	if len(args) > 2 {
		topK = args[2].Int()
	}

	results, err := retriever.Retrieve(context.Background(), documentID, query, topK)
	if err != nil {
		return makeError(domain.UserMessage(err))
	}

	return makeResult(map[string]interface{}{
		"documentId":     documentID,
		"relevantChunks": results,
	})
}

func clearStore(this js.Value, args []js.Value) interface{} {
	reset()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func listDocs(this js.Value, args []js.Value) interface{} {
	ids, _ := store.Documents(context.Background(), table)
	return makeResult(map[string]interface{}{
		"documents": ids,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
