package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// maxDownloadSize bounds PDFs fetched over HTTP.
const maxDownloadSize = 100 << 20

// DocumentInvalidator drops anything cached for a document. The query cache
// implements it.
type DocumentInvalidator interface {
	InvalidateDocument(documentID string)
}

// IngestOptions tunes a single ingestion.
type IngestOptions struct {
	// DocumentID re-ingests under an existing id. Empty generates a new UUID.
	DocumentID string
	// Source is recorded on every chunk, usually a path or URL.
	Source string
	// Progress is called after each embedded batch.
	Progress func(done, total int)
}

type IngestResult struct {
	DocumentID string
	Source     string
	Chunks     int
	Edges      int
	Graph      *domain.Graph
}

// IngestUseCase turns a PDF into stored, embedded chunks.
type IngestUseCase struct {
	extractor   port.TextExtractor
	chunker     port.Chunker
	embedder    port.Embedder
	builder     *GraphBuilder
	invalidator DocumentInvalidator
	concurrency int
	batchSize   int
	httpClient  *http.Client
	logger      arbor.ILogger
}

func NewIngestUseCase(
	extractor port.TextExtractor,
	chunker port.Chunker,
	embedder port.Embedder,
	builder *GraphBuilder,
	logger arbor.ILogger,
) *IngestUseCase {
	return &IngestUseCase{
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		builder:     builder,
		concurrency: 4,
		batchSize:   100,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
}

// WithConcurrency bounds the number of embedding batches in flight.
func (u *IngestUseCase) WithConcurrency(n int) *IngestUseCase {
	if n > 0 {
		u.concurrency = n
	}
	return u
}

func (u *IngestUseCase) WithBatchSize(n int) *IngestUseCase {
	if n > 0 {
		u.batchSize = n
	}
	return u
}

func (u *IngestUseCase) WithInvalidator(inv DocumentInvalidator) *IngestUseCase {
	u.invalidator = inv
	return u
}

// IngestSource ingests a local path or an http(s) URL.
func (u *IngestUseCase) IngestSource(ctx context.Context, source string, opts IngestOptions) (*IngestResult, error) {
	if opts.Source == "" {
		opts.Source = source
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return u.IngestURL(ctx, source, opts)
	}
	return u.IngestFile(ctx, source, opts)
}

func (u *IngestUseCase) IngestFile(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if opts.Source == "" {
		opts.Source = path
	}
	return u.Ingest(ctx, f, opts)
}

func (u *IngestUseCase) IngestURL(ctx context.Context, url string, opts IngestOptions) (*IngestResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", url, err)
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("%s is larger than %d bytes", url, maxDownloadSize)
	}

	if opts.Source == "" {
		opts.Source = url
	}
	return u.Ingest(ctx, bytes.NewReader(data), opts)
}

// Ingest extracts, chunks, embeds and stores one PDF. Nothing is written
// unless every chunk was embedded.
func (u *IngestUseCase) Ingest(ctx context.Context, r io.ReadSeeker, opts IngestOptions) (*IngestResult, error) {
	start := time.Now()

	documentID := opts.DocumentID
	if documentID == "" {
		documentID = uuid.NewString()
	}

	text, err := u.extractor.ExtractText(ctx, r)
	if err != nil {
		return nil, err
	}

	var chunks []string
	for _, page := range strings.Split(text, port.PageSeparator) {
		chunks = append(chunks, u.chunker.Split(page)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text chunks in %s", domain.ErrExtraction, opts.Source)
	}

	vectors, err := u.embedChunks(ctx, chunks, opts.Progress)
	if err != nil {
		return nil, err
	}

	pairs := make([]domain.EmbeddedText, len(chunks))
	for i := range chunks {
		pairs[i] = domain.EmbeddedText{Text: chunks[i], Embedding: vectors[i]}
	}

	graph, err := u.builder.BuildWithSource(ctx, documentID, opts.Source, pairs)
	if err != nil {
		return nil, err
	}

	if u.invalidator != nil {
		u.invalidator.InvalidateDocument(documentID)
	}

	u.logger.Info().
		Str("document_id", documentID).
		Str("source", opts.Source).
		Int("chunks", len(chunks)).
		Int("edges", len(graph.Edges)).
		Dur("elapsed", time.Since(start)).
		Msg("Ingested document")

	return &IngestResult{
		DocumentID: documentID,
		Source:     opts.Source,
		Chunks:     len(chunks),
		Edges:      len(graph.Edges),
		Graph:      graph,
	}, nil
}

// embedChunks embeds in batches, several batches at a time, and returns the
// vectors in chunk order.
func (u *IngestUseCase) embedChunks(ctx context.Context, chunks []string, progress func(done, total int)) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for start := 0; start < len(chunks); start += u.batchSize {
		end := min(start+u.batchSize, len(chunks))
		batch := chunks[start:end]
		offset := start

		g.Go(func() error {
			vecs, err := u.embedder.Embed(gctx, batch)
			if err != nil {
				if errors.Is(err, domain.ErrEmbedding) {
					return err
				}
				return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbedding, len(batch), len(vecs))
			}
			copy(vectors[offset:], vecs)

			if progress != nil {
				mu.Lock()
				done += len(batch)
				progress(done, len(chunks))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
