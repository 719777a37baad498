package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"pdfrag/internal/domain"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	dim     int
	delay   time.Duration
	err     error
	calls   atomic.Int32
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimension() int    { return e.dim }
func (e *fakeEmbedder) ModelName() string { return "fake" }

type fakeExtractor struct {
	text string
	err  error
	read []byte
}

func (x *fakeExtractor) ExtractText(_ context.Context, r io.ReadSeeker) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	x.read = data
	return x.text, x.err
}

type fakeGenerator struct {
	raw    string
	err    error
	chunks []domain.RetrievalResult
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, chunks []domain.RetrievalResult) (string, error) {
	g.chunks = chunks
	return g.raw, g.err
}

type fakeFallback struct {
	out   string
	err   error
	calls int
}

func (f *fakeFallback) Run(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

// brokenStore fails every call.
type brokenStore struct{}

var errBroken = errors.New("disk on fire")

func (brokenStore) EnsureTable(context.Context, string) error { return nil }
func (brokenStore) Insert(context.Context, string, []domain.VectorRecord) error {
	return errBroken
}
func (brokenStore) Search(context.Context, string, string, []float32, int) ([]domain.VectorRecord, error) {
	return nil, errBroken
}
func (brokenStore) Documents(context.Context, string) ([]string, error) { return nil, errBroken }
func (brokenStore) Close() error                                        { return nil }

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) InvalidateDocument(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return time.Unix(1700000000+n.Add(1), 0)
	}
}
