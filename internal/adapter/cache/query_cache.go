package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// QueryCache is an LRU of retrieval results with a TTL. Entries are tagged
// with their document's generation; bumping the generation on ingestion
// makes every older entry for that document stale.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	docGen  map[string]uint64
	now     func() time.Time
}

type cacheEntry struct {
	documentID string
	results    []domain.RetrievalResult
	timestamp  time.Time
	gen        uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		docGen:  make(map[string]uint64),
		now:     time.Now,
	}
}

func cacheKey(documentID, query string, topK int) string {
	h := sha256.New()
	h.Write([]byte(documentID))
	h.Write([]byte{0})
	h.Write([]byte(query))
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(topK))
	h.Write(k[:])
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *QueryCache) Get(documentID, query string, topK int) ([]domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(documentID, query, topK)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.gen != c.docGen[documentID] {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return cloneResults(entry.results), true
}

func (c *QueryCache) Put(documentID, query string, topK int, results []domain.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(documentID, query, topK)
	entry := &cacheEntry{
		documentID: documentID,
		results:    cloneResults(results),
		timestamp:  c.now(),
		gen:        c.docGen[documentID],
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

// InvalidateDocument drops cached results for one document.
func (c *QueryCache) InvalidateDocument(documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docGen[documentID]++
	for key, e := range c.entries {
		if e.documentID == documentID {
			delete(c.entries, key)
			c.removeFromOrder(key)
		}
	}
}

// Invalidate drops everything.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		c.docGen[e.documentID]++
	}
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func cloneResults(in []domain.RetrievalResult) []domain.RetrievalResult {
	if in == nil {
		return nil
	}
	out := make([]domain.RetrievalResult, len(in))
	copy(out, in)
	return out
}

// CachedRetriever serves repeated queries from a QueryCache. Errors are
// never cached.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, documentID, query string, topK int) ([]domain.RetrievalResult, error) {
	if results, hit := r.cache.Get(documentID, query, topK); hit {
		return results, nil
	}

	results, err := r.retriever.Retrieve(ctx, documentID, query, topK)
	if err != nil {
		return nil, err
	}

	r.cache.Put(documentID, query, topK, results)
	return results, nil
}
