package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

const (
	DefaultSize = 100
	DefaultTTL  = 5 * time.Minute
)

// QueryCache keeps recent search results. Entries expire after the TTL and
// whenever Invalidate bumps the index generation.
type QueryCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	gen     uint64
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	results   []domain.ScoredDocument
	timestamp time.Time
	gen       uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entries, _ := lru.New[string, cacheEntry](maxSize)
	return &QueryCache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(namespace, query string, topK int) string {
	raw := fmt.Sprintf("%s\x00%d\x00%s", namespace, topK, query)
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(namespace, query string, topK int) ([]domain.ScoredDocument, bool) {
	key := cacheKey(namespace, query, topK)

	c.mu.Lock()
	entry, ok := c.entries.Get(key)
	if ok && (entry.gen != c.gen || c.now().Sub(entry.timestamp) > c.ttl) {
		c.entries.Remove(key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return cloneResults(entry.results), true
}

func (c *QueryCache) Put(namespace, query string, topK int, results []domain.ScoredDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(cacheKey(namespace, query, topK), cacheEntry{
		results:   cloneResults(results),
		timestamp: c.now(),
		gen:       c.gen,
	})
}

// Invalidate drops every entry. Results computed against the previous
// index generation are not stored even if they finish afterwards.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.gen++
}

func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *QueryCache) putIfGeneration(gen uint64, namespace, query string, topK int, results []domain.ScoredDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries.Add(cacheKey(namespace, query, topK), cacheEntry{
		results:   cloneResults(results),
		timestamp: c.now(),
		gen:       gen,
	})
}

func (c *QueryCache) Size() int {
	return c.entries.Len()
}

// Stats returns hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func cloneResults(results []domain.ScoredDocument) []domain.ScoredDocument {
	if results == nil {
		return nil
	}
	out := make([]domain.ScoredDocument, len(results))
	copy(out, results)
	return out
}

// CachedRetriever serves repeated queries from a QueryCache. Concurrent
// misses for the same query share one underlying search.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
	namespace string
	group     singleflight.Group
	observe   func(hit bool)
}

// NewCachedRetriever wraps retriever. namespace separates retrievers that
// share one cache, for example per search mode.
func NewCachedRetriever(retriever port.Retriever, cache *QueryCache, namespace string) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
		namespace: namespace,
	}
}

// OnLookup registers a callback run after every cache lookup.
func (r *CachedRetriever) OnLookup(fn func(hit bool)) *CachedRetriever {
	r.observe = fn
	return r
}

func (r *CachedRetriever) Search(query string, k int) ([]domain.ScoredDocument, error) {
	results, hit := r.cache.Get(r.namespace, query, k)
	if r.observe != nil {
		r.observe(hit)
	}
	if hit {
		return results, nil
	}

	gen := r.cache.Generation()
	key := fmt.Sprintf("%d:%s", gen, cacheKey(r.namespace, query, k))
	val, err, _ := r.group.Do(key, func() (interface{}, error) {
		results, err := r.retriever.Search(query, k)
		if err != nil {
			return nil, err
		}
		r.cache.putIfGeneration(gen, r.namespace, query, k, results)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneResults(val.([]domain.ScoredDocument)), nil
}
