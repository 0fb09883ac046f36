package knowledge

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"sync"

	"chessbench/internal/types"
)

// QueryCacheSize bounds the LRU query cache.
const QueryCacheSize = 256

// QueryKey identifies a cached search result.
type QueryKey struct {
	FEN           string
	Phase         types.Phase
	Sources       string // comma-joined sorted source names
	TopK          int
	MinSimilarity float64
}

// MakeQueryKey normalizes the key fields. Sources are sorted so the key is
// order-independent.
func MakeQueryKey(fen string, phase types.Phase, sources []string, topK int, minSim float64) QueryKey {
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)
	return QueryKey{
		FEN:           fen,
		Phase:         phase,
		Sources:       strings.Join(sorted, ","),
		TopK:          topK,
		MinSimilarity: minSim,
	}
}

// QueryCache is a bounded LRU of search results. Updated only from the
// single runner goroutine, but locked anyway so ad-hoc CLI queries stay
// safe.
type QueryCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // front = most recent
	entries map[QueryKey]*list.Element
}

type queryCacheEntry struct {
	key  QueryKey
	hits []Hit
}

// NewQueryCache creates an LRU cache with the given capacity.
func NewQueryCache(maxSize int) *QueryCache {
	if maxSize <= 0 {
		maxSize = QueryCacheSize
	}
	return &QueryCache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[QueryKey]*list.Element),
	}
}

// Get returns the cached hits for a key, marking it most recently used.
func (c *QueryCache) Get(key QueryKey) ([]Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*queryCacheEntry).hits, true
}

// Set stores hits for a key, evicting the least recently used entry at
// capacity.
func (c *QueryCache) Set(key QueryKey, hits []Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*queryCacheEntry).hits = hits
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*queryCacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&queryCacheEntry{key: key, hits: hits})
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (k QueryKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d|%g", k.FEN, k.Phase, k.Sources, k.TopK, k.MinSimilarity)
}
