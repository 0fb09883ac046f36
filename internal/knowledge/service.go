package knowledge

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"chessbench/internal/logging"
	"chessbench/internal/types"
)

// Service owns the process-wide index cache and the query LRU. The runner
// injects one Service instead of touching package globals, which keeps tests
// hermetic.
type Service struct {
	mu      sync.Mutex
	indexes map[string]*Index // keyed by sorted source names
	group   singleflight.Group
	queries *QueryCache
}

// NewService creates an empty knowledge service.
func NewService() *Service {
	return &Service{
		indexes: make(map[string]*Index),
		queries: NewQueryCache(QueryCacheSize),
	}
}

// IndexFor returns the index for a source set, building it at most once per
// key even under concurrent callers.
func (s *Service) IndexFor(sources []Source) (*Index, error) {
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}
	key := MakeQueryKey("", "", names, 0, 0).Sources

	s.mu.Lock()
	if idx, ok := s.indexes[key]; ok {
		s.mu.Unlock()
		return idx, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (any, error) {
		idx, err := BuildIndex(sources...)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.indexes[key] = idx
		s.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Result is what the prompt builder receives: the hits plus the metadata
// recorded on the move decision.
type Result struct {
	Hits []Hit
	Meta types.RetrievalMeta
}

// Lookup runs a cached, phase-routed search for a position. The query text
// combines the FEN with the phase so that structurally similar positions
// share cache entries.
func (s *Service) Lookup(idx *Index, fen string, phase types.Phase, topK int, minSim float64) Result {
	start := time.Now()
	key := MakeQueryKey(fen, phase, idx.Sources(), topK, minSim)

	hits, cached := s.queries.Get(key)
	if !cached {
		hits = idx.Search(Query{
			Text:          queryText(fen, phase),
			TopK:          topK,
			MinSimilarity: minSim,
			PhaseHint:     phase,
		})
		s.queries.Set(key, hits)
	}

	meta := types.RetrievalMeta{
		Enabled:   true,
		HitCount:  len(hits),
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000.0,
		Phase:     phase,
	}
	for _, h := range hits {
		meta.Sources = append(meta.Sources, h.Chunk.Source)
	}
	if cached {
		logging.Get(logging.CategoryRetrieval).Debug("query cache hit: %s", key)
	}
	return Result{Hits: hits, Meta: meta}
}

// queryText renders a position as retrieval text: piece placement tokens
// plus the phase name.
func queryText(fen string, phase types.Phase) string {
	fields := strings.Fields(fen)
	placement := fen
	if len(fields) > 0 {
		placement = fields[0]
	}
	return string(phase) + " " + strings.ReplaceAll(placement, "/", " ")
}
