package knowledge

import (
	"sort"

	"chessbench/internal/logging"
	"chessbench/internal/types"
)

// PhaseBias is added to a chunk's similarity when its phase tag matches the
// query's phase hint, before thresholding.
const PhaseBias = 0.03

// Index holds embedded chunks and serves top-k searches.
type Index struct {
	chunks  []Chunk
	vectors []SparseVector
	sources []string
}

// Query parameterizes a search.
type Query struct {
	Text           string
	TopK           int
	MinSimilarity  float64
	AllowedSources []string
	PhaseHint      types.Phase
}

// BuildIndex embeds chunks from the given sources, in order.
func BuildIndex(sources ...Source) (*Index, error) {
	idx := &Index{}
	for _, src := range sources {
		chunks, err := src.Chunks()
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.Source == "" {
				c.Source = src.Name()
			}
			idx.chunks = append(idx.chunks, c)
			idx.vectors = append(idx.vectors, Embed(c.Title+" "+c.Content))
		}
		idx.sources = append(idx.sources, src.Name())
	}
	logging.Retrieval("index built: %d chunks from %d sources", len(idx.chunks), len(sources))
	return idx, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Sources lists the source names the index was built from.
func (idx *Index) Sources() []string {
	return append([]string(nil), idx.sources...)
}

// Search returns up to TopK chunks ordered by biased similarity descending,
// ties broken by chunk id ascending for determinism.
func (idx *Index) Search(q Query) []Hit {
	timer := logging.StartTimer(logging.CategoryRetrieval, "index search")
	defer timer.Stop()

	if q.TopK <= 0 {
		return nil
	}
	allowed := map[string]bool{}
	for _, s := range q.AllowedSources {
		allowed[s] = true
	}

	qv := Embed(q.Text)
	var hits []Hit
	for i, c := range idx.chunks {
		if len(allowed) > 0 && !allowed[c.Source] {
			continue
		}
		sim := Dot(qv, idx.vectors[i])
		if q.PhaseHint != "" && c.Phase == q.PhaseHint {
			sim += PhaseBias
		}
		if sim < q.MinSimilarity {
			continue
		}
		hits = append(hits, Hit{Chunk: c, Similarity: sim})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}
	return hits
}
