// Package knowledge provides the retrieval subsystem: chunked domain text,
// sparse hashed embeddings, and a phase-routed in-memory vector search that
// feeds the prompt builder.
package knowledge

import "chessbench/internal/types"

// Chunk is one indexed unit of domain text.
type Chunk struct {
	ID      string      `yaml:"id" json:"id"`
	Source  string      `yaml:"source" json:"source"`
	Phase   types.Phase `yaml:"phase" json:"phase"`
	Title   string      `yaml:"title" json:"title"`
	Content string      `yaml:"content" json:"content"`
	FEN     string      `yaml:"fen,omitempty" json:"fen,omitempty"`
	Tags    []string    `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Hit is one search result.
type Hit struct {
	Chunk      Chunk
	Similarity float64
}

// Source produces chunks at startup. Implementations must be deterministic:
// the same source yields the same chunk list on every call.
type Source interface {
	Name() string
	Chunks() ([]Chunk, error)
}
