package knowledge

import (
	"reflect"
	"testing"

	"chessbench/internal/types"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Rooks belong on OPEN files, rank-7!")
	want := []string{"rooks", "belong", "on", "open", "files", "rank", "7"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestEmbed_UnitNorm(t *testing.T) {
	v := Embed("king safety king attack king")
	var norm float64
	for _, w := range v {
		norm += w * w
	}
	if norm < 0.999 || norm > 1.001 {
		t.Fatalf("squared norm = %g, want 1", norm)
	}
	// Identical text has cosine 1 with itself.
	if sim := Dot(v, Embed("king safety king attack king")); sim < 0.999 {
		t.Fatalf("self similarity = %g, want 1", sim)
	}
}

func TestBuiltinSource_LoadsCorpus(t *testing.T) {
	chunks, err := BuiltinSource{}.Chunks()
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) < 12 {
		t.Fatalf("builtin corpus has %d chunks, want >= 12", len(chunks))
	}
	seen := map[string]bool{}
	for _, c := range chunks {
		if c.ID == "" || c.Content == "" {
			t.Fatalf("chunk missing id or content: %+v", c)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate chunk id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Source != SourceBuiltin {
			t.Fatalf("chunk %s source = %q, want builtin", c.ID, c.Source)
		}
	}
}

func TestIndex_SearchPhaseBias(t *testing.T) {
	idx, err := BuildIndex(InlineSource{Items: []Chunk{
		{ID: "a", Phase: types.PhaseEndgame, Title: "king opposition", Content: "king opposition endings"},
		{ID: "b", Phase: types.PhaseOpening, Title: "king opposition", Content: "king opposition endings"},
	}})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	hits := idx.Search(Query{Text: "king opposition", TopK: 2, PhaseHint: types.PhaseEndgame})
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	// Same text, so the phase bias must put the endgame chunk first.
	if hits[0].Chunk.ID != "a" {
		t.Fatalf("first hit = %s, want phase-biased chunk a", hits[0].Chunk.ID)
	}
	if diff := hits[0].Similarity - hits[1].Similarity; diff < PhaseBias-1e-9 || diff > PhaseBias+1e-9 {
		t.Fatalf("similarity delta = %g, want %g", diff, PhaseBias)
	}
}

func TestIndex_TieBreakOnChunkID(t *testing.T) {
	idx, err := BuildIndex(InlineSource{Items: []Chunk{
		{ID: "zz", Title: "rook endings", Content: "rook endings"},
		{ID: "aa", Title: "rook endings", Content: "rook endings"},
	}})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	hits := idx.Search(Query{Text: "rook endings", TopK: 2})
	if hits[0].Chunk.ID != "aa" || hits[1].Chunk.ID != "zz" {
		t.Fatalf("tie break order = [%s %s], want [aa zz]", hits[0].Chunk.ID, hits[1].Chunk.ID)
	}
}

func TestIndex_MinSimilarityAndSourceFilter(t *testing.T) {
	idx, err := BuildIndex(
		InlineSource{Items: []Chunk{{ID: "x", Title: "pawn storms", Content: "pawn storms on the kingside"}}},
		BuiltinSource{},
	)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	hits := idx.Search(Query{Text: "pawn storms kingside", TopK: 10, MinSimilarity: 0.99, AllowedSources: []string{SourceInline}})
	for _, h := range hits {
		if h.Chunk.Source != SourceInline {
			t.Fatalf("source filter leaked chunk from %q", h.Chunk.Source)
		}
	}

	none := idx.Search(Query{Text: "quantum chromodynamics", TopK: 5, MinSimilarity: 0.9})
	if len(none) != 0 {
		t.Fatalf("got %d hits for unrelated query at 0.9 threshold, want 0", len(none))
	}
}

func TestQueryCache_LRU(t *testing.T) {
	c := NewQueryCache(2)
	k1 := MakeQueryKey("f1", types.PhaseOpening, []string{"builtin"}, 3, 0.1)
	k2 := MakeQueryKey("f2", types.PhaseOpening, []string{"builtin"}, 3, 0.1)
	k3 := MakeQueryKey("f3", types.PhaseOpening, []string{"builtin"}, 3, 0.1)

	c.Set(k1, []Hit{})
	c.Set(k2, []Hit{})
	if _, ok := c.Get(k1); !ok {
		t.Fatal("k1 evicted prematurely")
	}
	c.Set(k3, []Hit{}) // k2 is now least recently used
	if _, ok := c.Get(k2); ok {
		t.Fatal("k2 should have been evicted")
	}
	if _, ok := c.Get(k1); !ok {
		t.Fatal("k1 lost")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestMakeQueryKey_SourceOrderIndependent(t *testing.T) {
	a := MakeQueryKey("f", types.PhaseEndgame, []string{"b", "a"}, 3, 0.1)
	b := MakeQueryKey("f", types.PhaseEndgame, []string{"a", "b"}, 3, 0.1)
	if a != b {
		t.Fatalf("keys differ for reordered sources: %v vs %v", a, b)
	}
}

func TestService_IndexCachedBySourceSet(t *testing.T) {
	svc := NewService()
	i1, err := svc.IndexFor([]Source{BuiltinSource{}})
	if err != nil {
		t.Fatalf("IndexFor: %v", err)
	}
	i2, err := svc.IndexFor([]Source{BuiltinSource{}})
	if err != nil {
		t.Fatalf("IndexFor: %v", err)
	}
	if i1 != i2 {
		t.Fatal("index rebuilt for identical source set")
	}
}

func TestService_LookupMeta(t *testing.T) {
	svc := NewService()
	idx, err := svc.IndexFor([]Source{BuiltinSource{}})
	if err != nil {
		t.Fatalf("IndexFor: %v", err)
	}

	res := svc.Lookup(idx, "8/8/8/4k3/8/4K3/4P3/8 w - - 0 40", types.PhaseEndgame, 3, 0.0)
	if !res.Meta.Enabled {
		t.Fatal("meta not marked enabled")
	}
	if res.Meta.HitCount != len(res.Hits) {
		t.Fatalf("HitCount = %d, want %d", res.Meta.HitCount, len(res.Hits))
	}
	if res.Meta.Phase != types.PhaseEndgame {
		t.Fatalf("meta phase = %q, want endgame", res.Meta.Phase)
	}

	// Second lookup must come from the query cache and return equal hits.
	res2 := svc.Lookup(idx, "8/8/8/4k3/8/4K3/4P3/8 w - - 0 40", types.PhaseEndgame, 3, 0.0)
	if !reflect.DeepEqual(res.Hits, res2.Hits) {
		t.Fatal("cached lookup returned different hits")
	}
}
