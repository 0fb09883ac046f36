package knowledge

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"chessbench/internal/config"
	"chessbench/internal/types"
)

// SourceBuiltin is the name of the embedded corpus source.
const SourceBuiltin = "builtin"

// SourceInline is the name of the config-supplied chunk source.
const SourceInline = "inline"

// SourceSQLite is the name of the sqlite file source.
const SourceSQLite = "sqlite"

//go:embed corpus
var embeddedCorpus embed.FS

type corpusFile struct {
	Chunks []Chunk `yaml:"chunks"`
}

// BuiltinSource serves the chess corpus baked into the binary.
type BuiltinSource struct{}

// Name implements Source.
func (BuiltinSource) Name() string { return SourceBuiltin }

// Chunks loads every YAML file under corpus/, sorted by filename so the
// chunk order is stable.
func (BuiltinSource) Chunks() ([]Chunk, error) {
	var paths []string
	err := fs.WalkDir(embeddedCorpus, "corpus", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking embedded corpus: %w", err)
	}
	sort.Strings(paths)

	var chunks []Chunk
	for _, p := range paths {
		data, err := embeddedCorpus.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var cf corpusFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		for _, c := range cf.Chunks {
			c.Source = SourceBuiltin
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

// InlineSource serves chunks written directly in the experiment config.
type InlineSource struct {
	Items []Chunk
}

// Name implements Source.
func (InlineSource) Name() string { return SourceInline }

// Chunks implements Source.
func (s InlineSource) Chunks() ([]Chunk, error) {
	out := make([]Chunk, len(s.Items))
	for i, c := range s.Items {
		c.Source = SourceInline
		out[i] = c
	}
	return out, nil
}

// SQLiteSource loads chunks from a local sqlite database. The expected
// schema is a single table:
//
//	CREATE TABLE chunks (id TEXT PRIMARY KEY, phase TEXT, title TEXT,
//	                     content TEXT, fen TEXT DEFAULT '');
type SQLiteSource struct {
	Path string
}

// Name implements Source.
func (SQLiteSource) Name() string { return SourceSQLite }

// Chunks implements Source.
func (s SQLiteSource) Chunks() ([]Chunk, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk db %s: %w", s.Path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, phase, title, content, COALESCE(fen, '') FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var phase string
		if err := rows.Scan(&c.ID, &phase, &c.Title, &c.Content, &c.FEN); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Phase = phaseFromString(phase)
		c.Source = SourceSQLite
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func phaseFromString(s string) types.Phase {
	switch s {
	case "opening":
		return types.PhaseOpening
	case "endgame":
		return types.PhaseEndgame
	default:
		return types.PhaseMiddlegame
	}
}

// SourcesFromConfig builds the source set enabled by the strategy config.
func SourcesFromConfig(kc config.KnowledgeConfig, inline []Chunk) []Source {
	var out []Source
	for _, name := range kc.Sources {
		switch name {
		case SourceBuiltin:
			out = append(out, BuiltinSource{})
		case SourceInline:
			out = append(out, InlineSource{Items: inline})
		case SourceSQLite:
			out = append(out, SQLiteSource{Path: kc.SQLitePath})
		}
	}
	return out
}
