package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/knowledge"
	"chessbench/internal/types"
)

var (
	kbSources []string
	kbSQLite  string
	kbPhase   string
	kbTopK    int
	kbMinSim  float64
)

// knowledgeCmd queries the retrieval index ad hoc, outside any run.
var knowledgeCmd = &cobra.Command{
	Use:   "knowledge [fen]",
	Short: "Query the knowledge index for a position",
	Long: `Builds the configured knowledge index and prints the chunks retrieved
for a position. With no FEN argument the starting position is used.

Example:
  chessbench knowledge "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3" --top-k 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: queryKnowledge,
}

func queryKnowledge(cmd *cobra.Command, args []string) error {
	fen := board.StartFEN
	if len(args) == 1 {
		fen = args[0]
	}
	if _, err := board.FromFEN(fen); err != nil {
		return err
	}

	phase := board.PhaseOfFEN(fen)
	switch kbPhase {
	case "":
	case "opening":
		phase = types.PhaseOpening
	case "middlegame":
		phase = types.PhaseMiddlegame
	case "endgame":
		phase = types.PhaseEndgame
	default:
		return fmt.Errorf("unknown phase %q", kbPhase)
	}

	sources := knowledge.SourcesFromConfig(config.KnowledgeConfig{
		Enabled:    true,
		Sources:    kbSources,
		SQLitePath: kbSQLite,
	}, nil)

	svc := knowledge.NewService()
	idx, err := svc.IndexFor(sources)
	if err != nil {
		return err
	}
	res := svc.Lookup(idx, fen, phase, kbTopK, kbMinSim)

	fmt.Printf("%d chunks indexed from [%s]; %d hits for phase %s\n\n",
		idx.Len(), strings.Join(kbSources, ", "), len(res.Hits), phase)
	for i, h := range res.Hits {
		fmt.Printf("%d. [%.3f] %s (%s/%s)\n", i+1, h.Similarity, h.Chunk.Title, h.Chunk.Source, h.Chunk.Phase)
		fmt.Printf("   %s\n", h.Chunk.Content)
	}
	return nil
}

func init() {
	knowledgeCmd.Flags().StringSliceVar(&kbSources, "sources", []string{knowledge.SourceBuiltin}, "Knowledge sources to index")
	knowledgeCmd.Flags().StringVar(&kbSQLite, "sqlite", "", "Path to a sqlite chunk database (for the sqlite source)")
	knowledgeCmd.Flags().StringVar(&kbPhase, "phase", "", "Force a phase (opening, middlegame, endgame)")
	knowledgeCmd.Flags().IntVar(&kbTopK, "top-k", 3, "Number of chunks to retrieve")
	knowledgeCmd.Flags().Float64Var(&kbMinSim, "min-similarity", 0.15, "Minimum cosine similarity")
}
