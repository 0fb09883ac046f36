package board

import "chessbench/internal/types"

// State is the per-ply snapshot handed to players and the prompt builder.
type State struct {
	FEN         string
	PGN         string
	MoveNumber  int
	PlyNumber   int // 1-indexed ply about to be played
	ActiveColor types.Color
	LegalUCI    []string
	LegalSAN    []string
	Phase       types.Phase
	InCheck     bool
	Terminal    bool
	Termination string
	History     []string
}

// State derives the current snapshot from the board.
func (b *Board) State() State {
	terminal, termination := b.Terminal()
	s := State{
		FEN:         b.FEN(),
		PGN:         b.PGN(),
		MoveNumber:  b.FullMove(),
		PlyNumber:   b.PlyCount() + 1,
		ActiveColor: b.Turn(),
		Phase:       PhaseOf(b.FullMove(), b.PieceCount()),
		InCheck:     b.InCheck(),
		Terminal:    terminal,
		Termination: termination,
		History:     b.History(),
	}
	if !terminal {
		s.LegalUCI = b.LegalUCI()
		s.LegalSAN = b.LegalSAN()
	}
	return s
}
