// Package board is the narrow wrapper around the chess rules library. The
// rest of the harness speaks FEN, UCI, and SAN strings; only this package
// touches notnil/chess directly.
package board

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	"chessbench/internal/types"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Board tracks one game of chess.
type Board struct {
	game    *chess.Game
	history []string
	lastSAN string
}

// New returns a board at the standard starting position.
func New() *Board {
	return &Board{game: chess.NewGame()}
}

// FromFEN returns a board at an arbitrary position.
func FromFEN(fen string) (*Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return &Board{game: chess.NewGame(opt)}, nil
}

// FEN returns the current position.
func (b *Board) FEN() string {
	return b.game.Position().String()
}

// PGN exports the move text of the game so far.
func (b *Board) PGN() string {
	return strings.TrimSpace(b.game.String())
}

// Turn returns the side to move.
func (b *Board) Turn() types.Color {
	if b.game.Position().Turn() == chess.White {
		return types.ColorWhite
	}
	return types.ColorBlack
}

// History returns the UCI moves played so far.
func (b *Board) History() []string {
	return append([]string(nil), b.history...)
}

// PlyCount is the number of plies played on this board.
func (b *Board) PlyCount() int {
	return len(b.history)
}

// legalPairs returns (uci, san) pairs sorted by UCI for determinism.
func (b *Board) legalPairs() [][2]string {
	pos := b.game.Position()
	moves := b.game.ValidMoves()
	pairs := make([][2]string, 0, len(moves))
	for _, m := range moves {
		uci := chess.UCINotation{}.Encode(pos, m)
		san := chess.AlgebraicNotation{}.Encode(pos, m)
		pairs = append(pairs, [2]string{uci, san})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}

// LegalUCI lists legal moves in UCI, sorted.
func (b *Board) LegalUCI() []string {
	pairs := b.legalPairs()
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p[0]
	}
	return out
}

// LegalSAN lists legal moves in SAN, index-aligned with LegalUCI.
func (b *Board) LegalSAN() []string {
	pairs := b.legalPairs()
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p[1]
	}
	return out
}

// Push applies a UCI move and returns its SAN rendering.
func (b *Board) Push(uci string) (string, error) {
	pos := b.game.Position()
	move, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return "", fmt.Errorf("decoding move %q: %w", uci, err)
	}
	san := chess.AlgebraicNotation{}.Encode(pos, move)
	if err := b.game.Move(move); err != nil {
		return "", fmt.Errorf("applying move %q: %w", uci, err)
	}
	b.history = append(b.history, uci)
	b.lastSAN = san
	return san, nil
}

// InCheck reports whether the side to move is currently in check, derived
// from the SAN of the last applied move.
func (b *Board) InCheck() bool {
	return strings.HasSuffix(b.lastSAN, "+") || strings.HasSuffix(b.lastSAN, "#")
}

// FullMove returns the fullmove counter from the FEN.
func (b *Board) FullMove() int {
	fields := strings.Fields(b.FEN())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PieceCount counts pieces on the board from the FEN placement field.
func (b *Board) PieceCount() int {
	return PieceCountFEN(b.FEN())
}

// PieceCountFEN counts pieces in a FEN placement field.
func PieceCountFEN(fen string) int {
	placement := strings.Fields(fen)[0]
	n := 0
	for _, r := range placement {
		switch {
		case r == '/' || (r >= '1' && r <= '8'):
		default:
			n++
		}
	}
	return n
}

// PhaseOf classifies a position: opening while fullmove <= 12, endgame at
// 10 or fewer pieces, middlegame otherwise. Endgame wins when both apply is
// irrelevant because openings never reach 10 pieces.
func PhaseOf(fullMove, pieceCount int) types.Phase {
	if fullMove <= 12 {
		return types.PhaseOpening
	}
	if pieceCount <= 10 {
		return types.PhaseEndgame
	}
	return types.PhaseMiddlegame
}

// PhaseOfFEN classifies a standalone FEN.
func PhaseOfFEN(fen string) types.Phase {
	fullMove := 1
	if fields := strings.Fields(fen); len(fields) >= 6 {
		if n, err := strconv.Atoi(fields[5]); err == nil && n >= 1 {
			fullMove = n
		}
	}
	return PhaseOf(fullMove, PieceCountFEN(fen))
}

// Terminal reports whether the game is over and maps the library's method
// onto the harness termination taxonomy.
func (b *Board) Terminal() (bool, string) {
	if b.game.Outcome() == chess.NoOutcome {
		return false, ""
	}
	switch b.game.Method() {
	case chess.Checkmate:
		return true, types.TerminationCheckmate
	case chess.Stalemate:
		return true, types.TerminationStalemate
	case chess.FiftyMoveRule, chess.SeventyFiveMoveRule:
		return true, types.TerminationDrawMoveRule
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return true, types.TerminationDrawRepetition
	case chess.InsufficientMaterial:
		return true, types.TerminationDrawInsufficient
	default:
		return true, types.TerminationDrawRule
	}
}

// Result maps the library outcome onto the PGN result string.
func (b *Board) Result() types.Result {
	switch b.game.Outcome() {
	case chess.WhiteWon:
		return types.ResultWhiteWins
	case chess.BlackWon:
		return types.ResultBlackWins
	case chess.Draw:
		return types.ResultDraw
	default:
		return types.ResultUnknown
	}
}

// SANToUCI resolves a SAN move against a position.
func SANToUCI(fen, san string) (string, error) {
	b, err := FromFEN(fen)
	if err != nil {
		return "", err
	}
	pos := b.game.Position()
	move, err := chess.AlgebraicNotation{}.Decode(pos, san)
	if err != nil {
		return "", fmt.Errorf("decoding SAN %q: %w", san, err)
	}
	return chess.UCINotation{}.Encode(pos, move), nil
}

// ApplyToFEN applies a UCI move to a FEN and returns the resulting FEN.
// Used by the evaluation pipeline to score the position after a move.
func ApplyToFEN(fen, uci string) (string, error) {
	b, err := FromFEN(fen)
	if err != nil {
		return "", err
	}
	if _, err := b.Push(uci); err != nil {
		return "", err
	}
	return b.FEN(), nil
}

// LegalMovesFEN lists legal UCI moves for a FEN without building a Board at
// the call site.
func LegalMovesFEN(fen string) ([]string, error) {
	b, err := FromFEN(fen)
	if err != nil {
		return nil, err
	}
	return b.LegalUCI(), nil
}
