package prompt

import (
	"strings"

	"chessbench/internal/board"
)

// Board formats accepted by RenderBoard.
const (
	FormatFEN      = "fen"
	FormatASCII    = "ascii"
	FormatUnicode  = "unicode"
	FormatPGN      = "pgn"
	FormatCombined = "combined"
)

var unicodePieces = map[byte]string{
	'K': "♔", 'Q': "♕", 'R': "♖", 'B': "♗", 'N': "♘", 'P': "♙",
	'k': "♚", 'q': "♛", 'r': "♜", 'b': "♝", 'n': "♞", 'p': "♟",
}

// RenderBoard renders a position in the configured format. combined stacks
// the FEN above an ASCII diagram, which is what most models read best.
func RenderBoard(st board.State, format string) string {
	switch format {
	case FormatASCII:
		return renderGrid(st.FEN, false)
	case FormatUnicode:
		return renderGrid(st.FEN, true)
	case FormatPGN:
		if st.PGN == "" {
			return "(no moves played)"
		}
		return st.PGN
	case FormatCombined:
		return "FEN: " + st.FEN + "\n\n" + renderGrid(st.FEN, false)
	default:
		return "FEN: " + st.FEN
	}
}

// renderGrid draws the 8x8 diagram from the FEN placement field, rank 8 at
// the top, with file letters underneath.
func renderGrid(fen string, unicode bool) string {
	placement := fen
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		placement = fen[:i]
	}

	var b strings.Builder
	ranks := strings.Split(placement, "/")
	for i, rank := range ranks {
		b.WriteString(string(rune('8' - i)))
		b.WriteString(" |")
		for j := 0; j < len(rank); j++ {
			c := rank[j]
			if c >= '1' && c <= '8' {
				for n := 0; n < int(c-'0'); n++ {
					b.WriteString(" .")
				}
				continue
			}
			b.WriteByte(' ')
			if unicode {
				b.WriteString(unicodePieces[c])
			} else {
				b.WriteByte(c)
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("   ----------------\n")
	b.WriteString("    a b c d e f g h")
	return b.String()
}
