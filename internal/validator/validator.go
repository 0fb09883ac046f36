// Package validator parses model output into a legal chess move and builds
// the retry feedback shown to the model after a failed attempt.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"chessbench/internal/board"
	"chessbench/internal/types"
)

// Error codes carried on a validation result.
const (
	ErrNone        = "none"
	ErrParseFailed = "parse_failed"
	ErrIllegalMove = "illegal_move"
)

// Result is the outcome of validating one model response.
type Result struct {
	MoveUCI   string
	ParseOK   bool
	IsLegal   bool
	ErrorCode string
}

var (
	packedRE = regexp.MustCompile(`\b([a-h][1-8])([a-h][1-8])([qrbn])?\b`)
	dashedRE = regexp.MustCompile(`\b([a-h][1-8])-([a-h][1-8])([qrbn])?\b`)
	spacedRE = regexp.MustCompile(`\b([a-h][1-8])\s+([a-h][1-8])\b`)
	sanRE    = regexp.MustCompile(`\b([KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=[QRBN])?[+#]?|O-O(?:-O)?)\b`)
)

// NormalizeUCI extracts a UCI move from free-form model text. It tries, in
// order: packed UCI (e2e4, optionally with promotion), dashed (e2-e4),
// space-separated (e2 e4), and finally SAN resolved against the position
// when a FEN is available. Returns "" when nothing parses.
func NormalizeUCI(text, fen string) string {
	lower := strings.ToLower(text)

	if m := packedRE.FindStringSubmatch(lower); m != nil {
		return m[1] + m[2] + m[3]
	}
	if m := dashedRE.FindStringSubmatch(lower); m != nil {
		return m[1] + m[2] + m[3]
	}
	if m := spacedRE.FindStringSubmatch(lower); m != nil {
		return m[1] + m[2]
	}

	if fen != "" {
		// SAN is case-sensitive; scan the original text.
		for _, m := range sanRE.FindAllString(text, -1) {
			if uci, err := board.SANToUCI(fen, m); err == nil {
				return uci
			}
		}
	}
	return ""
}

// Validate parses the text and checks the move against the legal set.
func Validate(text string, legalMoves []string, fen string) Result {
	uci := NormalizeUCI(text, fen)
	if uci == "" {
		return Result{ParseOK: false, IsLegal: false, ErrorCode: ErrParseFailed}
	}
	for _, legal := range legalMoves {
		if legal == uci {
			return Result{MoveUCI: uci, ParseOK: true, IsLegal: true, ErrorCode: ErrNone}
		}
	}
	return Result{MoveUCI: uci, ParseOK: true, IsLegal: false, ErrorCode: ErrIllegalMove}
}

// maxPreviewMoves bounds the legal-move preview in rich feedback.
const maxPreviewMoves = 20

// BuildRetryFeedback renders the correction shown to the model on the next
// attempt, scaled by the configured feedback level.
func BuildRetryFeedback(v Result, level string, legalMoves []string, phase types.Phase) string {
	switch level {
	case "minimal":
		return "Your previous reply did not contain a legal move. Reply with one legal move in UCI notation only."
	case "rich":
		reason := failureReason(v)
		preview := legalMoves
		if len(preview) > maxPreviewMoves {
			preview = preview[:maxPreviewMoves]
		}
		return fmt.Sprintf(
			"%s The game is in the %s phase. Legal moves include: %s. Reply with exactly one of them in UCI notation.",
			reason, phase, strings.Join(preview, " "))
	default: // moderate
		return failureReason(v) + " Reply with one legal move in UCI notation only."
	}
}

func failureReason(v Result) string {
	switch v.ErrorCode {
	case ErrIllegalMove:
		return fmt.Sprintf("The move %s is not legal in the current position.", v.MoveUCI)
	default:
		return "Your previous reply could not be parsed as a chess move."
	}
}
