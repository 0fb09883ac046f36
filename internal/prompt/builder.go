package prompt

import (
	"fmt"
	"strings"

	"chessbench/internal/board"
	"chessbench/internal/config"
)

// Block names used in strategy.context.compression_order.
const (
	BlockHistory    = "history"
	BlockLegalMoves = "legal_moves"
	BlockFewShot    = "few_shot"
	BlockKnowledge  = "knowledge"
)

// TruncationMarker is appended when hard truncation was required after all
// droppable blocks were removed.
const TruncationMarker = "\n[prompt truncated to fit context budget]"

// KnowledgeItem is a retrieved chunk rendered into the prompt. The caller
// owns retrieval; the builder only formats.
type KnowledgeItem struct {
	Title   string
	Content string
}

// Input carries everything one move prompt needs.
type Input struct {
	State     board.State
	Strategy  config.StrategyConfig
	Knowledge []KnowledgeItem
	Feedback  string // retry feedback from the previous failed attempt
}

// Built is the assembled prompt plus what compression did to it.
type Built struct {
	Text          string
	Chars         int
	DroppedBlocks []string
	Truncated     bool
}

type block struct {
	name string
	text string
}

// Build assembles the user message in fixed block order, then compresses:
// droppable blocks are removed in the configured order until the prompt fits
// max_prompt_chars, and only then is the text hard-truncated with a marker.
func Build(in Input) Built {
	st := in.State
	blocks := []block{
		{"instructions", "Choose the best move for the side to play. Reply with exactly one legal move in UCI notation."},
		{"phase", "Game phase: " + string(st.Phase)},
		{"side_to_move", "Side to move: " + string(st.ActiveColor)},
		{"board", RenderBoard(st, in.Strategy.BoardFormat)},
	}

	if len(in.Knowledge) > 0 {
		var b strings.Builder
		b.WriteString("Relevant chess knowledge:\n")
		for _, item := range in.Knowledge {
			fmt.Fprintf(&b, "- %s: %s\n", item.Title, strings.TrimSpace(item.Content))
		}
		blocks = append(blocks, block{BlockKnowledge, strings.TrimRight(b.String(), "\n")})
	}

	if examples := SelectExamples(in.Strategy.FewShot, st.Phase); len(examples) > 0 {
		blocks = append(blocks, block{BlockFewShot, renderExamples(examples)})
	}

	if hist := historyBlock(st, in.Strategy.Context.HistoryPlies); hist != "" {
		blocks = append(blocks, block{BlockHistory, hist})
	}

	blocks = append(blocks, block{BlockLegalMoves, "Legal moves: " + strings.Join(st.LegalUCI, " ")})

	if in.Feedback != "" {
		blocks = append(blocks, block{"feedback", in.Feedback})
	}

	return compress(blocks, in.Strategy.Context)
}

// historyBlock renders the last N plies in SAN, oldest first.
func historyBlock(st board.State, plies int) string {
	if plies <= 0 || len(st.History) == 0 {
		return ""
	}
	hist := st.History
	if len(hist) > plies {
		hist = hist[len(hist)-plies:]
	}
	return "Recent moves: " + strings.Join(hist, " ")
}

func compress(blocks []block, cc config.ContextConfig) Built {
	out := Built{}
	text := join(blocks)
	if cc.MaxPromptChars <= 0 || len(text) <= cc.MaxPromptChars {
		out.Text = text
		out.Chars = len(text)
		return out
	}

	for _, name := range cc.CompressionOrder {
		if len(text) <= cc.MaxPromptChars {
			break
		}
		kept := blocks[:0:0]
		dropped := false
		for _, b := range blocks {
			if b.name == name {
				dropped = true
				continue
			}
			kept = append(kept, b)
		}
		if dropped {
			blocks = kept
			out.DroppedBlocks = append(out.DroppedBlocks, name)
			text = join(blocks)
		}
	}

	if len(text) > cc.MaxPromptChars {
		cut := cc.MaxPromptChars - len(TruncationMarker)
		if cut < 0 {
			cut = 0
		}
		text = text[:cut] + TruncationMarker
		out.Truncated = true
	}
	// The note rides outside the char budget so the model sees what was
	// elided even when the content blocks filled it exactly. Hard truncation
	// already ends the prompt with its own marker, so no note then.
	if len(out.DroppedBlocks) > 0 && !out.Truncated {
		text += "\n\n[compressed: dropped " + strings.Join(out.DroppedBlocks, ", ") + "]"
	}
	out.Text = text
	out.Chars = len(text)
	return out
}

func join(blocks []block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.text
	}
	return strings.Join(parts, "\n\n")
}
