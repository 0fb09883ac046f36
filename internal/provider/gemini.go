package provider

import (
	"context"
	"time"

	"google.golang.org/genai"

	"chessbench/internal/config"
	"chessbench/internal/types"
)

// Gemini adapts the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds the adapter from a player config.
func NewGemini(pc config.PlayerConfig) (*Gemini, error) {
	key, err := resolveKey("gemini", pc.APIKey)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, &Error{Category: CategoryUnknown, Provider: "gemini", Msg: "creating client", Err: err}
	}
	return &Gemini{client: client, model: pc.Model}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Complete implements Provider. System messages become the system
// instruction; the rest of the conversation maps onto user/model contents.
func (g *Gemini) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		return Response{}, Categorize("gemini", apiStatus(err), err)
	}
	text := resp.Text()
	if text == "" {
		return Response{}, &Error{Category: CategoryInvalidResponse, Provider: "gemini", Msg: "empty completion"}
	}

	var usage types.TokenUsage
	if um := resp.UsageMetadata; um != nil {
		usage = types.TokenUsage{
			Input:  int(um.PromptTokenCount),
			Output: int(um.CandidatesTokenCount),
		}
	}
	return Response{
		Text:      text,
		Model:     model,
		Tokens:    usage,
		LatencyMS: latency,
		CostUSD:   EstimateCost(model, usage.Input, usage.Output),
	}, nil
}

// apiStatus extracts the HTTP status from a genai API error when present.
func apiStatus(err error) int {
	if apiErr, ok := err.(genai.APIError); ok {
		return apiErr.Code
	}
	return 0
}

// Close implements Provider. The genai client holds no resources that
// require explicit release.
func (g *Gemini) Close() error {
	return nil
}
