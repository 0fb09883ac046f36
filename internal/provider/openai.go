package provider

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"chessbench/internal/config"
	"chessbench/internal/types"
)

// OpenAI adapts the OpenAI chat completion API. base_url in the player
// config redirects it at any OpenAI-compatible server.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the adapter from a player config.
func NewOpenAI(pc config.PlayerConfig) (*OpenAI, error) {
	key, err := resolveKey("openai", pc.APIKey)
	if err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(key)
	if pc.BaseURL != "" {
		cfg.BaseURL = pc.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: pc.Model}, nil
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

// Complete implements Provider.
func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	ccr := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		ccr.MaxCompletionTokens = req.MaxTokens
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, ccr)
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Response{}, Categorize("openai", apiErr.HTTPStatusCode, err)
		}
		return Response{}, Categorize("openai", 0, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, &Error{Category: CategoryInvalidResponse, Provider: "openai", Msg: "no choices returned"}
	}

	usage := types.TokenUsage{
		Input:  resp.Usage.PromptTokens,
		Output: resp.Usage.CompletionTokens,
	}
	return Response{
		Text:      resp.Choices[0].Message.Content,
		Model:     resp.Model,
		Tokens:    usage,
		LatencyMS: latency,
		CostUSD:   EstimateCost(resp.Model, usage.Input, usage.Output),
	}, nil
}

// Close implements Provider.
func (o *OpenAI) Close() error { return nil }
