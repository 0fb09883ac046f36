// Package provider abstracts the chat-completion backends. Adapters translate
// one Request into one backend call and normalize errors into the harness
// taxonomy so the retry policy can treat every backend the same way.
package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"chessbench/internal/config"
	"chessbench/internal/types"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation sent to a backend.
type Message struct {
	Role    string
	Content string
}

// Request is a single completion call.
type Request struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
}

// Response is the normalized completion result.
type Response struct {
	Text      string
	Model     string
	Tokens    types.TokenUsage
	LatencyMS float64
	CostUSD   float64
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
	Close() error
}

// apiKeyEnv maps provider name to the environment variable consulted when the
// config leaves api_key empty.
var apiKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// APIKeyEnvVar names the environment variable a provider reads its key from.
func APIKeyEnvVar(providerName string) (string, bool) {
	v, ok := apiKeyEnv[strings.ToLower(providerName)]
	return v, ok
}

// resolveKey returns the API key from config or the provider's env var.
func resolveKey(name, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	envVar, ok := apiKeyEnv[name]
	if !ok {
		return "", nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", &Error{
		Category: CategoryAuth,
		Provider: name,
		Msg:      fmt.Sprintf("no API key: set %s or players.*.api_key", envVar),
	}
}

// New builds the provider named in a player config.
func New(pc config.PlayerConfig) (Provider, error) {
	name := strings.ToLower(pc.Provider)
	switch name {
	case "openai":
		return NewOpenAI(pc)
	case "gemini":
		return NewGemini(pc)
	case "scripted":
		return NewScripted(nil), nil
	default:
		return nil, &Error{
			Category: CategoryUnknownProvider,
			Provider: name,
			Msg:      fmt.Sprintf("unknown provider %q", pc.Provider),
		}
	}
}
