// Package ai provides the gateway between the review pipeline and the
// configured AI providers. The gateway rotates through the primary
// provider's API keys and falls back once to a local model; it never
// surfaces an error to its caller — "no answer" is an empty string.
package ai

import (
	"context"
	"log/slog"
	"strings"
)

// Chatter is a single chat-completion backend.
type Chatter interface {
	Chat(ctx context.Context, question, system string) (string, error)
	Name() string
}

// Config describes the gateway's providers. Keys is the ordered primary key
// rotation; the local model is the single fallback.
type Config struct {
	Provider string // "openai" (default) or "anthropic"
	Keys     []string
	BaseURL  string
	Model    string

	LocalKey     string
	LocalBaseURL string
	LocalModel   string
}

// SplitKeys parses a comma-separated key list from configuration.
func SplitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Gateway answers questions via the primary key rotation with local
// fallback.
type Gateway struct {
	primary  []Chatter
	fallback Chatter
}

// primaryHeaders are required by the hosted provider's routing layer.
var primaryHeaders = map[string]string{
	"useLegacyCompletionsEndpoint": "false",
	"X-Tenant-ID":                  "default_tenant",
}

// NewGateway builds one chatter per primary key plus the local fallback.
func NewGateway(cfg Config) *Gateway {
	g := &Gateway{}
	for _, key := range cfg.Keys {
		if cfg.Provider == "anthropic" {
			g.primary = append(g.primary, NewAnthropicChat(key, cfg.BaseURL, cfg.Model))
		} else {
			g.primary = append(g.primary, NewOpenAIChat(key, cfg.BaseURL, cfg.Model, primaryHeaders))
		}
	}
	if cfg.LocalBaseURL != "" {
		g.fallback = NewOpenAIChat(cfg.LocalKey, cfg.LocalBaseURL, cfg.LocalModel, nil)
	}
	return g
}

// newGatewayWith is the test seam for injecting fake chatters.
func newGatewayWith(primary []Chatter, fallback Chatter) *Gateway {
	return &Gateway{primary: primary, fallback: fallback}
}

// Ask tries each primary key in order, then the local fallback. Every
// provider failure is logged and swallowed; an empty result means all
// options were exhausted.
func (g *Gateway) Ask(ctx context.Context, question, system string) string {
	for _, c := range g.primary {
		answer, err := c.Chat(ctx, question, system)
		if err != nil {
			slog.Error("primary AI provider failed, trying next key", "provider", c.Name(), "error", err)
			continue
		}
		return answer
	}

	if g.fallback == nil {
		slog.Warn("all primary AI keys exhausted and no local fallback configured")
		return ""
	}

	slog.Info("primary AI provider exhausted, switching to local model", "provider", g.fallback.Name())
	answer, err := g.fallback.Chat(ctx, question, system)
	if err != nil {
		slog.Error("local AI fallback failed", "provider", g.fallback.Name(), "error", err)
		return ""
	}
	return answer
}
