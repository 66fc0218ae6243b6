// Package llm is the chat-completion client behind the query
// translator: one OpenAI-compatible HTTP endpoint, configurable base
// URL, model, temperature, and token budget.
package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
)

// Config mirrors the llm configuration group.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client wraps the OpenAI-compatible completion API.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient builds a client. A custom BaseURL points the same protocol
// at any compatible server (a local inference box, a proxy, a vendor).
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.ConfigError("llm api key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: slog.Default().With("component", "llm"),
	}, nil
}

// Complete sends one system+user exchange and returns the assistant
// text. The call is bounded by the configured timeout as a deadline,
// never extending one already set on ctx.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := guard.WithDeadline(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		if guard.IsDeadline(err) || callCtx.Err() == context.DeadlineExceeded {
			return nil, errors.TimeoutError(err, "llm completion timed out")
		}
		return nil, errors.UnavailableError(err, "llm completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, "llm returned no choices")
	}

	out := &Response{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      c.cfg.Model,
		Elapsed:    elapsed,
	}
	c.logger.Debug("completion",
		"model", c.cfg.Model,
		"prompt_length", len(req.UserPrompt),
		"response_length", len(out.Content),
		"tokens_used", out.TokensUsed,
		"elapsed", elapsed)
	return out, nil
}
