package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
)

// Backend is the minimal completion surface the extraction handlers need.
// Tests swap in a canned implementation.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// stopSequences halts generation once the model finishes its JSON answer,
// before it starts fencing or repeating output.
var stopSequences = []string{"```", "\n\n\n", "</json>"}

// Client talks to an OpenAI-compatible chat completions endpoint, which
// includes local llama.cpp / vLLM servers.
type Client struct {
	api *openai.Client
	cfg common.LLMConfig
	log *slog.Logger
}

func NewClient(cfg common.LLMConfig, log *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
		log: log,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stop:        stopSequences,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.log.Error("llm.complete.failed",
			"model", c.cfg.Model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", common.WrapError(err, "llm completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", common.NewAppError("LLM_EMPTY", "llm returned no choices", common.ErrInternal)
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug("llm.complete.ok",
		"model", c.cfg.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_chars", len(prompt),
		"response_chars", len(content))
	return content, nil
}
