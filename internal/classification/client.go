package classification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"audio-insights-go/internal/config"
	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

// Result is the unvalidated model output plus token accounting.
type Result struct {
	Raw   json.RawMessage
	Usage *types.Usage
	Model string
}

// Client asks an OpenAI-compatible chat endpoint to classify a timestamped transcript.
type Client struct {
	api   *openai.Client
	model string
	log   *logger.Logger
}

func New(cfg config.LLMConfig, log *logger.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		api:   openai.NewClientWithConfig(oc),
		model: cfg.Model,
		log:   log.Component("classification"),
	}
}

// Classify makes a single request; failures are returned as classification
// errors and never retried.
func (c *Client) Classify(ctx context.Context, timestampedText string) (Result, error) {
	log := c.log.With("model", c.model)
	prompt := BuildPrompt(timestampedText)
	log.WithField("prompt_len", len(prompt)).Debug("sending classification request")

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		log.WithError(err).Warn("classification request failed")
		return Result{}, failure.New(failure.Classification, "classify", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, failure.New(failure.Classification, "classify", errors.New("model returned no choices"))
	}

	content := resp.Choices[0].Message.Content
	log.WithField("http_latency_ms", time.Since(start).Milliseconds()).Debug("llm raw:\n" + content)

	payload := StripFences(content)
	if !json.Valid([]byte(payload)) {
		log.WithField("content_len", len(content)).Warn("model output is not valid JSON")
		return Result{}, failure.New(failure.Classification, "parse model output", errors.New("response is not valid JSON"))
	}

	return Result{
		Raw:   json.RawMessage(payload),
		Usage: usageOf(resp.Usage),
		Model: resp.Model,
	}, nil
}

// usageOf maps the service's token counts; all-zero means the service did not report usage.
func usageOf(u openai.Usage) *types.Usage {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return nil
	}
	return &types.Usage{
		PromptTokens:     u.PromptTokens,
		CandidatesTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
