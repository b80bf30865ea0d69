package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/competitor-cli/internal/model"
	"github.com/sells-group/competitor-cli/pkg/anthropic"
	"github.com/sells-group/competitor-cli/pkg/openai"
)

// Completer runs one system+user prompt against an inference provider.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is a single prompt.
type CompletionRequest struct {
	Stage     string
	System    string
	Prompt    string
	MaxTokens int
}

// Completion is the raw model output plus the usage it incurred.
type Completion struct {
	Text  string
	Usage model.Usage
}

// AnthropicCompleter adapts the Anthropic Messages client.
type AnthropicCompleter struct {
	Client anthropic.Client
	Model  string
}

// Complete implements Completer.
func (a *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := 0.2
	resp, err := a.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.Model,
		MaxTokens:   int64(req.MaxTokens),
		System:      []anthropic.SystemBlock{{Text: req.System}},
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(a.Model, req.Stage)
	return &Completion{
		Text: resp.Text(),
		Usage: model.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			AICalls:      1,
		},
	}, nil
}

// OpenAICompleter adapts an OpenAI-compatible chat completions client.
type OpenAICompleter struct {
	Client openai.Client
	Model  string
}

// Complete implements Completer.
func (o *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := 0.2
	maxTokens := req.MaxTokens
	resp, err := o.Client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}
	return &Completion{
		Text: resp.Content(),
		Usage: model.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			AICalls:      1,
		},
	}, nil
}

// askJSON sends req and decodes the reply into T. It reports false when no
// completer is configured, the call fails or times out, or the reply is not
// valid JSON. Usage is returned for any call that reached the provider.
func askJSON[T any](ctx context.Context, ai Completer, timeout time.Duration, req CompletionRequest) (T, model.Usage, bool) {
	var zero T
	if ai == nil {
		aiCalls.WithLabelValues(req.Stage, "unavailable").Inc()
		return zero, model.Usage{}, false
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := ai.Complete(ctx, req)
	if err != nil {
		aiCalls.WithLabelValues(req.Stage, "error").Inc()
		zap.L().Warn("pipeline: inference call failed", zap.String("stage", req.Stage), zap.Error(err))
		return zero, model.Usage{}, false
	}

	var out T
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &out); err != nil {
		aiCalls.WithLabelValues(req.Stage, "invalid_json").Inc()
		zap.L().Warn("pipeline: inference reply is not valid json",
			zap.String("stage", req.Stage),
			zap.String("reply", truncate(resp.Text, 200)),
		)
		return zero, resp.Usage, false
	}

	aiCalls.WithLabelValues(req.Stage, "ok").Inc()
	return out, resp.Usage, true
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// stringList trims, drops empties and case-insensitively dedupes values,
// removing any that reject returns true for, and caps the result.
func stringList(values []string, limit int, reject func(string) bool) []string {
	return dedupeCapped(values, limit, func(s string) bool {
		return reject == nil || !reject(s)
	})
}
