// Package llm adapts an OpenAI-compatible chat-completions endpoint to
// the core.CompletionClient port, metering token spend per call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sacha-rebbouh/angeldesk/internal/config"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// Client calls a chat-completions API compatible with the OpenAI wire
// format. Cost is computed locally from usage tokens and the
// configured per-1K prices, so a provider that omits pricing still
// meters consistently.
type Client struct {
	endpoint        string
	apiKey          string
	model           string
	costPer1KInput  float64
	costPer1KOutput float64
	httpClient      *http.Client
	log             *logging.Logger
}

// NewClient creates a client from configuration.
func NewClient(cfg config.LLMConfig, log *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, core.ErrConfig(core.CodeInvalidConfig, "llm.endpoint is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, core.ErrConfig(core.CodeInvalidConfig, "llm.model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{
		endpoint:        cfg.Endpoint,
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		costPer1KInput:  cfg.CostPer1KInput,
		costPer1KOutput: cfg.CostPer1KOutput,
		httpClient:      &http.Client{Timeout: timeout},
		log:             log,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one completion request and returns the raw text with
// its metered cost. The returned text is untrusted free text; callers
// guard it before use.
func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, core.ErrExecution(core.CodeAgentFailed, "encoding completion request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, core.ErrExecution(core.CodeAgentFailed, "building completion request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, core.ErrTimeout("completion request timed out").WithCause(err)
		}
		return nil, &core.DomainError{
			Category:  core.ErrCatNetwork,
			Code:      "COMPLETION_UNREACHABLE",
			Message:   "completion endpoint unreachable",
			Retryable: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrExecution(core.CodeAgentFailed, "reading completion response").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.ErrRateLimit("completion API rate limited")
	case resp.StatusCode >= 500:
		return nil, core.ErrExecution(core.CodeAgentFailed,
			fmt.Sprintf("completion API returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		// Client errors (bad key, bad model) will not improve with
		// retries.
		e := core.ErrExecution(core.CodeAgentFailed,
			fmt.Sprintf("completion API returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
		e.Retryable = false
		return nil, e
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, core.ErrExecution(core.CodeCompletionMalformed, "completion response is not valid JSON").WithCause(err)
	}
	if parsed.Error != nil {
		return nil, core.ErrExecution(core.CodeAgentFailed,
			fmt.Sprintf("completion API error: %s (%s)", parsed.Error.Message, parsed.Error.Type))
	}
	if len(parsed.Choices) == 0 {
		return nil, core.ErrExecution(core.CodeCompletionMalformed, "completion response has no choices")
	}

	completion := &core.Completion{
		Text:     parsed.Choices[0].Message.Content,
		Duration: duration,
	}
	if parsed.Usage != nil {
		completion.TokensIn = parsed.Usage.PromptTokens
		completion.TokensOut = parsed.Usage.CompletionTokens
		completion.CostUSD = float64(completion.TokensIn)/1000*c.costPer1KInput +
			float64(completion.TokensOut)/1000*c.costPer1KOutput
	}
	c.log.Debug("completion served",
		"model", c.model,
		"tokens_in", completion.TokensIn,
		"tokens_out", completion.TokensOut,
		"cost_usd", completion.CostUSD,
		"duration", duration.String())
	return completion, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ core.CompletionClient = (*Client)(nil)
