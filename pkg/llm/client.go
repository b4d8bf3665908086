// Package llm is a minimal client for an OpenAI-compatible chat completion
// endpoint. It performs single-shot completions with no retries; callers
// decide how to surface failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/RoberAF/chatbot/config"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/pkg/logger"
)

// Completer produces a single completion for a prompt pair.
type Completer interface {
	// Complete sends a system prompt plus a user message and returns the
	// assistant reply text.
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	// CompleteSystem sends a system prompt alone. Used for generated
	// persona traits and proactive messages.
	CompleteSystem(ctx context.Context, systemPrompt string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls a chat-completions API over HTTP.
type Client struct {
	http  *resty.Client
	model string
}

func NewClient(cfg *config.Config) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.OpenAI.BaseURL, "/")).
		SetTimeout(cfg.OpenAI.Timeout).
		SetHeader("Content-Type", "application/json")

	if cfg.OpenAI.APIKey != "" {
		httpClient.SetAuthToken(cfg.OpenAI.APIKey)
	}

	return &Client{
		http:  httpClient,
		model: cfg.OpenAI.Model,
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userMessage},
	})
}

func (c *Client) CompleteSystem(ctx context.Context, systemPrompt string) (string, error) {
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
	})
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	var result chatResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: messages}).
		SetResult(&result).
		Post("/chat/completions")

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			logger.WarnWithContext(ctx, "Completion request timed out").
				String("model", c.model).
				Err(err).
				Log()
			return "", apperrors.WrapError(apperrors.ErrOracleTimeout, err)
		}
		logger.ErrorWithContext(ctx, "Completion request failed").
			String("model", c.model).
			Err(err).
			Log()
		return "", apperrors.WrapError(apperrors.ErrOracleFailure, err)
	}

	if resp.StatusCode() != http.StatusOK {
		logger.ErrorWithContext(ctx, "Completion endpoint returned an error").
			String("model", c.model).
			Int("status", resp.StatusCode()).
			Log()
		detail := fmt.Errorf("completion endpoint returned status %d", resp.StatusCode())
		if result.Error != nil && result.Error.Message != "" {
			detail = fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode(), result.Error.Message)
		}
		return "", apperrors.WrapError(apperrors.ErrOracleFailure, detail)
	}

	if len(result.Choices) == 0 {
		return "", apperrors.WrapError(apperrors.ErrOracleBadOutput,
			errors.New("completion response contained no choices"))
	}

	return result.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
