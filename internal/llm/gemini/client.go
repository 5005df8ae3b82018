// Package gemini implements the llm.Provider interface on top of the
// Google GenAI SDK.
package gemini

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/contestprep/examforge/internal/llm"
	"github.com/contestprep/examforge/pkg/logging"
)

// Client is a Gemini-backed LLM provider.
type Client struct {
	client *genai.Client
	config *Config
	log    zerolog.Logger
}

// NewClient creates a Gemini client
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: "gemini",
			Code:     llm.ErrCodeAPIKey,
			Message:  "failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
		log:    logging.GetLogger("gemini"),
	}, nil
}

func (c *Client) Name() string { return "gemini" }

// Generate performs one generation call with exponential backoff. This is
// the only layer that deliberately re-attempts an operation the caller
// already tried once; everything above treats a returned error as final.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	genConfig := &genai.GenerateContentConfig{}
	if req.JSONOutput {
		genConfig.ResponseMIMEType = "application/json"
	}
	if req.UseSearch {
		genConfig.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.ThinkingBudget > 0 {
		genConfig.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(req.ThinkingBudget),
		}
	}

	var lastErr error
	delay := c.config.RetryBaseDelay

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("model", model).
				Msg("Retrying generation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &llm.ProviderError{
					Provider: "gemini",
					Code:     llm.ErrCodeServiceDown,
					Message:  "generation canceled",
					Err:      ctx.Err(),
				}
			}
			delay *= 2
		}

		start := time.Now()
		result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genConfig)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Str("model", model).Msg("Generation attempt failed")
			continue
		}

		text := result.Text()
		if text == "" {
			lastErr = &llm.ProviderError{
				Provider: "gemini",
				Code:     llm.ErrCodeEmptyOutput,
				Message:  "empty response generated",
			}
			continue
		}

		c.log.Debug().
			Str("model", model).
			Int("response_chars", len(text)).
			Dur("duration", time.Since(start)).
			Msg("Generation completed")
		return text, nil
	}

	return "", &llm.ProviderError{
		Provider: "gemini",
		Code:     llm.ErrCodeServiceDown,
		Message:  "generation failed after retries",
		Err:      lastErr,
	}
}
