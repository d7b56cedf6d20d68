// Package enrichment wraps the generative-text backend behind three
// intent-specific calls: an atmospheric quote for the current room
// conditions, a one-sentence email summary, and an urgency classification.
//
// The client speaks the OpenAI chat-completion API and works against any
// OpenAI-compatible endpoint via BaseURL (cloud OpenAI, LocalAI, vLLM).
// Each call independently succeeds or fails; the pipeline isolates failures
// per branch.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/IT22277190/AuraLink-group55/errors"
	"github.com/IT22277190/AuraLink-group55/message"
)

// Prompt templates. The display is a 20x4 character LCD, hence the hard
// character targets in the user prompts.
const (
	quoteSystemPrompt = "You are a poetic writer who creates brief, atmospheric quotes under 150 characters."
	quoteUserPrompt   = "Create a brief, literary quote that captures the mood of %g°C temperature and %g%% humidity. Response must be under 150 characters."

	summarySystemPrompt = "You are a concise summarizer. Provide single-sentence summaries suitable for a 20x4 LCD display."
	summaryUserPrompt   = "Summarize this email in one short sentence (max 80 characters): %s"

	urgencySystemPrompt = "You are an email urgency classifier. Only respond with exactly one word: LOW, MEDIUM, or HIGH."
	urgencyUserPrompt   = "Classify the urgency of this email. Response must be exactly LOW, MEDIUM, or HIGH: %s"
)

// Token budgets per call kind
const (
	quoteMaxTokens   = 60
	summaryMaxTokens = 60
	urgencyMaxTokens = 5
)

// Config configures the enrichment client.
type Config struct {
	// BaseURL of the chat-completion service. Empty means OpenAI cloud.
	BaseURL string

	// APIKey for authentication. Required for OpenAI, optional for
	// self-hosted compatible services.
	APIKey string

	// Model to use (default: gpt-3.5-turbo).
	Model string

	// Timeout applied to each individual call (default: 30s).
	Timeout time.Duration

	// RateLimit caps requests per second across all three call kinds.
	// Zero disables client-side limiting.
	RateLimit float64

	// Logger for call failures (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Client issues the three enrichment calls against the backend.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates an enrichment client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Client", "NewClient", "api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   model,
		timeout: timeout,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Quote generates a short literary quote reflecting the room mood.
func (c *Client) Quote(ctx context.Context, temperature, humidity float64) (string, error) {
	user := fmt.Sprintf(quoteUserPrompt, temperature, humidity)
	text, err := c.complete(ctx, quoteSystemPrompt, user, quoteMaxTokens)
	if err != nil {
		return "", errors.Wrap(err, "Client", "Quote", "generate quote")
	}
	return text, nil
}

// Summarize condenses an email into a single display-friendly sentence.
func (c *Client) Summarize(ctx context.Context, emailContent string) (string, error) {
	user := fmt.Sprintf(summaryUserPrompt, emailContent)
	text, err := c.complete(ctx, summarySystemPrompt, user, summaryMaxTokens)
	if err != nil {
		return "", errors.Wrap(err, "Client", "Summarize", "summarize email")
	}
	return text, nil
}

// ClassifyUrgency classifies an email as LOW, MEDIUM, or HIGH. Free text
// outside that set is normalized to LOW; only a failed call returns an error.
func (c *Client) ClassifyUrgency(ctx context.Context, emailContent string) (message.UrgencyLevel, error) {
	user := fmt.Sprintf(urgencyUserPrompt, emailContent)
	text, err := c.complete(ctx, urgencySystemPrompt, user, urgencyMaxTokens)
	if err != nil {
		return "", errors.Wrap(err, "Client", "ClassifyUrgency", "classify email")
	}

	level := message.ParseUrgencyLevel(text)
	if !message.UrgencyLevel(strings.ToUpper(strings.TrimSpace(text))).IsValid() {
		c.logger.Debug("urgency response outside the valid set, normalized to LOW",
			"response", text)
	}
	return level, nil
}

// complete issues one chat completion with the per-call timeout and shared
// rate limiter applied.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.WrapTransient(err, "Client", "complete", "await rate limiter")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", errors.WrapTransient(errors.ErrBackendUnavailable, "Client", "complete",
			fmt.Sprintf("chat completion: %v", err))
	}

	if len(resp.Choices) == 0 {
		return "", errors.WrapInvalid(errors.ErrBackendMalformed, "Client", "complete",
			"response contained no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.WrapInvalid(errors.ErrBackendMalformed, "Client", "complete",
			"response contained empty content")
	}

	return text, nil
}
