package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/pkg/logger"
)

// Supported providers. Both speak the OpenAI chat-completions protocol.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOllamaModel   = "llama3.1:8b"

	explainSystemPrompt = "You are a product expert giving personalized, safety-first recommendations for pets, babies and adults."
	compareSystemPrompt = "You are a product expert comparing products for one specific profile."
)

// Config holds the generative backend settings
type Config struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float32
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

// Client implements domain.ExplanationGenerator over an OpenAI-compatible API
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	rateLimiter *rate.Limiter
	cb          *gobreaker.CircuitBreaker[string]
	log         *zap.Logger
}

// NewClient creates a generator client for the configured provider
func NewClient(cfg Config) (*Client, error) {
	provider := strings.ToLower(cfg.Provider)
	baseURL, model, apiKey := cfg.BaseURL, cfg.Model, cfg.APIKey

	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		if model == "" {
			model = defaultOpenAIModel
		}
	case ProviderOllama:
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		if model == "" {
			model = defaultOllamaModel
		}
		if apiKey == "" {
			apiKey = "ollama" // ignored by ollama, required by the client
		}
	default:
		return nil, fmt.Errorf("unsupported explanation provider: %q", cfg.Provider)
	}

	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = strings.TrimSuffix(baseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 4
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	c := &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:         logger.Named("llm"),
	}
	c.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "explanation-generator",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not a backend failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	c.log.Info("LLM client initialized",
		zap.String("provider", provider),
		zap.String("base_url", oc.BaseURL),
		zap.String("model", model),
	)
	return c, nil
}

// Explain asks the model for an explanation of an already computed score
func (c *Client) Explain(ctx context.Context, prompt domain.ExplainPrompt) (*domain.GeneratedExplanation, error) {
	content, err := c.complete(ctx, explainSystemPrompt, buildExplainPrompt(prompt))
	if err != nil {
		return nil, err
	}
	return ParseExplanation(content), nil
}

// Summarize asks the model for a comparison summary
func (c *Client) Summarize(ctx context.Context, prompt domain.ComparePrompt) (string, error) {
	content, err := c.complete(ctx, compareSystemPrompt, buildComparePrompt(prompt))
	if err != nil {
		return "", err
	}
	return ParseSummary(content), nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	content, err := c.cb.Execute(func() (string, error) {
		return c.completeWithRetry(ctx, system, user)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
		}
		return "", err
	}
	return content, nil
}

// completeWithRetry retries transient failures (network, 429, 5xx) while ctx allows
func (c *Client) completeWithRetry(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		content, err := c.createCompletion(ctx, system, user)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.log.Debug("retrying completion", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", lastErr
}

func (c *Client) createCompletion(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", domain.ErrGeneratorUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", domain.ErrGeneratorUnavailable)
	}

	c.log.Debug("LLM completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// exponentialBackoff returns 250ms, 500ms, 1s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * 250 * time.Millisecond
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
