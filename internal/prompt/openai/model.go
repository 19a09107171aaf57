// Package openai implements prompt.Model on the OpenAI chat completions API
// using structured JSON-schema output.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/ai4care/ai4care/internal/prompt"
	"github.com/ai4care/ai4care/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in logs, metrics and the
	// resilience registry.
	ProviderName = "openai"

	// DefaultModel is used when neither the config nor the prompt names one.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single completion.
	DefaultTimeout = 30 * time.Second
)

// Config configures the OpenAI model.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a compatible gateway.
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Registry    *resilience.Registry
	Logger      zerolog.Logger
}

// Model is a prompt.Model backed by go-openai.
type Model struct {
	client       *goopenai.Client
	http         *resilience.Client
	defaultModel string
	temperature  float32
	logger       zerolog.Logger
}

// New creates a Model. Calls go through a single-shot resilience client:
// a circuit breaker and timeout, never a retry.
func New(cfg Config) (*Model, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpCfg := resilience.SingleShotConfig(ProviderName, cfg.Timeout)
	httpCfg.Registry = cfg.Registry
	httpClient := resilience.NewClient(httpCfg)

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient

	return &Model{
		client:       goopenai.NewClientWithConfig(clientCfg),
		http:         httpClient,
		defaultModel: cfg.Model,
		temperature:  cfg.Temperature,
		logger:       cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}, nil
}

// Name returns the provider name.
func (m *Model) Name() string {
	return ProviderName
}

// Generate sends one chat completion carrying the JSON schema of req.Output
// and returns the first choice's content.
func (m *Model) Generate(ctx context.Context, req prompt.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = m.defaultModel
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.User,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: m.temperature,
	}

	if req.Output != nil {
		schema, err := jsonschema.GenerateSchemaForType(req.Output)
		if err != nil {
			return "", fmt.Errorf("openai: generating schema for %s: %w", req.Prompt, err)
		}
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Prompt,
				Schema: schema,
				Strict: true,
			},
		}
	}

	resp, err := m.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", prompt.ErrEmptyResponse
	}

	m.logger.Debug().
		Str("prompt", req.Prompt).
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion finished")

	return resp.Choices[0].Message.Content, nil
}

// classify maps go-openai and transport errors onto the prompt sentinels
// while keeping the original in the chain.
func classify(err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", prompt.ErrProviderUnavailable, err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", prompt.ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", prompt.ErrProviderUnavailable, err)
		}
		return fmt.Errorf("openai: %w", err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", prompt.ErrProviderUnavailable, err)
	}

	return fmt.Errorf("openai: %w", err)
}

// CircuitBreakerState exposes the breaker state for status reporting.
func (m *Model) CircuitBreakerState() string {
	return m.http.CircuitBreakerState().String()
}
