package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Completer sends one system and user prompt pair to a language model and
// returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
	temperature        = 0.2
)

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai", "gemini" or empty to pick whichever has a key.
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	Model         string
	Timeout       time.Duration
}

// NewCompleter builds the configured completer. It returns nil without error
// when no provider has credentials.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		switch {
		case cfg.OpenAIKey != "":
			provider = "openai"
		case cfg.GeminiKey != "":
			provider = "gemini"
		default:
			return nil, nil
		}
	}
	switch provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, nil
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Timeout), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, nil
		}
		return NewGemini(ctx, cfg.GeminiKey, cfg.Model)
	case "none", "off":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}

// OpenAI calls the chat completions endpoint through the openai-go SDK.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a client. An empty baseURL uses the public API; extra
// options are applied last.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithRequestTimeout(timeout)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAI{client: openai.NewClient(append(reqOpts, opts...)...), model: model}
}

func (c *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	log.WithFields(log.Fields{"model": c.model, "elapsed_ms": time.Since(start).Milliseconds()}).Debug("openai completion")
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	log.WithFields(log.Fields{"model": g.model, "elapsed_ms": time.Since(start).Milliseconds()}).Debug("gemini completion")
	return resp.Text(), nil
}
