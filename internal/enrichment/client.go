package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"dropimator/internal/config"
	"dropimator/internal/observability"
)

// Params are the fixed sampling settings of one call site.
type Params struct {
	Name             string
	Temperature      float32
	FrequencyPenalty float32
	MaxTokens        int
	Timeout          time.Duration
}

var (
	// ClassificationParams favour short deterministic answers.
	ClassificationParams = Params{
		Name:             "classification",
		Temperature:      0.2,
		FrequencyPenalty: 0.5,
		MaxTokens:        200,
		Timeout:          5 * time.Second,
	}
	// MarketingParams favour varied, longer prose.
	MarketingParams = Params{
		Name:             "marketing",
		Temperature:      0.7,
		FrequencyPenalty: 0.5,
		MaxTokens:        750,
		Timeout:          15 * time.Second,
	}
)

// Envelope is a chat-completion response flattened to plain JSON values.
// It is what gets stored in products.openai_response.
type Envelope map[string]any

// Raw serializes the envelope for storage.
func (e Envelope) Raw() json.RawMessage {
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}

// Completer sends one prompt and returns the envelope, or nil when no usable
// answer came back. Implementations log their own failures.
type Completer interface {
	Complete(ctx context.Context, prompt string, params Params) Envelope
}

type OpenAIClient struct {
	api    *openai.Client
	model  string
	system string
}

func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		api:    openai.NewClientWithConfig(clientCfg),
		model:  model,
		system: SystemPrompt(),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, params Params) Envelope {
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	log.Debug().Str("call_site", params.Name).Str("prompt", prompt).Msg("sending prompt to completion API")

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:      params.Temperature,
		FrequencyPenalty: params.FrequencyPenalty,
		MaxTokens:        params.MaxTokens,
	})
	if err != nil {
		log.Error().Err(err).Str("call_site", params.Name).Dur("elapsed", time.Since(start)).Msg("error communicating with completion API")
		observability.Completions.WithLabelValues(params.Name, "error").Inc()
		return nil
	}

	env, err := toEnvelope(resp)
	if err != nil {
		log.Error().Err(err).Str("call_site", params.Name).Msg("could not normalize completion response")
		observability.Completions.WithLabelValues(params.Name, "error").Inc()
		return nil
	}

	observability.Completions.WithLabelValues(params.Name, "ok").Inc()
	observability.CompletionTokens.WithLabelValues(params.Name).Add(float64(resp.Usage.TotalTokens))
	return env
}

// toEnvelope is the only place that looks at the SDK response type.
func toEnvelope(resp openai.ChatCompletionResponse) (Envelope, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal completion response: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("unmarshal completion response: %w", err)
	}
	return env, nil
}
