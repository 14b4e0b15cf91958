package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/hochfrequenz/twodo/internal/router"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// compatibleBaseURLs lists vendors that speak the OpenAI chat completions API
var compatibleBaseURLs = map[router.Provider]string{
	router.ProviderXAI:        "https://api.x.ai/v1",
	router.ProviderDeepSeek:   "https://api.deepseek.com/v1",
	router.ProviderMistral:    "https://api.mistral.ai/v1",
	router.ProviderCohere:     "https://api.cohere.ai/compatibility/v1",
	router.ProviderPerplexity: "https://api.perplexity.ai",
}

// apiModelIDs maps catalog names to the ids the vendor API expects
var apiModelIDs = map[string]string{
	"deepseek-v3":     "deepseek-chat",
	"deepseek-r1":     "deepseek-reasoner",
	"mistral-large-2": "mistral-large-latest",
	"pplx-70b-online": "sonar",
}

// OpenAIAdapter talks to OpenAI or an OpenAI-compatible vendor
type OpenAIAdapter struct {
	provider router.Provider
	client   openai.Client
}

// NewOpenAI creates an adapter. An empty baseURL uses api.openai.com.
func NewOpenAI(p router.Provider, apiKey, baseURL string) *OpenAIAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{provider: p, client: openai.NewClient(opts...)}
}

// Complete sends a single user message and returns the first choice
func (a *OpenAIAdapter) Complete(ctx context.Context, model, prompt string) (string, error) {
	apiModel := model
	if id, ok := apiModelIDs[model]; ok {
		apiModel = id
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(apiModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(defaultMaxTokens),
		Temperature: openai.Float(defaultTemperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", router.NewDispatchError(a.provider, model, apiErr.StatusCode, err)
		}
		return "", router.NewDispatchError(a.provider, model, 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", router.NewDispatchError(a.provider, model, 0, fmt.Errorf("empty response"))
	}
	return resp.Choices[0].Message.Content, nil
}
