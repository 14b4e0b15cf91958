package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/hochfrequenz/twodo/internal/router"
	"google.golang.org/genai"
)

// GeminiAdapter talks to the Gemini API
type GeminiAdapter struct {
	client *genai.Client
}

// NewGemini creates an adapter. An empty baseURL uses the public endpoint.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*GeminiAdapter, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: client}, nil
}

// Complete generates content for a single text prompt
func (a *GeminiAdapter) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: defaultMaxTokens,
		Temperature:     genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		return "", router.NewDispatchError(router.ProviderGoogle, model, geminiStatus(err), err)
	}

	text := resp.Text()
	if text == "" {
		return "", router.NewDispatchError(router.ProviderGoogle, model, 0, fmt.Errorf("no text in response"))
	}
	return text, nil
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
