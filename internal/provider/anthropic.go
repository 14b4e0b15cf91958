package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hochfrequenz/twodo/internal/router"
)

// AnthropicAdapter talks to the Anthropic Messages API
type AnthropicAdapter struct {
	client anthropic.Client
}

// NewAnthropic creates an adapter. An empty baseURL uses the public API.
func NewAnthropic(apiKey, baseURL string) *AnthropicAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicAdapter{client: anthropic.NewClient(opts...)}
}

// Complete sends a single user message and joins the text blocks of the reply
func (a *AnthropicAdapter) Complete(ctx context.Context, model, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", router.NewDispatchError(router.ProviderAnthropic, model, apiErr.StatusCode, err)
		}
		return "", router.NewDispatchError(router.ProviderAnthropic, model, 0, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", router.NewDispatchError(router.ProviderAnthropic, model, 0, fmt.Errorf("no text in response"))
	}
	return b.String(), nil
}
