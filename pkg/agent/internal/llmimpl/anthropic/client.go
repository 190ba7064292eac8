// Package anthropic provides the Anthropic Claude backend for the llm.Client interface.
package anthropic

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
)

// Client wraps the Anthropic API client.
type Client struct {
	client sdk.Client
}

// New creates a Claude client.
func New(apiKey string) llm.Client {
	return &Client{client: sdk.NewClient(option.WithAPIKey(apiKey))}
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return "anthropic"
}

// Complete implements llm.Client. Images are sent as base64 content blocks
// ahead of the user text.
func (c *Client) Complete(ctx context.Context, model string, in llm.Request) (llm.Response, error) {
	blocks := make([]sdk.ContentBlockParamUnion, 0, len(in.Images)+1)
	for _, img := range in.Images {
		blocks = append(blocks, sdk.NewImageBlockBase64(img.Mime, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, sdk.NewTextBlock(in.User))

	params := sdk.MessageNewParams{
		Model:       sdk.Model(model),
		MaxTokens:   int64(in.MaxTokens),
		Temperature: sdk.Float(float64(in.Temperature)),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
	}
	if in.System != "" {
		params.System = []sdk.TextBlockParam{{
			Text: in.System,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, llmerrors.Classify(err, llmerrors.ExtractStatusCode(err.Error()))
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "received empty response from Claude API")
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "response contained no text content")
	}
	return llm.Response{
		Content: text.String(),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}
