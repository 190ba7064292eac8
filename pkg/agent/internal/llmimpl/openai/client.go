// Package openai provides the OpenAI backend for the llm.Client interface.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
)

// Client wraps the official OpenAI Go client.
type Client struct {
	client sdk.Client
}

// New creates an OpenAI client.
func New(apiKey string) llm.Client {
	return &Client{client: sdk.NewClient(option.WithAPIKey(apiKey))}
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return "openai"
}

// Complete implements llm.Client using the chat completions API. Vision
// requests attach images as base64 data URLs in the user message.
func (c *Client) Complete(ctx context.Context, model string, in llm.Request) (llm.Response, error) {
	var messages []sdk.ChatCompletionMessageParamUnion
	if in.System != "" {
		messages = append(messages, sdk.SystemMessage(in.System))
	}

	if len(in.Images) == 0 {
		messages = append(messages, sdk.UserMessage(in.User))
	} else {
		parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, len(in.Images)+1)
		parts = append(parts, sdk.TextContentPart(in.User))
		for _, img := range in.Images {
			dataURL := fmt.Sprintf("data:%s;base64,%s", img.Mime, base64.StdEncoding.EncodeToString(img.Data))
			parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}))
		}
		messages = append(messages, sdk.UserMessage(parts))
	}

	resp, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: sdk.Int(int64(in.MaxTokens)),
		Temperature:         sdk.Float(float64(in.Temperature)),
	})
	if err != nil {
		return llm.Response{}, llmerrors.Classify(err, llmerrors.ExtractStatusCode(err.Error()))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "received empty response from OpenAI API")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "response contained no text content")
	}
	return llm.Response{
		Content: content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}
