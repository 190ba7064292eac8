// Package google provides the Google Gemini backend for the llm.Client interface.
package google

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/genai"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
)

// Client wraps the Google GenAI client. The underlying client is created
// lazily because genai.NewClient requires a context.
type Client struct {
	apiKey  string
	once    sync.Once
	client  *genai.Client
	initErr error
}

// New creates a Gemini client.
func New(apiKey string) llm.Client {
	return &Client{apiKey: apiKey}
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return "google"
}

func (c *Client) ensure(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if c.initErr != nil {
		return nil, llmerrors.NewWithCause(llmerrors.ErrorTypePermanent, c.initErr, "failed to create Gemini client")
	}
	return c.client, nil
}

// Complete implements llm.Client. Images are attached as inline data parts.
func (c *Client) Complete(ctx context.Context, model string, in llm.Request) (llm.Response, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return llm.Response{}, err
	}

	parts := make([]*genai.Part, 0, len(in.Images)+1)
	for _, img := range in.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.Mime))
	}
	parts = append(parts, &genai.Part{Text: in.User})

	contents := []*genai.Content{{
		Role:  "user",
		Parts: parts,
	}}

	temperature := in.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
		//nolint:gosec // MaxTokens validated at the gateway
		MaxOutputTokens: int32(in.MaxTokens),
	}
	if in.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: in.System}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return llm.Response{}, llmerrors.Classify(err, llmerrors.ExtractStatusCode(err.Error()))
	}
	if result == nil {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "received empty response from Gemini API")
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "response contained no text content")
	}

	out := llm.Response{Content: text}
	if result.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
