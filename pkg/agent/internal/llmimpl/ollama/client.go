// Package ollama provides the Ollama backend for the llm.Client interface.
// Ollama is a local LLM runtime for running open-source models.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
)

// Client wraps the Ollama API client.
type Client struct {
	client *api.Client
}

// New creates an Ollama client. hostURL is the server URL, for example
// "http://localhost:11434".
func New(hostURL string) llm.Client {
	parsed, err := url.Parse(hostURL)
	if err != nil || parsed.Host == "" {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &Client{client: api.NewClient(parsed, http.DefaultClient)}
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return "ollama"
}

// Complete implements llm.Client. Images ride along on the user message;
// vision support depends on the loaded model.
func (c *Client) Complete(ctx context.Context, model string, in llm.Request) (llm.Response, error) {
	var messages []api.Message
	if in.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: in.System})
	}

	userMsg := api.Message{Role: "user", Content: in.User}
	for _, img := range in.Images {
		userMsg.Images = append(userMsg.Images, api.ImageData(img.Data))
	}
	messages = append(messages, userMsg)

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return llm.Response{}, llmerrors.NewWithCause(llmerrors.ErrorTypeTransient, err, "Ollama server not reachable")
		}
		return llm.Response{}, llmerrors.Classify(err, 0)
	}

	if strings.TrimSpace(response.Message.Content) == "" {
		return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "received empty response from Ollama")
	}
	return llm.Response{
		Content: response.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     response.Metrics.PromptEvalCount,
			CompletionTokens: response.Metrics.EvalCount,
		},
	}, nil
}
