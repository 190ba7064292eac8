// Package agent provides the LLM gateway and the multi-agent design
// pipeline that turns gathered requirements into validated CadQuery scripts.
package agent

import (
	"context"
	"fmt"
	"time"

	"cadforge/pkg/agent/internal/llmimpl/anthropic"
	"cadforge/pkg/agent/internal/llmimpl/google"
	"cadforge/pkg/agent/internal/llmimpl/ollama"
	"cadforge/pkg/agent/internal/llmimpl/openai"
	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
	"cadforge/pkg/config"
	"cadforge/pkg/logx"
	"cadforge/pkg/metrics"
)

// Gateway routes completion requests to configured provider backends,
// applying the per-call deadline and recording request metrics.
type Gateway struct {
	cfg      *config.Config
	clients  map[string]llm.Client
	recorder *metrics.Recorder
	logger   *logx.Logger
}

// NewGateway builds a gateway with one client per configured provider.
// Providers without an API key are skipped; Ollama only needs a host URL.
func NewGateway(cfg *config.Config) (*Gateway, error) {
	clients := make(map[string]llm.Client)
	for name, p := range cfg.Providers {
		switch name {
		case config.ProviderAnthropic:
			if p.APIKey != "" {
				clients[name] = anthropic.New(p.APIKey)
			}
		case config.ProviderOpenAI:
			if p.APIKey != "" {
				clients[name] = openai.New(p.APIKey)
			}
		case config.ProviderGoogle:
			if p.APIKey != "" {
				clients[name] = google.New(p.APIKey)
			}
		case config.ProviderOllama:
			if p.HostURL != "" {
				clients[name] = ollama.New(p.HostURL)
			}
		default:
			return nil, fmt.Errorf("unknown provider %q in config", name)
		}
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no providers configured: set at least one API key or an Ollama host")
	}
	return newGateway(cfg, clients), nil
}

// NewGatewayWithClients builds a gateway over pre-built clients. Tests use
// this to inject mock backends.
func NewGatewayWithClients(cfg *config.Config, clients map[string]llm.Client) *Gateway {
	return newGateway(cfg, clients)
}

func newGateway(cfg *config.Config, clients map[string]llm.Client) *Gateway {
	return &Gateway{
		cfg:      cfg,
		clients:  clients,
		recorder: metrics.NewRecorder(),
		logger:   logx.NewLogger("gateway"),
	}
}

// Has reports whether the provider has a configured client.
func (g *Gateway) Has(provider string) bool {
	_, ok := g.clients[provider]
	return ok
}

// Generate runs one completion against the given provider and model. The
// role labels the requesting agent for metrics. Unset request fields get
// the package defaults.
func (g *Gateway) Generate(ctx context.Context, provider, model, role string, in llm.Request) (string, error) {
	client, ok := g.clients[provider]
	if !ok {
		return "", llmerrors.New(llmerrors.ErrorTypePermanent, fmt.Sprintf("provider %q not configured", provider))
	}
	for _, img := range in.Images {
		if !llm.AllowedImageMimes[img.Mime] {
			return "", llmerrors.New(llmerrors.ErrorTypePermanent, fmt.Sprintf("unsupported image type %q", img.Mime))
		}
	}
	if in.MaxTokens <= 0 {
		in.MaxTokens = llm.DefaultMaxTokens
	}
	if in.Temperature == 0 {
		in.Temperature = llm.TemperatureDefault
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.LLMDeadline())
	defer cancel()

	start := time.Now()
	resp, err := client.Complete(ctx, model, in)
	elapsed := time.Since(start)

	errType := ""
	if err != nil {
		errType = llmerrors.TypeOf(err).String()
	}
	g.recorder.ObserveRequest(provider, model, role, elapsed, errType)

	if err != nil {
		g.logger.Warn("%s/%s %s request failed after %.1fs: %v", provider, model, role, elapsed.Seconds(), err)
		return "", err
	}
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		g.recorder.ObserveTokens(provider, model, in.SessionID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	g.logger.Debug("%s/%s %s request completed in %.1fs (%d chars)", provider, model, role, elapsed.Seconds(), len(resp.Content))
	return resp.Content, nil
}
