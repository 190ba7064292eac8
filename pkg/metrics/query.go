package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// Querier reads aggregated usage back from a Prometheus server scraping
// this process.
type Querier struct {
	api v1.API
}

// NewQuerier creates a querier against the given Prometheus base URL.
func NewQuerier(address string) (*Querier, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &Querier{api: v1.NewAPI(client)}, nil
}

// SessionTokenUsage returns total LLM tokens per session over the window.
func (q *Querier) SessionTokenUsage(ctx context.Context, window time.Duration) (map[string]float64, error) {
	query := fmt.Sprintf("sum by (session_id) (increase(llm_tokens_total[%s]))", model.Duration(window))
	vector, err := q.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	usage := make(map[string]float64, len(vector))
	for _, sample := range vector {
		usage[string(sample.Metric["session_id"])] = float64(sample.Value)
	}
	return usage, nil
}

// ProviderErrorRate returns the fraction of failed LLM requests per
// provider over the window.
func (q *Querier) ProviderErrorRate(ctx context.Context, window time.Duration) (map[string]float64, error) {
	w := model.Duration(window)
	query := fmt.Sprintf(
		"sum by (provider) (increase(llm_requests_total{status=%q}[%s])) / sum by (provider) (increase(llm_requests_total[%s]))",
		StatusError, w, w)
	vector, err := q.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64, len(vector))
	for _, sample := range vector {
		rates[string(sample.Metric["provider"])] = float64(sample.Value)
	}
	return rates, nil
}

func (q *Querier) queryVector(ctx context.Context, query string) (model.Vector, error) {
	value, _, err := q.api.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	vector, ok := value.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %s", value.Type())
	}
	return vector, nil
}
