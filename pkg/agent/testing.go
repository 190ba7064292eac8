package agent

import (
	"context"
	"strings"
	"sync"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
)

// MockResponse is one scripted reply for MockClient. An empty Match matches
// any request; otherwise Match is a substring of the combined system+user
// prompt. A matched response is consumed unless Sticky is set.
type MockResponse struct {
	Match   string
	Content string
	Usage   llm.Usage
	Err     error
	Sticky  bool
}

// MockCall records one request seen by a MockClient.
type MockCall struct {
	Model  string
	System string
	User   string
	Images int
}

// MockClient is a scripted llm.Client for tests. Responses are matched in
// order; unmatched requests fall through to an empty-response error.
type MockClient struct {
	mu        sync.Mutex
	provider  string
	responses []MockResponse
	consumed  []bool
	calls     []MockCall
}

// NewMockClient creates a mock backend for the given provider name.
func NewMockClient(provider string, responses ...MockResponse) *MockClient {
	return &MockClient{
		provider:  provider,
		responses: responses,
		consumed:  make([]bool, len(responses)),
	}
}

// Add appends a scripted response.
func (m *MockClient) Add(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
	m.consumed = append(m.consumed, false)
}

// Provider implements llm.Client.
func (m *MockClient) Provider() string {
	return m.provider
}

// Complete implements llm.Client.
func (m *MockClient) Complete(_ context.Context, model string, in llm.Request) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{
		Model:  model,
		System: in.System,
		User:   in.User,
		Images: len(in.Images),
	})

	combined := in.System + "\n" + in.User
	for i := range m.responses {
		if m.consumed[i] {
			continue
		}
		r := &m.responses[i]
		if r.Match != "" && !strings.Contains(combined, r.Match) {
			continue
		}
		if !r.Sticky {
			m.consumed[i] = true
		}
		if r.Err != nil {
			return llm.Response{}, r.Err
		}
		return llm.Response{Content: r.Content, Usage: r.Usage}, nil
	}
	return llm.Response{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "mock: no scripted response matched")
}

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of requests seen.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
