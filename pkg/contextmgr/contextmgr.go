// Package contextmgr budgets conversation history for prompt building
// using tiktoken-based token counting.
package contextmgr

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Entry is one history line handed to prompt builders.
type Entry struct {
	Role    string
	Content string
}

// TokenCounter counts tokens with a tiktoken codec. All supported chat
// models are close enough to GPT-4 encoding for budgeting purposes.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter. The codec load only fails on a
// corrupted vocabulary, in which case counting falls back to a
// character-based estimate.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.codec == nil {
		return estimate(text)
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return estimate(text)
	}
	return count
}

// 4 chars per token is the usual rough estimate.
func estimate(text string) int {
	return len(text) / 4
}

// Manager windows conversation history to a message count and token
// budget before it reaches an LLM prompt.
type Manager struct {
	counter     *TokenCounter
	maxMessages int
	tokenBudget int
}

// NewManager creates a manager. A nil counter (codec unavailable) still
// works with estimated counts.
func NewManager(maxMessages, tokenBudget int) *Manager {
	counter, err := NewTokenCounter()
	if err != nil {
		counter = nil
	}
	return &Manager{
		counter:     counter,
		maxMessages: maxMessages,
		tokenBudget: tokenBudget,
	}
}

// Window returns the most recent entries that fit both limits. The last
// entry always survives, truncated if it alone blows the budget.
func (m *Manager) Window(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}

	if m.maxMessages > 0 && len(entries) > m.maxMessages {
		entries = entries[len(entries)-m.maxMessages:]
	}
	if m.tokenBudget <= 0 {
		return entries
	}

	total := 0
	counts := make([]int, len(entries))
	for i, e := range entries {
		counts[i] = m.counter.Count(e.Role) + m.counter.Count(e.Content)
		total += counts[i]
	}

	start := 0
	for total > m.tokenBudget && start < len(entries)-1 {
		total -= counts[start]
		start++
	}
	window := entries[start:]

	if len(window) == 1 && counts[len(counts)-1] > m.tokenBudget {
		last := window[0]
		last.Content = m.Truncate(last.Content, m.tokenBudget)
		return []Entry{last}
	}
	return window
}

// Truncate cuts text down to roughly limit tokens. Character-proportional,
// not token-exact.
func (m *Manager) Truncate(text string, limit int) string {
	current := m.counter.Count(text)
	if current <= limit {
		return text
	}
	ratio := float64(limit) / float64(current)
	charLimit := int(float64(len(text)) * ratio * 0.9)
	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}

// Count exposes the underlying token count for budgeting callers.
func (m *Manager) Count(text string) int {
	return m.counter.Count(text)
}
