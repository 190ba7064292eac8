package contextmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	tc, err := NewTokenCounter()
	require.NoError(t, err)

	assert.Equal(t, 0, tc.Count(""))
	assert.Greater(t, tc.Count("a box with four mounting holes"), 0)

	// nil counter falls back to the character estimate
	var nilCounter *TokenCounter
	assert.Equal(t, 3, nilCounter.Count("twelve chars"))
}

func TestWindowMessageLimit(t *testing.T) {
	m := NewManager(3, 0)

	entries := []Entry{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
		{Role: "user", Content: "five"},
	}

	window := m.Window(entries)
	require.Len(t, window, 3)
	assert.Equal(t, "three", window[0].Content)
	assert.Equal(t, "five", window[2].Content)
}

func TestWindowTokenBudgetDropsOldest(t *testing.T) {
	m := NewManager(10, 50)

	long := strings.Repeat("hexagonal bracket with chamfered edges ", 20)
	entries := []Entry{
		{Role: "user", Content: long},
		{Role: "assistant", Content: "short answer"},
		{Role: "user", Content: "make it taller"},
	}

	window := m.Window(entries)
	assert.Less(t, len(window), 3)
	assert.Equal(t, "make it taller", window[len(window)-1].Content)
}

func TestWindowKeepsLastEntryTruncated(t *testing.T) {
	m := NewManager(10, 20)

	huge := strings.Repeat("parametric enclosure with ventilation slots ", 50)
	window := m.Window([]Entry{{Role: "user", Content: huge}})

	require.Len(t, window, 1)
	assert.Less(t, len(window[0].Content), len(huge))
	assert.True(t, strings.HasSuffix(window[0].Content, "..."))
}

func TestWindowEmpty(t *testing.T) {
	m := NewManager(5, 100)
	assert.Nil(t, m.Window(nil))
}
