// Package llm provides the unified gateway over the supported model
// provider backends, for both text-only and vision requests.
package llm

import (
	"context"
	"strings"
)

// Image is a reference image passed to a vision-capable model.
type Image struct {
	Data []byte
	Mime string
}

// AllowedImageMimes is the closed set of accepted attachment mime types.
var AllowedImageMimes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Request represents a single completion request. Images empty means a
// text-only call. SessionID labels token metrics and may be empty.
type Request struct {
	System      string
	User        string
	Images      []Image
	MaxTokens   int
	Temperature float32
	SessionID   string
}

// Usage is the token consumption a provider reported for one call. Zero
// values mean the provider did not report usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is one completion result.
type Response struct {
	Content string
	Usage   Usage
}

// Default generation parameters, matching the original service.
const (
	DefaultMaxTokens   = 4000
	TemperatureDefault = 0.3 // analysis, reviews, agent chatter
	TemperatureCode    = 0.2 // code generation
)

// Client is a single provider backend. The model name is passed through
// per call; clients do not route.
type Client interface {
	// Complete generates a completion synchronously. Implementations must
	// classify failures as *llmerrors.Error and report token usage when
	// their API exposes it.
	Complete(ctx context.Context, model string, in Request) (Response, error)

	// Provider returns the provider name this client serves.
	Provider() string
}

// ExtractCodeBlock extracts the first fenced code block from a model
// response. Falls back to the trimmed body when no fence is found.
func ExtractCodeBlock(content string) string {
	if idx := strings.Index(content, "```python"); idx != -1 {
		start := idx + len("```python")
		if end := strings.Index(content[start:], "```"); end > 0 {
			return strings.TrimSpace(content[start : start+end])
		}
	}

	if idx := strings.Index(content, "```"); idx != -1 {
		start := idx + 3
		// Skip a short language identifier on the fence line.
		if nl := strings.Index(content[start:], "\n"); nl > 0 && nl < 20 {
			start += nl + 1
		}
		if end := strings.Index(content[start:], "```"); end > 0 {
			return strings.TrimSpace(content[start : start+end])
		}
	}

	return strings.TrimSpace(content)
}

// ExtractJSONObject returns the outermost {...} span of a model response,
// or "" when the response carries no object. Agents asking for JSON route
// their output through this before unmarshaling.
func ExtractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}
