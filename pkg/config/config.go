// Package config provides configuration loading, validation, and defaults
// for the CAD design orchestrator. It handles YAML config files and
// environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Recognized LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Default model identifiers per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	FastAnthropicModel    = "claude-haiku-4-5-20251001"
	BestAnthropicModel    = "claude-opus-4-5-20251101"

	DefaultOpenAIModel = "gpt-5.2"
	FastOpenAIModel    = "gpt-5-nano"
	BestOpenAIModel    = "gpt-5.2-pro"

	DefaultGoogleModel = "gemini-2.5-pro"
	FastGoogleModel    = "gemini-2.5-flash"
	BestGoogleModel    = "gemini-2.5-pro"

	DefaultOllamaModel = "llama3.1"
)

// ProviderModels holds the model routing entries for one provider.
type ProviderModels struct {
	Default string `yaml:"default"`
	Fast    string `yaml:"fast"`
	Best    string `yaml:"best"`
	APIKey  string `yaml:"api_key"`
	HostURL string `yaml:"host_url,omitempty"` // ollama only
}

// BuildVolume is a printer's maximum print envelope in mm.
type BuildVolume struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// PrinterSettings describes the target printer for printability checks.
type PrinterSettings struct {
	BuildVolume      BuildVolume `yaml:"build_volume" json:"build_volume"`
	LayerHeight      float64     `yaml:"layer_height" json:"layer_height"`
	MinWallThickness float64     `yaml:"min_wall_thickness" json:"min_wall_thickness"`
	NozzleDiameter   float64     `yaml:"nozzle_diameter" json:"nozzle_diameter"`
}

// Keywords holds the configurable word sets driving the Reviewing and
// Finalizing phase decisions. Substring matching against the lowercased
// last user message; treat as configuration, not code.
type Keywords struct {
	Approve  []string `yaml:"approve"`
	Finalize []string `yaml:"finalize"`
	Modify   []string `yaml:"modify"`
	Restart  []string `yaml:"restart"`
}

// Config is the top-level configuration for the orchestrator core.
type Config struct {
	DefaultProvider string                    `yaml:"default_provider"`
	Providers       map[string]ProviderModels `yaml:"providers"`

	MaxPipelineIterations int `yaml:"max_pipeline_iterations"`
	LLMDeadlineSeconds    int `yaml:"llm_deadline_seconds"`
	ExecDeadlineSeconds   int `yaml:"exec_deadline_seconds"`
	SessionTTLSeconds     int `yaml:"session_ttl_seconds"`

	Printer  PrinterSettings `yaml:"printer"`
	Keywords Keywords        `yaml:"keywords"`

	PythonBin    string `yaml:"python_bin"`
	TempDir      string `yaml:"temp_dir"`
	DatabasePath string `yaml:"database_path"`
	JournalDir   string `yaml:"journal_dir"` // empty disables the session journal

	// History budgeting for the Requirements agent.
	HistoryMessages    int `yaml:"history_messages"`
	HistoryTokenBudget int `yaml:"history_token_budget"`
}

// envPattern matches ${VAR} references in config values.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Default returns a config populated with the standard defaults.
func Default() *Config {
	return &Config{
		DefaultProvider: ProviderAnthropic,
		Providers: map[string]ProviderModels{
			ProviderAnthropic: {
				Default: DefaultAnthropicModel,
				Fast:    FastAnthropicModel,
				Best:    BestAnthropicModel,
				APIKey:  "${ANTHROPIC_API_KEY}",
			},
			ProviderOpenAI: {
				Default: DefaultOpenAIModel,
				Fast:    FastOpenAIModel,
				Best:    BestOpenAIModel,
				APIKey:  "${OPENAI_API_KEY}",
			},
			ProviderGoogle: {
				Default: DefaultGoogleModel,
				Fast:    FastGoogleModel,
				Best:    BestGoogleModel,
				APIKey:  "${GEMINI_API_KEY}",
			},
			ProviderOllama: {
				Default: DefaultOllamaModel,
				Fast:    DefaultOllamaModel,
				Best:    DefaultOllamaModel,
				HostURL: "http://localhost:11434",
			},
		},
		MaxPipelineIterations: 3,
		LLMDeadlineSeconds:    60,
		ExecDeadlineSeconds:   30,
		SessionTTLSeconds:     86400,
		Printer: PrinterSettings{
			BuildVolume:      BuildVolume{X: 220, Y: 220, Z: 250},
			LayerHeight:      0.2,
			MinWallThickness: 1.2,
			NozzleDiameter:   0.4,
		},
		Keywords: Keywords{
			Approve:  []string{"launch", "continue", "ok", "yes", "go", "lancer", "continuer", "oui"},
			Finalize: []string{"finalize", "ok", "yes", "validate", "perfect", "finaliser", "oui", "valider", "parfait"},
			Modify:   []string{"modify", "change", "adjust", "modifier", "ajuste"},
			Restart:  []string{"restart", "redo", "recommencer", "refaire"},
		},
		PythonBin:          "python3",
		TempDir:            os.TempDir(),
		DatabasePath:       "cadforge.db",
		HistoryMessages:    10,
		HistoryTokenBudget: 6000,
	}
}

// Load reads a YAML config file, applies environment substitution, and
// merges onto the defaults. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.expandEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.expandEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// expandEnv resolves ${VAR} references in provider API keys and host URLs.
func (c *Config) expandEnv() {
	for name, p := range c.Providers {
		p.APIKey = substituteEnv(p.APIKey)
		p.HostURL = substituteEnv(p.HostURL)
		c.Providers[name] = p
	}
}

func substituteEnv(value string) string {
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// Validate checks structural sanity of the configuration.
func (c *Config) Validate() error {
	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		return fmt.Errorf("default_provider %q has no provider entry", c.DefaultProvider)
	}
	if c.MaxPipelineIterations < 0 {
		return fmt.Errorf("max_pipeline_iterations must be >= 0")
	}
	if c.LLMDeadlineSeconds <= 0 {
		return fmt.Errorf("llm_deadline_seconds must be positive")
	}
	if c.ExecDeadlineSeconds <= 0 {
		return fmt.Errorf("exec_deadline_seconds must be positive")
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("session_ttl_seconds must be positive")
	}
	bv := c.Printer.BuildVolume
	if bv.X <= 0 || bv.Y <= 0 || bv.Z <= 0 {
		return fmt.Errorf("printer build volume must be positive on all axes")
	}
	return nil
}

// FastModel returns the fast (cheap, low-latency) model for the provider.
func (c *Config) FastModel(provider string) string {
	if p, ok := c.Providers[provider]; ok && p.Fast != "" {
		return p.Fast
	}
	return FastOpenAIModel
}

// BestModel returns the highest-capability model for the provider.
func (c *Config) BestModel(provider string) string {
	if p, ok := c.Providers[provider]; ok && p.Best != "" {
		return p.Best
	}
	return BestOpenAIModel
}

// DefaultModel returns the provider's default model.
func (c *Config) DefaultModel(provider string) string {
	if p, ok := c.Providers[provider]; ok && p.Default != "" {
		return p.Default
	}
	return DefaultOpenAIModel
}

// LLMDeadline returns the per-call LLM deadline as a duration.
func (c *Config) LLMDeadline() time.Duration {
	return time.Duration(c.LLMDeadlineSeconds) * time.Second
}

// ExecDeadline returns the executor deadline as a duration.
func (c *Config) ExecDeadline() time.Duration {
	return time.Duration(c.ExecDeadlineSeconds) * time.Second
}

// SessionTTL returns the session eviction horizon as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}
