package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	BackendURL string `json:"backend_url" yaml:"backend_url" toml:"backend_url"`

	// Admission queue tuning.
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSec    int `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`

	// Default generation parameters applied when a request omits them.
	DefaultPrompt   string  `json:"default_prompt" yaml:"default_prompt" toml:"default_prompt"`
	DefaultSteps    int     `json:"default_steps" yaml:"default_steps" toml:"default_steps"`
	DefaultStrength float64 `json:"default_strength" yaml:"default_strength" toml:"default_strength"`
	DefaultGuidance float64 `json:"default_guidance" yaml:"default_guidance" toml:"default_guidance"`
	DefaultImages   int     `json:"default_num_images" yaml:"default_num_images" toml:"default_num_images"`

	// Canvas broadcast settings.
	CanvasSlugs        []string `json:"canvas_slugs" yaml:"canvas_slugs" toml:"canvas_slugs"`
	ConnLogIntervalSec int      `json:"conn_log_interval_sec" yaml:"conn_log_interval_sec" toml:"conn_log_interval_sec"`
	SendIntervalMs     int      `json:"send_interval_ms" yaml:"send_interval_ms" toml:"send_interval_ms"`

	// CORS (opt-in, dev UI).
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults applied by ApplyDefaults when the corresponding field is unset.
const (
	DefaultAddr            = ":8000"
	DefaultBackendURL      = "http://localhost:50051"
	DefaultMaxQueueDepth   = 32
	DefaultMaxWait         = 30 * time.Second
	DefaultSteps           = 2
	DefaultStrength        = 0.8
	DefaultGuidance        = 0.0
	DefaultNumImages       = 5
	DefaultConnLogInterval = 60 * time.Second
	DefaultSendInterval    = time.Second
	DefaultPromptText      = "trade"
)

// DefaultCanvasSlugs matches the two fixed canvases of the installation.
func DefaultCanvasSlugs() []string { return []string{"left-canva", "right-canva"} }

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with package defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxWaitSec <= 0 {
		c.MaxWaitSec = int(DefaultMaxWait / time.Second)
	}
	if c.DefaultPrompt == "" {
		c.DefaultPrompt = DefaultPromptText
	}
	if c.DefaultSteps <= 0 {
		c.DefaultSteps = DefaultSteps
	}
	if c.DefaultStrength <= 0 {
		c.DefaultStrength = DefaultStrength
	}
	if c.DefaultImages <= 0 {
		c.DefaultImages = DefaultNumImages
	}
	if len(c.CanvasSlugs) == 0 {
		c.CanvasSlugs = DefaultCanvasSlugs()
	}
	if c.ConnLogIntervalSec <= 0 {
		c.ConnLogIntervalSec = int(DefaultConnLogInterval / time.Second)
	}
	if c.SendIntervalMs <= 0 {
		c.SendIntervalMs = int(DefaultSendInterval / time.Millisecond)
	}
}

// MaxWait returns the queue admission timeout as a duration.
func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitSec) * time.Second }

// ConnLogInterval returns the connection-count logging period.
func (c Config) ConnLogInterval() time.Duration {
	return time.Duration(c.ConnLogIntervalSec) * time.Second
}

// SendInterval returns the pause between streamed frames.
func (c Config) SendInterval() time.Duration {
	return time.Duration(c.SendIntervalMs) * time.Millisecond
}
