package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override file settings,
// e.g. DOCVIEW_PORT -> port.
const EnvPrefix = "DOCVIEW_"

// Config is the docview configuration, corresponding to docview.yml.
type Config struct {
	Port string `yaml:"port" koanf:"port"`

	// Where the bundled markdown is served from. Empty serves the embedded docs.
	DocsDir string `yaml:"docs_dir" koanf:"docs_dir"`
	// Where the loader fetches from. Empty means this server.
	DocsBaseURL string `yaml:"docs_base_url" koanf:"docs_base_url"`

	PrimaryPath    string `yaml:"primary_path" koanf:"primary_path"`
	ReferencePath  string `yaml:"reference_path" koanf:"reference_path"`
	PrimaryTitle   string `yaml:"primary_title" koanf:"primary_title"`
	ReferenceTitle string `yaml:"reference_title" koanf:"reference_title"`
	SiteTitle      string `yaml:"site_title" koanf:"site_title"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" koanf:"fetch_timeout"`
	FetchRetries int           `yaml:"fetch_retries" koanf:"fetch_retries"`
	SettleDelay  time.Duration `yaml:"settle_delay" koanf:"settle_delay"`
	CopyFeedback time.Duration `yaml:"copy_feedback" koanf:"copy_feedback"`
	SessionTTL   time.Duration `yaml:"session_ttl" koanf:"session_ttl"`

	Highlight      bool   `yaml:"highlight" koanf:"highlight"`
	HighlightStyle string `yaml:"highlight_style" koanf:"highlight_style"`

	ObserverMode string  `yaml:"observer_mode" koanf:"observer_mode"`
	ActiveBand   float64 `yaml:"active_band" koanf:"active_band"`

	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`

	LogLevel  string `yaml:"log_level" koanf:"log_level"`
	LogFormat string `yaml:"log_format" koanf:"log_format"`
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	return &Config{
		Port:           "8090",
		PrimaryPath:    "/Gemini.md",
		ReferencePath:  "/OfficialDocs.md",
		PrimaryTitle:   "Sandbox Guidelines",
		ReferenceTitle: "Official Gemini Docs",
		SiteTitle:      "AI Studio Builder",
		FetchTimeout:   30 * time.Second,
		FetchRetries:   0,
		SettleDelay:    1000 * time.Millisecond,
		CopyFeedback:   2 * time.Second,
		SessionTTL:     1 * time.Hour,
		Highlight:      true,
		HighlightStyle: "github",
		ObserverMode:   "native",
		ActiveBand:     0.15,
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Load reads a .env file if present, then the YAML file at path if it
// exists, then DOCVIEW_* environment overrides, on top of DefaultConfig.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Values already in the environment win.

	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validObserverModes = map[string]bool{
	"native":  true,
	"polling": true,
}

var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.PrimaryPath == "" {
		return fmt.Errorf("primary_path is required")
	}
	if c.ReferencePath == "" {
		return fmt.Errorf("reference_path is required")
	}
	if c.PrimaryPath == c.ReferencePath {
		return fmt.Errorf("primary_path and reference_path must differ, both are %q", c.PrimaryPath)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("fetch_retries must not be negative")
	}
	if c.SettleDelay <= 0 {
		return fmt.Errorf("settle_delay must be positive")
	}
	if c.CopyFeedback <= 0 {
		return fmt.Errorf("copy_feedback must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if !validObserverModes[c.ObserverMode] {
		return fmt.Errorf("invalid observer_mode %q: must be one of native, polling", c.ObserverMode)
	}
	if c.ActiveBand <= 0 || c.ActiveBand > 1 {
		return fmt.Errorf("active_band must be in (0, 1], got %v", c.ActiveBand)
	}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log_format %q: must be one of json, text", c.LogFormat)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// splitList expands comma separated entries, which is how lists arrive
// from the environment.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
