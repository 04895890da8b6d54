// Package config loads certeval configuration from an optional YAML file
// with environment variable overrides. Missing file means defaults; a
// malformed file is an error the caller surfaces at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = "certeval.yaml"

// Config holds all certeval configuration.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Certificate CertificateConfig `yaml:"certificate"`
	Session     SessionConfig     `yaml:"session"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LLMConfig configures the completion backends. GroqModels is tried in
// order before the Gemini fallback.
type LLMConfig struct {
	GroqAPIKey   string   `yaml:"groq_api_key"`
	GeminiAPIKey string   `yaml:"gemini_api_key"`
	GroqBaseURL  string   `yaml:"groq_base_url"`
	GroqModels   []string `yaml:"groq_models"`
	GeminiModel  string   `yaml:"gemini_model"`
}

// CertificateConfig points at the certificate source document.
type CertificateConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // empty: stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotation threshold
	MaxBackups int    `yaml:"max_backups"`
	Console    bool   `yaml:"console"` // also log to stderr when a file is set
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			GroqBaseURL: "https://api.groq.com/openai/v1",
			GroqModels: []string{
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
				"gemma2-9b-it",
			},
			GeminiModel: "gemini-2.0-flash",
		},
		Certificate: CertificateConfig{
			Path: filepath.Join("data", "certificate.txt"),
		},
		Session: SessionConfig{
			Dir: "session_data",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads the config file at path, merged over defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigName
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with environment variables. Keys in the
// environment always win so deployments can avoid writing secrets to disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.LLM.GroqAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v := os.Getenv("CERTEVAL_CERTIFICATE"); v != "" {
		c.Certificate.Path = v
	}
	if v := os.Getenv("CERTEVAL_SESSION_DIR"); v != "" {
		c.Session.Dir = v
	}
	if v := os.Getenv("CERTEVAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// HasBackend reports whether at least one completion backend is usable.
func (c *Config) HasBackend() bool {
	return c.LLM.GroqAPIKey != "" || c.LLM.GeminiAPIKey != ""
}
