// Package config loads and validates application configuration.
package config

import "time"

// Config is the full application configuration.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServiceConfig configures the orchestrator's view of the analysis service.
type ServiceConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// Timeout returns the request timeout as a duration.
func (c ServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// CacheConfig configures the analysis result cache.
type CacheConfig struct {
	Backend string `mapstructure:"backend"` // json or sqlite
	Path    string `mapstructure:"path"`
	TTLDays int    `mapstructure:"ttl_days"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// LLMConfig configures the analysis provider. With no API key the service
// runs in test mode on the mock analyzer.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// TestMode reports whether the mock analyzer should be used.
func (c LLMConfig) TestMode() bool {
	return c.APIKey == ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
