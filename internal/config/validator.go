package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateService(&cfg.Service)
	v.validateServer(&cfg.Server)
	v.validateCache(&cfg.Cache)
	v.validateLog(&cfg.Log)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateService(cfg *ServiceConfig) {
	if cfg.BaseURL == "" {
		v.addError("service.base_url", cfg.BaseURL, "must not be empty")
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("service.base_url", cfg.BaseURL, "must be a full URL like http://localhost:8000")
	}
	if cfg.TimeoutMS <= 0 {
		v.addError("service.timeout_ms", cfg.TimeoutMS, "must be positive")
	}
	if cfg.MaxRetries < 0 {
		v.addError("service.max_retries", cfg.MaxRetries, "must not be negative")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.ListenAddr == "" {
		v.addError("server.listen_addr", cfg.ListenAddr, "must not be empty")
	}
}

func (v *Validator) validateCache(cfg *CacheConfig) {
	switch cfg.Backend {
	case "json", "sqlite":
	default:
		v.addError("cache.backend", cfg.Backend, "must be one of: json, sqlite")
	}
	if cfg.Path == "" {
		v.addError("cache.path", cfg.Path, "must not be empty")
	}
	if cfg.TTLDays <= 0 {
		v.addError("cache.ttl_days", cfg.TTLDays, "must be positive")
	}
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}
