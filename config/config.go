// Package config loads the download run's configuration: the local
// cache/lock paths and per-studio-environment bearer tokens needed by
// the acquisition pipeline (spec.md §6).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig provides utilities for loading configuration from environment variables
type EnvConfig struct {
	prefix string // Optional prefix for all environment variables
}

// NewEnvConfig creates a new environment configuration loader
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{
		prefix: prefix,
	}
}

// GetString retrieves a string value from environment with optional default
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// GetInt retrieves an integer value from environment with optional default
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean value from environment with optional default
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value from environment with optional default
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
	}
	return defaultValue
}

// buildKey builds the full environment variable key with optional prefix
func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]string, 0),
	}
}

// RequireString validates that a string field is not empty
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequirePositiveInt validates that an integer field is positive
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// IsValid returns true if there are no validation errors
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// ErrorString returns all validation errors as a single string
func (v *Validator) ErrorString() string {
	return strings.Join(v.errors, "; ")
}

// Validate runs validation and returns error if invalid
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", v.ErrorString())
	}
	return nil
}

// keyFile holds the bearer-token key-file fields, named after
// forge.StudioEnvironments.
type keyFile struct {
	Prod    string `json:"prod,omitempty" yaml:"prod,omitempty"`
	Staging string `json:"staging,omitempty" yaml:"staging,omitempty"`
	Dev     string `json:"dev,omitempty" yaml:"dev,omitempty"`
}

// LoadKeys reads the key file at path and returns the non-empty
// studio_env → bearer token mapping. At least one of prod/staging/dev
// must be present; a key file with all three absent is a fatal
// configuration error (spec.md §6). Both JSON and YAML key files are
// accepted, selected by the file extension, since operators tend to
// hand-author small credential files in whichever format their other
// tooling already uses.
func LoadKeys(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read key file %s: %w", path, err)
	}
	var kf keyFile
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &kf); err != nil {
			return nil, fmt.Errorf("config: parse key file %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("config: parse key file %s: %w", path, err)
	}

	tokens := map[string]string{}
	if kf.Prod != "" {
		tokens["prod"] = kf.Prod
	}
	if kf.Staging != "" {
		tokens["staging"] = kf.Staging
	}
	if kf.Dev != "" {
		tokens["dev"] = kf.Dev
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("config: key file %s has no prod, staging, or dev token", path)
	}
	return tokens, nil
}

// RunConfig is the fully-resolved configuration for one download run.
type RunConfig struct {
	CacheDir           string
	KeyPath            string
	RetryFailed        bool
	Debug              bool
	PerHostConcurrency int
}

// Validate checks RunConfig for the minimum viable settings.
func (c RunConfig) Validate() error {
	v := NewValidator()
	v.RequireString("CacheDir", c.CacheDir)
	v.RequireString("KeyPath", c.KeyPath)
	v.RequirePositiveInt("PerHostConcurrency", c.PerHostConcurrency)
	return v.Validate()
}
