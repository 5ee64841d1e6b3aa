// Package config loads CLI configuration. Precedence: environment
// variables over the YAML file over defaults. The SDK itself never reads
// the environment; this layer exists for cmd/beacon only.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all beacon CLI configuration.
type Config struct {
	AccessToken        string         `yaml:"access_token"`
	Endpoint           string         `yaml:"endpoint"`
	Environment        string         `yaml:"environment"`
	CodeVersion        string         `yaml:"code_version"`
	Host               string         `yaml:"host"`
	ScrubFields        []string       `yaml:"scrub_fields"`
	IncludeRequestBody bool           `yaml:"include_request_body"`
	DefaultCustom      map[string]any `yaml:"default_custom"`
	Verbose            bool           `yaml:"verbose"`
	Compress           bool           `yaml:"compress"`
	LogLevel           string         `yaml:"log_level"`
}

// Load reads configuration from the optional YAML file at path, then
// overlays BEACON_* environment variables.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setenv(&c.AccessToken, "BEACON_ACCESS_TOKEN")
	setenv(&c.Endpoint, "BEACON_ENDPOINT")
	setenv(&c.Environment, "BEACON_ENVIRONMENT")
	setenv(&c.CodeVersion, "BEACON_CODE_VERSION")
	setenv(&c.Host, "BEACON_HOST")
	setenv(&c.LogLevel, "BEACON_LOG_LEVEL")
	if v := os.Getenv("BEACON_SCRUB_FIELDS"); v != "" {
		c.ScrubFields = splitList(v)
	}
	if v := os.Getenv("BEACON_VERBOSE"); v != "" {
		c.Verbose = truthy(v)
	}
	if v := os.Getenv("BEACON_COMPRESS"); v != "" {
		c.Compress = truthy(v)
	}
}

func setenv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
