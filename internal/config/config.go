package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models posteditme.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
		// DefaultAdminEmail is promoted to system_admin (approved) at signup.
		DefaultAdminEmail string `yaml:"default_admin_email"`
	} `yaml:"auth"`
	Workspace string `yaml:"workspace"`
}

// Default returns the default Config for a workspace.
func Default(workspace string) *Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.BasePath = "/v1"
	cfg.Auth.TokenTTL = "168h"
	cfg.Workspace = workspace
	return &cfg
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "posteditme.yml")
}

// Load reads config from workspace, seeding defaults for missing fields.
// A missing file yields the defaults.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(workspace), nil
		}
		return nil, err
	}
	return FromYAML(workspace, data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(workspace string, data []byte) (*Config, error) {
	cfg := Default(workspace)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Workspace == "" {
		cfg.Workspace = workspace
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TokenTTLDuration parses auth.token_ttl, falling back to a week.
func (c *Config) TokenTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Auth.TokenTTL == "" {
		return fmt.Errorf("config.auth.token_ttl is required")
	}
	return nil
}
