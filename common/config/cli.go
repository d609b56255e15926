package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CLIConfig holds ctrace CLI configuration (profiles, endpoints).
type CLIConfig struct {
	CurrentProfile string                 `yaml:"current_profile" mapstructure:"current_profile"`
	Profiles       map[string]*CLIProfile `yaml:"profiles" mapstructure:"profiles"`
	Defaults       *CLIDefaults           `yaml:"defaults" mapstructure:"defaults"`
	path           string
}

// CLIProfile holds per-environment endpoint configuration.
type CLIProfile struct {
	DetectURL  string `yaml:"detect_url" mapstructure:"detect_url"`
	ExplainURL string `yaml:"explain_url" mapstructure:"explain_url"`
	AnchorURL  string `yaml:"anchor_url" mapstructure:"anchor_url"`
	OrgID      string `yaml:"org_id" mapstructure:"org_id"`
}

// CLIDefaults holds default endpoint URLs for CLI operations.
type CLIDefaults struct {
	DetectURL  string `yaml:"detect_url" mapstructure:"detect_url"`
	ExplainURL string `yaml:"explain_url" mapstructure:"explain_url"`
	AnchorURL  string `yaml:"anchor_url" mapstructure:"anchor_url"`
	OrgID      string `yaml:"org_id" mapstructure:"org_id"`
}

// DefaultCLI returns a CLIConfig with default values.
func DefaultCLI() *CLIConfig {
	return &CLIConfig{
		CurrentProfile: "default",
		Profiles:       make(map[string]*CLIProfile),
		Defaults: &CLIDefaults{
			DetectURL:  "http://localhost:8081",
			ExplainURL: "http://localhost:8082",
			AnchorURL:  "http://localhost:8083",
		},
	}
}

// LoadCLI loads configuration for the ctrace CLI.
// Uses $HOME/.ctrace as the default config dir if CHAINTRACE_CONFIG_DIR is not set.
func LoadCLI() (*CLIConfig, error) {
	v := viper.New()

	v.SetDefault("current_profile", "default")
	v.SetDefault("defaults.detect_url", "http://localhost:8081")
	v.SetDefault("defaults.explain_url", "http://localhost:8082")
	v.SetDefault("defaults.anchor_url", "http://localhost:8083")

	configDir := os.Getenv("CHAINTRACE_CONFIG_DIR")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		configDir = filepath.Join(home, ".ctrace")
	}

	configPath := filepath.Join(configDir, "config.yaml")
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CTRACE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// viper needs explicit bindings for nested keys
	_ = v.BindEnv("defaults.detect_url", "CTRACE_DETECT_URL")
	_ = v.BindEnv("defaults.explain_url", "CTRACE_EXPLAIN_URL")
	_ = v.BindEnv("defaults.anchor_url", "CTRACE_ANCHOR_URL")
	_ = v.BindEnv("defaults.org_id", "CTRACE_ORG_ID")

	// Config file may not exist yet; that's fine.
	_ = v.ReadInConfig()

	cfg := DefaultCLI()
	cfg.path = configPath

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// MustLoadCLI loads CLI configuration and panics on error.
func MustLoadCLI() *CLIConfig {
	cfg, err := LoadCLI()
	if err != nil {
		panic(fmt.Sprintf("failed to load CLI config: %v", err))
	}
	return cfg
}

// Save writes the CLI config to disk.
func (c *CLIConfig) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".ctrace", "config.yaml")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// GetProfile retrieves a profile by name (or current profile if name is empty).
func (c *CLIConfig) GetProfile(name string) (*CLIProfile, error) {
	if name == "" {
		name = c.CurrentProfile
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	return profile, nil
}

// SaveProfile stores endpoint configuration under a profile name and makes it current.
func (c *CLIConfig) SaveProfile(name string, profile *CLIProfile) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*CLIProfile)
	}
	c.Profiles[name] = profile
	c.CurrentProfile = name
	return c.Save()
}

// GetDetectURL returns the detect service URL from profile or defaults.
func (c *CLIConfig) GetDetectURL(profile string) string {
	if profile != "" {
		if p, err := c.GetProfile(profile); err == nil && p.DetectURL != "" {
			return p.DetectURL
		}
	}
	return c.Defaults.DetectURL
}

// GetExplainURL returns the explain service URL from profile or defaults.
func (c *CLIConfig) GetExplainURL(profile string) string {
	if profile != "" {
		if p, err := c.GetProfile(profile); err == nil && p.ExplainURL != "" {
			return p.ExplainURL
		}
	}
	return c.Defaults.ExplainURL
}

// GetAnchorURL returns the anchor service URL from profile or defaults.
func (c *CLIConfig) GetAnchorURL(profile string) string {
	if profile != "" {
		if p, err := c.GetProfile(profile); err == nil && p.AnchorURL != "" {
			return p.AnchorURL
		}
	}
	return c.Defaults.AnchorURL
}

// GetOrgID returns the default organization ID from profile or defaults.
func (c *CLIConfig) GetOrgID(profile string) string {
	if profile != "" {
		if p, err := c.GetProfile(profile); err == nil && p.OrgID != "" {
			return p.OrgID
		}
	}
	return c.Defaults.OrgID
}
