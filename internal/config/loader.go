package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	SkillsDir  string `json:"skills_dir" yaml:"skills_dir" toml:"skills_dir"`
	CatalogDir string `json:"catalog_dir" yaml:"catalog_dir" toml:"catalog_dir"`

	AutoUpdate            *bool `json:"auto_update" yaml:"auto_update" toml:"auto_update"`
	UpdateIntervalSeconds int   `json:"update_interval_seconds" yaml:"update_interval_seconds" toml:"update_interval_seconds"`
	ScanIntervalMS        int   `json:"scan_interval_ms" yaml:"scan_interval_ms" toml:"scan_interval_ms"`

	PrioritySkills    []string `json:"priority_skills" yaml:"priority_skills" toml:"priority_skills"`
	DefaultSkills     []string `json:"default_skills" yaml:"default_skills" toml:"default_skills"`
	BlacklistedSkills []string `json:"blacklisted_skills" yaml:"blacklisted_skills" toml:"blacklisted_skills"`

	LockPath            string `json:"lock_path" yaml:"lock_path" toml:"lock_path"`
	InstalledSkillsFile string `json:"installed_skills_file" yaml:"installed_skills_file" toml:"installed_skills_file"`

	Platform               string `json:"platform" yaml:"platform" toml:"platform"`
	SkipConnectedGate      bool   `json:"skip_connected_gate" yaml:"skip_connected_gate" toml:"skip_connected_gate"`
	LoadTimeoutSeconds     int    `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`
	ConverseTimeoutSeconds int    `json:"converse_timeout_seconds" yaml:"converse_timeout_seconds" toml:"converse_timeout_seconds"`

	Watch             *bool    `json:"watch" yaml:"watch" toml:"watch"`
	SpeakUpdates      bool     `json:"speak_updates" yaml:"speak_updates" toml:"speak_updates"`
	ConnectivityHosts []string `json:"connectivity_hosts" yaml:"connectivity_hosts" toml:"connectivity_hosts"`
	MinFreeDiskMB     int      `json:"min_free_disk_mb" yaml:"min_free_disk_mb" toml:"min_free_disk_mb"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults used by ApplyDefaults.
const (
	DefaultAddr                   = ":8088"
	DefaultSkillsDir              = "~/.local/share/skilld/skills"
	DefaultUpdateIntervalSeconds  = 3600
	DefaultScanIntervalMS         = 2000
	DefaultPlatform               = "assistant.internet"
	DefaultLoadTimeoutSeconds     = 30
	DefaultConverseTimeoutSeconds = 10
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "console"
)

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.SkillsDir == "" {
		c.SkillsDir = DefaultSkillsDir
	}
	if c.AutoUpdate == nil {
		c.AutoUpdate = boolPtr(true)
	}
	if c.Watch == nil {
		c.Watch = boolPtr(true)
	}
	if c.UpdateIntervalSeconds == 0 {
		c.UpdateIntervalSeconds = DefaultUpdateIntervalSeconds
	}
	if c.ScanIntervalMS == 0 {
		c.ScanIntervalMS = DefaultScanIntervalMS
	}
	if c.Platform == "" {
		c.Platform = DefaultPlatform
	}
	if c.LoadTimeoutSeconds == 0 {
		c.LoadTimeoutSeconds = DefaultLoadTimeoutSeconds
	}
	if c.ConverseTimeoutSeconds == 0 {
		c.ConverseTimeoutSeconds = DefaultConverseTimeoutSeconds
	}
	if c.LockPath == "" {
		c.LockPath = filepath.Join(filepath.Dir(c.SkillsDir), "update.lock")
	}
	if c.InstalledSkillsFile == "" {
		c.InstalledSkillsFile = filepath.Join(filepath.Dir(c.SkillsDir), "installed_skills")
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SkillsDir) == "" {
		return errors.New("skills_dir is required")
	}
	if c.UpdateIntervalSeconds < 0 {
		return fmt.Errorf("update_interval_seconds must be >= 0, got %d", c.UpdateIntervalSeconds)
	}
	if c.ScanIntervalMS < 0 {
		return fmt.Errorf("scan_interval_ms must be >= 0, got %d", c.ScanIntervalMS)
	}
	if c.LoadTimeoutSeconds < 0 || c.ConverseTimeoutSeconds < 0 {
		return errors.New("timeouts must be >= 0")
	}
	if c.MinFreeDiskMB < 0 {
		return fmt.Errorf("min_free_disk_mb must be >= 0, got %d", c.MinFreeDiskMB)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	return nil
}

// AutoUpdateEnabled reports the effective auto_update value.
func (c Config) AutoUpdateEnabled() bool { return c.AutoUpdate != nil && *c.AutoUpdate }

// WatchEnabled reports the effective watch value.
func (c Config) WatchEnabled() bool { return c.Watch != nil && *c.Watch }

func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMS) * time.Millisecond
}

func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

func (c Config) ConverseTimeout() time.Duration {
	return time.Duration(c.ConverseTimeoutSeconds) * time.Second
}

func boolPtr(b bool) *bool { return &b }

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
