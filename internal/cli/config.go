package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSizeLog is the telemetry log file used when none is configured.
const DefaultSizeLog = "insights_size_log.json"

// Config holds the runtime configuration for the Insights MCP server.
// It can be populated from CLI flags, config files, or both.
type Config struct {
	// Comment field for user documentation (ignored by the application)
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// Data engine connection
	GatewayURL string `json:"gateway_url,omitempty" yaml:"gateway_url,omitempty"`
	CountByUDA string `json:"countby_uda,omitempty" yaml:"countby_uda,omitempty"`
	Insecure   bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`

	// Telemetry
	SizeLog string `json:"size_log,omitempty" yaml:"size_log,omitempty"`

	// Guidance documents override directory (empty = embedded only)
	GuidanceDir string `json:"guidance_dir,omitempty" yaml:"guidance_dir,omitempty"`

	// Web UI configuration (port 0 disables the dashboard)
	WebUIHost string `json:"webui_host,omitempty" yaml:"webui_host,omitempty"`
	WebUIPort int    `json:"webui_port,omitempty" yaml:"webui_port,omitempty"`

	// Logging configuration
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		GatewayURL: "http://localhost:8080",
		CountByUDA: "",
		SizeLog:    DefaultSizeLog,
		WebUIHost:  "127.0.0.1",
		WebUIPort:  0,
		Verbose:    false,
	}
}

// LoadConfigFromFile loads configuration from a JSON or YAML file, chosen by
// extension (.yaml/.yml parse as YAML, everything else as JSON).
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return &config, nil
}

// projectConfigNames are the file names searched for a project-level config.
var projectConfigNames = []string{".insights-mcp.json", ".insights-mcp.yaml", ".insights-mcp.yml"}

// FindProjectConfig searches for a project config file. It starts in the
// current directory and walks up looking for one, stopping when it finds a
// .git directory (project root) or reaches the filesystem root.
func FindProjectConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		for _, name := range projectConfigNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath, nil
			}
		}

		// Stop at a git repo root even if no config was found there.
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// GlobalConfigPath returns the path to the global config file:
// ~/.config/insights-mcp/config.json
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "insights-mcp", "config.json")
}

// MergeConfigs merges two configs with the overlay taking precedence.
// Fields in overlay override corresponding fields in base.
func MergeConfigs(base, overlay *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if overlay == nil {
		return base
	}

	merged := *base

	if overlay.GatewayURL != "" {
		merged.GatewayURL = overlay.GatewayURL
	}
	if overlay.CountByUDA != "" {
		merged.CountByUDA = overlay.CountByUDA
	}
	if overlay.Insecure {
		merged.Insecure = overlay.Insecure
	}
	if overlay.SizeLog != "" {
		merged.SizeLog = overlay.SizeLog
	}
	if overlay.GuidanceDir != "" {
		merged.GuidanceDir = overlay.GuidanceDir
	}
	if overlay.WebUIHost != "" {
		merged.WebUIHost = overlay.WebUIHost
	}
	if overlay.WebUIPort > 0 {
		merged.WebUIPort = overlay.WebUIPort
	}
	if overlay.Verbose {
		merged.Verbose = overlay.Verbose
	}

	return &merged
}

// LoadEffectiveConfig loads the effective configuration by merging:
// 1. Built-in defaults
// 2. Global config file (if exists)
// 3. Project config file (if exists and no explicit path)
// 4. Explicit config file (if specified via configPath)
// Later sources override earlier ones.
func LoadEffectiveConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Global config is optional; errors reading it are ignored.
	if globalPath := GlobalConfigPath(); globalPath != "" {
		if globalCfg, err := LoadConfigFromFile(globalPath); err == nil {
			config = MergeConfigs(config, globalCfg)
		}
	}

	if configPath == "" {
		if projectPath, err := FindProjectConfig(); err == nil {
			projectCfg, err := LoadConfigFromFile(projectPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load project config: %w", err)
			}
			config = MergeConfigs(config, projectCfg)
		}
	} else {
		explicitCfg, err := LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = MergeConfigs(config, explicitCfg)
	}

	return config, nil
}
