package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath        = "linkpulse.yaml"
	DefaultAddr        = ":3000"
	DefaultScanAgentID = "69996017746ef9435cac7ed5"
)

var ErrMissingAgentURL = errors.New("agent_url is required (set AGENT_API_URL or agent_url in the config file)")

// Config holds everything needed to run the connection monitor.
type Config struct {
	Addr         string `yaml:"addr"`
	AgentURL     string `yaml:"agent_url"`
	AgentAPIKey  string `yaml:"agent_api_key"`
	ScanAgentID  string `yaml:"scan_agent_id"`
	DashboardURL string `yaml:"dashboard_url"`
	Verbose      bool   `yaml:"verbose"`
}

func Default() Config {
	return Config{
		Addr:        DefaultAddr,
		ScanAgentID: DefaultScanAgentID,
	}
}

// LoadDotEnv loads a .env file from the working directory. Existing
// environment variables win.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads the YAML file at path (a missing file means defaults) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if strings.TrimSpace(cfg.ScanAgentID) == "" {
		cfg.ScanAgentID = DefaultScanAgentID
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LINKPULSE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("AGENT_API_URL"); v != "" {
		cfg.AgentURL = v
	}
	if v := os.Getenv("AGENT_API_KEY"); v != "" {
		cfg.AgentAPIKey = v
	}
	if v := os.Getenv("SCAN_AGENT_ID"); v != "" {
		cfg.ScanAgentID = v
	}
	if v := os.Getenv("DASHBOARD_URL"); v != "" {
		cfg.DashboardURL = v
	}
	if os.Getenv("LINKPULSE_VERBOSE") == "true" {
		cfg.Verbose = true
	}
}

// Validate checks the fields the monitor cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AgentURL) == "" {
		return ErrMissingAgentURL
	}
	if !strings.HasPrefix(c.AgentURL, "http://") && !strings.HasPrefix(c.AgentURL, "https://") {
		return fmt.Errorf("agent_url %q must be an http(s) URL", c.AgentURL)
	}
	if c.DashboardURL != "" && !strings.HasPrefix(c.DashboardURL, "http://") && !strings.HasPrefix(c.DashboardURL, "https://") {
		return fmt.Errorf("dashboard_url %q must be an http(s) URL", c.DashboardURL)
	}
	return nil
}

// AgentChanged reports whether switching from c to next affects probes.
func (c Config) AgentChanged(next Config) bool {
	return c.AgentURL != next.AgentURL || c.AgentAPIKey != next.AgentAPIKey || c.ScanAgentID != next.ScanAgentID
}
