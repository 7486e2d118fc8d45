package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration of the exporter.
type Config struct {
	// Port the HTTP server binds to.
	Port int `yaml:"port"`

	// PollInterval is the delay between the end of one poll cycle and the
	// start of the next.
	PollInterval time.Duration `yaml:"pollInterval"`

	// APITimeout bounds each individual upstream list call.
	APITimeout time.Duration `yaml:"apiTimeout"`

	// NodeCapacity is the configured number of egress addresses one node
	// can hold. The platform does not expose this; it is an operational
	// constant.
	NodeCapacity int `yaml:"nodeCapacity"`

	// HealthMaxAge is how stale the last full scrape may be before /health
	// reports unhealthy.
	HealthMaxAge time.Duration `yaml:"healthMaxAge"`

	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:         8080,
		PollInterval: 30 * time.Second,
		APITimeout:   30 * time.Second,
		NodeCapacity: 75,
		HealthMaxAge: 300 * time.Second,
		LogLevel:     "info",
		LogJSON:      true,
	}
}

// Load builds the configuration in precedence order: defaults, then the
// optional YAML file, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the exporter cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll interval must be >= 1s, got %s", c.PollInterval)
	}
	if c.APITimeout < time.Second {
		return fmt.Errorf("api timeout must be >= 1s, got %s", c.APITimeout)
	}
	if c.NodeCapacity <= 0 {
		return fmt.Errorf("node capacity must be positive, got %d", c.NodeCapacity)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("SCRAPE_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.PollInterval = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.APITimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("NODE_EIP_CAPACITY"); v != "" {
		if capacity, err := strconv.Atoi(v); err == nil {
			cfg.NodeCapacity = capacity
		}
	}
	if v := os.Getenv("HEALTH_MAX_AGE"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.HealthMaxAge = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LogJSON = v == "true"
	}
}
