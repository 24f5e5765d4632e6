// Package config loads the settlement worker's configuration from a YAML
// file with ${VAR} / ${VAR:-default} environment substitution, applies
// defaults, and validates the result.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the recognized configuration surface for the settlement worker.
type Config struct {
	RPCURL                string  `yaml:"rpcUrl"`
	ChainID               int64   `yaml:"chainId"`
	PrivateKey            string  `yaml:"privateKey"`
	DatabaseURL           string  `yaml:"databaseUrl"`
	PollIntervalMs        int64   `yaml:"pollIntervalMs"`
	MaxRetries            int     `yaml:"maxRetries"`
	MaxGasPriceMultiplier float64 `yaml:"maxGasPriceMultiplier"`
	WorkerCount           int     `yaml:"workerCount"`
	Confirmations         uint64  `yaml:"confirmations"`
}

// PollInterval is the Producer loop period as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

var envPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(:-([^}]*))?\}`)

// Load reads filename, substitutes environment variables, parses YAML,
// applies defaults, and validates.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	substituted := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func substituteEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		m := envPattern.FindStringSubmatch(match)
		name := m[1]
		def := m[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if def != "" {
			return def
		}
		return match
	})
}

func (c *Config) applyDefaults() {
	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = 2000
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MaxGasPriceMultiplier == 0 {
		c.MaxGasPriceMultiplier = 1.5
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = 2
	}
	if c.Confirmations == 0 {
		c.Confirmations = 1
	}
}

func (c *Config) validate() error {
	var problems []string
	if c.RPCURL == "" {
		problems = append(problems, "rpcUrl is required")
	}
	if c.ChainID == 0 {
		problems = append(problems, "chainId is required")
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "databaseUrl is required")
	}
	if c.PrivateKey == "" {
		problems = append(problems, "privateKey is required")
	}
	if c.WorkerCount < 1 {
		problems = append(problems, "workerCount must be at least 1")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
