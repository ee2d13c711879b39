package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Values come from an optional YAML
// file with environment overrides applied at the edge; the core packages
// never read the environment themselves.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	Solve struct {
		MaxVariables    int           `yaml:"maxVariables"`
		DefaultBackend  string        `yaml:"defaultBackend"`
		DefaultEncoding string        `yaml:"defaultEncoding"`
		NumReads        int           `yaml:"numReads"`
		Sweeps          int           `yaml:"sweeps"`
		TimeLimit       time.Duration `yaml:"timeLimit"`
	} `yaml:"solve"`

	Matrix struct {
		APIURL   string        `yaml:"apiUrl"`
		APIKey   string        `yaml:"apiKey"`
		CacheTTL time.Duration `yaml:"cacheTtl"`
	} `yaml:"matrix"`

	Webhooks []WebhookTarget `yaml:"webhooks"`
}

// WebhookTarget receives signed solve-completed notifications.
type WebhookTarget struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Addr = ":8080"
	c.RateLimit.RPS = 5
	c.RateLimit.Burst = 10
	c.Solve.MaxVariables = 1 << 16
	c.Solve.DefaultBackend = "annealer"
	c.Solve.DefaultEncoding = "step"
	c.Matrix.CacheTTL = time.Hour
	return c
}

// Load reads path over the defaults. An empty path returns the defaults
// unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides file values from the environment. Called by the entry
// point only.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("MATRIX_API_URL"); v != "" {
		c.Matrix.APIURL = v
	}
	if v := os.Getenv("MATRIX_API_KEY"); v != "" {
		c.Matrix.APIKey = v
	}
}
