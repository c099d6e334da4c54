package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"survey-runner/internal/domain"
)

type Config struct {
	Store struct {
		URL      string `yaml:"url"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Outbox struct {
		Path string `yaml:"path"`
	} `yaml:"outbox"`
	Grading struct {
		PassingThreshold int `yaml:"passingThreshold"`
	} `yaml:"grading"`
	Device struct {
		Name     string `yaml:"name"`
		Platform string `yaml:"platform"`
	} `yaml:"device"`
	Translation struct {
		TTL string `yaml:"ttl"`
	} `yaml:"translation"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// PassingThreshold returns the configured threshold or the library default.
func (c Config) PassingThreshold() int {
	if c.Grading.PassingThreshold > 0 {
		return c.Grading.PassingThreshold
	}
	return domain.DefaultPassingThreshold
}

// DeviceName returns the configured device name or the library fallback.
func (c Config) DeviceName() string {
	if c.Device.Name != "" {
		return c.Device.Name
	}
	return domain.DefaultDeviceName
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
