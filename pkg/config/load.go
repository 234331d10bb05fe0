package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads a limiter configuration from a YAML file and validates it.
//
// Example file:
//
//	rates:
//	  per_second: 100
//	  per_minute: 2000
//	timeout: 5s
//	schedules:
//	  - cron: "0 9 * * 1-5"
//	    rate: 200
//	    window: second
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
