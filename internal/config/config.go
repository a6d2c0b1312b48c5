package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server and process defaults loaded from a YAML file.
type Config struct {
	Port         int     `yaml:"port"`
	DBPath       string  `yaml:"db_path"`
	BaseCurrency string  `yaml:"base_currency"`
	IGVRate      float64 `yaml:"igv_rate"`
	OrderSuffix  string  `yaml:"order_suffix"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Port:         9000,
		DBPath:       "procura.db",
		BaseCurrency: "PEN",
		IGVRate:      0.18,
		OrderSuffix:  "OBRA",
	}
}

// Load reads the YAML config at path, applying defaults for missing fields.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks config values are usable.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.IGVRate < 0 || c.IGVRate > 1 {
		return fmt.Errorf("config: igv_rate %v must be a fraction in [0,1]", c.IGVRate)
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	return nil
}
