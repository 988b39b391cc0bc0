// Package config loads the TOML settings the library-level components
// consume. The daemon binary keeps its own richer loader under cmd/.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type ClientConfig struct {
	Host             string `toml:"host"`
	Port             uint16 `toml:"port"`
	ConnectTimeoutMS int64  `toml:"connect_timeout_ms"`
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.ConnectTimeoutMS == 0 {
		cfg.ConnectTimeoutMS = 5000
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("client config missing host")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("client config missing port")
	}
	if cfg.ConnectTimeoutMS < 0 {
		return fmt.Errorf("client config connect_timeout_ms must not be negative")
	}
	return nil
}
