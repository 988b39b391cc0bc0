package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/peerwire/internal/server"
)

type daemonConfig struct {
	Name         string
	Server       server.Config
	TickInterval time.Duration
	AdminAddr    string
	CorsOrigins  []string
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Name:         "peerwired",
		Server:       server.Config{BindPort: 7777},
		TickInterval: 20 * time.Millisecond,
	}
}

type fileConfig struct {
	Name           string   `toml:"name"`
	BindHost       string   `toml:"bind_host"`
	BindPort       uint16   `toml:"bind_port"`
	MaxPeers       int      `toml:"max_peers"`
	TickInterval   string   `toml:"tick_interval"`
	TickIntervalMS int64    `toml:"tick_interval_ms"`
	AdminAddr      string   `toml:"admin_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
}

func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load peerwired config: %w", err)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("bind_host") {
		cfg.Server.BindHost = strings.TrimSpace(raw.BindHost)
	}
	if meta.IsDefined("bind_port") {
		cfg.Server.BindPort = raw.BindPort
	}
	if meta.IsDefined("max_peers") {
		if raw.MaxPeers < 0 {
			return daemonConfig{}, fmt.Errorf("max_peers must not be negative")
		}
		cfg.Server.MaxPeers = raw.MaxPeers
	}
	if meta.IsDefined("tick_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TickInterval))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse tick_interval: %w", err)
		}
		cfg.TickInterval = d
	}
	if meta.IsDefined("tick_interval_ms") {
		cfg.TickInterval = time.Duration(raw.TickIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if cfg.TickInterval <= 0 {
		return daemonConfig{}, fmt.Errorf("tick interval must be positive")
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
