// Package config handles TOML configuration loading for the arptour
// daemons. Grounded on athena-dhcpd/internal/config's Load/applyDefaults
// shape, trimmed to the handful of settings arpd and tourd actually
// share: which interface to bind, the AREQ namespace, logging, and the
// metrics listener.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the configuration shared by arpd and tourd.
type Config struct {
	Daemon DaemonConfig `toml:"daemon"`
}

// DaemonConfig holds the settings common to both daemons (spec §6: "Ports,
// magic numbers, paths, and EtherType are compile-time constants" — this
// covers only what is legitimately site-specific: which interface to use,
// the AREQ namespace, and operational knobs).
type DaemonConfig struct {
	// Interface names the network interface to bind. Empty means
	// auto-detect the first usable non-loopback interface (iface.Discover).
	Interface string `toml:"interface"`

	// Namespace prefixes the AREQ Unix socket path (spec §6,
	// "/tmp/<ns>-arpService"), so multiple independent tours can share a
	// test host without colliding.
	Namespace string `toml:"namespace"`

	LogLevel string `toml:"log_level"`

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. An empty or omitted value is replaced by the default
	// (":9120"), so a config loaded by Load always has one set.
	MetricsAddr string `toml:"metrics_addr"`
}

// defaults applied when a field is left at its zero value, whether
// because the config file omitted it or no file was loaded at all.
func defaults() Config {
	return Config{Daemon: DaemonConfig{
		Namespace:   "arptour",
		LogLevel:    "info",
		MetricsAddr: ":9120",
	}}
}

// Load reads and parses the TOML file at path, applying defaults() to
// any field left unset. A missing file is not an error: both daemons
// are expected to run unconfigured against their compiled-in defaults
// (spec §6), so Load simply returns defaults() when path does not
// exist.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := defaults()
	if cfg.Daemon.Namespace == "" {
		cfg.Daemon.Namespace = d.Daemon.Namespace
	}
	if cfg.Daemon.LogLevel == "" {
		cfg.Daemon.LogLevel = d.Daemon.LogLevel
	}
	if cfg.Daemon.MetricsAddr == "" {
		cfg.Daemon.MetricsAddr = d.Daemon.MetricsAddr
	}
}
