package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration. Flags override it; the
// MAILVET_CONFIG environment variable overrides the -config flag.
type Config struct {
	HeloDomain string `yaml:"helo_domain"`
	MailFrom   string `yaml:"mail_from"`
	Workers    int    `yaml:"workers"`

	DNS struct {
		Timeout     time.Duration `yaml:"timeout"`
		Nameservers []string      `yaml:"nameservers"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
	} `yaml:"dns"`

	Website struct {
		Enabled bool          `yaml:"enabled"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"website"`

	SMTP struct {
		ConnectTimeout     time.Duration `yaml:"connect_timeout"`
		CommandTimeout     time.Duration `yaml:"command_timeout"`
		MaxMXHosts         int           `yaml:"max_mx_hosts"`
		RejectInconclusive bool          `yaml:"reject_inconclusive"`
	} `yaml:"smtp"`

	Screening struct {
		Enabled          bool `yaml:"enabled"`
		RejectDisposable bool `yaml:"reject_disposable"`
	} `yaml:"screening"`
}

func defaultConfig() Config {
	var c Config
	c.HeloDomain = "localhost"
	c.Workers = 25
	c.Website.Enabled = true
	return c
}

// loadConfig reads the YAML file at path, or the defaults when path is
// empty and no MAILVET_CONFIG override is set.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if env := os.Getenv("MAILVET_CONFIG"); env != "" {
		path = env
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 25
	}
	return cfg, nil
}
