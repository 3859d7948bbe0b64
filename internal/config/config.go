package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Zuo-Peng/oracle-destiny/internal/session"
)

type Config struct {
	ServerURL      string        `toml:"server_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	FailurePolicy  string        `toml:"failure_policy"`
	Archive        bool          `toml:"archive"`
	DBPath         string        `toml:"db_path"`
	LogPath        string        `toml:"log_path"`
	ListenAddr     string        `toml:"listen_addr"`
}

// Load reads ~/.config/oracle/config.toml if present, then applies env overrides.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(home, ".config", "oracle", "config.toml"), home)
}

func LoadFrom(cfgPath, home string) (*Config, error) {
	cfg := &Config{
		ServerURL:      "http://localhost:8000",
		RequestTimeout: 15 * time.Second,
		FailurePolicy:  "proceed",
		Archive:        true,
		DBPath:         filepath.Join(home, ".config", "oracle", "oracle.db"),
		LogPath:        filepath.Join(home, ".config", "oracle", "oracle.log"),
		ListenAddr:     ":8000",
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.applyEnvOverrides()

	// expand ~ in paths
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.LogPath = expandHome(cfg.LogPath, home)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("ORACLE_SERVER_URL")); v != "" {
		c.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ORACLE_FAILURE_POLICY")); v != "" {
		c.FailurePolicy = v
	}
	if v := strings.TrimSpace(os.Getenv("ORACLE_LISTEN_ADDR")); v != "" {
		c.ListenAddr = v
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q must be an absolute URL", c.ServerURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if _, err := session.ParsePolicy(c.FailurePolicy); err != nil {
		return err
	}
	if c.Archive && c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty when archive is enabled")
	}
	return nil
}

// Policy returns the parsed failure policy. Validate has already checked it.
func (c *Config) Policy() session.FailurePolicy {
	p, _ := session.ParsePolicy(c.FailurePolicy)
	return p
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
