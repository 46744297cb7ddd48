// Package config layers the server and client settings: built-in
// defaults, then an optional TOML file, then an optional .env file, then
// the process environment. Command-line flags are applied last by main.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is read when no -config flag is given
const DefaultFile = "tankarena.toml"

type ServerConfig struct {
	Listen      string `toml:"listen"`
	Path        string `toml:"path"`
	DB          string `toml:"db"`
	MaxConns    int    `toml:"max_conns"`
	MaxConnsPIP int    `toml:"max_conns_per_ip"`
}

type ClientConfig struct {
	Server string `toml:"server"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:      ":8998",
			Path:        "/stream",
			MaxConns:    64,
			MaxConnsPIP: 5,
		},
		Client: ClientConfig{
			Server: "127.0.0.1:8998",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load applies the TOML file at path (skipped if it does not exist), then
// a .env file in the working directory, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return cfg, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TANK_LISTEN", &c.Server.Listen)
	str("TANK_PATH", &c.Server.Path)
	str("TANK_DB", &c.Server.DB)
	str("TANK_SERVER", &c.Client.Server)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("TANK_MAX_CONNS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("TANK_MAX_CONNS: invalid value %q", v)
		}
		c.Server.MaxConns = n
	}
	return nil
}

// StreamURL is the websocket URL a client dials
func (c Config) StreamURL() string {
	return "ws://" + c.Client.Server + c.Server.Path
}
