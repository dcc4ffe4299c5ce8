// Package config loads teamsync settings.
//
// Sources, lowest to highest precedence: defaults, teamsync.yaml (optional),
// a .env file (optional, loaded into the environment), TEAMSYNC_* environment
// variables, then command-line flags that were set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all settings of a teamsync process.
type Config struct {
	Workspace string         `mapstructure:"workspace"`
	LogLevel  string         `mapstructure:"log_level"`
	Database  DatabaseConfig `mapstructure:"database"`
	GitHub    GitHubConfig   `mapstructure:"github"`
	Session   SessionConfig  `mapstructure:"session"`
	Panel     PanelConfig    `mapstructure:"panel"`
	Redis     RedisConfig    `mapstructure:"redis"`
}

// DatabaseConfig points at the shared presence store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// GitHubConfig holds the OAuth app credentials and the local callback
// listener settings.
type GitHubConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	CallbackPort int           `mapstructure:"callback_port"`
	LoginTimeout time.Duration `mapstructure:"login_timeout"`
}

// CallbackURL is the redirect URL registered with the OAuth app.
func (c GitHubConfig) CallbackURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", c.CallbackPort)
}

// CallbackAddr is the address the callback listener binds.
func (c GitHubConfig) CallbackAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.CallbackPort)
}

// SessionConfig controls the persisted sign-in.
type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	File   string        `mapstructure:"file"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// SecretFile is where a generated signing secret is kept when Secret is
// not configured. It sits next to the session file.
func (c SessionConfig) SecretFile() string {
	return filepath.Join(filepath.Dir(c.File), "session.key")
}

// PanelConfig controls the local web panel. Port 0 disables it.
type PanelConfig struct {
	Port int `mapstructure:"port"`
}

// Addr is the address the panel binds.
func (c PanelConfig) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// RedisConfig enables the cross-process changefeed when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Flags returns the command-line flags Load understands. Flag names map to
// config keys through flagKeys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("teamsync", pflag.ContinueOnError)
	fs.String("config", "", "path to a teamsync.yaml config file")
	fs.String("workspace", ".", "workspace root; file paths are reported relative to it")
	fs.String("db", "", "path to the shared presence database")
	fs.Int("panel-port", 0, "port of the local web panel (0 disables it)")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("redis-addr", "", "Redis address for the cross-process changefeed")
	return fs
}

var flagKeys = map[string]string{
	"workspace":  "workspace",
	"db":         "database.path",
	"panel-port": "panel.port",
	"log-level":  "log_level",
	"redis-addr": "redis.addr",
}

// Load builds the configuration. fs may be nil; otherwise it must have been
// created by Flags and already parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TEAMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets are expected from the environment.
	for _, key := range []string{
		"github.client_id", "github.client_secret",
		"session.secret", "redis.addr", "redis.password",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	configFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("teamsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "teamsync"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	if c.GitHub.CallbackPort <= 0 || c.GitHub.CallbackPort > 65535 {
		return fmt.Errorf("github.callback_port %d is out of range", c.GitHub.CallbackPort)
	}
	if c.Panel.Port < 0 || c.Panel.Port > 65535 {
		return fmt.Errorf("panel.port %d is out of range", c.Panel.Port)
	}
	if c.GitHub.LoginTimeout <= 0 {
		return fmt.Errorf("github.login_timeout must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace", ".")
	v.SetDefault("log_level", "info")

	v.SetDefault("database.path", filepath.Join(stateDir(), "teamsync.db"))

	v.SetDefault("github.client_id", "")
	v.SetDefault("github.client_secret", "")
	v.SetDefault("github.callback_port", 54321)
	v.SetDefault("github.login_timeout", "120s")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.file", filepath.Join(stateDir(), "session"))
	v.SetDefault("session.ttl", "720h")

	v.SetDefault("panel.port", 0)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "teamsync:table:")
}

// stateDir is where the database and session live unless configured
// otherwise.
func stateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "teamsync")
	}
	return ".teamsync"
}
