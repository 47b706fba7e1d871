package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/termdemo/internal/markup"
)

// Config holds the termdemo settings. Command line flags override it.
type Config struct {
	Speed        float64      `yaml:"speed"`
	PromptText   string       `yaml:"prompt_text"`
	PromptSymbol string       `yaml:"prompt_symbol"`
	Loop         bool         `yaml:"loop"`
	Clear        bool         `yaml:"clear"`
	WaitForKey   bool         `yaml:"wait_for_key"`
	Theme        string       `yaml:"theme"`
	Title        string       `yaml:"title"`
	LogLevel     string       `yaml:"log_level"`
	DBPath       string       `yaml:"db_path"`
	ScriptsDir   string       `yaml:"scripts_dir"`
	Server       ServerConfig `yaml:"server"`
	Record       RecordConfig `yaml:"record"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// Token guards the websocket and API. Generated on first serve if empty.
	Token    string `yaml:"token"`
	AutoPlay bool   `yaml:"autoplay"`
}

type RecordConfig struct {
	// Width and Height override the detected terminal size.
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	IdleLimit string `yaml:"idle_limit"`
}

// IdleLimitDuration parses the configured idle limit. Empty means none.
func (r RecordConfig) IdleLimitDuration() (time.Duration, error) {
	if strings.TrimSpace(r.IdleLimit) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.IdleLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid record.idle_limit %q: %w", r.IdleLimit, err)
	}
	return d, nil
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Speed:        1,
		PromptText:   "~",
		PromptSymbol: "❯",
		Theme:        "dark",
		LogLevel:     "info",
		DBPath:       filepath.Join(home, ".local", "share", "termdemo", "casts.db"),
		ScriptsDir:   filepath.Join(home, ".config", "termdemo", "scripts"),
		Server: ServerConfig{
			Port: 8765,
		},
	}
}

// DefaultPath is ~/.config/termdemo/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "termdemo", "config.yaml"), nil
}

// Load reads the config from the standard location. A missing file yields
// the defaults.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.ScriptsDir = expandHome(cfg.ScriptsDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field a command relies on. Errors name the field.
func (c *Config) Validate() error {
	if c.Speed <= 0 {
		return fmt.Errorf("invalid speed %v: must be greater than 0", c.Speed)
	}
	if _, err := markup.ResolveTheme(c.Theme); err != nil {
		return fmt.Errorf("invalid theme: %w", err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}
	if c.Record.Width < 0 || c.Record.Height < 0 {
		return fmt.Errorf("invalid record size %dx%d: must not be negative", c.Record.Width, c.Record.Height)
	}
	if _, err := c.Record.IdleLimitDuration(); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: want debug, info, warn or error", s)
	}
}

// EnsureToken generates a server token when none is set and saves it to
// Path so the URL stays stable across runs.
func (c *Config) EnsureToken() error {
	if c.Server.Token != "" {
		return nil
	}
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	c.Server.Token = token
	if c.Path == "" {
		return nil
	}

	// Persist the token alone; c may carry command line overrides.
	onDisk, err := LoadFrom(c.Path)
	if err != nil {
		return err
	}
	onDisk.Server.Token = token
	if err := onDisk.Save(); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func (c *Config) Save() error {
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(c.Path, data, 0o600)
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
