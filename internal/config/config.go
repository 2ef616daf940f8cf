package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix selects the environment variables that override the config file.
// DEVTRACKER_DATABASE_PASSWORD sets database.password.
const EnvPrefix = "DEVTRACKER_"

type Config struct {
	Database DatabaseConfig `toml:"database" koanf:"database"`
	Tracker  TrackerConfig  `toml:"tracker" koanf:"tracker"`
	Logging  LoggingConfig  `toml:"logging" koanf:"logging"`
}

type DatabaseConfig struct {
	Driver   string `toml:"driver" koanf:"driver" validate:"oneof=mysql sqlite3"`
	Host     string `toml:"host" koanf:"host" validate:"required_if=Driver mysql"`
	Port     int    `toml:"port" koanf:"port" validate:"required_if=Driver mysql,gte=0,lte=65535"`
	User     string `toml:"user" koanf:"user" validate:"required_if=Driver mysql"`
	Password string `toml:"password" koanf:"password"`
	Name     string `toml:"name" koanf:"name" validate:"required_if=Driver mysql"`

	// Path is the local mirror database used with the sqlite3 driver
	Path string `toml:"path" koanf:"path" validate:"required_if=Driver sqlite3"`

	MaxOpenConns    int           `toml:"max_open_conns" koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `toml:"max_idle_conns" koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" koanf:"conn_max_lifetime"`
	ConnectRetries  int           `toml:"connect_retries" koanf:"connect_retries" validate:"gte=0"`
	RetryBackoff    time.Duration `toml:"retry_backoff" koanf:"retry_backoff"`
	QueryTimeout    time.Duration `toml:"query_timeout" koanf:"query_timeout" validate:"gt=0"`
}

type TrackerConfig struct {
	// ClassNameProperty is the SensorDataProperty.name holding the edited class
	ClassNameProperty string `toml:"class_name_property" koanf:"class_name_property" validate:"required"`
}

type LoggingConfig struct {
	Level  string `toml:"level" koanf:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" koanf:"format" validate:"oneof=console json"`
	File   string `toml:"file" koanf:"file"`
}

func DefaultConfig() *Config {
	dir, _ := DevtrackerDir()
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			Host:            "localhost",
			Port:            3306,
			Name:            "web-cat-dev",
			Path:            filepath.Join(dir, "db", "devtracker.sqlite"),
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectRetries:  3,
			RetryBackoff:    500 * time.Millisecond,
			QueryTimeout:    30 * time.Second,
		},
		Tracker: TrackerConfig{
			ClassNameProperty: "Class-Name",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join(dir, "errors.log"),
		},
	}
}

func DevtrackerDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".devtracker"), nil
}

func ConfigPath() (string, error) {
	dir, err := DevtrackerDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func EnsureDirectories() error {
	dir, err := DevtrackerDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(dir, "db"), 0755)
}

// Load reads ~/.devtracker/config.toml, creating it with defaults on first run
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := EnsureDirectories(); err != nil {
			return nil, err
		}
		if err := Save(DefaultConfig(), configPath); err != nil {
			return nil, err
		}
	}

	return LoadFile(configPath)
}

// LoadFile decodes the given TOML file over the defaults, applies
// environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(cfg *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	k := koanf.New(".")

	// DEVTRACKER_DATABASE_MAX_OPEN_CONNS -> database.max_open_conns
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	if len(k.Keys()) == 0 {
		return nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("apply environment: %w", err)
	}
	return nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
