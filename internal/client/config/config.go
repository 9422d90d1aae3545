// Package config загружает конфигурацию клиента из файла, переменных
// окружения MANUSCRIPT_* и флагов командной строки.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "MANUSCRIPT"

var (
	// ErrMissingServerURL no server address in flags, env, config or the stored login
	ErrMissingServerURL = errors.New("server url is required")
)

// Config конфигурация клиента
type Config struct {
	ServerURL         string        `mapstructure:"server"`             // пусто - адрес из сохраненного логина
	Token             string        `mapstructure:"token"`              // пусто - сохраненный токен
	ProjectsDir       string        `mapstructure:"projects_dir"`       // каталог локальных проектов
	DBPath            string        `mapstructure:"db_path"`            // файл bbolt с состоянием синхронизации
	LogLevel          string        `mapstructure:"log_level"`          // debug, info, warn, error
	Timeout           time.Duration `mapstructure:"timeout"`            // таймаут HTTP запроса
	CompressThreshold int           `mapstructure:"compress_threshold"` // тела от этого размера сжимаются zstd, 0 - никогда
}

// DefaultHome каталог данных клиента по умолчанию
func DefaultHome() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "manuscript")
	}
	return ".manuscript"
}

// SetDefaults задает значения по умолчанию
func SetDefaults(v *viper.Viper) {
	home := DefaultHome()
	v.SetDefault("server", "")
	v.SetDefault("token", "")
	v.SetDefault("projects_dir", filepath.Join(home, "projects"))
	v.SetDefault("db_path", filepath.Join(home, "client.db"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("compress_threshold", 16<<10)
}

// BindFlags регистрирует флаги и связывает их с ключами viper
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("server", "", "server URL")
	flags.String("token", "", "access token (overrides the stored login)")
	flags.String("projects-dir", "", "directory with local projects")
	flags.String("db", "", "path to the local sync state database")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Duration("timeout", 0, "HTTP request timeout")

	bindings := map[string]string{
		"server":       "server",
		"token":        "token",
		"projects_dir": "projects-dir",
		"db_path":      "db",
		"log_level":    "log-level",
		"timeout":      "timeout",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// New создает viper с дефолтами и переменными окружения
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load читает файл конфигурации (если задан) и собирает Config
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет параметры клиента
func (c *Config) Validate() error {
	if c.ProjectsDir == "" {
		return fmt.Errorf("projects_dir is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CompressThreshold < 0 {
		return fmt.Errorf("compress_threshold must not be negative")
	}
	return nil
}
