// Package config загружает конфигурацию сервера из файла, переменных
// окружения MANUSCRIPT_* и флагов командной строки.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "MANUSCRIPT"

var (
	// ErrMissingJWTSecret indicates that no token secret was configured
	ErrMissingJWTSecret = errors.New("jwt secret is required")
)

// Config конфигурация сервера
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
}

// HTTPConfig параметры HTTP сервера
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`       // запросов в окне на пользователя
	RateWindow      time.Duration `mapstructure:"rate_window"`      // окно rate limit
	MaxDecodedBody  int64         `mapstructure:"max_decoded_body"` // предел распакованного тела
}

// StorageConfig расположение данных
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"` // DataDir корень файлов сущностей
	DBPath  string `mapstructure:"db_path"`  // DBPath файл sqlite с учетными данными синхронизации
}

// JWTConfig параметры bearer токенов
type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// SyncConfig параметры сессий синхронизации
type SyncConfig struct {
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig параметры логирования
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // text или json
	File       string `mapstructure:"file"`   // пусто - stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults задает значения по умолчанию
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.idle_timeout", 120*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.rate_limit", 600)
	v.SetDefault("http.rate_window", time.Minute)
	v.SetDefault("http.max_decoded_body", 32<<20)

	v.SetDefault("storage.data_dir", "data/projects")
	v.SetDefault("storage.db_path", "data/manuscript.db")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "manuscript")
	v.SetDefault("jwt.token_ttl", 30*24*time.Hour)

	v.SetDefault("sync.session_ttl", 30*time.Minute)
	v.SetDefault("sync.cleanup_interval", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

// BindFlags регистрирует флаги и связывает их с ключами viper
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("address", "", "HTTP listen address")
	flags.String("data-dir", "", "directory with project entity files")
	flags.String("db", "", "path to sqlite database")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-file", "", "write logs to a rotating file instead of stdout")

	bindings := map[string]string{
		"http.address":     "address",
		"storage.data_dir": "data-dir",
		"storage.db_path":  "db",
		"log.level":        "log-level",
		"log.format":       "log-format",
		"log.file":         "log-file",
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
	return &cfg, nil
}

// Validate проверяет обязательные параметры сервера
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Sync.SessionTTL <= 0 {
		return fmt.Errorf("sync.session_ttl must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
