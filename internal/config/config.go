// Package config loads CLI settings from a config file, .env, ANNOTATIONS_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/andressep95/annotations/pkg/runtime"
)

// EnvPrefix prefixes every environment override, e.g. ANNOTATIONS_DATABASE_URL.
const EnvPrefix = "ANNOTATIONS"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Host     string `mapstructure:"host" validate:"required_without=URL"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user" validate:"required_without=URL"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required_without=URL"`
	SSLMode  string `mapstructure:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `mapstructure:"max_conns" validate:"min=1"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Flags maps config keys to the command-line flags that override them.
var Flags = map[string]string{
	"database.url": "db",
	"log.level":    "log-level",
	"log.format":   "log-format",
}

var validate = validator.New()

// Load reads the configuration. path names an explicit config file; when
// empty, annotations.yaml is looked up in ., ./configs and
// $HOME/.config/annotations and may be absent. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("annotations")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "annotations"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range Flags {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults also registers every key with viper, which AutomaticEnv needs
// for Unmarshal to see environment-only values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Runtime returns the connection settings for a pool bound to namespace.
func (c DatabaseConfig) Runtime(namespace string) *runtime.Config {
	return &runtime.Config{
		URL:       c.URL,
		Host:      c.Host,
		Port:      c.Port,
		Database:  c.Name,
		User:      c.User,
		Password:  c.Password,
		SSLMode:   c.SSLMode,
		Namespace: namespace,
		MaxConns:  c.MaxConns,
	}
}
