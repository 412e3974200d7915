package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs for the console API.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Auth struct {
		Enabled      bool          `mapstructure:"enabled"`
		Username     string        `mapstructure:"username"`
		Password     string        `mapstructure:"password"`
		TokenSecret  string        `mapstructure:"token_secret"`
		TokenTimeout time.Duration `mapstructure:"token_timeout"`
		Algorithm    string        `mapstructure:"algorithm"`
	} `mapstructure:"auth"`
	Table struct {
		DefaultPageSize int `mapstructure:"default_page_size"`
		MaxPageSize     int `mapstructure:"max_page_size"`
	} `mapstructure:"table"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
}

// SigningAlgorithms lists the accepted auth.algorithm values.
var SigningAlgorithms = []string{"HS256", "HS384", "HS512"}

// Load reads the configuration from disk/environment using Viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("warn_console")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile reports a missing file as a PathError rather than ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Auth.Algorithm = strings.ToUpper(strings.TrimSpace(c.Auth.Algorithm))
	known := false
	for _, alg := range SigningAlgorithms {
		if c.Auth.Algorithm == alg {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("validate config: unsupported auth.algorithm %q", c.Auth.Algorithm)
	}
	if c.Auth.TokenTimeout <= 0 {
		return fmt.Errorf("validate config: auth.token_timeout must be positive")
	}
	if c.Table.DefaultPageSize <= 0 || c.Table.MaxPageSize < c.Table.DefaultPageSize {
		return fmt.Errorf("validate config: table page sizes must satisfy 0 < default_page_size <= max_page_size")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":5600")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("storage.path", "./data/console.db")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin123")
	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_timeout", "8640000s")
	v.SetDefault("auth.algorithm", "HS256")

	v.SetDefault("table.default_page_size", 10)
	v.SetDefault("table.max_page_size", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
}
