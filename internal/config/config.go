package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RegistryPath string
	PGDSN        string
	InputDir     string
	DataDir      string
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	WorkerName   string
	MetricsAddr  string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("registry", "./registry.yaml")
	v.SetDefault("in", "./data/decoded")
	v.SetDefault("data-dir", "./data/blocks")
	v.SetDefault("batch-size", 500)
	v.SetDefault("poll-interval", 2*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("worker-name", "worker-1")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RegistryPath: v.GetString("registry"),
		PGDSN:        v.GetString("pg-dsn"),
		InputDir:     v.GetString("in"),
		DataDir:      v.GetString("data-dir"),
		BatchSize:    v.GetInt("batch-size"),
		PollInterval: v.GetDuration("poll-interval"),
		MaxRetries:   v.GetInt("max-retries"),
		WorkerName:   v.GetString("worker-name"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
