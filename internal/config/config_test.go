package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.RegistryPath != "./registry.yaml" {
		t.Fatalf("registry = %s", cfg.RegistryPath)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %s", cfg.PollInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("max retries = %d", cfg.MaxRetries)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %s", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRADESCOPE_PG_DSN", "postgres://env")
	t.Setenv("TRADESCOPE_LOG_LEVEL", "debug")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PGDSN != "postgres://env" {
		t.Fatalf("pg dsn = %s", cfg.PGDSN)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %s", cfg.LogLevel)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("worker-name", "worker-1", "")
	flags.Int("batch-size", 500, "")
	if err := flags.Parse([]string{"--worker-name=worker-7", "--batch-size=42"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkerName != "worker-7" {
		t.Fatalf("worker name = %s", cfg.WorkerName)
	}
	if cfg.BatchSize != 42 {
		t.Fatalf("batch size = %d", cfg.BatchSize)
	}
}
