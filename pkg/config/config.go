// Package config loads server configuration from an optional YAML file and
// TOSHOKAN_-prefixed environment variables, in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database.busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database.connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database.connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database.debug"`
	DatabaseFilePath          string        `koanf:"database.path"`
	DatabaseMaxRetries        int           `koanf:"database.max_retries"`
	Hostname                  string        `koanf:"-"`
	ServerHost                string        `koanf:"server.host"`
	ServerPort                int           `koanf:"server.port"`
	WorkerCancelPollInterval  time.Duration `koanf:"worker.cancel_poll_interval"`
	WorkerPollInterval        time.Duration `koanf:"worker.poll_interval"`
	WorkerProcesses           int           `koanf:"worker.processes"`
}

const (
	configFileENV = "CONFIG_FILE"
	envPrefix     = "TOSHOKAN_"
)

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseFilePath:          "./tmp/data.sqlite",
		DatabaseMaxRetries:        5,
		Hostname:                  hostname,
		ServerHost:                "0.0.0.0",
		ServerPort:                3690,
		WorkerCancelPollInterval:  time.Second,
		WorkerPollInterval:        5 * time.Second,
		WorkerProcesses:           1,
	}

	k := koanf.New(".")

	// The config file is optional; a missing file just means defaults + env.
	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = "/config/config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	// TOSHOKAN_DATABASE__PATH maps to database.path. Double underscores
	// separate nesting levels so keys can themselves contain underscores.
	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}
