// Package config loads daemon configuration from the local
// ~/.craftpad/config.yaml file, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Backend names for project storage.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
)

// ApplyEnv overlays environment variables onto the config. Only variables
// that are actually set override the file values, so a deployment can tweak
// single settings without writing a config file.
func (c *LocalConfig) ApplyEnv() error {
	overrideInt(&c.Daemon.Port, "PORT")
	overrideString(&c.Daemon.Bind, "BIND")
	overrideString(&c.Daemon.LogLevel, "LOG_LEVEL")
	overrideString(&c.Storage.Backend, "STORAGE_BACKEND")
	overrideString(&c.Storage.DatabaseURL, "DATABASE_URL")
	overrideString(&c.Storage.SQLitePath, "SQLITE_PATH")
	overrideString(&c.Storage.DataDir, "DATA_DIR")
	overrideBool(&c.Storage.Resilient, "RESILIENT_STORE")
	overrideString(&c.Events.AMQPURL, "AMQP_URL")

	switch c.Storage.Backend {
	case BackendSQLite, BackendPostgres, BackendLocal:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return nil
}

func overrideString(dst *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*dst = value
	}
}

func overrideInt(dst *int, key string) {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}

func overrideBool(dst *bool, key string) {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}
