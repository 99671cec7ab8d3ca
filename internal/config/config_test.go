package config

import (
	"testing"
)

func TestOverrideString(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		initial  string
		envValue string
		setEnv   bool
		want     string
	}{
		{"keeps value when not set", "TEST_STR_UNSET", "yaml-value", "", false, "yaml-value"},
		{"overrides when set", "TEST_STR_SET", "yaml-value", "env-value", true, "env-value"},
		{"keeps value on empty env", "TEST_STR_EMPTY", "yaml-value", "", true, "yaml-value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}

			got := tt.initial
			overrideString(&got, tt.key)
			if got != tt.want {
				t.Errorf("overrideString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestOverrideInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		initial  int
		envValue string
		setEnv   bool
		want     int
	}{
		{"keeps value when not set", "TEST_INT_UNSET", 100, "", false, 100},
		{"parses valid int", "TEST_INT_VALID", 100, "42", true, 42},
		{"keeps value on invalid int", "TEST_INT_INVALID", 100, "not-a-number", true, 100},
		{"parses negative int", "TEST_INT_NEG", 100, "-5", true, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}

			got := tt.initial
			overrideInt(&got, tt.key)
			if got != tt.want {
				t.Errorf("overrideInt(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestOverrideBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		initial  bool
		envValue string
		setEnv   bool
		want     bool
	}{
		{"keeps value when not set", "TEST_BOOL_UNSET", true, "", false, true},
		{"parses true", "TEST_BOOL_TRUE", false, "true", true, true},
		{"parses false", "TEST_BOOL_FALSE", true, "false", true, false},
		{"keeps value on invalid bool", "TEST_BOOL_INVALID", true, "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}

			got := tt.initial
			overrideBool(&got, tt.key)
			if got != tt.want {
				t.Errorf("overrideBool(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyEnv_NoEnvKeepsValues(t *testing.T) {
	cfg := DefaultLocalConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Daemon.Port != 7433 {
		t.Errorf("Port = %d, want 7433", cfg.Daemon.Port)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if !cfg.Storage.Resilient {
		t.Error("Resilient should stay true")
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("STORAGE_BACKEND", BackendLocal)
	t.Setenv("DATA_DIR", "/tmp/craftpad-data")
	t.Setenv("RESILIENT_STORE", "false")
	t.Setenv("AMQP_URL", "amqp://localhost:5672/")

	cfg := DefaultLocalConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Daemon.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Daemon.Port)
	}
	if cfg.Storage.Backend != BackendLocal {
		t.Errorf("Backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.Storage.DataDir != "/tmp/craftpad-data" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.Resilient {
		t.Error("Resilient should be overridden to false")
	}
	if cfg.Events.AMQPURL != "amqp://localhost:5672/" {
		t.Errorf("AMQPURL = %q", cfg.Events.AMQPURL)
	}
}

func TestApplyEnv_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "cassandra")

	cfg := DefaultLocalConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("ApplyEnv() should reject an unknown backend")
	}
}
