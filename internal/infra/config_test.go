package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cancel_sweep/internal/domain"
)

const sampleConfig = `
app:
  name: cancel_sweep
service_locator:
  address: http://127.0.0.1:20000
  username: ops
  password: secret
definitions:
  reference_time_zone: Eastern Standard Time
execution:
  call_timeout_ms: 2000
  retry:
    max_attempts: 4
  workers:
    accounts: 2
journal:
  path: data/journal.db
logging:
  level: debug
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.ServiceLocator.Username != "ops" {
		t.Errorf("Username = %q, want ops", cfg.ServiceLocator.Username)
	}
	if cfg.CallTimeout() != 2*time.Second {
		t.Errorf("CallTimeout = %s, want 2s", cfg.CallTimeout())
	}

	policy := cfg.RetryPolicy()
	if policy.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", policy.MaxAttempts)
	}
	if policy.BaseDelay != 250*time.Millisecond {
		t.Errorf("BaseDelay default = %s, want 250ms", policy.BaseDelay)
	}
	if cfg.Execution.Workers.Accounts != 2 || cfg.Execution.Workers.Orders != 8 {
		t.Errorf("Workers = %+v", cfg.Execution.Workers)
	}
	if cfg.StreamAddress() != "ws://127.0.0.1:20000" {
		t.Errorf("StreamAddress = %q", cfg.StreamAddress())
	}
}

func TestParseConfig_EnvOverride(t *testing.T) {
	t.Setenv("CANCEL_SERVICE_PASSWORD", "from-env")
	t.Setenv("CANCEL_SERVICE_ADDRESS", "https://venue.example:443")

	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.ServiceLocator.Password != "from-env" {
		t.Errorf("Password = %q, want from-env", cfg.ServiceLocator.Password)
	}
	if cfg.StreamAddress() != "wss://venue.example:443" {
		t.Errorf("StreamAddress = %q", cfg.StreamAddress())
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"missing address", "service_locator:\n  username: ops\n", "service_locator.address"},
		{"bad ws address", "service_locator:\n  address: http://x\n  ws_address: http://x\n  username: ops\n", "service_locator.ws_address"},
		{"missing username", "service_locator:\n  address: http://x\n", "service_locator.username"},
		{"zero workers", "service_locator:\n  address: http://x\n  username: ops\nexecution:\n  workers:\n    orders: -1\n", "execution.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}

	if _, err := ParseConfig([]byte("service_locator: [")); err == nil {
		t.Error("Expected YAML error")
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Journal.Path != "data/journal.db" {
		t.Errorf("Journal.Path = %q", cfg.Journal.Path)
	}
}
