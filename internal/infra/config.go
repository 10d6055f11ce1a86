package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cancel_sweep/internal/domain"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no -c flag is given.
const DefaultConfigPath = "configs/config.yaml"

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	ServiceLocator struct {
		Address   string `yaml:"address"`    // http(s)://host:port
		WSAddress string `yaml:"ws_address"` // ws(s)://host:port, derived from Address when empty
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
	} `yaml:"service_locator"`

	Definitions struct {
		ReferenceTimeZone string `yaml:"reference_time_zone"`
	} `yaml:"definitions"`

	Execution struct {
		CallTimeoutMS int     `yaml:"call_timeout_ms"`
		RatePerSec    float64 `yaml:"rate_per_sec"`
		Retry         struct {
			MaxAttempts int `yaml:"max_attempts"`
			BaseDelayMS int `yaml:"base_delay_ms"`
			MaxDelayMS  int `yaml:"max_delay_ms"`
		} `yaml:"retry"`
		Workers struct {
			Accounts int `yaml:"accounts"`
			Orders   int `yaml:"orders"`
		} `yaml:"workers"`
	} `yaml:"execution"`

	Journal struct {
		Path string `yaml:"path"` // empty disables the journal
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML, applies defaults and env overrides, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	cfg.applyDefaults()

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(&cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "cancel_sweep"
	}
	if c.Definitions.ReferenceTimeZone == "" {
		c.Definitions.ReferenceTimeZone = "Eastern Standard Time"
	}
	if c.Execution.CallTimeoutMS == 0 {
		c.Execution.CallTimeoutMS = 10_000
	}
	if c.Execution.Retry.MaxAttempts == 0 {
		c.Execution.Retry.MaxAttempts = 3
	}
	if c.Execution.Retry.BaseDelayMS == 0 {
		c.Execution.Retry.BaseDelayMS = 250
	}
	if c.Execution.Retry.MaxDelayMS == 0 {
		c.Execution.Retry.MaxDelayMS = 5_000
	}
	if c.Execution.Workers.Accounts == 0 {
		c.Execution.Workers.Accounts = 4
	}
	if c.Execution.Workers.Orders == 0 {
		c.Execution.Workers.Orders = 8
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	addr := c.ServiceLocator.Address
	if addr == "" || (!hasPrefix(addr, "http://") && !hasPrefix(addr, "https://")) {
		return &domain.ConfigError{Field: "service_locator.address", Err: fmt.Errorf("invalid URL: %q", addr)}
	}
	ws := c.ServiceLocator.WSAddress
	if ws != "" && !hasPrefix(ws, "ws://") && !hasPrefix(ws, "wss://") {
		return &domain.ConfigError{Field: "service_locator.ws_address", Err: fmt.Errorf("invalid URL: %q", ws)}
	}
	if c.ServiceLocator.Username == "" {
		return &domain.ConfigError{Field: "service_locator.username", Err: errors.New("required")}
	}

	if c.Execution.CallTimeoutMS < 0 {
		return &domain.ConfigError{Field: "execution.call_timeout_ms", Err: errors.New("must be positive")}
	}
	if c.Execution.RatePerSec < 0 {
		return &domain.ConfigError{Field: "execution.rate_per_sec", Err: errors.New("must not be negative")}
	}
	if c.Execution.Retry.MaxAttempts < 1 {
		return &domain.ConfigError{Field: "execution.retry.max_attempts", Err: errors.New("must be at least 1")}
	}
	if c.Execution.Workers.Accounts < 1 || c.Execution.Workers.Orders < 1 {
		return &domain.ConfigError{Field: "execution.workers", Err: errors.New("must be at least 1")}
	}

	return nil
}

// StreamAddress returns the websocket base address.
func (c *Config) StreamAddress() string {
	if c.ServiceLocator.WSAddress != "" {
		return c.ServiceLocator.WSAddress
	}
	addr := c.ServiceLocator.Address
	if strings.HasPrefix(addr, "https://") {
		return "wss://" + strings.TrimPrefix(addr, "https://")
	}
	return "ws://" + strings.TrimPrefix(addr, "http://")
}

// CallTimeout is the bound applied to each remote call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Execution.CallTimeoutMS) * time.Millisecond
}

// RetryPolicy builds the retry policy from the execution section.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.Execution.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Execution.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(c.Execution.Retry.MaxDelayMS) * time.Millisecond,
		CallTimeout: c.CallTimeout(),
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("CANCEL_SERVICE_ADDRESS"); addr != "" {
		cfg.ServiceLocator.Address = addr
	}
	if user := os.Getenv("CANCEL_SERVICE_USERNAME"); user != "" {
		cfg.ServiceLocator.Username = user
	}
	if pass := os.Getenv("CANCEL_SERVICE_PASSWORD"); pass != "" {
		cfg.ServiceLocator.Password = pass
	}
}
