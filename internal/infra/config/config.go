package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Brain   BrainConfig   `yaml:"brain"`
	LLM     LLMConfig     `yaml:"llm"`
	Router  RouterConfig  `yaml:"router"`
	Session SessionConfig `yaml:"session"`
	Memory  MemoryConfig  `yaml:"memory"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// SessionConfig bounds a whole reasoning session.
type SessionConfig struct {
	// Timeout is the overall per-session deadline; zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

// BrainConfig holds the brain-power setting that scales reasoning depth,
// context budget, and tool access.
type BrainConfig struct {
	Power int `yaml:"power"` // 1..10
}

// LLMConfig holds provider and dispatch settings.
type LLMConfig struct {
	// PreferredProvider is tried first on dispatch when healthy.
	PreferredProvider string               `yaml:"preferred_provider"`
	Providers         []ProviderConfig     `yaml:"providers"`
	AttemptTimeout    time.Duration        `yaml:"attempt_timeout"`
	CircuitBreaker    CircuitBreakerConfig `yaml:"circuit_breaker"`
	Health            HealthConfig         `yaml:"health"`
}

// HealthConfig tunes the registry's health tracking.
type HealthConfig struct {
	// FailureThreshold is the consecutive-failure count that marks a
	// provider unavailable.
	FailureThreshold int `yaml:"failure_threshold"`
	// ProbeBackoff is the initial wait before an unavailable provider is
	// re-probed. It doubles on each consecutive trip up to MaxBackoff.
	ProbeBackoff time.Duration `yaml:"probe_backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
	// ProbeInterval is how often the background probe loop scans for
	// providers due a re-probe.
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// CircuitBreakerConfig configures the per-provider circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for providers.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ProviderConfig holds settings for a single provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "openai" or "ollama"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Priority    int           `yaml:"priority"`
	Disabled    bool          `yaml:"disabled,omitempty"`
	RateLimit   float64       `yaml:"rate_limit"` // requests/sec, 0 = unlimited
	RateBurst   int           `yaml:"rate_burst"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// RouterConfig holds intent routing settings.
type RouterConfig struct {
	// Threshold is the minimum match score a specialist must reach before
	// it wins over the general agent.
	Threshold float64 `yaml:"threshold"`
}

// MemoryConfig holds session transcript persistence settings.
type MemoryConfig struct {
	Provider string `yaml:"provider"` // "sqlite" or "noop"
	Path     string `yaml:"path"`
}

// ToolsConfig holds tool system settings.
type ToolsConfig struct {
	SandboxRoot     string        `yaml:"sandbox_root"`
	AllowedCommands []string      `yaml:"allowed_commands"`
	ShellTimeout    time.Duration `yaml:"shell_timeout"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	HTTPMaxBody     int           `yaml:"http_max_body"`
	// MaxCallsPerSession caps tool invocations within one session.
	MaxCallsPerSession int `yaml:"max_calls_per_session"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Brain: BrainConfig{Power: 5},
		LLM: LLMConfig{
			AttemptTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
			Health: HealthConfig{
				FailureThreshold: 3,
				ProbeBackoff:     5 * time.Second,
				MaxBackoff:       5 * time.Minute,
				ProbeInterval:    10 * time.Second,
			},
		},
		Router:  RouterConfig{Threshold: 0.25},
		Session: SessionConfig{Timeout: 5 * time.Minute},
		Memory: MemoryConfig{
			Provider: "sqlite",
			Path:     "./data/sessions.db",
		},
		Tools: ToolsConfig{
			SandboxRoot:        ".",
			AllowedCommands:    []string{"ls", "cat", "grep", "wc", "head", "tail"},
			ShellTimeout:       30 * time.Second,
			HTTPTimeout:        30 * time.Second,
			HTTPMaxBody:        1 << 20, // 1 MB
			MaxCallsPerSession: 16,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error; defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	passphrase := os.Getenv("ALD01_CONFIG_KEY")
	if passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps ALD01_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALD01_BRAIN_POWER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Brain.Power = n
		}
	}
	if v := os.Getenv("ALD01_LLM_PREFERRED_PROVIDER"); v != "" {
		cfg.LLM.PreferredProvider = v
	}
	if v := os.Getenv("ALD01_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("ALD01_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("ALD01_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("ALD01_MEMORY_PROVIDER"); v != "" {
		cfg.Memory.Provider = v
	}
	if v := os.Getenv("ALD01_MEMORY_PATH"); v != "" {
		cfg.Memory.Path = v
	}
	if v := os.Getenv("ALD01_TOOLS_SANDBOX_ROOT"); v != "" {
		cfg.Tools.SandboxRoot = v
	}
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
