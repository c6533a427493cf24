// Package config provides unified configuration for laph.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (LAPH_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Generator backends.
const (
	BackendOllama       = "ollama"
	BackendOpenAICompat = "openaicompat"
	BackendOpenAI       = "openai"
	BackendGemini       = "gemini"
	BackendScripted     = "scripted"
)

// Config holds all configuration for laph.
type Config struct {
	Generators    GeneratorsConfig    `yaml:"generators"`
	Repair        RepairConfig        `yaml:"repair"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Prompts       PromptsConfig       `yaml:"prompts"`
	EventLog      EventLogConfig      `yaml:"eventlog"`
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// LogConfig mirrors LAPH_DEBUG and LAPH_LOG_LEVEL; the environment wins.
type LogConfig struct {
	Debug string `yaml:"debug"` // comma-separated categories
	Level string `yaml:"level"` // default: "INFO"
}

// GeneratorsConfig assigns a backend to each generator role. The
// summariser is disabled while its backend is empty.
type GeneratorsConfig struct {
	Thinker    GeneratorConfig `yaml:"thinker"`
	Coder      GeneratorConfig `yaml:"coder"`
	Summariser GeneratorConfig `yaml:"summariser"`
}

// GeneratorConfig describes one generator client.
type GeneratorConfig struct {
	Backend     string        `yaml:"backend"` // ollama, openaicompat, openai, gemini, scripted
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	APIKeyFile  string        `yaml:"api_key_file"`
	Temperature *float64      `yaml:"temperature"`
	MaxTokens   *int          `yaml:"max_tokens"`
	KeepAlive   string        `yaml:"keep_alive"` // ollama only
	Timeout     time.Duration `yaml:"timeout"`

	// RateLimit is in requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// Retries is the total number of attempts per prompt.
	Retries int `yaml:"retries"`

	// Replies is a YAML replies file for the scripted backend.
	Replies string `yaml:"replies"`
}

// Enabled reports whether a backend is configured.
func (g GeneratorConfig) Enabled() bool { return g.Backend != "" }

// RepairConfig holds orchestrator settings.
type RepairConfig struct {
	MaxIterations int           `yaml:"max_iterations"` // default: 10
	Backoff       time.Duration `yaml:"backoff"`        // default: 2s
}

// SandboxConfig selects and bounds the program runner.
type SandboxConfig struct {
	Backend            string        `yaml:"backend"`     // "local" or "remote", default: "local"
	Interpreter        string        `yaml:"interpreter"` // default: "python3"
	CPUTime            time.Duration `yaml:"cpu_time"`
	MemoryBytes        uint64        `yaml:"memory_bytes"`
	Timeout            time.Duration `yaml:"timeout"`
	InteractiveTimeout time.Duration `yaml:"interactive_timeout"`
	Remote             RemoteConfig  `yaml:"remote"`
}

// RemoteConfig points at sandbox servers. Either URL or Kubernetes.Template
// must be set when the remote backend is selected.
type RemoteConfig struct {
	URL        string           `yaml:"url"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// KubernetesConfig holds SandboxClaim settings.
type KubernetesConfig struct {
	Template     string        `yaml:"template"`
	Namespace    string        `yaml:"namespace"`
	ClaimTimeout time.Duration `yaml:"claim_timeout"`
}

// PromptsConfig holds prompt template settings.
type PromptsConfig struct {
	Dir   string `yaml:"dir"`   // empty uses the embedded templates
	Watch bool   `yaml:"watch"` // reload on change; requires dir
}

// EventLogConfig holds run event log settings.
type EventLogConfig struct {
	File      string         `yaml:"file"` // default: "logs/laph.log"; "-" disables
	MaxPerRun int            `yaml:"max_per_run"`
	MaxRuns   int            `yaml:"max_runs"`
	Postgres  PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings. The sink is enabled
// when a DSN is set.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0, runs stream for minutes
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"` // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key" json:"key"`
	KeyFile string   `yaml:"key_file" json:"key_file"`
	Subject string   `yaml:"subject" json:"subject"`
	Scopes  []string `yaml:"scopes" json:"scopes"`
}

// JWTConfig holds JWKS-based bearer token validation settings.
type JWTConfig struct {
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	JWKSURL     string        `yaml:"jwks_url"`
	UserClaim   string        `yaml:"user_claim"`   // default: "sub"
	ScopesClaim string        `yaml:"scopes_claim"` // default: "scope"
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // default: 1h
}

// RateLimitConfig bounds requests per authenticated subject.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 disables
	Burst             int `yaml:"burst"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "stderr", default: "stderr"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Generators: GeneratorsConfig{
			Thinker: GeneratorConfig{
				Backend: BackendOllama,
				URL:     "http://localhost:11434",
				Model:   "qwen3:14b",
				Timeout: 120 * time.Second,
				Retries: 1,
			},
			Coder: GeneratorConfig{
				Backend: BackendOllama,
				URL:     "http://localhost:11434",
				Model:   "qwen2.5-coder:14b",
				Timeout: 120 * time.Second,
				Retries: 1,
			},
		},
		Repair: RepairConfig{
			MaxIterations: 10,
			Backoff:       2 * time.Second,
		},
		Sandbox: SandboxConfig{
			Backend:            "local",
			Interpreter:        "python3",
			CPUTime:            5 * time.Second,
			MemoryBytes:        256 << 20,
			Timeout:            8 * time.Second,
			InteractiveTimeout: 10 * time.Second,
			Remote: RemoteConfig{
				Kubernetes: KubernetesConfig{
					Namespace:    "default",
					ClaimTimeout: 60 * time.Second,
				},
			},
		},
		EventLog: EventLogConfig{
			File:      "logs/laph.log",
			MaxPerRun: 2000,
			MaxRuns:   32,
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
		},
		Server: ServerConfig{
			Port:        8080,
			ReadTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				UserClaim:   "sub",
				ScopesClaim: "scope",
				CacheTTL:    time.Hour,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Exporter: "stderr",
			},
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}
