package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/laph/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, LAPH_CONFIG env, ./config.yaml, /etc/laph/config.yaml)
//  3. LAPH_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. LAPH_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/laph/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("LAPH_CONFIG"); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/laph/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps LAPH_* environment variables to config fields.
// Malformed numeric values are reported rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	e := &envReader{}

	roles := []struct {
		prefix string
		gen    *GeneratorConfig
	}{
		{"LAPH_THINKER_", &cfg.Generators.Thinker},
		{"LAPH_CODER_", &cfg.Generators.Coder},
		{"LAPH_SUMMARISER_", &cfg.Generators.Summariser},
	}
	for _, r := range roles {
		e.str(r.prefix+"BACKEND", &r.gen.Backend)
		e.str(r.prefix+"URL", &r.gen.URL)
		e.str(r.prefix+"MODEL", &r.gen.Model)
		e.str(r.prefix+"API_KEY", &r.gen.APIKey)
		e.str(r.prefix+"REPLIES", &r.gen.Replies)
	}

	e.integer("LAPH_MAX_ITERATIONS", &cfg.Repair.MaxIterations)
	e.duration("LAPH_BACKOFF", &cfg.Repair.Backoff)

	e.str("LAPH_SANDBOX_BACKEND", &cfg.Sandbox.Backend)
	e.str("LAPH_SANDBOX_URL", &cfg.Sandbox.Remote.URL)
	e.str("LAPH_INTERPRETER", &cfg.Sandbox.Interpreter)
	e.duration("LAPH_SANDBOX_TIMEOUT", &cfg.Sandbox.Timeout)

	e.str("LAPH_PROMPTS_DIR", &cfg.Prompts.Dir)
	e.str("LAPH_EVENTLOG_FILE", &cfg.EventLog.File)
	e.str("LAPH_POSTGRES_DSN", &cfg.EventLog.Postgres.DSN)

	e.integer("LAPH_PORT", &cfg.Server.Port)
	e.str("LAPH_AUTH_TYPE", &cfg.Auth.Type)
	e.str("LAPH_JWKS_URL", &cfg.Auth.JWT.JWKSURL)

	// LAPH_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("LAPH_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			e.errs = append(e.errs, err)
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	if v := os.Getenv("LAPH_TRACING"); v != "" {
		cfg.Observability.Tracing.Enabled = true
		if v != "1" && v != "true" {
			cfg.Observability.Tracing.Exporter = v
		}
	}

	return errors.Join(e.errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) str(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (e *envReader) integer(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = n
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = d
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing LAPH_API_KEYS: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. A set value field wins over its file reference.
func resolveFileReferences(cfg *Config) error {
	gens := map[string]*GeneratorConfig{
		"thinker":    &cfg.Generators.Thinker,
		"coder":      &cfg.Generators.Coder,
		"summariser": &cfg.Generators.Summariser,
	}
	for name, g := range gens {
		if err := resolve(&g.APIKey, g.APIKeyFile); err != nil {
			return fmt.Errorf("generators.%s.api_key_file: %w", name, err)
		}
	}

	if err := resolve(&cfg.EventLog.Postgres.DSN, cfg.EventLog.Postgres.DSNFile); err != nil {
		return fmt.Errorf("eventlog.postgres.dsn_file: %w", err)
	}

	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		if err := resolve(&k.Key, k.KeyFile); err != nil {
			return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
		}
	}
	return nil
}

func resolve(dst *string, file string) error {
	if file == "" || *dst != "" {
		return nil
	}
	val, err := readSecretFile(file)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
