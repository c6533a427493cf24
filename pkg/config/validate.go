package config

import (
	"errors"
	"fmt"
)

// MaxIterations is the upper bound accepted for repair.max_iterations.
const MaxIterations = 60

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, validateGenerator("generators.thinker", c.Generators.Thinker, true)...)
	errs = append(errs, validateGenerator("generators.coder", c.Generators.Coder, true)...)
	errs = append(errs, validateGenerator("generators.summariser", c.Generators.Summariser, false)...)

	if c.Repair.MaxIterations < 0 || c.Repair.MaxIterations > MaxIterations {
		errs = append(errs, fmt.Errorf("repair.max_iterations must be between 0 and %d, got %d", MaxIterations, c.Repair.MaxIterations))
	}
	if c.Repair.Backoff < 0 {
		errs = append(errs, fmt.Errorf("repair.backoff must not be negative"))
	}

	switch c.Sandbox.Backend {
	case "local":
		if c.Sandbox.Interpreter == "" {
			errs = append(errs, fmt.Errorf("sandbox.interpreter is required when sandbox.backend is \"local\""))
		}
	case "remote":
		r := c.Sandbox.Remote
		if r.URL == "" && r.Kubernetes.Template == "" {
			errs = append(errs, fmt.Errorf("sandbox.remote.url or sandbox.remote.kubernetes.template is required when sandbox.backend is \"remote\""))
		}
	default:
		errs = append(errs, fmt.Errorf("sandbox.backend must be \"local\" or \"remote\", got %q", c.Sandbox.Backend))
	}
	if c.Sandbox.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.timeout must be > 0"))
	}
	if c.Sandbox.InteractiveTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.interactive_timeout must be > 0"))
	}

	if c.Prompts.Watch && c.Prompts.Dir == "" {
		errs = append(errs, fmt.Errorf("prompts.watch requires prompts.dir"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].key is required", i))
			}
		}
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if t := c.Observability.Tracing; t.Enabled {
		switch t.Exporter {
		case "stdout", "stderr":
		default:
			errs = append(errs, fmt.Errorf("observability.tracing.exporter must be \"stdout\" or \"stderr\", got %q", t.Exporter))
		}
	}

	return errors.Join(errs...)
}

func validateGenerator(path string, g GeneratorConfig, required bool) []error {
	var errs []error
	switch g.Backend {
	case "":
		if required {
			errs = append(errs, fmt.Errorf("%s.backend is required", path))
		}
		return errs
	case BackendOllama, BackendOpenAICompat:
		if g.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required for backend %q", path, g.Backend))
		}
		if g.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required for backend %q", path, g.Backend))
		}
	case BackendOpenAI, BackendGemini:
	case BackendScripted:
		if g.Replies == "" {
			errs = append(errs, fmt.Errorf("%s.replies is required for backend %q", path, g.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("%s.backend must be one of ollama, openaicompat, openai, gemini, scripted, got %q", path, g.Backend))
	}
	if g.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%s.rate_limit must not be negative", path))
	}
	if g.Retries < 0 {
		errs = append(errs, fmt.Errorf("%s.retries must not be negative", path))
	}
	return errs
}
