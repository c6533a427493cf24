package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/auth"
	"github.com/rhuss/laph/pkg/auth/apikey"
	"github.com/rhuss/laph/pkg/auth/jwt"
	"github.com/rhuss/laph/pkg/auth/noop"
	"github.com/rhuss/laph/pkg/config"
	"github.com/rhuss/laph/pkg/engine"
	"github.com/rhuss/laph/pkg/eventlog"
	"github.com/rhuss/laph/pkg/eventlog/postgres"
	"github.com/rhuss/laph/pkg/generator"
	"github.com/rhuss/laph/pkg/generator/gemini"
	"github.com/rhuss/laph/pkg/generator/ollama"
	"github.com/rhuss/laph/pkg/generator/openai"
	"github.com/rhuss/laph/pkg/generator/openaicompat"
	"github.com/rhuss/laph/pkg/prompt"
	"github.com/rhuss/laph/pkg/repair"
	"github.com/rhuss/laph/pkg/sandbox"
	"github.com/rhuss/laph/pkg/sandbox/kubernetes"
)

// retryDelay is the base delay between generator attempts.
const retryDelay = time.Second

// stack holds everything built from the configuration. close releases
// files and pools in reverse order of creation.
type stack struct {
	orchestrator *repair.Orchestrator
	prompts      *prompt.Builder
	memory       *eventlog.Memory
	store        *postgres.Store // nil without a DSN
	closers      []io.Closer
}

func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

// reader returns the event log reader: in-memory first, then PostgreSQL.
func (s *stack) reader() eventlog.Reader {
	if s.store == nil {
		return s.memory
	}
	return eventlog.Fallback(s.memory, s.store)
}

// recorder returns the PostgreSQL run recorder, or nil without a DSN.
func (s *stack) recorder() engine.RunRecorder {
	if s.store == nil {
		return nil
	}
	return s.store
}

// engine wraps the orchestrator in a run engine.
func (s *stack) engine(cfg *config.Config) (*engine.Engine, error) {
	return engine.New(s.orchestrator, s.reader(), s.recorder(), engine.Config{
		DefaultIterations: cfg.Repair.MaxIterations,
	})
}

// buildStack wires generators, sandbox, prompts and event logs into a
// repair orchestrator.
func buildStack(ctx context.Context, cfg *config.Config) (_ *stack, err error) {
	s := &stack{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	clients, err := buildGenerators(ctx, cfg.Generators)
	if err != nil {
		return nil, err
	}

	runner, err := buildRunner(cfg.Sandbox)
	if err != nil {
		return nil, err
	}

	s.prompts = prompt.Default()
	if cfg.Prompts.Dir != "" {
		if s.prompts, err = prompt.New(cfg.Prompts.Dir); err != nil {
			return nil, fmt.Errorf("loading prompts: %w", err)
		}
	}

	s.memory = eventlog.NewMemory(cfg.EventLog.MaxPerRun, cfg.EventLog.MaxRuns)
	sinks := []eventlog.Sink{s.memory}
	if path := cfg.EventLog.File; path != "" && path != "-" {
		f, err := eventlog.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening event log: %w", err)
		}
		s.closers = append(s.closers, f)
		sinks = append(sinks, f)
	}
	if pg := cfg.EventLog.Postgres; pg.DSN != "" {
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            pg.DSN,
			MaxConns:       pg.MaxConns,
			MigrateOnStart: pg.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		s.store = store
		s.closers = append(s.closers, store)
		sinks = append(sinks, store)
	}

	s.orchestrator, err = repair.New(clients, runner,
		repair.WithPrompts(s.prompts),
		repair.WithEventLog(eventlog.Multi(sinks...)),
		repair.WithBackoff(cfg.Repair.Backoff),
		repair.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("repair stack ready",
		"thinker", generator.BackendName(clients[api.RoleThinker]),
		"coder", generator.BackendName(clients[api.RoleCoder]),
		"summariser", cfg.Generators.Summariser.Enabled(),
		"sandbox", cfg.Sandbox.Backend,
		"postgres", s.store != nil,
	)
	return s, nil
}

func buildGenerators(ctx context.Context, gc config.GeneratorsConfig) (generator.Registry, error) {
	roles := []struct {
		role api.Role
		cfg  config.GeneratorConfig
	}{
		{api.RoleThinker, gc.Thinker},
		{api.RoleCoder, gc.Coder},
		{api.RoleSummariser, gc.Summariser},
	}

	reg := generator.Registry{}
	for _, r := range roles {
		if !r.cfg.Enabled() {
			continue
		}
		c, err := newGenerator(ctx, r.role, r.cfg)
		if err != nil {
			return nil, fmt.Errorf("%s generator: %w", r.role, err)
		}
		reg[r.role] = c
	}
	return reg, nil
}

// newGenerator builds one backend and wraps it with instrumentation,
// retries and rate limiting, outermost first.
func newGenerator(ctx context.Context, role api.Role, g config.GeneratorConfig) (generator.Client, error) {
	var c generator.Client
	switch g.Backend {
	case config.BackendOllama:
		c = ollama.New(ollama.Config{
			BaseURL:     g.URL,
			Model:       g.Model,
			Temperature: g.Temperature,
			KeepAlive:   g.KeepAlive,
			Timeout:     g.Timeout,
		})
	case config.BackendOpenAICompat:
		c = openaicompat.New(openaicompat.Config{
			BaseURL:     g.URL,
			APIKey:      g.APIKey,
			Model:       g.Model,
			Temperature: g.Temperature,
			MaxTokens:   g.MaxTokens,
			Timeout:     g.Timeout,
		})
	case config.BackendOpenAI:
		c = openai.New(openai.Config{
			APIKey:      g.APIKey,
			Model:       g.Model,
			BaseURL:     g.URL,
			Temperature: g.Temperature,
			MaxTokens:   g.MaxTokens,
		})
	case config.BackendGemini:
		gem, err := gemini.New(ctx, gemini.Config{
			APIKey:      g.APIKey,
			Model:       g.Model,
			BaseURL:     g.URL,
			Temperature: g.Temperature,
			MaxTokens:   g.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		c = gem
	case config.BackendScripted:
		scripted, err := generator.LoadScripted(g.Replies)
		if err != nil {
			return nil, err
		}
		c = scripted
	default:
		return nil, fmt.Errorf("unknown backend %q", g.Backend)
	}

	return generator.Wrap(c,
		generator.Instrument(role),
		generator.WithRetry(g.Retries, retryDelay),
		generator.WithRateLimit(g.RateLimit, g.Burst),
	), nil
}

func buildRunner(sc config.SandboxConfig) (sandbox.Runner, error) {
	limits := sandbox.Limits{
		CPUTime:            sc.CPUTime,
		MemoryBytes:        sc.MemoryBytes,
		Timeout:            sc.Timeout,
		InteractiveTimeout: sc.InteractiveTimeout,
	}

	switch sc.Backend {
	case "", "local":
		return sandbox.Instrument(sandbox.NewLocal(sc.Interpreter, limits)), nil
	case "remote":
		acq, err := buildAcquirer(sc.Remote)
		if err != nil {
			return nil, err
		}
		return sandbox.Instrument(sandbox.NewRemote(acq, sandbox.NewClient())), nil
	default:
		return nil, fmt.Errorf("unknown sandbox backend %q", sc.Backend)
	}
}

// buildAcquirer prefers a fixed sandbox server URL and otherwise claims
// pods from the agent-sandbox controller.
func buildAcquirer(rc config.RemoteConfig) (sandbox.Acquirer, error) {
	if rc.URL != "" {
		return sandbox.StaticAcquirer{URL: rc.URL}, nil
	}

	restCfg, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	scheme, err := kubernetes.NewScheme()
	if err != nil {
		return nil, err
	}
	c, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return kubernetes.NewClaimAcquirer(c, kubernetes.Config{
		Template:  rc.Kubernetes.Template,
		Namespace: rc.Kubernetes.Namespace,
		Timeout:   rc.Kubernetes.ClaimTimeout,
	}), nil
}

// buildAuth returns the authenticator and per-subject limiter for the
// HTTP server.
func buildAuth(ac config.AuthConfig) (auth.Authenticator, auth.RateLimiter, error) {
	var authn auth.Authenticator
	switch ac.Type {
	case "", "none":
		authn = noop.Authenticator{}
	case "apikey":
		keys := make([]apikey.Key, 0, len(ac.APIKeys))
		for _, k := range ac.APIKeys {
			keys = append(keys, apikey.Key{Key: k.Key, Subject: k.Subject, Scopes: k.Scopes})
		}
		authn = auth.NewChain(apikey.New(keys))
	case "jwt":
		authn = auth.NewChain(jwt.New(jwt.Config{
			Issuer:      ac.JWT.Issuer,
			Audience:    ac.JWT.Audience,
			JWKSURL:     ac.JWT.JWKSURL,
			UserClaim:   ac.JWT.UserClaim,
			ScopesClaim: ac.JWT.ScopesClaim,
			CacheTTL:    ac.JWT.CacheTTL,
		}))
	default:
		return nil, nil, fmt.Errorf("unknown auth type %q", ac.Type)
	}

	var limiter auth.RateLimiter
	if ac.RateLimit.RequestsPerMinute > 0 {
		limiter = auth.NewSubjectLimiter(ac.RateLimit.RequestsPerMinute, ac.RateLimit.Burst)
	}
	return authn, limiter, nil
}
