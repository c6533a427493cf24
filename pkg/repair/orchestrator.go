package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/eventlog"
	"github.com/rhuss/laph/pkg/extract"
	"github.com/rhuss/laph/pkg/generator"
	"github.com/rhuss/laph/pkg/observability"
	"github.com/rhuss/laph/pkg/prompt"
	"github.com/rhuss/laph/pkg/sandbox"
	"github.com/rhuss/laph/pkg/sanitize"
)

// emptyProgram is reported instead of executing a blank artifact, which
// would otherwise exit 0.
const emptyProgram = sandbox.ExecutionErrorPrefix + " no code was generated"

// Orchestrator runs the repair loop. It holds no per-run state and may be
// shared by concurrent runs.
type Orchestrator struct {
	thinker    generator.Client
	coder      generator.Client
	summariser generator.Client
	runner     sandbox.Runner

	prompts *prompt.Builder
	events  eventlog.Sink
	backoff time.Duration
	sleep   SleepFunc
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates an Orchestrator. The registry must provide thinker and
// coder clients; a summariser client is optional.
func New(clients generator.Registry, runner sandbox.Runner, opts ...Option) (*Orchestrator, error) {
	if err := clients.Require(api.RoleThinker, api.RoleCoder); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, errors.New("repair: sandbox runner is required")
	}
	o := &Orchestrator{
		thinker:    clients[api.RoleThinker],
		coder:      clients[api.RoleCoder],
		summariser: clients[api.RoleSummariser],
		runner:     runner,
		events:     eventlog.Discard,
		backoff:    DefaultBackoff,
		sleep:      sleepContext,
		logger:     slog.Default(),
		tracer:     observability.Tracer("repair"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompts == nil {
		o.prompts = prompt.Default()
	}
	return o, nil
}

// run carries the state of a single Run call.
type run struct {
	id  string
	obs Observer
	log []string
}

// Run executes the repair loop for task with at most maxIterations
// iterations (clamped to [0, 60]). It returns the first program whose
// batch run exits 0, or ("", false) when the budget is exhausted or ctx
// is cancelled. obs may be nil.
func (o *Orchestrator) Run(ctx context.Context, task string, maxIterations int, obs Observer) (string, bool) {
	if obs == nil {
		obs = nopObserver{}
	}
	r := &run{obs: obs}
	if id, ok := RunIDFromContext(ctx); ok {
		r.id = id
	} else {
		r.id = api.NewRunID()
	}

	budget := ClampBudget(maxIterations)
	ctx, span := o.tracer.Start(ctx, "repair.run", trace.WithAttributes(
		attribute.String("laph.run_id", r.id),
		attribute.Int("laph.budget", budget),
	))
	defer span.End()

	o.logger.Info("repair run started", "run_id", r.id, "budget", budget,
		"task", debug.Truncate(task, 200))

	code, ok, state := o.loop(ctx, r, task, budget)

	span.SetAttributes(attribute.String("laph.outcome", string(state)))
	switch state {
	case StateSuccess:
		observability.RunsTotal.WithLabelValues(string(api.RunStatusSucceeded)).Inc()
	case StateCancelled:
		observability.RunsTotal.WithLabelValues(string(api.RunStatusCancelled)).Inc()
		span.SetStatus(codes.Error, "cancelled")
		o.logEvent(context.WithoutCancel(ctx), r, "Run cancelled.")
	default:
		observability.RunsTotal.WithLabelValues(string(api.RunStatusExhausted)).Inc()
		o.logEvent(ctx, r, "Failed to generate a working script after max iterations.")
		if budget > 0 {
			o.summarise(ctx, r)
		}
	}
	o.logger.Info("repair run finished", "run_id", r.id, "state", state)
	return code, ok
}

func (o *Orchestrator) loop(ctx context.Context, r *run, task string, budget int) (string, bool, State) {
	var code, prevErr string

	for i := 1; i <= budget; i++ {
		if ctx.Err() != nil {
			return "", false, StateCancelled
		}
		o.logEvent(ctx, r, fmt.Sprintf("--- Iteration %d/%d ---", i, budget))

		o.transition(r, i, StateSpecGen)
		thinkerOut := o.generate(ctx, r, api.RoleThinker, o.thinker, o.prompts.Thinker(task, code, prevErr))
		spec := extract.Spec(thinkerOut)
		debug.Log("repair", "specification resolved", "run_id", r.id, "spec", debug.Preview(spec, 160))

		o.transition(r, i, StateCodeGen)
		var tests string
		code, tests = o.generateCode(ctx, r, spec, code, prevErr)

		o.transition(r, i, StateExecute)
		res := o.execute(ctx, r, code, tests)
		if res.OK() {
			o.success(ctx, r, i, "success")
			return code, true, StateSuccess
		}
		if ctx.Err() != nil {
			return "", false, StateCancelled
		}
		prevErr = res.Stderr

		o.transition(r, i, StateInteract)
		d := o.interact(ctx, r, task, code, res)
		if ctx.Err() != nil {
			return "", false, StateCancelled
		}
		if inputs := d.Inputs(); len(inputs) > 0 {
			probe := o.runner.RunInteractive(ctx, code, inputs)
			o.logEvent(ctx, r, "--- Interactive Result ---")
			o.logEvent(ctx, r, "STDOUT:\n"+probe.Stdout)
			o.logEvent(ctx, r, "STDERR:\n"+probe.Stderr)
			if strings.TrimSpace(probe.Stderr) != "" {
				prevErr = probe.Stderr
			}
		}

		if d.FollowupSpec != "" {
			o.transition(r, i, StateFollowupCodeGen)
			code, tests = o.generateCode(ctx, r, d.FollowupSpec, code, prevErr)

			o.transition(r, i, StateExecute)
			res = o.execute(ctx, r, code, tests)
			if res.OK() {
				o.success(ctx, r, i, "followup_success")
				return code, true, StateSuccess
			}
			if ctx.Err() != nil {
				return "", false, StateCancelled
			}
			prevErr = res.Stderr
			observability.IterationsTotal.WithLabelValues("followup_failure").Inc()
			o.logEvent(ctx, r, "--- Follow-up failed, trying again... ---")
			continue
		}

		o.transition(r, i, StateRetry)
		observability.IterationsTotal.WithLabelValues("retry").Inc()
		o.logEvent(ctx, r, "--- Code failed, trying again... ---")
		if i < budget {
			if err := o.sleep(ctx, o.backoff); err != nil {
				return "", false, StateCancelled
			}
		}
	}

	if ctx.Err() != nil {
		return "", false, StateCancelled
	}
	o.transition(r, budget, StateExhausted)
	return "", false, StateExhausted
}

func (o *Orchestrator) success(ctx context.Context, r *run, iteration int, result string) {
	o.transition(r, iteration, StateSuccess)
	observability.IterationsTotal.WithLabelValues(result).Inc()
	o.logEvent(ctx, r, "Success! Program runs without errors.")
}

// generateCode asks the coder for a program and splits it into code and
// tests.
func (o *Orchestrator) generateCode(ctx context.Context, r *run, spec, prevCode, prevErr string) (string, string) {
	out := o.generate(ctx, r, api.RoleCoder, o.coder, o.prompts.Coder(spec, prevCode, prevErr))
	code, tests, _ := extract.SplitCodeAndTests(out)
	return code, tests
}

// execute sanitizes and runs an artifact in batch mode.
func (o *Orchestrator) execute(ctx context.Context, r *run, code, tests string) sandbox.Result {
	o.logEvent(ctx, r, "--- Running Code ---")

	var res sandbox.Result
	if strings.TrimSpace(code) == "" {
		res = sandbox.Result{Stderr: emptyProgram, ExitCode: -1}
	} else {
		res = o.runner.Run(ctx, sanitize.Payload(code, tests))
	}

	o.logEvent(ctx, r, "--- Execution Result ---")
	o.logEvent(ctx, r, "STDOUT:\n"+res.Stdout)
	o.logEvent(ctx, r, "STDERR:\n"+res.Stderr)
	debug.Log("repair", "execution finished", "run_id", r.id, "exit_code", res.ExitCode,
		"stderr", debug.Preview(res.Stderr, 160))
	return res
}

// interact runs the probing prompt and parses its directive.
func (o *Orchestrator) interact(ctx context.Context, r *run, task, code string, res sandbox.Result) Directive {
	out := o.generate(ctx, r, api.RoleThinker, o.thinker,
		o.prompts.Interaction(task, code, res.Stdout, res.Stderr, res.ExitCode))

	d, ok := ParseDirective(out)
	if !ok {
		debug.Log("repair", "interaction output has no directive", "run_id", r.id)
		return Directive{}
	}
	for _, a := range d.Actions {
		observability.InteractionActionsTotal.WithLabelValues(a.Kind()).Inc()
		if _, known := a.(InputAction); !known {
			debug.Log("repair", "ignoring interaction action", "run_id", r.id, "type", a.Kind())
		}
	}
	debug.Log("repair", "interaction directive", "run_id", r.id,
		"inputs", len(d.Inputs()), "followup", d.FollowupSpec != "")
	return d
}

// generate streams one prompt through client, forwarding the lifecycle
// events to the observer, and returns the accumulated text. A failed
// generation is reported to the observer as a single error-marker chunk
// and yields "".
func (o *Orchestrator) generate(ctx context.Context, r *run, role api.Role, client generator.Client, p string) string {
	title := roleTitle(role)
	o.logEvent(ctx, r, "--- "+title+" Prompt ---\n"+p)

	r.obs.Notify(api.Event{Role: role, Marker: api.MarkerPrompt, Text: p})
	r.obs.Notify(api.Event{Role: role, Marker: api.MarkerStart})
	defer r.obs.Notify(api.Event{Role: role, Marker: api.MarkerEnd})

	var text string
	ch, err := client.Submit(ctx, p)
	if err == nil {
		text, err = generator.Drain(ch, func(chunk string) {
			r.obs.Notify(api.Event{Role: role, Marker: api.MarkerChunk, Text: chunk})
		})
	}
	if err != nil {
		marker := generator.ErrorText(err)
		r.obs.Notify(api.Event{Role: role, Marker: api.MarkerChunk, Text: marker})
		o.logEvent(ctx, r, "--- "+title+" Output ---\n"+marker)
		if ctx.Err() == nil {
			o.logger.Warn("generation failed", "run_id", r.id, "role", role, "error", err)
		}
		return ""
	}
	if generator.IsErrorText(text) {
		text = ""
	}
	o.logEvent(ctx, r, "--- "+title+" Output ---\n"+text)
	return text
}

// summarise asks the optional summariser for a post-mortem of an
// exhausted run.
func (o *Orchestrator) summarise(ctx context.Context, r *run) {
	if o.summariser == nil || len(r.log) == 0 || ctx.Err() != nil {
		return
	}
	logs := strings.Join(r.log, "\n")
	summary := o.generate(ctx, r, api.RoleSummariser, o.summariser, o.prompts.Summariser(logs))
	if summary != "" {
		o.logger.Info("run summary", "run_id", r.id, "summary", debug.Truncate(summary, 500))
	}
}

func (o *Orchestrator) transition(r *run, iteration int, s State) {
	debug.Log("repair", "state", "run_id", r.id, "iteration", iteration, "state", s)
}

// logEvent records a progress message for the summariser and forwards it
// to the event log sink. Sink failures are logged, never fatal.
func (o *Orchestrator) logEvent(ctx context.Context, r *run, message string) {
	if o.summariser != nil {
		r.log = append(r.log, message)
	}
	if err := o.events.Log(ctx, r.id, message); err != nil {
		o.logger.Warn("event log write failed", "run_id", r.id, "error", err)
	}
}

func roleTitle(role api.Role) string {
	s := string(role)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
