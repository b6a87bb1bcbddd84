package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"ald-01/internal/domain"
	"ald-01/internal/infra/tracer"
)

// CompletionDispatcher is the loop's view of the failover dispatcher.
type CompletionDispatcher interface {
	Dispatch(ctx context.Context, req domain.CompletionRequest, preferred string) (*domain.CompletionResponse, error)
}

// Options tune one controller instance.
type Options struct {
	// SessionTimeout bounds a whole session; zero means no overall timeout.
	SessionTimeout time.Duration
	// MaxToolCalls is the per-session tool budget; zero disables tools
	// budget enforcement.
	MaxToolCalls int
	// Done overrides the chain-of-thought completion predicate.
	Done func(output string) bool
	// ForceAgent bypasses intent routing with a fixed profile ID.
	ForceAgent string
}

// Result is what a finished session returns to the caller.
type Result struct {
	SessionID string
	Agent     string
	Strategy  domain.Strategy
	Answer    string
	Steps     []domain.Step
	Duration  time.Duration
}

// Controller drives a reasoning session end to end: routing, bounded
// iteration under the selected strategy, tool bridging, progress events,
// and terminal persistence.
type Controller struct {
	dispatcher CompletionDispatcher
	router     *IntentRouter
	tools      domain.ToolExecutor
	bus        domain.EventSink
	memory     domain.MemoryStore
	builder    *ContextBuilder
	preset     BrainPreset
	opts       Options
	logger     *slog.Logger
}

// NewController wires a controller for one brain-power preset.
func NewController(
	dispatcher CompletionDispatcher,
	router *IntentRouter,
	tools domain.ToolExecutor,
	bus domain.EventSink,
	memory domain.MemoryStore,
	builder *ContextBuilder,
	preset BrainPreset,
	opts Options,
	logger *slog.Logger,
) *Controller {
	if opts.Done == nil {
		opts.Done = func(out string) bool {
			return strings.TrimSpace(out) != "" && !strings.Contains(out, continueMarker)
		}
	}
	return &Controller{
		dispatcher: dispatcher,
		router:     router,
		tools:      tools,
		bus:        bus,
		memory:     memory,
		builder:    builder,
		preset:     preset,
		opts:       opts,
		logger:     logger,
	}
}

// Run handles one query. It always publishes a terminal event and hands the
// session record to the memory store, whatever the outcome.
func (c *Controller) Run(ctx context.Context, query string) (*Result, error) {
	return c.RunSession(ctx, NewReasoningSession(query))
}

// RunSession drives a pre-created session, letting callers subscribe to its
// event stream before any event is published.
func (c *Controller) RunSession(ctx context.Context, session *ReasoningSession) (*Result, error) {
	ctx, span := tracer.StartSpan(ctx, "loop.run")
	defer span.End()

	if c.opts.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.SessionTimeout)
		defer cancel()
	}

	query := session.Query()
	span.SetAttributes(tracer.StringAttr("session.id", session.ID()))

	route := c.router.Route(query)
	if c.opts.ForceAgent != "" {
		profile, err := c.router.Get(c.opts.ForceAgent)
		if err != nil {
			return nil, c.finishAbnormal(ctx, session, span, err)
		}
		route = RouteResult{Profile: profile, Score: 1}
	}
	strategy := route.Profile.Strategy
	if !c.preset.Allows(strategy) {
		// Preset too low for the profile's preferred strategy.
		strategy = domain.StrategyChainOfThought
	}
	session.SetRoute(route.Profile.ID, strategy)

	c.publish(session, domain.EventRouting, map[string]string{
		"agent":    route.Profile.ID,
		"strategy": string(strategy),
		"score":    strconv.FormatFloat(route.Score, 'f', 2, 64),
	})
	c.logger.Info("session routed",
		"session", session.ID(),
		"agent", route.Profile.ID,
		"strategy", string(strategy),
	)

	bridge := NewToolBridge(c.tools, c.preset.ToolAccess, c.opts.MaxToolCalls, c.logger)
	run := &sessionRun{
		Controller: c,
		session:    session,
		profile:    route.Profile,
		bridge:     bridge,
	}

	var answer string
	var err error
	switch strategy {
	case domain.StrategyTreeOfThought:
		answer, err = run.treeOfThought(ctx)
	case domain.StrategyReflexion:
		answer, err = run.reflexion(ctx)
	default:
		answer, err = run.chainOfThought(ctx)
	}

	if err != nil {
		return nil, c.finishAbnormal(ctx, session, span, err)
	}

	session.SetStatus(domain.StatusFinalizing)
	session.SetAnswer(answer)
	c.publish(session, domain.EventFinal, map[string]string{"answer": answer})
	session.SetStatus(domain.StatusCompleted)
	tracer.SetOK(span)
	c.persist(session)

	rec := session.Record()
	return &Result{
		SessionID: session.ID(),
		Agent:     rec.Agent,
		Strategy:  rec.Strategy,
		Answer:    answer,
		Steps:     rec.Steps,
		Duration:  rec.FinishedAt.Sub(rec.StartedAt),
	}, nil
}

// finishAbnormal classifies a loop error into Cancelled or Failed, emits the
// matching terminal event, and persists the session.
func (c *Controller) finishAbnormal(ctx context.Context, session *ReasoningSession, span trace.Span, err error) error {
	cancelled := errors.Is(err, domain.ErrSessionCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil

	if cancelled {
		session.SetStatus(domain.StatusCancelled)
		c.publish(session, domain.EventCancelled, map[string]string{
			"reason": err.Error(),
		})
		c.logger.Info("session cancelled", "session", session.ID())
	} else {
		session.SetStatus(domain.StatusFailed)
		c.publish(session, domain.EventError, map[string]string{
			"code":  string(domain.ErrorCodeOf(err)),
			"error": err.Error(),
		})
		c.logger.Error("session failed", "session", session.ID(), "error", err)
	}
	tracer.RecordError(span, err)
	c.persist(session)
	return err
}

// persist hands the finished session to the memory store. The store writes
// asynchronously; a rejected hand-off is logged, never propagated.
func (c *Controller) persist(session *ReasoningSession) {
	if err := c.memory.Store(context.Background(), session.Record()); err != nil {
		c.logger.Warn("session record not persisted",
			"session", session.ID(), "error", err)
	}
}

func (c *Controller) publish(session *ReasoningSession, kind domain.EventKind, payload map[string]string) {
	c.bus.Publish(domain.ProgressEvent{
		SessionID: session.ID(),
		Kind:      kind,
		Payload:   payload,
	})
}

// sessionRun carries the per-session state shared by the strategy loops.
type sessionRun struct {
	*Controller
	session       *ReasoningSession
	profile       domain.AgentProfile
	bridge        *ToolBridge
	toolsDisabled bool
	transcript    []domain.Message
}

// maxToolFolds bounds tool-result round-trips inside one model call, on top
// of the session tool budget. Some models keep emitting tool calls even when
// no tools are offered; the fold loop must not follow them forever.
const maxToolFolds = 8

// converse performs one model call, folding any requested tool calls back
// into the transcript and re-dispatching until the model produces text.
// Folding stops when tool offers have been withdrawn or the per-call fold
// limit is reached; the response text then stands as the answer.
func (r *sessionRun) converse(ctx context.Context, userPrompt string, stepKind domain.StepKind) (string, error) {
	system := r.profile.SystemPrompt + "\n\n" + scaffoldFor(r.session.Record().Strategy, r.preset.Depth)

	prompt := userPrompt
	folds := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", domain.NewDomainError("loop.converse", domain.ErrSessionCancelled, err.Error())
		}

		req := domain.CompletionRequest{
			Messages:    r.builder.Build(system, r.transcript, prompt, r.preset.ContextWindow),
			Temperature: r.preset.Creativity,
		}
		if !r.toolsDisabled {
			req.Tools = r.bridge.Schemas()
		}

		r.publish(r.session, domain.EventModelCallStart, map[string]string{
			"step": string(stepKind),
		})

		start := time.Now()
		resp, err := r.dispatcher.Dispatch(ctx, req, r.profile.Provider)
		if err != nil {
			r.session.AppendStep(domain.Step{
				Kind:     stepKind,
				Input:    prompt,
				Duration: time.Since(start),
				Outcome:  domain.OutcomeFailed,
			})
			return "", err
		}

		r.transcript = append(r.transcript,
			domain.Message{Role: domain.RoleUser, Content: prompt},
			domain.Message{Role: domain.RoleAssistant, Content: resp.Content},
		)
		r.session.AppendStep(domain.Step{
			Kind:     stepKind,
			Input:    prompt,
			Output:   resp.Content,
			Provider: resp.Provider,
			Duration: resp.Latency,
			Outcome:  domain.OutcomeSuccess,
		})

		if len(resp.ToolCalls) == 0 || r.toolsDisabled {
			// Tool calls arriving after offers were withdrawn are ignored.
			return resp.Content, nil
		}
		folds++
		if folds > maxToolFolds {
			r.toolsDisabled = true
			r.logger.Warn("tool fold limit reached, taking text answer",
				"session", r.session.ID(), "folds", folds-1)
			return resp.Content, nil
		}

		prompt = r.foldToolCalls(ctx, resp.ToolCalls)
	}
}

// foldToolCalls runs the model's tool requests and renders their results as
// the next user turn. Tool failures become information for the model;
// budget or permission refusals also disable further tool offers.
func (r *sessionRun) foldToolCalls(ctx context.Context, calls []domain.ToolCall) string {
	var b strings.Builder
	b.WriteString("Tool results:\n")

	for _, call := range calls {
		r.publish(r.session, domain.EventToolCall, map[string]string{
			"tool": call.Name,
		})

		start := time.Now()
		res, err := r.bridge.Invoke(ctx, call)

		step := domain.Step{
			Kind:     domain.StepToolCall,
			Input:    call.Name + " " + string(call.Arguments),
			Duration: time.Since(start),
		}
		switch {
		case err != nil:
			step.Outcome = domain.OutcomeFailed
			step.Output = err.Error()
			b.WriteString("- " + call.Name + ": unavailable: " + err.Error() + "\n")
			if errors.Is(err, domain.ErrReasoningBudget) || errors.Is(err, domain.ErrToolPermissionDenied) {
				r.toolsDisabled = true
			}
		case res.IsError:
			step.Outcome = domain.OutcomeFailed
			step.Output = res.Content
			b.WriteString("- " + call.Name + " failed: " + res.Content + "\n")
		default:
			step.Outcome = domain.OutcomeSuccess
			step.Output = res.Content
			b.WriteString("- " + call.Name + ": " + res.Content + "\n")
		}
		r.session.AppendStep(step)
	}

	b.WriteString("\nContinue with these results.")
	return b.String()
}

// chainOfThought runs up to depth iterations, stopping early when the model
// stops asking to continue.
func (r *sessionRun) chainOfThought(ctx context.Context) (string, error) {
	var answer string
	accepted := false

	for iter := 1; iter <= r.preset.Depth; iter++ {
		r.publish(r.session, domain.EventIterationStart, map[string]string{
			"iteration": strconv.Itoa(iter),
		})

		prompt := r.session.Query()
		if iter > 1 {
			prompt = "Continue your reasoning and finish when ready."
		}

		out, err := r.converse(ctx, prompt, domain.StepModelCall)
		if err != nil {
			if errors.Is(err, domain.ErrSessionCancelled) || ctx.Err() != nil {
				return "", err
			}
			if accepted {
				// A later iteration failing does not void earlier work.
				r.logger.Warn("iteration failed, keeping last accepted answer",
					"session", r.session.ID(), "error", err)
				break
			}
			return "", err
		}
		answer = strings.TrimSpace(strings.ReplaceAll(out, continueMarker, ""))
		accepted = true

		r.publish(r.session, domain.EventStepComplete, map[string]string{
			"iteration": strconv.Itoa(iter),
		})
		if r.opts.Done(out) {
			break
		}
	}

	if !accepted {
		return "", domain.NewDomainError("loop.cot", domain.ErrReasoningBudget,
			"iteration budget exhausted without an accepted step")
	}
	return answer, nil
}

var confidenceRe = regexp.MustCompile(`(?i)confidence[:\s]+(\d{1,3})\s*%`)

// branchScore prefers the branch's self-reported confidence, falling back
// to a length heuristic when the model omitted it.
func branchScore(out string) float64 {
	if m := confidenceRe.FindStringSubmatch(out); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n <= 100 {
			return float64(n)
		}
	}
	score := float64(len(out)) / 100
	if score > 50 {
		score = 50
	}
	return score
}

// treeOfThought fans out a bounded set of branches per iteration, keeps the
// best scoring one, and discards the rest permanently.
func (r *sessionRun) treeOfThought(ctx context.Context) (string, error) {
	branches := 2
	if r.preset.Depth >= 5 {
		branches = 3
	}

	var answer string
	accepted := false

	for iter := 1; iter <= r.preset.Depth; iter++ {
		r.publish(r.session, domain.EventIterationStart, map[string]string{
			"iteration": strconv.Itoa(iter),
			"branches":  strconv.Itoa(branches),
		})

		// Branches share the transcript up to this iteration; only the
		// winner's exchange survives into the next one.
		base := r.transcript
		type branchResult struct {
			out        string
			transcript []domain.Message
			score      float64
		}
		var results []branchResult
		var dispatchErr error

		for branch := 0; branch < branches; branch++ {
			r.transcript = base
			out, err := r.converse(ctx, branchUserPrompt(branch), domain.StepBranch)
			if err != nil {
				if errors.Is(err, domain.ErrSessionCancelled) || ctx.Err() != nil {
					return "", err
				}
				dispatchErr = err
				continue
			}
			results = append(results, branchResult{out, r.transcript, branchScore(out)})
		}

		if len(results) == 0 {
			if accepted {
				break
			}
			if dispatchErr != nil {
				return "", dispatchErr
			}
			return "", domain.NewDomainError("loop.tot", domain.ErrReasoningBudget,
				"no branch produced output")
		}

		best := 0
		for i := 1; i < len(results); i++ {
			if results[i].score > results[best].score {
				best = i
			}
		}
		for i := range results {
			if i != best {
				r.session.AppendStep(domain.Step{
					Kind:    domain.StepBranch,
					Output:  "pruned",
					Outcome: domain.OutcomeSkipped,
				})
			}
		}

		r.transcript = results[best].transcript
		answer = results[best].out
		accepted = true

		r.publish(r.session, domain.EventStepComplete, map[string]string{
			"iteration": strconv.Itoa(iter),
			"score":     strconv.FormatFloat(results[best].score, 'f', 0, 64),
		})

		// High-confidence winner ends the exploration.
		if results[best].score >= 90 {
			break
		}
	}

	if !accepted {
		return "", domain.NewDomainError("loop.tot", domain.ErrReasoningBudget,
			"iteration budget exhausted without an accepted step")
	}
	return answer, nil
}

// normalizeAnswer lowercases and collapses whitespace for revision
// comparison.
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// materiallyDifferent reports whether a revision says something new rather
// than restating the previous answer.
func materiallyDifferent(prev, next string) bool {
	p, n := normalizeAnswer(prev), normalizeAnswer(next)
	if p == n || n == "" {
		return false
	}
	return !strings.Contains(p, n) && !strings.Contains(n, p)
}

// reflexion produces an initial answer, then refines it with critique
// passes until a revision stops changing or the depth runs out.
func (r *sessionRun) reflexion(ctx context.Context) (string, error) {
	r.publish(r.session, domain.EventIterationStart, map[string]string{
		"iteration": "1",
	})
	answer, err := r.converse(ctx, r.session.Query(), domain.StepModelCall)
	if err != nil {
		return "", err
	}
	r.publish(r.session, domain.EventStepComplete, map[string]string{
		"iteration": "1",
	})

	for attempt := 2; attempt <= r.preset.Depth; attempt++ {
		r.publish(r.session, domain.EventIterationStart, map[string]string{
			"iteration": strconv.Itoa(attempt),
		})

		revision, err := r.converse(ctx, critiquePrompt(attempt, answer), domain.StepSelfCorrection)
		if err != nil {
			if errors.Is(err, domain.ErrSessionCancelled) || ctx.Err() != nil {
				return "", err
			}
			// Keep the already-accepted answer.
			r.logger.Warn("critique pass failed, keeping current answer",
				"session", r.session.ID(), "error", err)
			break
		}

		r.publish(r.session, domain.EventStepComplete, map[string]string{
			"iteration": strconv.Itoa(attempt),
		})

		if !materiallyDifferent(answer, revision) {
			r.session.AppendStep(domain.Step{
				Kind:    domain.StepSelfCorrection,
				Output:  "no material change, stopping",
				Outcome: domain.OutcomeSkipped,
			})
			break
		}
		answer = revision
	}
	return answer, nil
}
