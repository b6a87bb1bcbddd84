package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ald-01/internal/domain"
)

// scriptedDispatcher answers each dispatch via a script function keyed by
// call number (starting at 1).
type scriptedDispatcher struct {
	mu       sync.Mutex
	script   func(call int, req domain.CompletionRequest) (*domain.CompletionResponse, error)
	requests []domain.CompletionRequest
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, req domain.CompletionRequest, _ string) (*domain.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewDomainError("test.dispatch", domain.ErrSessionCancelled, err.Error())
	}
	d.mu.Lock()
	d.requests = append(d.requests, req)
	call := len(d.requests)
	d.mu.Unlock()
	return d.script(call, req)
}

func (d *scriptedDispatcher) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func textResponse(content string) (*domain.CompletionResponse, error) {
	return &domain.CompletionResponse{Content: content, Provider: "test"}, nil
}

// recordingSink captures published events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (s *recordingSink) Publish(ev domain.ProgressEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

// captureStore records persisted session records.
type captureStore struct {
	mu      sync.Mutex
	records []domain.SessionRecord
}

func (s *captureStore) Store(_ context.Context, rec domain.SessionRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

func (s *captureStore) Recent(context.Context, int) ([]domain.SessionRecord, error) {
	return nil, nil
}

func (s *captureStore) Close() error { return nil }

func (s *captureStore) last(t *testing.T) domain.SessionRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.records, "no session record persisted")
	return s.records[len(s.records)-1]
}

type loopFixture struct {
	dispatcher *scriptedDispatcher
	sink       *recordingSink
	store      *captureStore
	controller *Controller
}

func newLoopFixture(t *testing.T, level int, opts Options, exec domain.ToolExecutor, script func(int, domain.CompletionRequest) (*domain.CompletionResponse, error)) *loopFixture {
	t.Helper()
	if exec == nil {
		exec = newFakeExecutor()
	}
	f := &loopFixture{
		dispatcher: &scriptedDispatcher{script: script},
		sink:       &recordingSink{},
		store:      &captureStore{},
	}
	f.controller = NewController(
		f.dispatcher,
		newTestRouter(),
		exec,
		f.sink,
		f.store,
		heuristicBuilder(),
		PresetForLevel(level),
		opts,
		testLogger(),
	)
	return f
}

func TestChainOfThoughtStopsEarly(t *testing.T) {
	f := newLoopFixture(t, 5, Options{}, nil, func(call int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if call == 1 {
			return textResponse("working through it\n[CONTINUE]")
		}
		return textResponse("the final answer")
	})

	res, err := f.controller.Run(context.Background(), "what should I cook for dinner tonight")
	require.NoError(t, err)

	assert.Equal(t, "the final answer", res.Answer)
	assert.Equal(t, "general", res.Agent)
	assert.Equal(t, 2, f.dispatcher.calls(), "depth 4 but completion signal after call 2")

	rec := f.store.last(t)
	assert.Equal(t, domain.StatusCompleted, rec.Status)

	kinds := f.sink.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, domain.EventRouting, kinds[0])
	assert.Equal(t, domain.EventFinal, kinds[len(kinds)-1])
}

func TestChainOfThoughtRunsToDepth(t *testing.T) {
	f := newLoopFixture(t, 3, Options{}, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return textResponse("still thinking [CONTINUE]")
	})

	res, err := f.controller.Run(context.Background(), "what should I cook for dinner tonight")
	require.NoError(t, err)

	// Level 3 has depth 2: never more iterations than that.
	assert.Equal(t, 2, f.dispatcher.calls())
	assert.Equal(t, "still thinking", res.Answer, "marker stripped from accepted answer")
}

func TestFailoverExhaustedFailsSession(t *testing.T) {
	f := newLoopFixture(t, 5, Options{}, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return nil, domain.NewDomainError("test", domain.ErrFailoverExhausted, "[a: down]")
	})

	_, err := f.controller.Run(context.Background(), "hello")
	require.ErrorIs(t, err, domain.ErrFailoverExhausted)

	rec := f.store.last(t)
	assert.Equal(t, domain.StatusFailed, rec.Status)

	kinds := f.sink.kinds()
	assert.Equal(t, domain.EventError, kinds[len(kinds)-1])
}

func TestCancelledContextCancelsSession(t *testing.T) {
	f := newLoopFixture(t, 5, Options{}, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return textResponse("never reached")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.controller.Run(ctx, "hello")
	require.Error(t, err)

	rec := f.store.last(t)
	assert.Equal(t, domain.StatusCancelled, rec.Status)

	kinds := f.sink.kinds()
	assert.Equal(t, domain.EventCancelled, kinds[len(kinds)-1])
}

func TestCancellationAfterAcceptedIterationCancelsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newLoopFixture(t, 5, Options{}, nil, func(call int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if call == 1 {
			return textResponse("partway there\n[CONTINUE]")
		}
		// The session is cancelled while this dispatch is in flight.
		cancel()
		return nil, domain.NewDomainError("test.dispatch", domain.ErrSessionCancelled, "cancelled mid-flight")
	})

	_, err := f.controller.Run(ctx, "what should I cook for dinner tonight")
	require.ErrorIs(t, err, domain.ErrSessionCancelled)

	rec := f.store.last(t)
	assert.Equal(t, domain.StatusCancelled, rec.Status,
		"an accepted earlier iteration must not turn cancellation into success")

	kinds := f.sink.kinds()
	assert.Equal(t, domain.EventCancelled, kinds[len(kinds)-1])
	assert.NotContains(t, kinds, domain.EventFinal)
}

func TestToolCallsFoldedIntoNextDispatch(t *testing.T) {
	invoked := 0
	exec := newFakeExecutor(&fakeTool{
		name:   "lookup",
		access: domain.AccessBasic,
		execute: func(context.Context, json.RawMessage) (*domain.ToolResult, error) {
			invoked++
			return &domain.ToolResult{Content: "42 degrees"}, nil
		},
	})

	f := newLoopFixture(t, 5, Options{MaxToolCalls: 4}, exec, func(call int, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if call == 1 {
			return &domain.CompletionResponse{
				Provider: "test",
				ToolCalls: []domain.ToolCall{
					{ID: "t1", Name: "lookup", Arguments: json.RawMessage(`{}`)},
				},
			}, nil
		}
		// The tool result must be in the conversation we get back.
		last := req.Messages[len(req.Messages)-1]
		assert.Contains(t, last.Content, "42 degrees")
		return textResponse("it is 42 degrees out")
	})

	res, err := f.controller.Run(context.Background(), "what should I cook for dinner tonight")
	require.NoError(t, err)

	assert.Equal(t, 1, invoked)
	assert.Equal(t, "it is 42 degrees out", res.Answer)

	var toolSteps int
	for _, step := range res.Steps {
		if step.Kind == domain.StepToolCall {
			toolSteps++
			assert.Equal(t, domain.OutcomeSuccess, step.Outcome)
		}
	}
	assert.Equal(t, 1, toolSteps)

	kinds := f.sink.kinds()
	assert.Contains(t, kinds, domain.EventToolCall)
}

func TestToolBudgetStopsToolOffers(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{name: "lookup", access: domain.AccessBasic})

	f := newLoopFixture(t, 5, Options{MaxToolCalls: 1}, exec, func(call int, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if len(req.Tools) > 0 {
			// Keep requesting tools for as long as they are offered.
			return &domain.CompletionResponse{
				Provider: "test",
				ToolCalls: []domain.ToolCall{
					{ID: "t", Name: "lookup", Arguments: json.RawMessage(`{}`)},
				},
			}, nil
		}
		return textResponse("done without tools")
	})

	res, err := f.controller.Run(context.Background(), "what should I cook for dinner tonight")
	require.NoError(t, err)
	assert.Equal(t, "done without tools", res.Answer)
}

func TestToolLoopBoundedWhenModelAlwaysRequestsTools(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{name: "lookup", access: domain.AccessBasic})

	// The model requests a tool on every single response, offered or not.
	alwaysTools := func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return &domain.CompletionResponse{
			Provider: "test",
			Content:  "checking the data",
			ToolCalls: []domain.ToolCall{
				{ID: "t", Name: "lookup", Arguments: json.RawMessage(`{}`)},
			},
		}, nil
	}

	f := newLoopFixture(t, 5, Options{MaxToolCalls: 2}, exec, alwaysTools)
	res, err := f.controller.Run(context.Background(), "what should I cook for dinner tonight")
	require.NoError(t, err)

	assert.Equal(t, "checking the data", res.Answer)
	assert.LessOrEqual(t, f.dispatcher.calls(), 8,
		"dispatches must stay bounded once the tool budget is spent")

	rec := f.store.last(t)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
}

func TestToolFoldLimitHoldsWithoutBudget(t *testing.T) {
	invoked := 0
	exec := newFakeExecutor(&fakeTool{
		name:   "lookup",
		access: domain.AccessBasic,
		execute: func(context.Context, json.RawMessage) (*domain.ToolResult, error) {
			invoked++
			return &domain.ToolResult{Content: "ok"}, nil
		},
	})

	f := newLoopFixture(t, 5, Options{MaxToolCalls: 0}, exec, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return &domain.CompletionResponse{
			Provider: "test",
			Content:  "still looking",
			ToolCalls: []domain.ToolCall{
				{ID: "t", Name: "lookup", Arguments: json.RawMessage(`{}`)},
			},
		}, nil
	})

	res, err := f.controller.Run(context.Background(), "what should I cook for dinner tonight")
	require.NoError(t, err)
	assert.Equal(t, "still looking", res.Answer)

	// One dispatch per fold plus the final refusal round.
	assert.Equal(t, maxToolFolds+1, f.dispatcher.calls())
	assert.Equal(t, maxToolFolds, invoked)
}

func TestTreeOfThoughtKeepsBestBranch(t *testing.T) {
	branchOutputs := []string{
		"approach one\nConfidence: 40%",
		"approach two\nConfidence: 95%",
		"approach three\nConfidence: 60%",
	}
	f := newLoopFixture(t, 7, Options{}, nil, func(call int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		require.LessOrEqual(t, call, len(branchOutputs), "high-confidence branch should end the loop")
		return textResponse(branchOutputs[call-1])
	})

	res, err := f.controller.Run(context.Background(), "is this secure? security audit of my auth tokens")
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyTreeOfThought, res.Strategy)
	assert.Contains(t, res.Answer, "approach two")
	assert.Equal(t, 3, f.dispatcher.calls())

	var pruned int
	for _, step := range res.Steps {
		if step.Kind == domain.StepBranch && step.Outcome == domain.OutcomeSkipped {
			pruned++
		}
	}
	assert.Equal(t, 2, pruned, "losing branches are pruned")
}

func TestReflexionStopsWithoutProgress(t *testing.T) {
	f := newLoopFixture(t, 7, Options{}, nil, func(call int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		// The critique pass restates the same answer.
		return textResponse("use a prepared statement")
	})

	res, err := f.controller.Run(context.Background(), "review this code please")
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyReflexion, res.Strategy)
	assert.Equal(t, "use a prepared statement", res.Answer)
	assert.Equal(t, 2, f.dispatcher.calls(), "no-progress revision stops the loop")

	var skipped bool
	for _, step := range res.Steps {
		if step.Kind == domain.StepSelfCorrection && step.Outcome == domain.OutcomeSkipped {
			skipped = true
		}
	}
	assert.True(t, skipped, "no-progress stop should be recorded")
}

func TestReflexionAcceptsMaterialRevision(t *testing.T) {
	f := newLoopFixture(t, 7, Options{}, nil, func(call int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		switch call {
		case 1:
			return textResponse("first draft of the fix")
		case 2:
			return textResponse("a completely reworked solution using parameterized queries")
		default:
			return textResponse("a completely reworked solution using parameterized queries")
		}
	})

	res, err := f.controller.Run(context.Background(), "review this code please")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "reworked solution")
}

func TestStrategyDowngradedBelowPresetCapability(t *testing.T) {
	f := newLoopFixture(t, 3, Options{}, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return textResponse("answer")
	})

	res, err := f.controller.Run(context.Background(), "is this secure? security audit of my auth tokens")
	require.NoError(t, err)

	// Security prefers tree-of-thought but level 3 only allows chain-of-thought.
	assert.Equal(t, domain.StrategyChainOfThought, res.Strategy)
	assert.Equal(t, "security", res.Agent)
}

func TestStepSequencesGaplessAcrossStrategies(t *testing.T) {
	f := newLoopFixture(t, 7, Options{}, nil, func(call int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return textResponse("Confidence: 95%\nanswer")
	})

	res, err := f.controller.Run(context.Background(), "is this secure? security audit of my auth tokens")
	require.NoError(t, err)

	for i, step := range res.Steps {
		assert.Equal(t, i+1, step.Seq)
	}
}
