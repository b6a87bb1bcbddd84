package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"ald-01/internal/domain"
)

// fakeTool is a minimal in-memory tool double.
type fakeTool struct {
	name    string
	access  domain.AccessTier
	execute func(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error)
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return t.name }
func (t *fakeTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: t.name, Access: t.access}
}
func (t *fakeTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if t.execute != nil {
		return t.execute(ctx, params)
	}
	return &domain.ToolResult{Content: "ok"}, nil
}

// fakeExecutor serves a fixed tool set.
type fakeExecutor struct {
	tools map[string]*fakeTool
}

func newFakeExecutor(tools ...*fakeTool) *fakeExecutor {
	m := make(map[string]*fakeTool, len(tools))
	for _, t := range tools {
		m[t.name] = t
	}
	return &fakeExecutor{tools: m}
}

func (e *fakeExecutor) Get(name string) (domain.Tool, error) {
	t, ok := e.tools[name]
	if !ok {
		return nil, domain.NewDomainError("fake.get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

func (e *fakeExecutor) Schemas() []domain.ToolSchema {
	var out []domain.ToolSchema
	for _, t := range e.tools {
		out = append(out, t.Schema())
	}
	return out
}

func call(name string) domain.ToolCall {
	return domain.ToolCall{ID: "c1", Name: name, Arguments: json.RawMessage(`{}`)}
}

func TestBridgeDeniesWhenAccessDisabled(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{name: "echo", access: domain.AccessBasic})
	b := NewToolBridge(exec, domain.AccessNone, 10, testLogger())

	_, err := b.Invoke(context.Background(), call("echo"))
	if !errors.Is(err, domain.ErrToolPermissionDenied) {
		t.Errorf("error = %v, want ErrToolPermissionDenied", err)
	}
	if b.Schemas() != nil {
		t.Error("no-access session should advertise no tool schemas")
	}
}

func TestBridgeDeniesInsufficientTier(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{name: "shell", access: domain.AccessFull})
	b := NewToolBridge(exec, domain.AccessBasic, 10, testLogger())

	_, err := b.Invoke(context.Background(), call("shell"))
	if !errors.Is(err, domain.ErrToolPermissionDenied) {
		t.Errorf("error = %v, want ErrToolPermissionDenied", err)
	}
}

func TestBridgeUnknownTool(t *testing.T) {
	b := NewToolBridge(newFakeExecutor(), domain.AccessFull, 10, testLogger())

	_, err := b.Invoke(context.Background(), call("nope"))
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("error = %v, want ErrToolNotFound", err)
	}
}

func TestBridgeBudgetExhaustion(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{name: "echo", access: domain.AccessBasic})
	b := NewToolBridge(exec, domain.AccessFull, 2, testLogger())

	for i := 0; i < 2; i++ {
		if _, err := b.Invoke(context.Background(), call("echo")); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	_, err := b.Invoke(context.Background(), call("echo"))
	if !errors.Is(err, domain.ErrReasoningBudget) {
		t.Errorf("error = %v, want ErrReasoningBudget", err)
	}
	if b.Calls() != 2 {
		t.Errorf("calls = %d, want 2", b.Calls())
	}
}

func TestBridgeExecutionError(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{
		name:   "flaky",
		access: domain.AccessBasic,
		execute: func(context.Context, json.RawMessage) (*domain.ToolResult, error) {
			return nil, fmt.Errorf("backend gone")
		},
	})
	b := NewToolBridge(exec, domain.AccessFull, 10, testLogger())

	_, err := b.Invoke(context.Background(), call("flaky"))
	if !errors.Is(err, domain.ErrToolExecution) {
		t.Errorf("error = %v, want ErrToolExecution", err)
	}
}

func TestBridgeSetsToolCallID(t *testing.T) {
	exec := newFakeExecutor(&fakeTool{name: "echo", access: domain.AccessBasic})
	b := NewToolBridge(exec, domain.AccessFull, 10, testLogger())

	res, err := b.Invoke(context.Background(), call("echo"))
	if err != nil {
		t.Fatal(err)
	}
	if res.ToolCallID != "c1" || res.Content != "ok" {
		t.Errorf("result = %+v", res)
	}
}

func TestBridgeSchemasFilteredByTier(t *testing.T) {
	exec := newFakeExecutor(
		&fakeTool{name: "read_file", access: domain.AccessBasic},
		&fakeTool{name: "shell", access: domain.AccessFull},
	)
	b := NewToolBridge(exec, domain.AccessBasic, 10, testLogger())

	schemas := b.Schemas()
	if len(schemas) != 1 || schemas[0].Name != "read_file" {
		t.Errorf("schemas = %+v, want only read_file", schemas)
	}
}
