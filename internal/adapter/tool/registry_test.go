package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"ald-01/internal/domain"
)

type staticTool struct {
	name   string
	params json.RawMessage
	access domain.AccessTier
	result *domain.ToolResult
}

func (s *staticTool) Name() string        { return s.name }
func (s *staticTool) Description() string { return "static test tool" }
func (s *staticTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        s.name,
		Description: s.Description(),
		Parameters:  s.params,
		Access:      s.access,
	}
}

func (s *staticTool) Execute(_ context.Context, _ json.RawMessage) (*domain.ToolResult, error) {
	return s.result, nil
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry(slog.Default())
	_, err := reg.Get("missing")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Fatalf("error = %v, want ErrToolNotFound", err)
	}
}

func TestRegistrySchemasSorted(t *testing.T) {
	reg := NewRegistry(slog.Default())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		err := reg.Register(&staticTool{name: name, result: &domain.ToolResult{Content: name}})
		if err != nil {
			t.Fatal(err)
		}
	}

	schemas := reg.Schemas()
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if schemas[i].Name != name {
			t.Errorf("schemas[%d] = %s, want %s", i, schemas[i].Name, name)
		}
	}
}

func TestRegistryWrapsWithSchemaValidation(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)
	reg := NewRegistry(slog.Default())
	err := reg.Register(&staticTool{
		name:   "checked",
		params: schema,
		result: &domain.ToolResult{Content: "ok"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := reg.Get("checked")
	if err != nil {
		t.Fatal(err)
	}

	// Invalid arguments are rejected before the tool runs.
	res, err := got.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected validation error result")
	}

	// Valid arguments pass through.
	res, err = got.Execute(context.Background(), json.RawMessage(`{"path":"go.mod"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError || res.Content != "ok" {
		t.Errorf("result = %+v, want ok", res)
	}
}

func TestRegisterBadSchema(t *testing.T) {
	reg := NewRegistry(slog.Default())
	err := reg.Register(&staticTool{
		name:   "broken",
		params: json.RawMessage(`{"type": 42}`),
	})
	if err == nil {
		t.Fatal("expected schema compile error")
	}
}
