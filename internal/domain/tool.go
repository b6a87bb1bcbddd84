package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AccessTier gates which tools a session may invoke. Tiers are ordered:
// a session holding a tier may use any tool requiring that tier or lower.
type AccessTier int

const (
	AccessNone AccessTier = iota
	AccessBasic
	AccessStandard
	AccessFull
)

func (t AccessTier) String() string {
	switch t {
	case AccessBasic:
		return "basic"
	case AccessStandard:
		return "standard"
	case AccessFull:
		return "full"
	default:
		return "none"
	}
}

// ParseAccessTier converts a config string to an AccessTier.
func ParseAccessTier(s string) (AccessTier, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return AccessNone, nil
	case "basic":
		return AccessBasic, nil
	case "standard":
		return AccessStandard, nil
	case "full":
		return AccessFull, nil
	default:
		return AccessNone, fmt.Errorf("unknown access tier %q", s)
	}
}

// Allows reports whether a caller holding tier t may use a tool requiring req.
func (t AccessTier) Allows(req AccessTier) bool { return t >= req }

// ToolSchema describes a tool for the function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Access      AccessTier      `json:"-"`
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	Schemas() []ToolSchema
}
