package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ald-01/internal/domain"
)

// ToolBridge mediates between the reasoning loop and the tool registry. It
// enforces the preset's access tier and a per-session call budget.
type ToolBridge struct {
	exec     domain.ToolExecutor
	tier     domain.AccessTier
	maxCalls int

	mu    sync.Mutex
	calls int

	logger *slog.Logger
}

// NewToolBridge wires a bridge for one session. maxCalls <= 0 disables the
// budget check.
func NewToolBridge(exec domain.ToolExecutor, tier domain.AccessTier, maxCalls int, logger *slog.Logger) *ToolBridge {
	return &ToolBridge{exec: exec, tier: tier, maxCalls: maxCalls, logger: logger}
}

// Schemas returns the schemas of tools the session's tier may invoke,
// suitable for inclusion in a completion request.
func (b *ToolBridge) Schemas() []domain.ToolSchema {
	if b.tier == domain.AccessNone {
		return nil
	}
	var out []domain.ToolSchema
	for _, s := range b.exec.Schemas() {
		if b.tier.Allows(s.Access) {
			out = append(out, s)
		}
	}
	return out
}

// Calls reports how many tool invocations the session has used.
func (b *ToolBridge) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Invoke executes one tool call after tier and budget checks. Tool-reported
// failures come back as an error result, not an error; infrastructure
// failures are returned as errors.
func (b *ToolBridge) Invoke(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	const op = "toolbridge.invoke"

	if b.tier == domain.AccessNone {
		return domain.ToolResult{}, domain.NewDomainError(op, domain.ErrToolPermissionDenied,
			"tool access disabled at this brain-power level")
	}

	b.mu.Lock()
	if b.maxCalls > 0 && b.calls >= b.maxCalls {
		b.mu.Unlock()
		return domain.ToolResult{}, domain.NewDomainError(op, domain.ErrReasoningBudget,
			fmt.Sprintf("tool call budget of %d exhausted", b.maxCalls))
	}
	b.calls++
	b.mu.Unlock()

	tool, err := b.exec.Get(call.Name)
	if err != nil {
		return domain.ToolResult{}, err
	}
	if !b.tier.Allows(tool.Schema().Access) {
		return domain.ToolResult{}, domain.NewDomainError(op, domain.ErrToolPermissionDenied,
			fmt.Sprintf("tool %q requires %s access, session has %s",
				call.Name, tool.Schema().Access, b.tier))
	}

	b.logger.Debug("tool invoked", "tool", call.Name, "call_id", call.ID)

	res, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		return domain.ToolResult{}, domain.NewDomainError(op, domain.ErrToolExecution, err.Error())
	}
	if res == nil {
		res = &domain.ToolResult{}
	}
	res.ToolCallID = call.ID
	return *res, nil
}
