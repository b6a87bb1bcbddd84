package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"ald-01/internal/domain"
)

// maxShellOutput caps captured command output.
const maxShellOutput = 64 * 1024

var shellSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {
			"type": "string",
			"description": "Command line to run. The executable must be in the allowlist."
		}
	},
	"required": ["command"],
	"additionalProperties": false
}`)

// ShellTool runs allowlisted commands with a timeout. Requires full access.
type ShellTool struct {
	allowed map[string]bool
	timeout time.Duration
	logger  *slog.Logger
}

// NewShellTool creates a shell tool restricted to the allowed executables.
func NewShellTool(allowed []string, timeout time.Duration, logger *slog.Logger) *ShellTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		m[c] = true
	}
	return &ShellTool{allowed: m, timeout: timeout, logger: logger}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Run an allowlisted shell command and return its combined output."
}

func (t *ShellTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  shellSchema,
		Access:      domain.AccessFull,
	}
}

func (t *ShellTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, domain.WrapOp("ShellTool.Execute", err)
	}

	fields := strings.Fields(args.Command)
	if len(fields) == 0 {
		return nil, domain.NewDomainError("ShellTool.Execute", domain.ErrInvalidInput, "empty command")
	}
	if !t.allowed[fields[0]] {
		return nil, domain.NewDomainError("ShellTool.Execute", domain.ErrCommandNotAllowed, fields[0])
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	out, err := cmd.CombinedOutput()
	if len(out) > maxShellOutput {
		out = out[:maxShellOutput]
	}

	if err != nil {
		t.logger.Debug("shell command failed", "command", fields[0], "error", err)
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("%v\n%s", err, out),
		}, nil
	}

	return &domain.ToolResult{Content: string(out)}, nil
}
