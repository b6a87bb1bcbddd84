package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ald-01/internal/domain"
)

// maxReadFileSize caps how much of a file the tool returns.
const maxReadFileSize = 256 * 1024

var readFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {
			"type": "string",
			"description": "Path of the file to read, relative to the sandbox root."
		}
	},
	"required": ["path"],
	"additionalProperties": false
}`)

// ReadFileTool reads files confined to a sandbox root. Requires basic access.
type ReadFileTool struct {
	root string
}

// NewReadFileTool creates a file reader rooted at root.
func NewReadFileTool(root string) (*ReadFileTool, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	return &ReadFileTool{root: abs}, nil
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a text file inside the sandbox and return its contents."
}

func (t *ReadFileTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  readFileSchema,
		Access:      domain.AccessBasic,
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, domain.WrapOp("ReadFileTool.Execute", err)
	}

	resolved, err := t.resolve(args.Path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("open file: %v", err),
		}, nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxReadFileSize))
	if err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("read file: %v", err),
		}, nil
	}

	return &domain.ToolResult{Content: string(data)}, nil
}

// resolve joins path to the sandbox root and rejects escapes.
func (t *ReadFileTool) resolve(path string) (string, error) {
	joined := path
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(t.root, path)
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", domain.WrapOp("ReadFileTool.resolve", err)
	}
	if abs != t.root && !strings.HasPrefix(abs, t.root+string(filepath.Separator)) {
		return "", domain.NewDomainError("ReadFileTool.Execute", domain.ErrPathOutsideSandbox, path)
	}
	return abs, nil
}
