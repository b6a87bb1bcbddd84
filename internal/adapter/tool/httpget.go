package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ald-01/internal/domain"
)

var httpGetSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"url": {
			"type": "string",
			"description": "HTTP or HTTPS URL to fetch."
		}
	},
	"required": ["url"],
	"additionalProperties": false
}`)

// HTTPGetTool fetches a URL and returns the body. Requires standard access.
type HTTPGetTool struct {
	client  *http.Client
	maxBody int
}

// NewHTTPGetTool creates the fetch tool. maxBody caps the returned body;
// 0 means 1 MB.
func NewHTTPGetTool(timeout time.Duration, maxBody int) *HTTPGetTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &HTTPGetTool{
		client:  &http.Client{Timeout: timeout},
		maxBody: maxBody,
	}
}

func (t *HTTPGetTool) Name() string { return "http_get" }

func (t *HTTPGetTool) Description() string {
	return "Fetch an HTTP(S) URL and return the response body as text."
}

func (t *HTTPGetTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  httpGetSchema,
		Access:      domain.AccessStandard,
	}
}

func (t *HTTPGetTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, domain.WrapOp("HTTPGetTool.Execute", err)
	}

	u, err := url.Parse(args.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, domain.NewDomainError("HTTPGetTool.Execute", domain.ErrInvalidInput, args.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.WrapOp("HTTPGetTool.Execute", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("http request: %v", err),
		}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxBody)))
	if err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("read response: %v", err),
		}, nil
	}

	if resp.StatusCode >= 400 {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body),
		}, nil
	}

	return &domain.ToolResult{Content: string(body)}, nil
}
