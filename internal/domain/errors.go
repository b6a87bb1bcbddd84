package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	// Provider / dispatch errors.
	ErrProviderNotFound    = fmt.Errorf("provider not found")
	ErrDuplicateProvider   = fmt.Errorf("provider already registered")
	ErrProviderTimeout     = fmt.Errorf("provider timed out")
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrFailoverExhausted   = fmt.Errorf("all providers failed")
	ErrRateLimit           = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid         = fmt.Errorf("authentication failed")

	// Tool errors.
	ErrToolNotFound         = fmt.Errorf("tool not found")
	ErrToolPermissionDenied = fmt.Errorf("tool permission denied")
	ErrToolExecution        = fmt.Errorf("tool execution failed")
	ErrCommandNotAllowed    = fmt.Errorf("command not in allowlist")
	ErrPathOutsideSandbox   = fmt.Errorf("path is outside sandbox boundary")

	// Session / reasoning errors.
	ErrReasoningBudget  = fmt.Errorf("reasoning budget exhausted")
	ErrSessionCancelled = fmt.Errorf("session cancelled")
	ErrAgentNotFound    = fmt.Errorf("agent not found")

	// Infrastructure errors.
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")
	ErrMemoryStore  = fmt.Errorf("memory store failed")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Dispatcher.Dispatch")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is transient and may succeed on a
// different provider or a later attempt.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrRateLimit)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown              ErrorCode = "UNKNOWN"
	CodeProviderNotFound     ErrorCode = "PROVIDER_NOT_FOUND"
	CodeDuplicateProvider    ErrorCode = "PROVIDER_DUPLICATE"
	CodeProviderTimeout      ErrorCode = "PROVIDER_TIMEOUT"
	CodeProviderUnavailable  ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeFailoverExhausted    ErrorCode = "FAILOVER_EXHAUSTED"
	CodeRateLimit            ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid          ErrorCode = "AUTH_INVALID"
	CodeToolNotFound         ErrorCode = "TOOL_NOT_FOUND"
	CodeToolPermissionDenied ErrorCode = "TOOL_PERMISSION_DENIED"
	CodeToolExecution        ErrorCode = "TOOL_EXECUTION"
	CodeCommandNotAllowed    ErrorCode = "COMMAND_NOT_ALLOWED"
	CodePathOutsideSandbox   ErrorCode = "PATH_OUTSIDE_SANDBOX"
	CodeReasoningBudget      ErrorCode = "REASONING_BUDGET"
	CodeSessionCancelled     ErrorCode = "SESSION_CANCELLED"
	CodeAgentNotFound        ErrorCode = "AGENT_NOT_FOUND"
	CodeConfigLoad           ErrorCode = "CONFIG_LOAD"
	CodeDecryption           ErrorCode = "DECRYPTION"
	CodeMemoryStore          ErrorCode = "MEMORY_STORE"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrProviderNotFound:     CodeProviderNotFound,
	ErrDuplicateProvider:    CodeDuplicateProvider,
	ErrProviderTimeout:      CodeProviderTimeout,
	ErrProviderUnavailable:  CodeProviderUnavailable,
	ErrFailoverExhausted:    CodeFailoverExhausted,
	ErrRateLimit:            CodeRateLimit,
	ErrAuthInvalid:          CodeAuthInvalid,
	ErrToolNotFound:         CodeToolNotFound,
	ErrToolPermissionDenied: CodeToolPermissionDenied,
	ErrToolExecution:        CodeToolExecution,
	ErrCommandNotAllowed:    CodeCommandNotAllowed,
	ErrPathOutsideSandbox:   CodePathOutsideSandbox,
	ErrReasoningBudget:      CodeReasoningBudget,
	ErrSessionCancelled:     CodeSessionCancelled,
	ErrAgentNotFound:        CodeAgentNotFound,
	ErrConfigLoad:           CodeConfigLoad,
	ErrDecryption:           CodeDecryption,
	ErrMemoryStore:          CodeMemoryStore,
	ErrInvalidInput:         CodeInvalidInput,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
