package domain

import (
	"context"
	"time"
)

// SessionStatus is the lifecycle state of a reasoning session.
type SessionStatus string

const (
	StatusRouting    SessionStatus = "routing"
	StatusIterating  SessionStatus = "iterating"
	StatusFinalizing SessionStatus = "finalizing"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
	StatusFailed     SessionStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// StepKind classifies a recorded reasoning step.
type StepKind string

const (
	StepModelCall      StepKind = "model_call"
	StepToolCall       StepKind = "tool_call"
	StepBranch         StepKind = "branch"
	StepSelfCorrection StepKind = "self_correction"
)

// StepOutcome is the result classification of a step.
type StepOutcome string

const (
	OutcomeSuccess StepOutcome = "success"
	OutcomeFailed  StepOutcome = "failed"
	OutcomeSkipped StepOutcome = "skipped"
)

// Step is a single recorded reasoning step. Seq starts at 1 and is
// gapless within a session.
type Step struct {
	Seq      int           `json:"seq"`
	Kind     StepKind      `json:"kind"`
	Input    string        `json:"input,omitempty"`
	Output   string        `json:"output,omitempty"`
	Provider string        `json:"provider,omitempty"`
	Duration time.Duration `json:"duration"`
	Outcome  StepOutcome   `json:"outcome"`
}

// SessionRecord is the finished-session transcript handed to the memory store.
type SessionRecord struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Agent      string        `json:"agent"`
	Strategy   Strategy      `json:"strategy"`
	Status     SessionStatus `json:"status"`
	Answer     string        `json:"answer,omitempty"`
	Steps      []Step        `json:"steps"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// MemoryStore persists finished session transcripts. Store must not block
// the caller on I/O; implementations are expected to write asynchronously.
type MemoryStore interface {
	Store(ctx context.Context, rec SessionRecord) error
	Recent(ctx context.Context, limit int) ([]SessionRecord, error)
	Close() error
}
