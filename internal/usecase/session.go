package usecase

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"ald-01/internal/domain"
)

// ReasoningSession tracks one query's lifecycle: its identity, status, and
// the ordered step trace. Safe for concurrent use.
type ReasoningSession struct {
	id      string
	query   string
	started time.Time

	mu       sync.Mutex
	agent    string
	strategy domain.Strategy
	status   domain.SessionStatus
	answer   string
	steps    []domain.Step
	finished time.Time
}

// NewReasoningSession mints a session with a fresh ULID.
func NewReasoningSession(query string) *ReasoningSession {
	return &ReasoningSession{
		id:      ulid.Make().String(),
		query:   query,
		started: time.Now(),
		status:  domain.StatusRouting,
	}
}

func (s *ReasoningSession) ID() string { return s.id }

func (s *ReasoningSession) Query() string { return s.query }

// SetRoute records the routing decision.
func (s *ReasoningSession) SetRoute(agent string, strategy domain.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agent = agent
	s.strategy = strategy
	s.status = domain.StatusIterating
}

// SetStatus moves the session to the given status. Terminal statuses stamp
// the finish time.
func (s *ReasoningSession) SetStatus(status domain.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if status.Terminal() && s.finished.IsZero() {
		s.finished = time.Now()
	}
}

// SetAnswer records the final answer.
func (s *ReasoningSession) SetAnswer(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = answer
}

// AppendStep assigns the next gapless sequence number and records the step.
func (s *ReasoningSession) AppendStep(step domain.Step) domain.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	step.Seq = len(s.steps) + 1
	s.steps = append(s.steps, step)
	return step
}

// Steps returns a copy of the step trace.
func (s *ReasoningSession) Steps() []domain.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Record snapshots the session for persistence.
func (s *ReasoningSession) Record() domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := make([]domain.Step, len(s.steps))
	copy(steps, s.steps)
	return domain.SessionRecord{
		ID:         s.id,
		Query:      s.query,
		Agent:      s.agent,
		Strategy:   s.strategy,
		Status:     s.status,
		Answer:     s.answer,
		Steps:      steps,
		StartedAt:  s.started,
		FinishedAt: s.finished,
	}
}
