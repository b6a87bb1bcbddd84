package provider

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ald-01/internal/domain"
	"ald-01/internal/infra/config"
)

// entry is the registry's mutable record for one provider.
type entry struct {
	desc     domain.ProviderDescriptor
	provider domain.Provider

	state        domain.HealthState
	failures     int
	latency      time.Duration
	lastProbe    time.Time
	lastErr      string
	backoff      time.Duration
	backoffUntil time.Time
}

// Candidate is a dispatchable provider returned by HealthyByPriority.
type Candidate struct {
	Name     string
	Priority int
	State    domain.HealthState
	Provider domain.Provider
}

// Registry tracks registered providers and their health. Success and failure
// reports drive a per-provider state machine:
//
//	success               -> healthy (failure count reset)
//	failure               -> degraded
//	failures >= threshold -> unavailable, with exponential probe backoff
//	backoff elapsed       -> unknown, awaiting re-probe
//
// Degraded providers still dispatch; unavailable and unknown ones do not.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	threshold   int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger

	now func() time.Time // swappable for tests
}

// NewRegistry creates a registry with the given health tuning.
// Zero values fall back to defaults (threshold 3, backoff 5s..5m).
func NewRegistry(cfg config.HealthConfig, logger *slog.Logger) *Registry {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 3
	}
	base := cfg.ProbeBackoff
	if base <= 0 {
		base = 5 * time.Second
	}
	max := cfg.MaxBackoff
	if max <= 0 {
		max = 5 * time.Minute
	}

	return &Registry{
		entries:     make(map[string]*entry),
		threshold:   threshold,
		baseBackoff: base,
		maxBackoff:  max,
		logger:      logger,
		now:         time.Now,
	}
}

// Register adds a provider. Names must be unique.
func (r *Registry) Register(desc domain.ProviderDescriptor, p domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicateProvider, desc.Name)
	}

	r.entries[desc.Name] = &entry{
		desc:     desc,
		provider: p,
		state:    domain.HealthUnknown,
	}
	r.logger.Info("provider registered", "provider", desc.Name, "priority", desc.Priority)
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (domain.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrProviderNotFound, name)
	}
	return e.provider, nil
}

// RecordSuccess marks a successful call: the provider becomes healthy and
// its failure count and backoff reset.
func (r *Registry) RecordSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.state = domain.HealthHealthy
	e.failures = 0
	e.latency = latency
	e.lastErr = ""
	e.backoff = 0
	e.backoffUntil = time.Time{}
}

// RecordFailure marks a failed call. Reaching the consecutive-failure
// threshold transitions the provider to unavailable and schedules an
// exponentially growing backoff before the next re-probe.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.failures++
	if err != nil {
		e.lastErr = err.Error()
	}

	if e.failures >= r.threshold {
		if e.backoff == 0 {
			e.backoff = r.baseBackoff
		} else {
			e.backoff *= 2
			if e.backoff > r.maxBackoff {
				e.backoff = r.maxBackoff
			}
		}
		e.state = domain.HealthUnavailable
		e.backoffUntil = r.now().Add(e.backoff)
		e.failures = 0
		r.logger.Warn("provider unavailable",
			"provider", name,
			"backoff", e.backoff,
			"error", e.lastErr,
		)
		return
	}

	e.state = domain.HealthDegraded
	r.logger.Debug("provider degraded", "provider", name, "failures", e.failures)
}

// HealthyByPriority returns dispatchable providers (healthy, degraded, or
// never probed) in ascending priority order. At equal priority healthy
// providers come before never-probed ones, degraded last; remaining ties are
// name-lexicographic. Unavailable providers whose backoff has elapsed flip
// to unknown here, so the probe loop can pick them up.
func (r *Registry) HealthyByPriority() []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]Candidate, 0, len(r.entries))
	for name, e := range r.entries {
		if e.state == domain.HealthUnavailable && !now.Before(e.backoffUntil) {
			e.state = domain.HealthUnknown
		}
		switch e.state {
		case domain.HealthHealthy, domain.HealthDegraded:
		case domain.HealthUnknown:
			// Never-probed providers are dispatchable; the first real call
			// settles their state.
			if !e.lastProbe.IsZero() {
				continue
			}
		default:
			continue
		}
		out = append(out, Candidate{
			Name:     name,
			Priority: e.desc.Priority,
			State:    e.state,
			Provider: e.provider,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if ri, rj := dispatchRank(out[i].State), dispatchRank(out[j].State); ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// dispatchRank orders equal-priority candidates: healthy first, never-probed
// next, degraded last.
func dispatchRank(s domain.HealthState) int {
	switch s {
	case domain.HealthHealthy:
		return 0
	case domain.HealthUnknown:
		return 1
	default:
		return 2
	}
}

// Probe pings one provider and records the outcome.
func (r *Registry) Probe(ctx context.Context, name string) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return domain.NewDomainError("Registry.Probe", domain.ErrProviderNotFound, name)
	}

	start := r.now()
	err := e.provider.Ping(ctx)

	r.mu.Lock()
	e.lastProbe = r.now()
	r.mu.Unlock()

	if err != nil {
		r.RecordFailure(name, err)
		return err
	}
	r.RecordSuccess(name, r.now().Sub(start))
	return nil
}

// probeDue returns names of providers awaiting a probe: unknown ones and
// unavailable ones whose backoff has elapsed.
func (r *Registry) probeDue() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var due []string
	for name, e := range r.entries {
		if e.state == domain.HealthUnavailable && !now.Before(e.backoffUntil) {
			e.state = domain.HealthUnknown
		}
		if e.state == domain.HealthUnknown {
			due = append(due, name)
		}
	}
	sort.Strings(due)
	return due
}

// ProbeLoop periodically re-probes providers that are due. It blocks until
// ctx is cancelled; run it in a goroutine.
func (r *Registry) ProbeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, name := range r.probeDue() {
				probeCtx, cancel := context.WithTimeout(ctx, interval)
				if err := r.Probe(probeCtx, name); err != nil {
					r.logger.Debug("probe failed", "provider", name, "error", err)
				}
				cancel()
			}
		}
	}
}

// Snapshot returns a point-in-time status for every registered provider,
// sorted by priority.
func (r *Registry) Snapshot() []domain.ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProviderStatus, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, domain.ProviderStatus{
			Name:                name,
			Priority:            e.desc.Priority,
			State:               e.state,
			ConsecutiveFailures: e.failures,
			Latency:             e.latency,
			LastProbe:           e.lastProbe,
			LastError:           e.lastErr,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
