package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"ald-01/internal/domain"
	"ald-01/internal/infra/tracer"
)

// Dispatcher routes completion requests across healthy providers in priority
// order, failing over on error. A fresh health snapshot is taken per dispatch
// so recovering providers rejoin immediately.
type Dispatcher struct {
	registry       *Registry
	attemptTimeout time.Duration
	limiters       map[string]*rate.Limiter
	logger         *slog.Logger
}

// NewDispatcher creates a dispatcher over the registry.
// attemptTimeout bounds each single provider attempt; 0 means 60s.
func NewDispatcher(registry *Registry, attemptTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if attemptTimeout <= 0 {
		attemptTimeout = 60 * time.Second
	}
	return &Dispatcher{
		registry:       registry,
		attemptTimeout: attemptTimeout,
		limiters:       make(map[string]*rate.Limiter),
		logger:         logger,
	}
}

// SetRateLimit installs a client-side request rate limit for a provider.
// rps <= 0 removes the limit. Call during wiring, before Dispatch is used.
func (d *Dispatcher) SetRateLimit(providerName string, rps float64, burst int) {
	if rps <= 0 {
		delete(d.limiters, providerName)
		return
	}
	if burst < 1 {
		burst = 1
	}
	d.limiters[providerName] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Dispatch sends the request to the first provider that answers, walking
// healthy providers in priority order. preferred, when set and healthy, is
// tried first. Per-attempt failures are reported to the registry; timeouts
// and errors both count. Rate-limited providers are skipped for this call
// without a failure mark.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.CompletionRequest, preferred string) (*domain.CompletionResponse, error) {
	const op = "Dispatcher.Dispatch"

	ctx, span := tracer.StartSpan(ctx, "provider.dispatch",
		trace.WithAttributes(tracer.StringAttr("llm.preferred", preferred)),
	)
	defer span.End()

	candidates := d.registry.HealthyByPriority()
	if len(candidates) == 0 {
		// The caller sees exhaustion whether the candidate list was empty or
		// every attempt failed.
		err := domain.NewDomainError(op, domain.ErrFailoverExhausted, "no dispatchable providers")
		tracer.RecordError(span, err)
		return nil, err
	}
	candidates = promotePreferred(candidates, preferred)

	var attemptErrs []string
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			cancelled := domain.NewDomainError(op, domain.ErrSessionCancelled, err.Error())
			tracer.RecordError(span, cancelled)
			return nil, cancelled
		}

		if lim, ok := d.limiters[cand.Name]; ok && !lim.Allow() {
			d.logger.Debug("provider rate limited, skipping", "provider", cand.Name)
			attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %v", cand.Name, domain.ErrRateLimit))
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
		start := time.Now()
		resp, err := cand.Provider.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			latency := time.Since(start)
			d.registry.RecordSuccess(cand.Name, latency)
			resp.Provider = cand.Name
			span.SetAttributes(tracer.StringAttr("llm.provider", cand.Name))
			tracer.SetOK(span)
			return resp, nil
		}

		// The parent context dying is cancellation, not provider failure.
		if ctx.Err() != nil {
			cancelled := domain.NewDomainError(op, domain.ErrSessionCancelled, ctx.Err().Error())
			tracer.RecordError(span, cancelled)
			return nil, cancelled
		}

		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: after %s", domain.ErrProviderTimeout, d.attemptTimeout)
		}
		d.registry.RecordFailure(cand.Name, err)
		d.logger.Warn("provider attempt failed, trying next",
			"provider", cand.Name, "error", err)
		attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %v", cand.Name, err))
	}

	exhausted := domain.NewDomainError(op, domain.ErrFailoverExhausted,
		"["+strings.Join(attemptErrs, "; ")+"]")
	tracer.RecordError(span, exhausted)
	return nil, exhausted
}

// promotePreferred moves the preferred candidate to the front, keeping the
// priority order of the rest.
func promotePreferred(candidates []Candidate, preferred string) []Candidate {
	if preferred == "" {
		return candidates
	}
	for i, c := range candidates {
		if c.Name == preferred && i > 0 {
			reordered := make([]Candidate, 0, len(candidates))
			reordered = append(reordered, c)
			reordered = append(reordered, candidates[:i]...)
			reordered = append(reordered, candidates[i+1:]...)
			return reordered
		}
	}
	return candidates
}
