package domain

import (
	"context"
	"time"
)

// HealthState is the registry's view of a provider's availability.
type HealthState int

const (
	// HealthUnknown means the provider has not been probed yet, or its
	// unavailability backoff has elapsed and it awaits a fresh probe.
	HealthUnknown HealthState = iota
	// HealthHealthy means the last call or probe succeeded.
	HealthHealthy
	// HealthDegraded means recent failures occurred but the failure
	// threshold has not been reached. Degraded providers still dispatch.
	HealthDegraded
	// HealthUnavailable means consecutive failures reached the threshold.
	// Unavailable providers are excluded from dispatch until re-probed.
	HealthUnavailable
)

func (s HealthState) String() string {
	switch s {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Provider is the interface every inference backend must implement.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Ping performs a cheap connectivity check without consuming tokens.
	Ping(ctx context.Context) error
	// Name returns the provider's registered name.
	Name() string
}

// ProviderDescriptor is the static registration record for a provider.
type ProviderDescriptor struct {
	Name         string
	BaseURL      string
	Model        string
	Priority     int // lower dispatches first
	Capabilities []string
}

// ProviderStatus is a point-in-time health snapshot reported by the registry.
type ProviderStatus struct {
	Name                string
	Priority            int
	State               HealthState
	ConsecutiveFailures int
	Latency             time.Duration
	LastProbe           time.Time
	LastError           string
}
