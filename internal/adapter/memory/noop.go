package memory

import (
	"context"

	"ald-01/internal/domain"
)

// NoopStore discards all records. Used when persistence is disabled.
type NoopStore struct{}

// Compile-time interface assertion.
var _ domain.MemoryStore = (*NoopStore)(nil)

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (*NoopStore) Store(context.Context, domain.SessionRecord) error { return nil }

func (*NoopStore) Recent(context.Context, int) ([]domain.SessionRecord, error) {
	return nil, nil
}

func (*NoopStore) Close() error { return nil }
