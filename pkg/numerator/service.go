// Package numerator provides the PostgreSQL-backed form numbering service.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenum "backoffice/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierProvider resolves the querier bound to ctx (the active
// transaction when there is one).
type QuerierProvider interface {
	QuerierFor(ctx context.Context) Querier
}

// ProviderFunc adapts a function to QuerierProvider.
type ProviderFunc func(ctx context.Context) Querier

// QuerierFor implements QuerierProvider.
func (f ProviderFunc) QuerierFor(ctx context.Context) Querier { return f(ctx) }

// Service allocates strictly sequential numbers from sys_sequences.
// It must be called inside the business transaction: the UPSERT row lock
// serializes concurrent creators and a rollback releases the number.
type Service struct {
	provider QuerierProvider
}

// New creates a numerator using a fixed querier.
func New(q Querier) *Service {
	return &Service{provider: ProviderFunc(func(context.Context) Querier { return q })}
}

// NewWithProvider creates a numerator that resolves its querier per call.
func NewWithProvider(p QuerierProvider) *Service {
	return &Service{provider: p}
}

// GetNextNumber implements numerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenum.Config, period time.Time) (string, error) {
	if s == nil || s.provider == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	var num int64
	err := s.provider.QuerierFor(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, cfg.Key(period)).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number %s: %w", cfg.Prefix, err)
	}

	return cfg.Format(period, num), nil
}

// SetNextNumber sets the counter so the next allocation returns value+1
// (for data migration).
func (s *Service) SetNextNumber(ctx context.Context, cfg corenum.Config, period time.Time, value int64) error {
	var result int64
	err := s.provider.QuerierFor(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, cfg.Key(period), value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set next number %s: %w", cfg.Prefix, err)
	}
	return nil
}

var _ corenum.Generator = (*Service)(nil)
