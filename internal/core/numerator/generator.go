package numerator

import (
	"context"
	"time"
)

// Generator allocates sequential form numbers.
//
// Implementations must allocate inside the caller's transaction (so a rolled
// back create does not consume a number) and must be gap-free per key.
type Generator interface {
	// GetNextNumber returns the next formatted number for cfg and period.
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}
