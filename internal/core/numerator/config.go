// Package numerator provides domain contracts for form auto-numbering.
package numerator

import (
	"fmt"
	"time"
)

// ResetPeriod controls when the running counter restarts.
type ResetPeriod string

const (
	ResetMonthly ResetPeriod = "month"
	ResetYearly  ResetPeriod = "year"
	ResetNever   ResetPeriod = "never"
)

// Config holds numbering configuration for one document type.
type Config struct {
	// Prefix added to all numbers (e.g. "SC", "SI")
	Prefix string

	// PadWidth is the minimum counter width (default 3)
	PadWidth int

	// ResetPeriod defaults to monthly
	ResetPeriod ResetPeriod
}

// DefaultConfig returns the monthly PREFIX+YYMM+NNN scheme.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		PadWidth:    3,
		ResetPeriod: ResetMonthly,
	}
}

// Key returns the sequence key the counter is stored under.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case ResetYearly:
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006"))
	case ResetNever:
		return c.Prefix
	default:
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006_01"))
	}
}

// Format renders the final form number, e.g. SC2101001.
func (c Config) Format(period time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 3
	}
	return fmt.Sprintf("%s%s%0*d", c.Prefix, period.Format("0601"), width, n)
}
