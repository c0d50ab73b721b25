package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenum "backoffice/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences: one counter per key.
type mockQuerier struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{counters: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}
	key := args[0].(string)
	if len(args) == 2 {
		m.counters[key] = args[1].(int64)
	} else {
		m.counters[key]++
	}
	return &mockRow{val: m.counters[key]}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	period := time.Date(2021, time.January, 20, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, corenum.DefaultConfig("SC"), period)
	require.NoError(t, err)
	assert.Equal(t, "SC2101001", num)

	num, err = svc.GetNextNumber(ctx, corenum.DefaultConfig("SC"), period)
	require.NoError(t, err)
	assert.Equal(t, "SC2101002", num)

	num, err = svc.GetNextNumber(ctx, corenum.DefaultConfig("SI"), period)
	require.NoError(t, err)
	assert.Equal(t, "SI2101001", num)
}

func TestSetNextNumber(t *testing.T) {
	q := newMockQuerier()
	svc := NewWithProvider(ProviderFunc(func(context.Context) Querier { return q }))
	ctx := context.Background()
	period := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	cfg := corenum.DefaultConfig("SI")

	require.NoError(t, svc.SetNextNumber(ctx, cfg, period, int64(41)))

	num, err := svc.GetNextNumber(ctx, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "SI2103042", num)
}

func TestGetNextNumber_WrapsError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := New(q)

	_, err := svc.GetNextNumber(context.Background(), corenum.DefaultConfig("SC"), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next number SC")
}
