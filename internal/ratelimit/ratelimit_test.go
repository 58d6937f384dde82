package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time          { return c.current }
func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLedger(clock *fakeClock) *MemoryLedger {
	return NewMemoryLedger(WithClock(clock.Now), WithSweepChance(0))
}

func TestMemoryLedgerWindowExhaustion(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := newTestLedger(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := ledger.Take(ctx, "1.2.3.4:/api/checkout", 5, 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be within budget", i+1)
	}

	allowed, err := ledger.Take(ctx, "1.2.3.4:/api/checkout", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "sixth request should be denied")
}

func TestMemoryLedgerDeniedRequestsDoNotExtendWindow(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := newTestLedger(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := ledger.Take(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, allowed)
	}

	// Hammer the denied key; the window must still end on schedule
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
		allowed, err := ledger.Take(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	}

	clock.Advance(10 * time.Second) // past the original minute
	allowed, err := ledger.Take(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "window should reset from first allowed request, not last denied one")
}

func TestMemoryLedgerResetAtBoundaryStartsNewWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: start}
	ledger := newTestLedger(clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := ledger.Take(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	// Arriving at exactly resetAt belongs to the next window
	clock.current = start.Add(time.Minute)
	allowed, err := ledger.Take(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLedgerKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := newTestLedger(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := ledger.Take(ctx, "1.2.3.4:/api/admin/setup", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := ledger.Take(ctx, "1.2.3.4:/api/admin/setup", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Different client, same path
	allowed, err = ledger.Take(ctx, "5.6.7.8:/api/admin/setup", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Same client, different path
	allowed, err = ledger.Take(ctx, "1.2.3.4:/api/checkout", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLedgerReset(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := newTestLedger(clock)
	ctx := context.Background()

	allowed, err := ledger.Take(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = ledger.Take(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, ledger.Reset(ctx, "k"))

	allowed, err = ledger.Take(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLedgerSweepRemovesExpiredEntries(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewMemoryLedger(WithClock(clock.Now), WithSweepChance(1))
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := ledger.Take(ctx, key, 5, time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ledger.Len())

	clock.Advance(2 * time.Minute)

	// Any call past the windows triggers the sweep and drops stragglers
	_, err := ledger.Take(ctx, "d", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.Len())
}

func TestLimiterUnconfiguredPathAlwaysAllowed(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(newTestLedger(clock), DefaultPolicies(), zap.NewNop())

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Check(context.Background(), "1.2.3.4", "/api/unmetered"))
	}
}

type failingLedger struct{}

func (failingLedger) Take(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("ledger unavailable")
}
func (failingLedger) Reset(context.Context, string) error { return nil }

func TestLimiterFailsOpenOnLedgerError(t *testing.T) {
	limiter := NewLimiter(failingLedger{}, DefaultPolicies(), zap.NewNop())
	assert.True(t, limiter.Check(context.Background(), "1.2.3.4", "/api/checkout"))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		expected   string
	}{
		{"forwarded single", "10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain uses first", "10.0.0.1:1234", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"remote addr host", "198.51.100.4:5678", "", "198.51.100.4"},
		{"remote addr without port", "198.51.100.4", "", "198.51.100.4"},
		{"no information", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/checkout", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.expected, ClientKey(r))
		})
	}
}
