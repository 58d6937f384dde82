// Package ratelimit implements the fixed-window request limiter guarding
// the club's sensitive endpoints. Budgets are per (client address, path)
// pair; routes outside the policy table are never consulted.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy is the static budget for one protected route.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicies returns the route policy table. There is no shared
// global budget; each route meters independently.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"/api/checkout":        {MaxRequests: 5, Window: 10 * time.Minute},
		"/api/admin/setup":     {MaxRequests: 3, Window: 60 * time.Minute},
		"/api/bookings/cancel": {MaxRequests: 10, Window: 5 * time.Minute},
	}
}

// Ledger stores fixed-window counters. Take observes one request against
// the key's window and reports whether it is within budget.
type Ledger interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Limiter composes a ledger with the route policy table.
type Limiter struct {
	ledger   Ledger
	policies map[string]Policy
	logger   *zap.Logger
}

func NewLimiter(ledger Ledger, policies map[string]Policy, logger *zap.Logger) *Limiter {
	return &Limiter{
		ledger:   ledger,
		policies: policies,
		logger:   logger,
	}
}

// Check reports whether a request from clientKey to path is within
// budget. It never fails: an unconfigured path is always allowed, and a
// ledger error logs and fails open rather than rejecting traffic.
func (l *Limiter) Check(ctx context.Context, clientKey, path string) bool {
	policy, ok := l.policies[path]
	if !ok {
		return true
	}

	allowed, err := l.ledger.Take(ctx, clientKey+":"+path, policy.MaxRequests, policy.Window)
	if err != nil {
		l.logger.Warn("Rate limit ledger unavailable, allowing request",
			zap.String("path", path),
			zap.Error(err))
		return true
	}
	return allowed
}

// Reset clears the window for one (clientKey, path) pair.
func (l *Limiter) Reset(ctx context.Context, clientKey, path string) error {
	return l.ledger.Reset(ctx, clientKey+":"+path)
}

// ClientKey extracts a best-effort client identifier: the first address
// in X-Forwarded-For, else the remote address host, else "unknown". It
// is spoofable by any client that controls its own headers and must not
// be treated as trustworthy.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
