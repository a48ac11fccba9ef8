// Package services tracks the external dependencies the academy needs to serve traffic.
package services

import (
	"context"
)

// Checker reports the health of one dependency
type Checker interface {
	// HealthCheck returns nil when the dependency is usable
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checker
type CheckFunc func(ctx context.Context) error

// HealthCheck calls f
func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Pinger is implemented by repositories and caches
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker wraps a Pinger as a Checker
func PingChecker(p Pinger) Checker {
	return CheckFunc(p.Ping)
}
