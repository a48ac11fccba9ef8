package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHealthCheckAll(t *testing.T) {
	down := errors.New("connection refused")

	r := NewRegistry()
	r.Register("postgres", CheckFunc(func(context.Context) error { return nil }))
	r.Register("redis", CheckFunc(func(context.Context) error { return down }))

	if diff := cmp.Diff([]string{"postgres", "redis"}, r.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	results := r.HealthCheckAll(context.Background())
	if results["postgres"] != nil {
		t.Errorf("postgres: unexpected error %v", results["postgres"])
	}
	if !errors.Is(results["redis"], down) {
		t.Errorf("redis: got %v, want %v", results["redis"], down)
	}
	if Healthy(results) {
		t.Error("expected unhealthy")
	}

	r.Unregister("redis")
	if !Healthy(r.HealthCheckAll(context.Background())) {
		t.Error("expected healthy after removing redis")
	}
}

func TestHealthCheckTimeout(t *testing.T) {
	r := NewRegistry()
	r.timeout = 0
	r.Register("slow", CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	results := r.HealthCheckAll(context.Background())
	if !errors.Is(results["slow"], context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", results["slow"])
	}
}
