package leads

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DispatchResult counts the outcome of one dispatch cycle
type DispatchResult struct {
	Attempted int `json:"attempted"`
	Forwarded int `json:"forwarded"`
	Failed    int `json:"failed"`
}

// Dispatcher periodically retries forwarding of pending leads
type Dispatcher struct {
	service   *Service
	interval  time.Duration
	batchSize int
}

// NewDispatcher creates a new lead dispatch worker
func NewDispatcher(service *Service, interval time.Duration, batchSize int) *Dispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	return &Dispatcher{
		service:   service,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run dispatches on every tick until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.service.forwarder == nil || !d.service.forwarder.Enabled() {
		slog.Info("lead dispatcher disabled, no webhook configured")
		<-ctx.Done()
		return nil
	}

	slog.Info("lead dispatcher started", "interval", d.interval, "batch_size", d.batchSize)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Run immediately on start
	d.dispatchLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("lead dispatcher stopped")
			return nil
		case <-ticker.C:
			d.dispatchLogged(ctx)
		}
	}
}

func (d *Dispatcher) dispatchLogged(ctx context.Context) {
	if _, err := d.Dispatch(ctx); err != nil {
		slog.Error("lead dispatch failed", "error", err)
	}
}

// Dispatch forwards one batch of pending leads
func (d *Dispatcher) Dispatch(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult

	if d.service.forwarder == nil || !d.service.forwarder.Enabled() {
		return result, ErrWebhookDisabled
	}

	pending, err := d.service.store.ClaimPendingLeads(ctx, d.batchSize, claimLease)
	if err != nil {
		return result, fmt.Errorf("failed to claim pending leads: %w", err)
	}

	if len(pending) == 0 {
		slog.Debug("no pending leads")
		return result, nil
	}

	for _, lead := range pending {
		if ctx.Err() != nil {
			break
		}
		result.Attempted++
		if d.service.deliver(ctx, lead) {
			result.Forwarded++
		} else {
			result.Failed++
		}
	}

	slog.Info("lead dispatch cycle finished",
		"attempted", result.Attempted,
		"forwarded", result.Forwarded,
		"failed", result.Failed,
	)

	return result, nil
}
