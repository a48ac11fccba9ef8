package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Channel is the Postgres NOTIFY channel fired by the pages trigger
const Channel = "content_changed"

// Invalidator drops cached pages
type Invalidator interface {
	Invalidate(ctx context.Context, slug string) error
	Purge(ctx context.Context) (int, error)
}

// Listener invalidates rendered pages when the CMS changes them
type Listener struct {
	dsn          string
	cache        Invalidator
	pingInterval time.Duration
	onChange     func(slug string)
}

// NewListener creates a listener for the content_changed channel
func NewListener(dsn string, cache Invalidator) *Listener {
	return &Listener{
		dsn:          dsn,
		cache:        cache,
		pingInterval: 90 * time.Second,
	}
}

// OnChange registers a callback run after each invalidation. Empty slug means all pages.
func (l *Listener) OnChange(fn func(slug string)) {
	l.onChange = fn
}

// Run listens until ctx is cancelled
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("content listener connection failed", "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("content listener reconnected")
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	slog.Info("content listener started", "channel", Channel)

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("content listener stopped")
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect: notifications may have been missed
			payload := ""
			if n != nil {
				payload = n.Extra
			}
			l.Handle(ctx, payload)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				slog.Warn("content listener ping failed", "error", err)
			}
		}
	}
}

// Handle applies one notification payload
func (l *Listener) Handle(ctx context.Context, slug string) {
	if slug == "" {
		if _, err := l.cache.Purge(ctx); err != nil {
			slog.Error("failed to purge page cache", "error", err)
			return
		}
	} else {
		if err := l.cache.Invalidate(ctx, slug); err != nil {
			slog.Error("failed to invalidate page", "slug", slug, "error", err)
			return
		}
		slog.Debug("page invalidated", "slug", slug)
	}

	if l.onChange != nil {
		l.onChange(slug)
	}
}
