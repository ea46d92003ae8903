package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/playops-hq/playops-engine/internal/session"
)

// Cleaner handles periodic removal of abandoned open sessions
type Cleaner struct {
	manager   session.Manager
	interval  time.Duration
	retention time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(manager session.Manager, interval, retention time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	return &Cleaner{
		manager:   manager,
		interval:  interval,
		retention: retention,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "retention", c.retention)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup finds and removes open sessions older than the retention window.
// Finished sessions are never touched; they back proof receipts.
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	cutoff := time.Now().Add(-c.retention)
	stale, err := c.manager.GetStale(ctx, cutoff)
	if err != nil {
		slog.Error("failed to get stale sessions", "error", err)
		return
	}

	if len(stale) == 0 {
		slog.Debug("no stale sessions found")
		return
	}

	slog.Info("found stale sessions", "count", len(stale))

	for _, s := range stale {
		slog.Info("deleting stale session",
			"id", s.ID,
			"user", s.UserID,
			"runtime", s.RuntimeID,
			"started_at", s.StartedAt,
		)

		if err := c.manager.Delete(ctx, s.ID); err != nil {
			slog.Error("failed to delete stale session",
				"error", err,
				"id", s.ID,
			)
			continue
		}
	}
}
