// Package monitor wires the monitoring core together and provides the
// single ingestion surface the external poller calls. Every sample fans out
// to the historical store, the per-tag aggregates, and the alert engine;
// query callers reach each component through the facade.
package monitor

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tagwatch/internal/aggregate"
	"tagwatch/internal/alert"
	"tagwatch/internal/config"
	"tagwatch/internal/dvr"
	"tagwatch/internal/ledger"
	"tagwatch/internal/logging"
	"tagwatch/internal/notify"
	"tagwatch/internal/types"
)

// Core is the monitoring core facade.
//
// Data flow is one-directional: poller -> Core -> {DVR, aggregates, alert
// engine} -> {query callers, ledger, notification sinks}. There are no
// internal background workers; every operation is bounded and synchronous
// with its caller.
type Core struct {
	cfg *config.Config
	log *slog.Logger

	store  *dvr.Store
	agg    *aggregate.Manager
	ledger *ledger.Ledger
	engine *alert.Engine
	events *notify.Emitter
}

// Open builds the core from configuration, restoring the DVR snapshot when
// one exists.
func Open(cfg *config.Config) (*Core, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	led, err := ledger.Open(ledger.Options{
		Path:     cfg.LedgerPath(),
		PageSize: cfg.Ledger.PageSize,
	})
	if err != nil {
		return nil, err
	}

	emitter := notify.NewEmitter()

	c := &Core{
		cfg: cfg,
		log: logging.Component("monitor"),
		store: dvr.New(dvr.Options{
			MaxRows:   cfg.DVR.MaxRows,
			Retention: time.Duration(cfg.DVR.RetentionMinutes) * time.Minute,
		}),
		agg:    aggregate.NewManager(aggregate.DefaultAccuracy),
		ledger: led,
		engine: alert.New(led, emitter),
		events: emitter,
	}

	if cfg.DVR.SnapshotOnClose {
		n, err := c.store.Restore(cfg.SnapshotPath())
		if err != nil && !os.IsNotExist(err) {
			c.log.Warn("restore snapshot", "path", cfg.SnapshotPath(), "error", err)
		} else if n > 0 {
			c.log.Info("snapshot restored", "path", cfg.SnapshotPath(), "samples", n)
		}
	}

	return c, nil
}

// Close snapshots the DVR (when configured) and closes the ledger.
func (c *Core) Close() error {
	if c.cfg.DVR.SnapshotOnClose {
		if err := c.store.Snapshot(c.cfg.SnapshotPath()); err != nil {
			c.log.Error("write snapshot", "path", c.cfg.SnapshotPath(), "error", err)
		}
	}
	return c.ledger.Close()
}

// =============================================================================
// Ingestion surface (called by the polling collaborator)
// =============================================================================

// RecordValue appends a sample to the historical store and feeds the
// per-tag aggregates. Malformed input is logged and dropped; one bad sample
// never aborts ingestion for other tags.
func (c *Core) RecordValue(sample types.Sample) {
	if err := c.store.Insert(sample); err != nil {
		c.log.Warn("drop sample", "tag_id", sample.TagID, "error", err)
		return
	}
	if sample.IsNumeric() {
		c.agg.Observe(sample.TagID, sample.Value, sample.TimestampMs)
	}
}

// ProcessTagValue runs alert evaluation for a tag value, using wall-clock
// now rather than a caller-supplied timestamp.
func (c *Core) ProcessTagValue(tagID string, value float64) {
	c.engine.ProcessTagValue(tagID, value)
}

// ProcessConnectionStatus runs alert evaluation for a connection-status
// change.
func (c *Core) ProcessConnectionStatus(connID string, status types.ConnStatus) {
	c.engine.ProcessConnectionStatus(connID, status)
}

// =============================================================================
// Query surface (consumed by UI/reporting collaborators)
// =============================================================================

// GetRange returns the retained time span of the historical store.
func (c *Core) GetRange() types.RangeInfo {
	return c.store.GetRange()
}

// Seek returns the most recent sample at or before tsMs for each tag.
func (c *Core) Seek(tsMs int64, tagIDs ...string) map[string]types.Sample {
	return c.store.Seek(tsMs, tagIDs...)
}

// Sparkline returns a downsampled series for the tag. A maxPoints <= 0
// falls back to the configured default.
func (c *Core) Sparkline(tagID string, startMs, endMs int64, maxPoints int) (types.Series, error) {
	if maxPoints <= 0 {
		maxPoints = c.cfg.DVR.SparklinePoints
	}
	return c.store.Sparkline(tagID, startMs, endMs, maxPoints)
}

// TagSummary returns running statistics for a tag.
func (c *Core) TagSummary(tagID string) (aggregate.TagSummary, bool) {
	return c.agg.Summary(tagID)
}

// Rules exposes rule CRUD and mute/unmute.
func (c *Core) Rules() *alert.Engine {
	return c.engine
}

// Events exposes the notification subscription surface.
func (c *Core) Events() *notify.Emitter {
	return c.events
}

// Store exposes the historical store (stats, snapshots).
func (c *Core) Store() *dvr.Store {
	return c.store
}

// QueryEvents returns one page of alert history.
func (c *Core) QueryEvents(ctx context.Context, f types.EventFilter) (types.EventPage, error) {
	return c.ledger.Query(ctx, f)
}

// AcknowledgeEvent acknowledges an alert event and notifies subscribers.
// Re-acknowledging an already-acknowledged event still succeeds.
func (c *Core) AcknowledgeEvent(ctx context.Context, eventID int64, by string) error {
	if err := c.ledger.Acknowledge(ctx, eventID, by, time.Now().UnixMilli()); err != nil {
		return err
	}
	c.events.AlertAcknowledged(eventID)
	return nil
}

// AcknowledgeAll acknowledges all pending events, optionally for one
// severity. Returns the number acknowledged.
func (c *Core) AcknowledgeAll(ctx context.Context, severity types.Severity, by string) (int64, error) {
	return c.ledger.AcknowledgeAll(ctx, severity, by, time.Now().UnixMilli())
}

// UnacknowledgedCounts returns pending event counts grouped by severity.
func (c *Core) UnacknowledgedCounts(ctx context.Context) (map[types.Severity]int64, error) {
	return c.ledger.UnacknowledgedCounts(ctx)
}

// ClearHistory deletes alert history, optionally only before beforeMs.
func (c *Core) ClearHistory(ctx context.Context, beforeMs int64) (int64, error) {
	return c.ledger.ClearHistory(ctx, beforeMs)
}
