// Package ledger implements the durable alert history: an append-only log
// of alert events with acknowledgement state, backed by DuckDB.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"tagwatch/internal/errors"
	"tagwatch/internal/types"
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS alert_events_seq START 1;

-- No PRIMARY KEY on id: DuckDB runs UPDATE as delete+insert and re-checks
-- the ART index, so acknowledging a PK-indexed row fails with a duplicate
-- key error. The sequence default already guarantees unique monotonic ids.
CREATE TABLE IF NOT EXISTS alert_events (
	id                 BIGINT DEFAULT nextval('alert_events_seq'),
	rule_id            VARCHAR NOT NULL,
	timestamp_ms       BIGINT NOT NULL,
	tag_ref            VARCHAR NOT NULL,
	trigger_value      DOUBLE NOT NULL,
	severity           VARCHAR NOT NULL,
	message            VARCHAR NOT NULL,
	acknowledged       BOOLEAN NOT NULL DEFAULT FALSE,
	acknowledged_at_ms BIGINT,
	acknowledged_by    VARCHAR
);

CREATE INDEX IF NOT EXISTS idx_alert_events_id ON alert_events (id);
CREATE INDEX IF NOT EXISTS idx_alert_events_ts ON alert_events (timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_alert_events_sev_ack ON alert_events (severity, acknowledged);
`

// Ledger is the alert event store. Ids are assigned by a database sequence
// at insert and increase monotonically. Events are mutated only by
// acknowledgement and bulk-deleted by ClearHistory.
type Ledger struct {
	mu sync.RWMutex

	db       *sql.DB
	pageSize int

	// Statistics
	stats Stats
}

// Stats holds ledger statistics.
type Stats struct {
	Inserted     int64
	Queries      int64
	Acknowledged int64
	Errors       int64
}

// Options configures a Ledger.
type Options struct {
	// Path is the DuckDB database file; empty or ":memory:" keeps the
	// ledger in memory.
	Path string

	// PageSize is the default query limit; 0 uses 100.
	PageSize int
}

// Open opens (and migrates) the ledger database.
func Open(opts Options) (*Ledger, error) {
	path := opts.Path
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Ledger{db: db, pageSize: pageSize}, nil
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Insert appends an event and returns it with its assigned id.
func (l *Ledger) Insert(ctx context.Context, ev types.AlertEvent) (types.AlertEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := l.db.QueryRowContext(ctx, `
		INSERT INTO alert_events
			(rule_id, timestamp_ms, tag_ref, trigger_value, severity, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		ev.RuleID, ev.TimestampMs, ev.TagRef, ev.TriggerValue, string(ev.Severity), ev.Message,
	)

	if err := row.Scan(&ev.ID); err != nil {
		l.stats.Errors++
		return types.AlertEvent{}, errors.Wrap(err, "insert event")
	}

	ev.Acknowledged = false
	ev.AcknowledgedAtMs = nil
	ev.AcknowledgedBy = ""

	l.stats.Inserted++
	return ev, nil
}

// buildWhere renders the filter into a WHERE clause and its arguments.
func buildWhere(f types.EventFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}
	if f.Acknowledged != nil {
		add("acknowledged = $%d", *f.Acknowledged)
	}
	if f.StartMs > 0 {
		add("timestamp_ms >= $%d", f.StartMs)
	}
	if f.EndMs > 0 {
		add("timestamp_ms <= $%d", f.EndMs)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns one page of events matching the filter, newest first.
func (l *Ledger) Query(ctx context.Context, f types.EventFilter) (types.EventPage, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	where, args := buildWhere(f)

	var total int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_events"+where, args...).Scan(&total); err != nil {
		l.stats.Errors++
		return types.EventPage{}, errors.Wrap(err, "count events")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = l.pageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT id, rule_id, timestamp_ms, tag_ref, trigger_value, severity,
		       message, acknowledged, acknowledged_at_ms, acknowledged_by
		FROM alert_events%s
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.stats.Errors++
		return types.EventPage{}, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		l.stats.Errors++
		return types.EventPage{}, err
	}

	l.stats.Queries++
	return types.EventPage{
		Events:  events,
		Total:   total,
		HasMore: int64(offset+len(events)) < total,
	}, nil
}

func scanEvents(rows *sql.Rows) ([]types.AlertEvent, error) {
	var events []types.AlertEvent

	for rows.Next() {
		var ev types.AlertEvent
		var severity string
		var ackAt sql.NullInt64
		var ackBy sql.NullString

		err := rows.Scan(
			&ev.ID, &ev.RuleID, &ev.TimestampMs, &ev.TagRef, &ev.TriggerValue,
			&severity, &ev.Message, &ev.Acknowledged, &ackAt, &ackBy,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan event")
		}

		ev.Severity = types.Severity(severity)
		if ackAt.Valid {
			v := ackAt.Int64
			ev.AcknowledgedAtMs = &v
		}
		if ackBy.Valid {
			ev.AcknowledgedBy = ackBy.String
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

// Get returns a single event by id.
func (l *Ledger) Get(ctx context.Context, id int64) (types.AlertEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, rule_id, timestamp_ms, tag_ref, trigger_value, severity,
		       message, acknowledged, acknowledged_at_ms, acknowledged_by
		FROM alert_events WHERE id = $1`, id)
	if err != nil {
		return types.AlertEvent{}, errors.Wrap(err, "get event")
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return types.AlertEvent{}, err
	}
	if len(events) == 0 {
		return types.AlertEvent{}, errors.NewEventNotFound(id)
	}
	return events[0], nil
}

// Acknowledge marks an event acknowledged. It is idempotent: re-acknowledging
// an already-acknowledged event succeeds and keeps the original timestamp
// and acknowledger. The acknowledger is stored as a string, never NULL, so
// an anonymous first acknowledgement still wins.
func (l *Ledger) Acknowledge(ctx context.Context, id int64, by string, atMs int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.db.ExecContext(ctx, `
		UPDATE alert_events
		SET acknowledged = TRUE,
		    acknowledged_at_ms = COALESCE(acknowledged_at_ms, $1),
		    acknowledged_by = COALESCE(acknowledged_by, $2)
		WHERE id = $3`,
		atMs, by, id,
	)
	if err != nil {
		l.stats.Errors++
		return errors.Wrap(err, "acknowledge event")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "acknowledge event")
	}
	if n == 0 {
		return errors.NewEventNotFound(id)
	}

	l.stats.Acknowledged++
	return nil
}

// AcknowledgeAll acknowledges every unacknowledged event, optionally
// restricted to one severity. Returns the number of events acknowledged.
func (l *Ledger) AcknowledgeAll(ctx context.Context, severity types.Severity, by string, atMs int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
		UPDATE alert_events
		SET acknowledged = TRUE, acknowledged_at_ms = $1, acknowledged_by = $2
		WHERE acknowledged = FALSE`
	args := []interface{}{atMs, by}

	if severity != "" {
		query += " AND severity = $3"
		args = append(args, string(severity))
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		l.stats.Errors++
		return 0, errors.Wrap(err, "acknowledge all")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "acknowledge all")
	}

	l.stats.Acknowledged += n
	return n, nil
}

// UnacknowledgedCounts returns the number of unacknowledged events per
// severity. Severities with no pending events are absent from the map.
func (l *Ledger) UnacknowledgedCounts(ctx context.Context) (map[types.Severity]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT severity, COUNT(*)
		FROM alert_events
		WHERE acknowledged = FALSE
		GROUP BY severity`)
	if err != nil {
		l.stats.Errors++
		return nil, errors.Wrap(err, "count unacknowledged")
	}
	defer rows.Close()

	counts := make(map[types.Severity]int64)
	for rows.Next() {
		var severity string
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		counts[types.Severity(severity)] = count
	}

	return counts, rows.Err()
}

// ClearHistory deletes events, optionally only those triggered before
// beforeMs (0 clears everything). Returns the number deleted.
func (l *Ledger) ClearHistory(ctx context.Context, beforeMs int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := "DELETE FROM alert_events"
	var args []interface{}
	if beforeMs > 0 {
		query += " WHERE timestamp_ms < $1"
		args = append(args, beforeMs)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		l.stats.Errors++
		return 0, errors.Wrap(err, "clear history")
	}

	return res.RowsAffected()
}

// Stats returns ledger statistics.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}
