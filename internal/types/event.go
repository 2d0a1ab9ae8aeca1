package types

import "time"

// AlertEvent is one row of the alert history ledger.
// ID is assigned by the ledger at insert and increases monotonically.
// Events are mutated only by acknowledgement and bulk-deleted on clear.
type AlertEvent struct {
	ID           int64    `json:"id"`
	RuleID       string   `json:"ruleId"`
	TimestampMs  int64    `json:"timestamp"`
	TagRef       string   `json:"tagRef"`
	TriggerValue float64  `json:"triggerValue"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`

	Acknowledged     bool   `json:"acknowledged"`
	AcknowledgedAtMs *int64 `json:"acknowledgedAt,omitempty"`
	AcknowledgedBy   string `json:"acknowledgedBy,omitempty"`
}

// TimestampTime returns the trigger time as a time.Time.
func (e *AlertEvent) TimestampTime() time.Time {
	return time.UnixMilli(e.TimestampMs)
}

// EventFilter narrows a ledger query. Zero-value fields are ignored.
type EventFilter struct {
	// Severity filters to a single severity when non-empty.
	Severity Severity

	// Acknowledged filters on acknowledgement state when non-nil.
	Acknowledged *bool

	// StartMs/EndMs bound the trigger timestamp (inclusive); 0 = unbounded.
	StartMs int64
	EndMs   int64

	// Limit caps returned events; 0 uses the ledger default.
	Limit int

	// Offset skips events for pagination.
	Offset int
}

// EventPage is one page of ledger query results.
type EventPage struct {
	Events  []AlertEvent `json:"events"`
	Total   int64        `json:"total"`
	HasMore bool         `json:"hasMore"`
}
