// Package alert implements the rule-evaluation engine: user-defined
// threshold, range, and rate-of-change rules over the live value stream,
// plus connection-status rules, with hold/cooldown/mute semantics backed by
// the durable alert history ledger.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"tagwatch/internal/ledger"
	"tagwatch/internal/logging"
	"tagwatch/internal/notify"
	"tagwatch/internal/types"
)

// Engine holds rule definitions, their runtime evaluation state, and the
// muted set. It consumes tag-value and connection-status updates, writes
// fired events to the ledger, and emits notifications through the emitter.
//
// Evaluation is synchronous with the caller and a rule's state update is
// never observable half-done: all state lives behind one mutex, and emitter
// callbacks run after the lock is released.
type Engine struct {
	mu    sync.Mutex
	rules map[string]types.AlertRule
	state map[string]*ruleState
	muted map[string]struct{}

	ledger *ledger.Ledger
	events *notify.Emitter
	log    *slog.Logger

	// now is the wall clock; replaceable in tests.
	now func() time.Time
}

// New creates an Engine writing to the given ledger and emitter.
func New(l *ledger.Ledger, em *notify.Emitter) *Engine {
	return &Engine{
		rules:  make(map[string]types.AlertRule),
		state:  make(map[string]*ruleState),
		muted:  make(map[string]struct{}),
		ledger: l,
		events: em,
		log:    logging.Component("alert"),
		now:    time.Now,
	}
}

// firing is a fired rule's outbound work, dispatched after the engine lock
// is released.
type firing struct {
	event        types.AlertEvent
	notification bool
	sound        bool
}

// ProcessTagValue evaluates every enabled value rule bound to the tag
// against the incoming value, using the wall clock as the evaluation time.
func (e *Engine) ProcessTagValue(tagID string, value float64) {
	nowMs := e.now().UnixMilli()

	e.mu.Lock()
	var firings []firing
	for id, rule := range e.rules {
		if !rule.Enabled || rule.Source == types.SourceConnection || rule.TagRef != tagID {
			continue
		}

		st := e.state[id]
		st.appendValue(nowMs, value)

		if !evalCondition(&rule.Condition, value, nowMs, st) {
			// Any single failing sample cancels an in-progress hold.
			st.conditionMetSinceMs = 0
			continue
		}

		if st.conditionMetSinceMs == 0 {
			st.conditionMetSinceMs = nowMs
		}
		if nowMs-st.conditionMetSinceMs < int64(rule.Condition.DurationSeconds)*1000 {
			continue
		}
		if st.lastTriggeredAtMs != 0 && nowMs-st.lastTriggeredAtMs < int64(rule.CooldownSeconds)*1000 {
			continue
		}

		if f, ok := e.fireLocked(rule, st, value, nowMs, valueMessage(&rule, value)); ok {
			firings = append(firings, f)
		}
	}
	e.mu.Unlock()

	e.dispatch(firings)
}

// ProcessConnectionStatus evaluates connection rules bound to the
// connection id against a status transition. Disconnect rules fire only on
// the connected -> {disconnected, error} transition; timeout rules fire on
// any error status. Both obey cooldown; hold/duration does not apply.
func (e *Engine) ProcessConnectionStatus(connID string, status types.ConnStatus) {
	nowMs := e.now().UnixMilli()

	e.mu.Lock()
	var firings []firing
	for id, rule := range e.rules {
		if !rule.Enabled || rule.Source != types.SourceConnection || rule.TagRef != connID {
			continue
		}

		st := e.state[id]
		prev := st.lastConnStatus
		st.lastConnStatus = status

		met := false
		switch rule.Condition.Operator {
		case types.OpDisconnect:
			met = prev == types.ConnConnected &&
				(status == types.ConnDisconnected || status == types.ConnError)
		case types.OpTimeout:
			met = status == types.ConnError
		}
		if !met {
			continue
		}

		if st.lastTriggeredAtMs != 0 && nowMs-st.lastTriggeredAtMs < int64(rule.CooldownSeconds)*1000 {
			continue
		}

		msg := fmt.Sprintf("%s: connection %s is %s", rule.Name, connID, status)
		if f, ok := e.fireLocked(rule, st, 0, nowMs, msg); ok {
			firings = append(firings, f)
		}
	}
	e.mu.Unlock()

	e.dispatch(firings)
}

// fireLocked persists the event, runs the log action, and records the
// trigger time. Caller holds e.mu.
func (e *Engine) fireLocked(rule types.AlertRule, st *ruleState, value float64, nowMs int64, msg string) (firing, bool) {
	st.lastTriggeredAtMs = nowMs

	ev := types.AlertEvent{
		RuleID:       rule.ID,
		TimestampMs:  nowMs,
		TagRef:       rule.TagRef,
		TriggerValue: value,
		Severity:     rule.Severity,
		Message:      msg,
	}

	inserted, err := e.ledger.Insert(context.Background(), ev)
	if err != nil {
		// The cooldown timestamp above still stands, so a broken ledger
		// cannot cause an event storm.
		e.log.Error("insert alert event", "rule_id", rule.ID, "error", err)
		return firing{}, false
	}

	_, muted := e.muted[rule.ID]

	f := firing{event: inserted}
	for _, action := range rule.Actions {
		switch action {
		case types.ActionNotification:
			f.notification = !muted
		case types.ActionSound:
			f.sound = !muted
		case types.ActionLog:
			// Logging is never suppressed by mute.
			e.log.Warn("alert triggered",
				"rule_id", rule.ID,
				"rule", rule.Name,
				"severity", rule.Severity,
				"tag_ref", rule.TagRef,
				"value", value,
				"event_id", inserted.ID,
			)
		}
	}

	return f, true
}

// dispatch emits outbound notifications outside the engine lock.
func (e *Engine) dispatch(firings []firing) {
	for _, f := range firings {
		if f.notification {
			e.events.AlertTriggered(f.event)
		}
		if f.sound {
			e.events.AlertSound(f.event)
		}
	}
}

// evalCondition evaluates a value condition. Unknown operators evaluate to
// false so one malformed rule cannot interrupt evaluation of others.
func evalCondition(c *types.AlertCondition, value float64, nowMs int64, st *ruleState) bool {
	switch c.Operator {
	case types.OpGreater:
		return value > c.Value
	case types.OpLess:
		return value < c.Value
	case types.OpEqual:
		return value == c.Value
	case types.OpNotEqual:
		return value != c.Value
	case types.OpRange:
		return value >= c.Value && value <= c.UpperBound()
	case types.OpRateOfChange:
		return evalRateOfChange(c, value, nowMs, st)
	default:
		return false
	}
}

// evalRateOfChange compares the value against the earliest history entry in
// the trailing window. No qualifying history means insufficient data, not a
// trigger.
func evalRateOfChange(c *types.AlertCondition, value float64, nowMs int64, st *ruleState) bool {
	earliest, ok := st.earliestInWindow(nowMs - int64(c.RocWindowSeconds)*1000)
	if !ok {
		return false
	}

	delta := math.Abs(value - earliest.value)
	if c.RocType == types.RocPercentage {
		if earliest.value == 0 {
			// Avoid division by zero while still signaling change.
			if value == 0 {
				delta = 0
			} else {
				delta = 100
			}
		} else {
			delta = delta / math.Abs(earliest.value) * 100
		}
	}

	return delta >= c.Value
}

// valueMessage renders a human-readable trigger description.
func valueMessage(rule *types.AlertRule, value float64) string {
	c := &rule.Condition
	switch c.Operator {
	case types.OpRange:
		return fmt.Sprintf("%s: %s = %g within [%g, %g]",
			rule.Name, rule.TagRef, value, c.Value, c.UpperBound())
	case types.OpRateOfChange:
		unit := ""
		if c.RocType == types.RocPercentage {
			unit = "%"
		}
		return fmt.Sprintf("%s: %s changed by >= %g%s over %ds (value %g)",
			rule.Name, rule.TagRef, c.Value, unit, c.RocWindowSeconds, value)
	default:
		return fmt.Sprintf("%s: %s %s %g (value %g)",
			rule.Name, rule.TagRef, c.Operator, c.Value, value)
	}
}
