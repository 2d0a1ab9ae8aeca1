package alert

import "tagwatch/internal/types"

// recentValueCap bounds the per-rule value history used by rate-of-change
// evaluation. Oldest entries are evicted first.
const recentValueCap = 100

// timedValue is one entry of a rule's recent-value history.
type timedValue struct {
	tsMs  int64
	value float64
}

// ruleState is the mutable evaluation state for one rule, kept in a side
// table keyed by rule id. The rule definition itself stays immutable by
// value; isolating the mutable state here simplifies concurrent reads and
// lets tests inject synthetic state without building a full rule graph.
//
// State is created with the rule and reset whenever the rule is updated or
// disabled, so a changed condition never inherits stale hold or cooldown
// timers.
type ruleState struct {
	// conditionMetSinceMs is when the condition started holding
	// continuously; 0 means not currently met.
	conditionMetSinceMs int64

	// lastTriggeredAtMs is when the rule last fired; 0 means never.
	lastTriggeredAtMs int64

	// lastValue is the most recent value evaluated against the rule.
	lastValue float64

	// recentValues is the trailing value history, oldest first, capped at
	// recentValueCap entries.
	recentValues []timedValue

	// lastConnStatus is the cached connection status for connection rules.
	lastConnStatus types.ConnStatus
}

func newRuleState() *ruleState {
	return &ruleState{}
}

// appendValue records a value observation, trimming the oldest entries
// beyond the cap.
func (st *ruleState) appendValue(tsMs int64, value float64) {
	st.recentValues = append(st.recentValues, timedValue{tsMs: tsMs, value: value})
	if n := len(st.recentValues); n > recentValueCap {
		st.recentValues = append(st.recentValues[:0], st.recentValues[n-recentValueCap:]...)
	}
	st.lastValue = value
}

// earliestInWindow returns the oldest history entry at or after windowStartMs.
func (st *ruleState) earliestInWindow(windowStartMs int64) (timedValue, bool) {
	for _, tv := range st.recentValues {
		if tv.tsMs >= windowStartMs {
			return tv, true
		}
	}
	return timedValue{}, false
}
