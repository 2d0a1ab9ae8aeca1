// Package notify fans alert and rule lifecycle events out to registered
// subscribers. It is an explicit registration surface, not an ambient event
// bus: collaborators (UI, sound, desktop notifications) subscribe callbacks
// and the core stays testable without any of them running.
package notify

import (
	"sync"

	"tagwatch/internal/types"
)

// Callbacks is the set of hooks a subscriber may register.
// Nil entries are skipped.
type Callbacks struct {
	// OnAlertTriggered fires when a rule's notification action runs.
	OnAlertTriggered func(types.AlertEvent)

	// OnAlertSound fires when a rule's sound action runs.
	OnAlertSound func(types.AlertEvent)

	// OnAlertAcknowledged fires when an event is acknowledged.
	OnAlertAcknowledged func(eventID int64)

	// OnRuleChanged fires on rule create/update/enable/disable/mute/unmute.
	OnRuleChanged func(types.AlertRule)

	// OnRuleDeleted fires when a rule is removed.
	OnRuleDeleted func(ruleID string)
}

// Emitter dispatches events synchronously to every subscriber, in
// registration order.
type Emitter struct {
	mu   sync.RWMutex
	subs []Callbacks
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe registers a set of callbacks. There is no unsubscribe:
// subscribers live as long as the core.
func (e *Emitter) Subscribe(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, cb)
}

// AlertTriggered dispatches a triggered event.
func (e *Emitter) AlertTriggered(ev types.AlertEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cb := range e.subs {
		if cb.OnAlertTriggered != nil {
			cb.OnAlertTriggered(ev)
		}
	}
}

// AlertSound dispatches a sound request for a triggered event.
func (e *Emitter) AlertSound(ev types.AlertEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cb := range e.subs {
		if cb.OnAlertSound != nil {
			cb.OnAlertSound(ev)
		}
	}
}

// AlertAcknowledged dispatches an acknowledgement.
func (e *Emitter) AlertAcknowledged(eventID int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cb := range e.subs {
		if cb.OnAlertAcknowledged != nil {
			cb.OnAlertAcknowledged(eventID)
		}
	}
}

// RuleChanged dispatches a rule definition change.
func (e *Emitter) RuleChanged(rule types.AlertRule) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cb := range e.subs {
		if cb.OnRuleChanged != nil {
			cb.OnRuleChanged(rule)
		}
	}
}

// RuleDeleted dispatches a rule removal.
func (e *Emitter) RuleDeleted(ruleID string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cb := range e.subs {
		if cb.OnRuleDeleted != nil {
			cb.OnRuleDeleted(ruleID)
		}
	}
}
