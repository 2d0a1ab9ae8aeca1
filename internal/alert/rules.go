package alert

import (
	"sort"

	"github.com/google/uuid"

	"tagwatch/internal/errors"
	"tagwatch/internal/types"
)

// validateRule checks a rule definition for malformed fields.
func validateRule(rule *types.AlertRule) error {
	if rule.Name == "" {
		return errors.NewMissingField("name")
	}
	if rule.TagRef == "" {
		return errors.NewMissingField("tag_ref")
	}
	if !rule.Condition.Operator.Valid() {
		return errors.NewInvalidValue("operator", rule.Condition.Operator, "unknown operator")
	}
	if !rule.Severity.Valid() {
		return errors.NewInvalidValue("severity", rule.Severity, "must be info, warning, or critical")
	}
	if rule.CooldownSeconds < 0 {
		return errors.NewInvalidValue("cooldown_seconds", rule.CooldownSeconds, "must be >= 0")
	}
	if rule.Condition.DurationSeconds < 0 {
		return errors.NewInvalidValue("duration_seconds", rule.Condition.DurationSeconds, "must be >= 0")
	}
	if rule.Condition.Operator == types.OpRateOfChange && rule.Condition.RocWindowSeconds <= 0 {
		return errors.NewInvalidValue("roc_window_seconds", rule.Condition.RocWindowSeconds, "must be > 0")
	}
	return nil
}

// cloneRule returns a defensive copy of a rule.
func cloneRule(rule types.AlertRule) types.AlertRule {
	out := rule
	out.Actions = append([]types.Action(nil), rule.Actions...)
	return out
}

// CreateRule registers a rule and its fresh runtime state. A missing id is
// assigned; a duplicate id is rejected.
func (e *Engine) CreateRule(rule types.AlertRule) (types.AlertRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Source == "" {
		rule.Source = types.SourceTag
	}
	if err := validateRule(&rule); err != nil {
		return types.AlertRule{}, err
	}

	e.mu.Lock()
	if _, exists := e.rules[rule.ID]; exists {
		e.mu.Unlock()
		return types.AlertRule{}, errors.NewAlreadyExists("rule", rule.ID)
	}
	rule.CreatedAtMs = e.now().UnixMilli()
	e.rules[rule.ID] = cloneRule(rule)
	e.state[rule.ID] = newRuleState()
	e.mu.Unlock()

	e.log.Info("rule created", "rule_id", rule.ID, "name", rule.Name, "tag_ref", rule.TagRef)
	e.events.RuleChanged(cloneRule(rule))
	return rule, nil
}

// UpdateRule replaces a rule definition and resets its runtime state, so a
// changed condition never inherits stale hold or cooldown timers.
func (e *Engine) UpdateRule(rule types.AlertRule) (types.AlertRule, error) {
	if rule.Source == "" {
		rule.Source = types.SourceTag
	}
	if err := validateRule(&rule); err != nil {
		return types.AlertRule{}, err
	}

	e.mu.Lock()
	existing, ok := e.rules[rule.ID]
	if !ok {
		e.mu.Unlock()
		return types.AlertRule{}, errors.NewRuleNotFound(rule.ID)
	}
	rule.CreatedAtMs = existing.CreatedAtMs
	e.rules[rule.ID] = cloneRule(rule)
	e.state[rule.ID] = newRuleState()
	e.mu.Unlock()

	e.log.Info("rule updated", "rule_id", rule.ID, "name", rule.Name)
	e.events.RuleChanged(cloneRule(rule))
	return rule, nil
}

// DeleteRule removes a rule, its runtime state, and its mute entry.
func (e *Engine) DeleteRule(id string) error {
	e.mu.Lock()
	if _, ok := e.rules[id]; !ok {
		e.mu.Unlock()
		return errors.NewRuleNotFound(id)
	}
	delete(e.rules, id)
	delete(e.state, id)
	delete(e.muted, id)
	e.mu.Unlock()

	e.log.Info("rule deleted", "rule_id", id)
	e.events.RuleDeleted(id)
	return nil
}

// EnableRule turns evaluation back on for a rule.
func (e *Engine) EnableRule(id string) error {
	return e.setEnabled(id, true)
}

// DisableRule stops evaluation and resets runtime state.
func (e *Engine) DisableRule(id string) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id string, enabled bool) error {
	e.mu.Lock()
	rule, ok := e.rules[id]
	if !ok {
		e.mu.Unlock()
		return errors.NewRuleNotFound(id)
	}
	rule.Enabled = enabled
	e.rules[id] = rule
	if !enabled {
		e.state[id] = newRuleState()
	}
	e.mu.Unlock()

	e.log.Info("rule toggled", "rule_id", id, "enabled", enabled)
	e.events.RuleChanged(cloneRule(rule))
	return nil
}

// MuteRule suppresses the rule's notification and sound actions while it
// stays evaluated and logged. Muting is independent of enabled/disabled.
func (e *Engine) MuteRule(id string) error {
	return e.setMuted(id, true)
}

// UnmuteRule restores the rule's notification and sound actions.
func (e *Engine) UnmuteRule(id string) error {
	return e.setMuted(id, false)
}

func (e *Engine) setMuted(id string, muted bool) error {
	e.mu.Lock()
	rule, ok := e.rules[id]
	if !ok {
		e.mu.Unlock()
		return errors.NewRuleNotFound(id)
	}
	if muted {
		e.muted[id] = struct{}{}
	} else {
		delete(e.muted, id)
	}
	e.mu.Unlock()

	e.log.Info("rule mute changed", "rule_id", id, "muted", muted)
	e.events.RuleChanged(cloneRule(rule))
	return nil
}

// IsMuted reports whether the rule's notification/sound actions are
// suppressed.
func (e *Engine) IsMuted(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.muted[id]
	return ok
}

// GetRule returns a copy of a rule definition.
func (e *Engine) GetRule(id string) (types.AlertRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[id]
	if !ok {
		return types.AlertRule{}, errors.NewRuleNotFound(id)
	}
	return cloneRule(rule), nil
}

// ListRules returns copies of all rules, oldest first.
func (e *Engine) ListRules() []types.AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.AlertRule, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, cloneRule(rule))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtMs != out[j].CreatedAtMs {
			return out[i].CreatedAtMs < out[j].CreatedAtMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}
