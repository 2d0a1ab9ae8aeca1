package types

// Severity ranks the urgency of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether the severity is one of the known levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Operator is the comparison a rule condition applies to incoming values.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpRange        Operator = "range"
	OpRateOfChange Operator = "roc"
	OpDisconnect   Operator = "disconnect"
	OpTimeout      Operator = "timeout"
)

// Valid reports whether the operator is one of the known comparisons.
func (o Operator) Valid() bool {
	switch o {
	case OpGreater, OpLess, OpEqual, OpNotEqual, OpRange, OpRateOfChange, OpDisconnect, OpTimeout:
		return true
	}
	return false
}

// RocType selects how a rate-of-change delta is measured.
type RocType string

const (
	RocAbsolute   RocType = "absolute"
	RocPercentage RocType = "percentage"
)

// Action is one element of the closed set of things a firing rule does.
type Action string

const (
	ActionNotification Action = "notification"
	ActionSound        Action = "sound"
	ActionLog          Action = "log"
)

// RuleSource distinguishes value rules from connection-status rules.
type RuleSource string

const (
	SourceTag        RuleSource = "tag"
	SourceConnection RuleSource = "connection"
)

// ConnStatus is a connection state reported by the polling collaborator.
type ConnStatus string

const (
	ConnConnected    ConnStatus = "connected"
	ConnDisconnected ConnStatus = "disconnected"
	ConnError        ConnStatus = "error"
)

// AlertCondition describes when a rule triggers.
type AlertCondition struct {
	Operator Operator `yaml:"operator" json:"operator"`

	// Value is the threshold, the range lower bound, or the minimum ROC delta.
	Value float64 `yaml:"value" json:"value"`

	// Value2 is the range upper bound. When nil, Value is used for both bounds.
	Value2 *float64 `yaml:"value2,omitempty" json:"value2,omitempty"`

	// DurationSeconds is the minimum continuous hold time before firing.
	DurationSeconds int `yaml:"duration_seconds" json:"durationSeconds"`

	// RocWindowSeconds is the trailing window for rate-of-change rules.
	RocWindowSeconds int `yaml:"roc_window_seconds" json:"rocWindowSeconds"`

	// RocType selects absolute or percentage delta for rate-of-change rules.
	RocType RocType `yaml:"roc_type" json:"rocType"`
}

// UpperBound returns the range upper bound, defaulting to Value when absent.
func (c *AlertCondition) UpperBound() float64 {
	if c.Value2 != nil {
		return *c.Value2
	}
	return c.Value
}

// AlertRule is a user-defined trigger definition. Identity is ID.
// The mutable evaluation state lives in the engine's side table, not here.
type AlertRule struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	TagRef    string         `yaml:"tag_ref" json:"tagRef"`
	Condition AlertCondition `yaml:"condition" json:"condition"`
	Severity  Severity       `yaml:"severity" json:"severity"`
	Actions   []Action       `yaml:"actions" json:"actions"`
	Enabled   bool           `yaml:"enabled" json:"enabled"`

	// CooldownSeconds is the minimum time between successive firings.
	CooldownSeconds int `yaml:"cooldown_seconds" json:"cooldownSeconds"`

	// Source is "tag" for value rules, "connection" for status rules.
	Source RuleSource `yaml:"source" json:"source"`

	CreatedAtMs int64 `yaml:"created_at_ms" json:"createdAt"`
}

// HasAction reports whether the rule carries the given action.
func (r *AlertRule) HasAction(a Action) bool {
	for _, action := range r.Actions {
		if action == a {
			return true
		}
	}
	return false
}
