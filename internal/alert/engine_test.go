package alert

import (
	"context"
	"testing"
	"time"

	"tagwatch/internal/ledger"
	"tagwatch/internal/notify"
	"tagwatch/internal/types"
)

// testHarness wires an engine to an in-memory ledger, a clock the test
// advances by hand, and counters for emitted notifications.
type testHarness struct {
	engine  *Engine
	ledger  *ledger.Ledger
	clockMs int64

	notified []types.AlertEvent
	sounds   []types.AlertEvent
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	l, err := ledger.Open(ledger.Options{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	h := &testHarness{ledger: l, clockMs: 1_000_000}

	em := notify.NewEmitter()
	em.Subscribe(notify.Callbacks{
		OnAlertTriggered: func(ev types.AlertEvent) { h.notified = append(h.notified, ev) },
		OnAlertSound:     func(ev types.AlertEvent) { h.sounds = append(h.sounds, ev) },
	})

	h.engine = New(l, em)
	h.engine.now = func() time.Time { return time.UnixMilli(h.clockMs) }
	return h
}

func (h *testHarness) advance(d time.Duration) {
	h.clockMs += d.Milliseconds()
}

func (h *testHarness) eventCount(t *testing.T) int64 {
	t.Helper()
	page, err := h.ledger.Query(context.Background(), types.EventFilter{})
	if err != nil {
		t.Fatalf("query ledger: %v", err)
	}
	return page.Total
}

func thresholdRule(id string, value float64) types.AlertRule {
	return types.AlertRule{
		ID:        id,
		Name:      "high temp",
		TagRef:    "temp",
		Condition: types.AlertCondition{Operator: types.OpGreater, Value: value},
		Severity:  types.SeverityWarning,
		Actions:   []types.Action{types.ActionNotification, types.ActionSound},
		Enabled:   true,
	}
}

func TestEngine_ThresholdFires(t *testing.T) {
	h := newHarness(t)
	if _, err := h.engine.CreateRule(thresholdRule("r1", 50)); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	h.engine.ProcessTagValue("temp", 40)
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("below threshold fired: %d events", n)
	}

	h.engine.ProcessTagValue("temp", 60)
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	if len(h.notified) != 1 || len(h.sounds) != 1 {
		t.Errorf("expected notification and sound, got %d/%d", len(h.notified), len(h.sounds))
	}
	if h.notified[0].TriggerValue != 60 || h.notified[0].RuleID != "r1" {
		t.Errorf("wrong event emitted: %+v", h.notified[0])
	}
}

func TestEngine_OtherTagIgnored(t *testing.T) {
	h := newHarness(t)
	h.engine.CreateRule(thresholdRule("r1", 50))

	h.engine.ProcessTagValue("pressure", 999)
	if n := h.eventCount(t); n != 0 {
		t.Errorf("rule fired for unbound tag: %d events", n)
	}
}

func TestEngine_DisabledRuleNeverFires(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 50)
	rule.Enabled = false
	h.engine.CreateRule(rule)

	h.engine.ProcessTagValue("temp", 60)
	if n := h.eventCount(t); n != 0 {
		t.Errorf("disabled rule fired: %d events", n)
	}
}

func TestEngine_Cooldown(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 50)
	rule.CooldownSeconds = 10
	h.engine.CreateRule(rule)

	h.engine.ProcessTagValue("temp", 60)
	h.advance(time.Second)
	h.engine.ProcessTagValue("temp", 70)
	h.advance(time.Second)
	h.engine.ProcessTagValue("temp", 80)

	if n := h.eventCount(t); n != 1 {
		t.Fatalf("cooldown violated: %d events", n)
	}

	// Past the cooldown it fires again.
	h.advance(9 * time.Second)
	h.engine.ProcessTagValue("temp", 90)
	if n := h.eventCount(t); n != 2 {
		t.Errorf("expected refire after cooldown, got %d events", n)
	}
}

func TestEngine_HoldDuration(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 50)
	rule.Condition.DurationSeconds = 5
	h.engine.CreateRule(rule)

	h.engine.ProcessTagValue("temp", 60)
	h.advance(2 * time.Second)
	h.engine.ProcessTagValue("temp", 60)
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("fired before hold elapsed: %d events", n)
	}

	h.advance(3 * time.Second)
	h.engine.ProcessTagValue("temp", 60)
	if n := h.eventCount(t); n != 1 {
		t.Errorf("expected fire after hold, got %d events", n)
	}
}

func TestEngine_HoldResetsOnDip(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 50)
	rule.Condition.DurationSeconds = 5
	h.engine.CreateRule(rule)

	h.engine.ProcessTagValue("temp", 60)
	h.advance(4 * time.Second)
	h.engine.ProcessTagValue("temp", 40) // dip resets the hold timer
	h.advance(2 * time.Second)
	h.engine.ProcessTagValue("temp", 60)
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("fired despite hold reset: %d events", n)
	}

	h.advance(5 * time.Second)
	h.engine.ProcessTagValue("temp", 60)
	if n := h.eventCount(t); n != 1 {
		t.Errorf("expected fire after fresh hold, got %d events", n)
	}
}

func TestEngine_RangeOperator(t *testing.T) {
	h := newHarness(t)
	upper := 30.0
	rule := thresholdRule("r1", 0)
	rule.Condition = types.AlertCondition{Operator: types.OpRange, Value: 10, Value2: &upper}
	h.engine.CreateRule(rule)

	for _, v := range []float64{9.99, 30.01} {
		h.engine.ProcessTagValue("temp", v)
	}
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("out-of-range values fired: %d events", n)
	}

	h.engine.ProcessTagValue("temp", 10) // inclusive bounds
	if n := h.eventCount(t); n != 1 {
		t.Errorf("expected in-range fire, got %d events", n)
	}
}

func TestEngine_RateOfChangeAbsolute(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 0)
	rule.Condition = types.AlertCondition{
		Operator:         types.OpRateOfChange,
		Value:            25,
		RocWindowSeconds: 60,
	}
	h.engine.CreateRule(rule)

	// First sample has no history in the window yet.
	h.engine.ProcessTagValue("temp", 50)
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("fired without history: %d events", n)
	}

	h.advance(30 * time.Second)
	h.engine.ProcessTagValue("temp", 55) // delta 5, below 25
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("small delta fired: %d events", n)
	}

	h.advance(10 * time.Second)
	h.engine.ProcessTagValue("temp", 80) // delta vs earliest (50) is 30
	if n := h.eventCount(t); n != 1 {
		t.Errorf("expected roc fire, got %d events", n)
	}
}

func TestEngine_RateOfChangePercentage(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 0)
	rule.Condition = types.AlertCondition{
		Operator:         types.OpRateOfChange,
		Value:            50,
		RocWindowSeconds: 60,
		RocType:          types.RocPercentage,
	}
	h.engine.CreateRule(rule)

	h.engine.ProcessTagValue("temp", 100)
	h.advance(10 * time.Second)
	h.engine.ProcessTagValue("temp", 140) // 40%, below 50%
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("40%% change fired: %d events", n)
	}

	h.advance(10 * time.Second)
	h.engine.ProcessTagValue("temp", 160) // 60% vs earliest 100
	if n := h.eventCount(t); n != 1 {
		t.Errorf("expected percentage roc fire, got %d events", n)
	}
}

func TestEngine_RateOfChangeZeroBaseline(t *testing.T) {
	h := newHarness(t)
	rule := thresholdRule("r1", 0)
	rule.Condition = types.AlertCondition{
		Operator:         types.OpRateOfChange,
		Value:            50,
		RocWindowSeconds: 60,
		RocType:          types.RocPercentage,
	}
	h.engine.CreateRule(rule)

	// Zero baseline: zero -> zero is 0% change, zero -> nonzero is treated
	// as 100%.
	h.engine.ProcessTagValue("temp", 0)
	h.advance(10 * time.Second)
	h.engine.ProcessTagValue("temp", 0)
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("0 -> 0 fired: %d events", n)
	}

	h.advance(10 * time.Second)
	h.engine.ProcessTagValue("temp", 0.001)
	if n := h.eventCount(t); n != 1 {
		t.Errorf("0 -> nonzero should register as 100%%, got %d events", n)
	}
}

func TestEngine_MuteSuppressesActionsNotLedger(t *testing.T) {
	h := newHarness(t)
	h.engine.CreateRule(thresholdRule("r1", 50))
	if err := h.engine.MuteRule("r1"); err != nil {
		t.Fatalf("MuteRule: %v", err)
	}

	h.engine.ProcessTagValue("temp", 60)

	// The event is still recorded.
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("muted rule must still log events, got %d", n)
	}
	// But nothing is emitted.
	if len(h.notified) != 0 || len(h.sounds) != 0 {
		t.Errorf("muted rule emitted: %d notifications, %d sounds", len(h.notified), len(h.sounds))
	}

	h.engine.UnmuteRule("r1")
	h.engine.ProcessTagValue("temp", 70)
	if len(h.notified) != 1 {
		t.Errorf("unmuted rule should notify, got %d", len(h.notified))
	}
}

func TestEngine_UnknownOperatorNeverFires(t *testing.T) {
	h := newHarness(t)

	// Bypass validation to plant a malformed operator directly.
	h.engine.mu.Lock()
	h.engine.rules["bad"] = types.AlertRule{
		ID:        "bad",
		Name:      "bad",
		TagRef:    "temp",
		Condition: types.AlertCondition{Operator: "between", Value: 1},
		Severity:  types.SeverityInfo,
		Enabled:   true,
		Source:    types.SourceTag,
	}
	h.engine.state["bad"] = newRuleState()
	h.engine.mu.Unlock()

	h.engine.ProcessTagValue("temp", 999)
	if n := h.eventCount(t); n != 0 {
		t.Errorf("unknown operator fired: %d events", n)
	}
}

func connRule(id string, op types.Operator) types.AlertRule {
	return types.AlertRule{
		ID:        id,
		Name:      "plc link",
		TagRef:    "plc-1",
		Source:    types.SourceConnection,
		Condition: types.AlertCondition{Operator: op},
		Severity:  types.SeverityCritical,
		Actions:   []types.Action{types.ActionNotification},
		Enabled:   true,
	}
}

func TestEngine_DisconnectFiresOnTransitionOnly(t *testing.T) {
	h := newHarness(t)
	h.engine.CreateRule(connRule("c1", types.OpDisconnect))

	// Initial status report: no prior connected state, no fire.
	h.engine.ProcessConnectionStatus("plc-1", types.ConnDisconnected)
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("fired without a connected -> down transition: %d events", n)
	}

	h.engine.ProcessConnectionStatus("plc-1", types.ConnConnected)
	h.engine.ProcessConnectionStatus("plc-1", types.ConnDisconnected)
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("expected fire on transition, got %d events", n)
	}

	// Staying disconnected does not refire.
	h.engine.ProcessConnectionStatus("plc-1", types.ConnDisconnected)
	if n := h.eventCount(t); n != 1 {
		t.Errorf("refired while already down: %d events", n)
	}

	// connected -> error also counts as a disconnect.
	h.engine.ProcessConnectionStatus("plc-1", types.ConnConnected)
	h.engine.ProcessConnectionStatus("plc-1", types.ConnError)
	if n := h.eventCount(t); n != 2 {
		t.Errorf("expected fire on connected -> error, got %d events", n)
	}
}

func TestEngine_TimeoutFiresOnAnyError(t *testing.T) {
	h := newHarness(t)
	rule := connRule("c1", types.OpTimeout)
	rule.CooldownSeconds = 5
	h.engine.CreateRule(rule)

	// Errors fire regardless of the previous status, subject to cooldown.
	h.engine.ProcessConnectionStatus("plc-1", types.ConnError)
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("expected fire on error, got %d events", n)
	}

	h.advance(time.Second)
	h.engine.ProcessConnectionStatus("plc-1", types.ConnError)
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("cooldown violated: %d events", n)
	}

	h.advance(5 * time.Second)
	h.engine.ProcessConnectionStatus("plc-1", types.ConnError)
	if n := h.eventCount(t); n != 2 {
		t.Errorf("expected refire after cooldown, got %d events", n)
	}

	h.engine.ProcessConnectionStatus("plc-1", types.ConnConnected)
	if n := h.eventCount(t); n != 2 {
		t.Errorf("connected status fired a timeout rule: %d events", n)
	}
}

func TestEngine_ConnectionRuleIgnoresTagValues(t *testing.T) {
	h := newHarness(t)
	h.engine.CreateRule(connRule("c1", types.OpTimeout))

	h.engine.ProcessTagValue("plc-1", 999)
	if n := h.eventCount(t); n != 0 {
		t.Errorf("connection rule evaluated a tag value: %d events", n)
	}
}
