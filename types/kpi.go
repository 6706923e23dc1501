package types

import (
	"time"

	"github.com/google/uuid"
)

// KPISnapshot is a point-in-time aggregate over a sliding window of recent
// turns. Snapshots are always derived from the transcript, never stored as
// mutable rolling state.
type KPISnapshot struct {
	Turn            int     `json:"turn"`   // transcript length when taken
	Window          int     `json:"window"` // window size used
	Progress        float64 `json:"progress"`         // [0,1], monotonic within a phase
	Diversity       float64 `json:"diversity"`        // [0,1]
	DecisionDensity float64 `json:"decision_density"` // typically [0,1]
	SpecCoverage    float64 `json:"spec_coverage"`    // [0,1]
	Stall           bool    `json:"stall,omitempty"`
}

// ControlAction names the remedial action a ControlEvent records.
type ControlAction string

const (
	ActionTemperatureAdjusted ControlAction = "temperature_adjusted"
	ActionPromptHintInjected  ControlAction = "prompt_hint_injected"
	ActionPhaseNudged         ControlAction = "phase_nudged"
	ActionShockActivated      ControlAction = "shock_activated"
)

// ControlEvent records one intervention by the KPI feedback controller.
// Events are append-only, one per intervention; no event is emitted when no
// threshold is crossed.
type ControlEvent struct {
	ID          string             `json:"id"`
	Turn        int                `json:"turn"`
	Round       int                `json:"round"`
	Triggers    []string           `json:"triggers"` // e.g. "diversity", "decision_density", "stall"
	Thresholds  map[string]float64 `json:"thresholds,omitempty"`
	Action      ControlAction      `json:"action"`
	Hint        string             `json:"hint,omitempty"`
	Adjustments map[string]float64 `json:"adjustments,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// NewControlEvent creates a control event with a fresh ID and timestamp.
func NewControlEvent(turn, round int, action ControlAction) ControlEvent {
	return ControlEvent{
		ID:        uuid.New().String(),
		Turn:      turn,
		Round:     round,
		Action:    action,
		Timestamp: time.Now(),
	}
}
