package types

import "fmt"

// PhaseKind is the closed enumeration of meeting phase kinds. Keeping the set
// closed lets config validation catch typos before the meeting starts.
type PhaseKind string

const (
	PhaseDiscussion PhaseKind = "discussion"
	PhaseResolution PhaseKind = "resolution"
	PhaseWrapup     PhaseKind = "wrapup"
)

// DefaultPhaseSequence is the fixed phase ordering used when the
// configuration does not provide its own sequence.
var DefaultPhaseSequence = []PhaseKind{PhaseDiscussion, PhaseResolution, PhaseWrapup}

// ParsePhaseKind validates a phase kind string.
func ParsePhaseKind(s string) (PhaseKind, error) {
	switch PhaseKind(s) {
	case PhaseDiscussion, PhaseResolution, PhaseWrapup:
		return PhaseKind(s), nil
	}
	return "", fmt.Errorf("unknown phase kind %q", s)
}

// PhaseStatus is the lifecycle state of a single phase.
type PhaseStatus string

const (
	PhaseActive  PhaseStatus = "active"
	PhaseClosing PhaseStatus = "closing" // one grace turn before close
	PhaseClosed  PhaseStatus = "closed"
)

// Phase is a contiguous span of turns. Phases are totally ordered by ID and
// never reopened.
type Phase struct {
	ID          int         `json:"id"`
	Kind        PhaseKind   `json:"kind"`
	Goal        string      `json:"goal,omitempty"`
	TurnBudget  int         `json:"turn_budget"`
	StartTurn   int         `json:"start_turn"` // 1-based transcript index of the first turn
	TurnCount   int         `json:"turn_count"`
	Cohesion    float64     `json:"cohesion"`
	CloseReason string      `json:"close_reason,omitempty"`
	Status      PhaseStatus `json:"status"`
}

// BudgetExhausted reports whether the phase has used up its turn budget.
func (p *Phase) BudgetExhausted() bool {
	return p.TurnBudget > 0 && p.TurnCount >= p.TurnBudget
}

// MeetingState is the meeting-level state machine.
type MeetingState string

const (
	StateRunning    MeetingState = "running"
	StateResolving  MeetingState = "resolving"
	StateFinalizing MeetingState = "finalizing"
	StateDone       MeetingState = "done"
	// StateStopped marks an orderly early finalization triggered by an
	// external stop request; the partial transcript is preserved.
	StateStopped MeetingState = "stopped"
)
