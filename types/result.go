package types

import "time"

// MeetingResult is the final snapshot of a meeting. It is constructed once at
// termination and immutable afterwards.
type MeetingResult struct {
	ID          string         `json:"id"`
	Topic       string         `json:"topic"`
	State       MeetingState   `json:"state"` // done or stopped
	Agents      []Agent        `json:"agents"`
	Turns       []Turn         `json:"turns"`
	Phases      []Phase        `json:"phases"`
	Agreement   string         `json:"agreement"`
	OpenIssues  []string       `json:"open_issues"`
	NextActions string         `json:"next_actions,omitempty"`
	FinalKPI    KPISnapshot    `json:"kpi"`
	Controls    []ControlEvent `json:"controls,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}
