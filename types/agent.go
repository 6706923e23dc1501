package types

// Agent identifies one meeting participant. Agents are constructed once from
// configuration at meeting start and never mutated afterwards.
type Agent struct {
	// Name is the unique key of the participant within one meeting.
	Name string `json:"name" yaml:"name"`
	// SystemPrompt is the persona prompt injected into every request for
	// this agent. Empty means the orchestrator default persona.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// Style is an optional tone instruction ("blunt", "cautious", ...).
	Style string `json:"style,omitempty" yaml:"style,omitempty"`
	// Role is an optional role tag used for display and logging only.
	Role string `json:"role,omitempty" yaml:"role,omitempty"`
}
