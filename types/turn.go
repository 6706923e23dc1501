package types

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one utterance in the meeting. A Turn is immutable once appended to
// the Transcript; KPI recomputation relies on that for determinism.
type Turn struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"` // 1-based position in the transcript
	Round     int       `json:"round"`
	PhaseID   int       `json:"phase_id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Thought   string    `json:"thought,omitempty"` // private think-mode note, never shown
	Degraded  bool      `json:"degraded,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn with a fresh ID and the current timestamp.
func NewTurn(index, round, phaseID int, speaker, text string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Index:     index,
		Round:     round,
		PhaseID:   phaseID,
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Transcript is the append-only record of the meeting. Insertion order is
// chronological order and the only valid order.
type Transcript struct {
	turns []Turn
}

// Append adds a turn and returns the new length. The stored turn's Index is
// forced to its 1-based position so callers cannot desync ordering.
func (t *Transcript) Append(turn Turn) int {
	turn.Index = len(t.turns) + 1
	t.turns = append(t.turns, turn)
	return len(t.turns)
}

// Len returns the number of turns recorded so far.
func (t *Transcript) Len() int { return len(t.turns) }

// Last returns the most recent turn, or false when the transcript is empty.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// At returns the turn at the given 1-based index.
func (t *Transcript) At(index int) (Turn, bool) {
	if index < 1 || index > len(t.turns) {
		return Turn{}, false
	}
	return t.turns[index-1], true
}

// Window returns the last n turns. The returned slice is a read-only view;
// callers must not modify it.
func (t *Transcript) Window(n int) []Turn {
	if n <= 0 || len(t.turns) == 0 {
		return nil
	}
	if n > len(t.turns) {
		n = len(t.turns)
	}
	return t.turns[len(t.turns)-n:]
}

// All returns a copy of every turn in order.
func (t *Transcript) All() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Texts returns the utterance text of the last n turns (all when n <= 0).
func (t *Transcript) Texts(n int) []string {
	var window []Turn
	if n <= 0 {
		window = t.turns
	} else {
		window = t.Window(n)
	}
	out := make([]string, 0, len(window))
	for _, turn := range window {
		out = append(out, turn.Text)
	}
	return out
}
