package deliberation

import (
	"fmt"
	"math/rand"
)

// Personality 是分配给参会者的个性模板。
type Personality struct {
	Name             string
	Description      string
	ThinkingGuidance string
	SpeakingGuidance string
}

// MemoryEntryText 返回注入覚書的个性说明行。
func (p Personality) MemoryEntryText() string {
	return fmt.Sprintf("personality profile (%s): %s", p.Name, p.Description)
}

// PersonalityLibrary 可供抽选的个性模板。
var PersonalityLibrary = []Personality{
	{
		Name:             "ASSERTIVE",
		Description:      "a driver who pushes for decisions and clear actions",
		ThinkingGuidance: "Think backwards from the conclusion and pick the one point to push through next.",
		SpeakingGuidance: "Speak decisively, naming the action and its owner in as few words as possible.",
	},
	{
		Name:             "ANALYTICAL",
		Description:      "an analyst who leans on data and comparison to build agreement",
		ThinkingGuidance: "Compare the options and always surface the missing evidence or a way to verify.",
		SpeakingGuidance: "Order your remarks as evidence, implication, proposal, with concrete numbers where possible.",
	},
	{
		Name:             "EMPATHIC",
		Description:      "a facilitator who picks up concerns and builds cooperative consensus",
		ThinkingGuidance: "Anticipate how others feel about the current direction and prepare a reassuring response.",
		SpeakingGuidance: "Lead with one empathetic phrase, then propose a concrete way to share the load.",
	},
}

// AssignPersonalities 为每个参会者抽选个性模板。
// 人数超过模板数时重新洗牌补齐；同一种子下分配完全可复现。
func AssignPersonalities(agentNames []string, rng *rand.Rand) map[string]Personality {
	out := make(map[string]Personality, len(agentNames))
	if len(agentNames) == 0 {
		return out
	}

	pool := append([]Personality(nil), PersonalityLibrary...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	selected := make([]Personality, 0, len(agentNames))
	for len(selected) < len(agentNames) {
		remaining := len(agentNames) - len(selected)
		if remaining >= len(pool) {
			selected = append(selected, pool...)
			pool = append([]Personality(nil), PersonalityLibrary...)
			rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		} else {
			selected = append(selected, pool[:remaining]...)
		}
	}

	for i, name := range agentNames {
		out[name] = selected[i]
	}
	return out
}
