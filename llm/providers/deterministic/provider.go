// Package deterministic 提供完全可复现的测试后端。
//
// 它按 system 提示中的标记词识别提示类别（思考/审查/发言/摘要等），
// 用内部计数器轮转固定输出，使整场会议在测试模式下逐字可复现。
// 标记词必须与 meeting/deliberation 的提示模板保持同步。
package deterministic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/meetingflow/llm"
)

// Provider 是确定性的 llm.Provider 实现。
type Provider struct {
	mu         sync.Mutex
	agentNames []string
	thinkCalls int
	judgeCalls int
	speakCalls int
}

// New 创建确定性后端。agentNames 决定思考与审查输出的轮转顺序。
func New(agentNames []string) *Provider {
	return &Provider{agentNames: append([]string(nil), agentNames...)}
}

func (p *Provider) Name() string { return "deterministic" }

var thinkIdeas = []string{
	"test the leading hypothesis",
	"organize what we observed so far",
	"reinforce the evidence before deciding",
}

var speakLines = []string{
	"Let's compare the two options and pick one.",
	"I propose we assign an owner and set a deadline for the pilot.",
	"Agreed. We decide to run the safety check first.",
	"What risks remain before the rollout?",
	"Next action: draft the measurement plan by Friday.",
	"We should revisit the scoring rules once the data arrives.",
}

// Completion 根据提示类别返回固定输出。
func (p *Provider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	system := req.System()
	lastUser := req.LastUser()

	var text string
	switch {
	case strings.Contains(system, "inner thinking"):
		text = p.nextThought()
	case strings.Contains(system, "neutral judge"):
		text = p.nextVerdict(lastUser)
	case strings.Contains(system, "private note"):
		text = p.nextRemark()
	case strings.Contains(system, "summary assistant"):
		text = "- delta: " + condense(lastUser)
	case strings.Contains(system, "self-review"):
		text = "Concern: the steps need concrete owners and checks."
	case strings.Contains(system, "Apply the critique"):
		text = "Revision: spell out the steps, the safety checks, and the scoring."
	case strings.Contains(system, "moderator"):
		text = p.moderatorScores()
	case strings.Contains(system, "discussion editor"):
		text = p.finalNotes()
	default:
		text = p.nextRemark()
	}

	return &llm.ChatResponse{
		Provider: p.Name(),
		Model:    "deterministic",
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
		}},
	}, nil
}

func (p *Provider) nextThought() string {
	name := "agent"
	if len(p.agentNames) > 0 {
		name = p.agentNames[p.thinkCalls%len(p.agentNames)]
	}
	idea := thinkIdeas[p.thinkCalls%len(thinkIdeas)]
	p.thinkCalls++
	return fmt.Sprintf("%s view: %s", name, idea)
}

// nextVerdict 从候选列表中轮转出一名优胜者并给出固定评分。
func (p *Provider) nextVerdict(lastUser string) string {
	var candidates []string
	for _, line := range strings.Split(lastUser, "\n") {
		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		for _, known := range p.agentNames {
			if name == known {
				candidates = append(candidates, name)
				break
			}
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, p.agentNames...)
	}
	if len(candidates) == 0 {
		candidates = []string{"agent"}
	}
	winner := candidates[p.judgeCalls%len(candidates)]
	p.judgeCalls++

	scores := make(map[string]map[string]any, len(candidates))
	for _, n := range candidates {
		score := 0.6
		if n == winner {
			score = 0.8
		}
		scores[n] = map[string]any{
			"flow": 0.6, "goal": 0.6, "quality": 0.6,
			"novelty": 0.6, "action": 0.6,
			"score":     score,
			"rationale": fmt.Sprintf("%s fits the current flow best", n),
		}
	}
	payload, _ := json.Marshal(map[string]any{"scores": scores, "winner": winner})
	return string(payload)
}

func (p *Provider) nextRemark() string {
	line := speakLines[p.speakCalls%len(speakLines)]
	p.speakCalls++
	return line
}

func (p *Provider) moderatorScores() string {
	scores := make(map[string]float64, len(p.agentNames))
	for _, n := range p.agentNames {
		scores[n] = 0.7
	}
	payload, _ := json.Marshal(map[string]any{
		"scores": scores, "rationale": "everyone is contributing evenly",
	})
	return string(payload)
}

func (p *Provider) finalNotes() string {
	first, second := "the first participant", "the second participant"
	if len(p.agentNames) > 0 {
		first = p.agentNames[0]
	}
	if len(p.agentNames) > 1 {
		second = p.agentNames[1]
	}
	return strings.Join([]string{
		"Agreed:",
		"- Pilot the proposal with a small group",
		"- Keep the safety checks and the scoring in place",
		"Open issues:",
		"- Record a walkthrough to confirm the steps",
		"Next actions:",
		fmt.Sprintf("- %s prepares the safety test plan", first),
		fmt.Sprintf("- %s finalizes the KPI design", second),
	}, "\n")
}

func condense(text string) string {
	cleaned := strings.ReplaceAll(text, "\n", " / ")
	runes := []rune(cleaned)
	if len(runes) > 120 {
		cleaned = string(runes[:120])
	}
	return cleaned
}
