package deliberation

import (
	"fmt"
	"strings"
)

// 提示模板中的标记词（inner thinking / neutral judge / private note /
// summary assistant / self-review / Apply the critique / moderator /
// discussion editor）被确定性后端用来识别提示类别，改动时必须同步
// llm/providers/deterministic。

// PromptContext 构造提示所需的会议上下文切片。
type PromptContext struct {
	Topic       string
	PhaseGoal   string
	Recent      string // "speaker: text / …" 形式的直近发言
	LastSummary string
	FlowSummary string
	Memory      string // 覚書区块（MemoryStore.Format 的输出）
	Shared      string // 共享メモ区块
	Hints       []string
}

func (c PromptContext) contextBlock() string {
	var parts []string
	if c.Topic != "" {
		parts = append(parts, "topic: "+c.Topic)
	}
	if c.PhaseGoal != "" {
		parts = append(parts, "phase goal: "+c.PhaseGoal)
	}
	if c.Recent != "" {
		parts = append(parts, "recent remarks: "+c.Recent)
	}
	if c.LastSummary != "" {
		parts = append(parts, "last summary: "+c.LastSummary)
	}
	if c.FlowSummary != "" {
		parts = append(parts, "conversation flow:\n"+c.FlowSummary)
	}
	if c.Memory != "" {
		parts = append(parts, c.Memory)
	}
	if c.Shared != "" {
		parts = append(parts, c.Shared)
	}
	for _, hint := range c.Hints {
		parts = append(parts, "facilitation hint: "+hint)
	}
	return strings.Join(parts, "\n")
}

// joinLines 连接非空行。
func joinLines(lines ...string) string {
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// ThinkPrompt 私密思考提示。输出不进入会话记录。
func ThinkPrompt(agent agentView, ctx PromptContext) (system, user string) {
	system = joinLines(
		agent.systemLine(),
		"Write your inner thinking for this turn: what you would say next and why, in one or two short lines.",
		"This is not spoken aloud. Do not address the others. No greetings, no markdown.",
		agent.thinkingGuidance(),
	)
	user = ctx.contextBlock()
	if user == "" {
		user = "Start the discussion."
	}
	return system, user
}

// JudgePrompt 中立审查提示。候选思考以 "name: thought" 逐行列出。
func JudgePrompt(ctx PromptContext, thoughts []CandidateThought, includeTopic, includeRecent, includeSummary, includeFlow bool) (system, user string) {
	system = strings.Join([]string{
		"You are a neutral judge for a meeting. Score each candidate's draft thought.",
		"Rate flow, goal, quality, novelty, action and an overall score, each between 0 and 1.",
		"Answer with JSON only, exactly in this shape:",
		`{"scores": {"<name>": {"flow": 0.0, "goal": 0.0, "quality": 0.0, "novelty": 0.0, "action": 0.0, "score": 0.0, "rationale": "short reason"}}, "winner": "<name>"}`,
	}, "\n")

	var parts []string
	if includeTopic && ctx.Topic != "" {
		parts = append(parts, "topic: "+ctx.Topic)
	}
	if ctx.PhaseGoal != "" {
		parts = append(parts, "phase goal: "+ctx.PhaseGoal)
	}
	if includeRecent && ctx.Recent != "" {
		parts = append(parts, "recent remarks: "+ctx.Recent)
	}
	if includeSummary && ctx.LastSummary != "" {
		parts = append(parts, "last summary: "+ctx.LastSummary)
	}
	if includeFlow && ctx.FlowSummary != "" {
		parts = append(parts, "conversation flow:\n"+ctx.FlowSummary)
	}
	parts = append(parts, "candidates:")
	for _, t := range thoughts {
		parts = append(parts, fmt.Sprintf("%s: %s", t.Agent, t.Thought))
	}
	return system, strings.Join(parts, "\n")
}

// SpeakPrompt 把私密思考转成公开发言的提示。
func SpeakPrompt(agent agentView, ctx PromptContext, thought string, maxSentences, maxChars int) (system, user string) {
	system = joinLines(
		agent.systemLine(),
		"Turn your private note below into what you actually say in the meeting.",
		fmt.Sprintf("Keep it to at most %d sentence(s), each within %d characters. Plain text only, no lists, no markdown.", maxSentences, maxChars),
		agent.speakingGuidance(),
	)
	var parts []string
	if block := ctx.contextBlock(); block != "" {
		parts = append(parts, block)
	}
	parts = append(parts, "your private note: "+thought)
	return system, strings.Join(parts, "\n")
}

// SimplifiedSpeakPrompt 发言整形失败后的一次重试提示（更强的约束）。
func SimplifiedSpeakPrompt(agent agentView, thought string, maxSentences, maxChars int) (system, user string) {
	system = strings.Join([]string{
		agent.systemLine(),
		"Rewrite your private note as one short spoken remark.",
		fmt.Sprintf("Hard limit: %d sentence(s), %d characters each. Output the remark and nothing else.", maxSentences, maxChars),
	}, "\n")
	return system, "your private note: " + thought
}

// PlainSpeakPrompt 非思考模式下的直接发言提示。
func PlainSpeakPrompt(agent agentView, ctx PromptContext, maxSentences, maxChars int) (system, user string) {
	system = joinLines(
		agent.systemLine(),
		"Conversation rules: speak directly to the others, stay on the phase goal, and move the discussion one step forward.",
		fmt.Sprintf("Keep it to at most %d sentence(s), each within %d characters. Plain text only.", maxSentences, maxChars),
		agent.speakingGuidance(),
	)
	user = ctx.contextBlock()
	if user == "" {
		user = "Start the discussion."
	}
	return system, user
}

// CritiquePrompt 自检（批评）提示。
func CritiquePrompt(agent agentView, draft string) (system, user string) {
	system = strings.Join([]string{
		agent.systemLine(),
		"Do a strict self-review of your draft remark: name the single weakest point (missing owner, vague step, unchecked risk).",
		"Answer in one short line.",
	}, "\n")
	return system, "draft: " + draft
}

// RevisePrompt 应用批评改写草稿的提示。
func RevisePrompt(agent agentView, draft, critique string, maxSentences, maxChars int) (system, user string) {
	system = strings.Join([]string{
		agent.systemLine(),
		"Apply the critique to the original and produce the improved remark.",
		fmt.Sprintf("Keep it to at most %d sentence(s), each within %d characters. Output only the remark.", maxSentences, maxChars),
	}, "\n")
	user = fmt.Sprintf("original:\n%s\n\ncritique:\n%s", draft, critique)
	return system, user
}

// SummaryPrompt 回合摘要提示。
func SummaryPrompt(topic, recent string) (system, user string) {
	system = strings.Join([]string{
		"You are a summary assistant for a meeting.",
		"Summarize only what changed in the latest remarks: new decisions, new open issues, new risks.",
		"Answer as at most three short '-' bullets. Prefix open issues with 'issue:' and risks with 'risk:'.",
	}, "\n")
	var parts []string
	if topic != "" {
		parts = append(parts, "topic: "+topic)
	}
	parts = append(parts, "latest remarks:\n"+recent)
	return system, strings.Join(parts, "\n")
}

// ModeratorPrompt 均衡评分提示（非思考模式的发言者基准分）。
func ModeratorPrompt(topic, recent string, agentNames []string) (system, user string) {
	system = strings.Join([]string{
		"You are the moderator of a meeting. Score how much each participant should speak next so the discussion stays balanced.",
		"Answer with JSON only: " + `{"scores": {"<name>": 0.0}, "rationale": "short reason"}` + " with scores between 0 and 1.",
	}, "\n")
	var parts []string
	if topic != "" {
		parts = append(parts, "topic: "+topic)
	}
	if recent != "" {
		parts = append(parts, "recent remarks: "+recent)
	}
	parts = append(parts, "participants: "+strings.Join(agentNames, ", "))
	return system, strings.Join(parts, "\n")
}

// FinalNotesPrompt 最终纪要提示。
func FinalNotesPrompt(topic, flowSummary, pending string) (system, user string) {
	system = strings.Join([]string{
		"You are a discussion editor. Compile the final meeting notes from the conversation flow.",
		"Use exactly three sections with these headers, one '-' bullet per line:",
		"Agreed:",
		"Open issues:",
		"Next actions:",
		"Next actions must name an owner.",
	}, "\n")
	var parts []string
	if topic != "" {
		parts = append(parts, "topic: "+topic)
	}
	if flowSummary != "" {
		parts = append(parts, "conversation flow:\n"+flowSummary)
	}
	if pending != "" {
		parts = append(parts, "unresolved items:\n"+pending)
	}
	return system, strings.Join(parts, "\n")
}

// agentView 把参会者配置与个性揉成提示视角。
type agentView struct {
	name        string
	system      string
	style       string
	personality Personality
	hasPersona  bool
}

func (v agentView) systemLine() string {
	line := fmt.Sprintf("You are %s, a participant in a meeting.", v.name)
	if v.system != "" {
		line += " " + v.system
	}
	if v.style != "" {
		line += " Style: " + v.style
	}
	return line
}

func (v agentView) thinkingGuidance() string {
	if v.hasPersona {
		return v.personality.ThinkingGuidance
	}
	return ""
}

func (v agentView) speakingGuidance() string {
	if v.hasPersona {
		return v.personality.SpeakingGuidance
	}
	return ""
}

// CandidateThought 参加审查的一条思考草案。
type CandidateThought struct {
	Agent   string
	Thought string
}
