package deliberation

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/internal/textsim"
	"github.com/BaSui01/meetingflow/llm"
	"github.com/BaSui01/meetingflow/types"
)

// tokenCounter 用 tiktoken 估算 token 数，编码器加载失败时退回字符估算。
type tokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (t *tokenCounter) Count(text string) int {
	t.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			t.enc = enc
		}
	})
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return utf8.RuneCountInString(text)/4 + 1
}

// flowSummaryTokenBudget 注入提示的流れ要約 token 预算。
const flowSummaryTokenBudget = 700

// TurnContext 生成一次发言所需的会议切片。
type TurnContext struct {
	PhaseGoal   string
	Recent      string
	LastSummary string
	Hints       []string
	Temperature float64
	MaxTokens   int
}

// SelectionState 发言者裁决所需的历史状态。
type SelectionState struct {
	GlobalTurn    int
	Previous      string
	LastSpoke     map[string]int    // 参会者 → 最后发言的全局回合
	LastUtterance map[string]string // 参会者 → 最后一次发言内容
	RecentText    string            // sim_window 内发言的连接文本
	Metrics       types.KPISnapshot
	HasMetrics    bool
}

// Generator 驱动思考→审查→发言管线的全部 LLM 调用。
type Generator struct {
	cfg      *config.MeetingConfig
	provider llm.Provider
	logger   *zap.Logger
	rng      *rand.Rand
	tokens   tokenCounter

	personas map[string]Personality
	memory   *MemoryStore

	mu       sync.Mutex
	flowSeen map[string]struct{}
	flow     []string
}

// New 创建发言生成器。rng 为 nil 时按 PersonalitySeed（0 则取当前时刻）初始化。
func New(cfg *config.MeetingConfig, provider llm.Provider, logger *zap.Logger, rng *rand.Rand) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		seed := cfg.PersonalitySeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	g := &Generator{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With(zap.String("component", "deliberation")),
		rng:      rng,
		personas: AssignPersonalities(cfg.AgentNames(), rng),
		memory:   NewMemoryStore(cfg.Memory.AgentLimit, cfg.Memory.AgentWindow),
		flowSeen: make(map[string]struct{}),
	}
	for _, a := range cfg.Agents {
		if p, ok := g.personas[a.Name]; ok {
			g.memory.SetSeed(a.Name, p.MemoryEntryText())
		}
		for _, note := range a.Memory {
			g.memory.Add(a.Name, note)
		}
	}
	return g
}

// Personas 返回本场会议的个性分配（日志用）。
func (g *Generator) Personas() map[string]Personality { return g.personas }

// Memory 返回覚書存储。
func (g *Generator) Memory() *MemoryStore { return g.memory }

func (g *Generator) view(agentName string) agentView {
	v := agentView{name: agentName}
	for _, a := range g.cfg.Agents {
		if a.Name == agentName {
			v.system = a.System
			v.style = a.Style
			break
		}
	}
	if p, ok := g.personas[agentName]; ok {
		v.personality = p
		v.hasPersona = true
	}
	return v
}

func (g *Generator) promptContext(agentName string, tc TurnContext) PromptContext {
	return PromptContext{
		Topic:       g.cfg.Topic,
		PhaseGoal:   tc.PhaseGoal,
		Recent:      tc.Recent,
		LastSummary: tc.LastSummary,
		FlowSummary: g.FlowSummary(),
		Memory:      g.memory.Format(agentName),
		Hints:       tc.Hints,
	}
}

// complete 发起一次补全；可重试错误时重试一次。
func (g *Generator) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = g.cfg.Backend.MaxTokens
	}
	req := &llm.ChatRequest{
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	}

	resp, err := g.provider.Completion(ctx, req)
	if err != nil {
		var me *types.Error
		if errors.As(err, &me) && me.Retryable && ctx.Err() == nil {
			g.logger.Warn("completion failed, retrying once",
				zap.String("provider", g.provider.Name()), zap.Error(err))
			resp, err = g.provider.Completion(ctx, req)
		}
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Think 生成参会者的私密思考。
func (g *Generator) Think(ctx context.Context, agentName string, tc TurnContext) (string, error) {
	system, user := ThinkPrompt(g.view(agentName), g.promptContext(agentName, tc))
	return g.complete(ctx, system, user, tc.Temperature, tc.MaxTokens)
}

// JudgeThoughts 请中立审查者为思考草案评分并指名发言者。
func (g *Generator) JudgeThoughts(ctx context.Context, tc TurnContext, thoughts []CandidateThought) (Verdict, error) {
	pc := g.promptContext("", tc)
	pc.Memory = ""
	system, user := JudgePrompt(pc, thoughts,
		g.cfg.Think.JudgeIncludeTopic,
		g.cfg.Think.JudgeIncludeRecent,
		g.cfg.Think.JudgeIncludeRecentSummary,
		g.cfg.Think.JudgeIncludeFlowSummary,
	)
	raw, err := g.complete(ctx, system, user, 0.2, 600)
	if err != nil {
		return Verdict{}, err
	}
	return ParseVerdict(raw, g.cfg.AgentNames(), g.rng), nil
}

// Speak 把思考转成公开发言。整形后为空时用简化提示再试一次。
func (g *Generator) Speak(ctx context.Context, agentName string, tc TurnContext, thought string) (string, error) {
	maxSentences, maxChars := g.chatLimits()
	system, user := SpeakPrompt(g.view(agentName), g.promptContext(agentName, tc), thought, maxSentences, maxChars)
	raw, err := g.complete(ctx, system, user, tc.Temperature, tc.MaxTokens)
	if err != nil {
		return "", err
	}
	out := g.shape(raw)
	if out != "" {
		return out, nil
	}

	g.logger.Debug("empty remark after shaping, retrying with the simplified prompt",
		zap.String("agent", agentName))
	system, user = SimplifiedSpeakPrompt(g.view(agentName), thought, maxSentences, maxChars)
	raw, err = g.complete(ctx, system, user, tc.Temperature, tc.MaxTokens)
	if err != nil {
		return "", err
	}
	if out = g.shape(raw); out != "" {
		return out, nil
	}
	// 双方とも空：思考そのものを整形して使う
	return g.shape(thought), nil
}

// PlainSpeak 非思考模式的直接发言。
func (g *Generator) PlainSpeak(ctx context.Context, agentName string, tc TurnContext) (string, error) {
	maxSentences, maxChars := g.chatLimits()
	system, user := PlainSpeakPrompt(g.view(agentName), g.promptContext(agentName, tc), maxSentences, maxChars)
	raw, err := g.complete(ctx, system, user, tc.Temperature, tc.MaxTokens)
	if err != nil {
		return "", err
	}
	return g.shape(raw), nil
}

// CritiquePass 对草稿做一次自检并改写。任一步失败时原样返回草稿。
func (g *Generator) CritiquePass(ctx context.Context, agentName string, tc TurnContext, draft string) (string, error) {
	system, user := CritiquePrompt(g.view(agentName), draft)
	critique, err := g.complete(ctx, system, user, 0.3, 200)
	if err != nil || strings.TrimSpace(critique) == "" {
		return draft, err
	}

	maxSentences, maxChars := g.chatLimits()
	system, user = RevisePrompt(g.view(agentName), draft, critique, maxSentences, maxChars)
	revised, err := g.complete(ctx, system, user, tc.Temperature, tc.MaxTokens)
	if err != nil {
		return draft, err
	}
	if out := g.shape(revised); out != "" {
		return out, nil
	}
	return draft, nil
}

// RoundSummary 生成一轮发言的差分摘要。
func (g *Generator) RoundSummary(ctx context.Context, recent string) (string, error) {
	system, user := SummaryPrompt(g.cfg.Topic, recent)
	return g.complete(ctx, system, user,
		g.cfg.SummaryProbe.Temperature, g.cfg.SummaryProbe.MaxTokens)
}

// ModeratorScores 请司会者给出均衡基准分（非思考模式）。
// 调用失败时退回 0.5 均匀分布。
func (g *Generator) ModeratorScores(ctx context.Context, recent string) map[string]float64 {
	names := g.cfg.AgentNames()
	system, user := ModeratorPrompt(g.cfg.Topic, recent, names)
	raw, err := g.complete(ctx, system, user, 0.2, 600)
	if err != nil {
		g.logger.Warn("moderator scoring failed, falling back to uniform scores", zap.Error(err))
		out := make(map[string]float64, len(names))
		for _, n := range names {
			out[n] = 0.5
		}
		return out
	}
	return ParseModeratorScores(raw, names)
}

// FinalNotes 生成最终纪要全文。
func (g *Generator) FinalNotes(ctx context.Context, pending []string) (string, error) {
	var pendingBlock string
	if len(pending) > 0 {
		pendingBlock = "- " + strings.Join(pending, "\n- ")
	}
	system, user := FinalNotesPrompt(g.cfg.Topic, g.FlowSummary(), pendingBlock)
	return g.complete(ctx, system, user, 0.3, g.cfg.Backend.MaxTokens)
}

func (g *Generator) chatLimits() (sentences, chars int) {
	if !g.cfg.Chat.Enabled {
		return 0, 0
	}
	return g.cfg.Chat.MaxSentences, g.cfg.Chat.MaxChars
}

func (g *Generator) shape(raw string) string {
	sentences, chars := g.chatLimits()
	return EnforceChatConstraints(raw, sentences, chars)
}

// ---------------------------------------------------------------------------
// 发言者裁决
// ---------------------------------------------------------------------------

const (
	diversityBoostThreshold = 0.45
	decisionBoostThreshold  = 0.40
)

// ApplyScoreModifiers 在决出发言者前叠加冷却与 KPI 修正。
func (g *Generator) ApplyScoreModifiers(scores map[string]ScoreRecord, st SelectionState) map[string]ScoreRecord {
	if len(scores) == 0 {
		return scores
	}
	cooldown := maxFloat(g.cfg.Selection.Cooldown, 0)
	span := g.cfg.Selection.CooldownSpan
	if span < 0 {
		span = 0
	}
	reliefBase := 0.05
	if cooldown > 0 {
		reliefBase = textsim.Clamp(cooldown*0.5, 0, 0.1)
	}

	adjusted := make(map[string]ScoreRecord, len(scores))
	for name, rec := range scores {
		score := rec.Score
		lastTurn, spoke := st.LastSpoke[name]
		switch {
		case cooldown > 0 && spoke:
			ago := st.GlobalTurn - lastTurn
			if ago >= 0 && ago <= span {
				decay := 1.0
				if span > 0 {
					decay = 1.0 - float64(ago)/float64(span+1)
				}
				score -= cooldown * maxFloat(decay, 0)
			} else if ago > span {
				bonusScale := float64(ago-span) / float64(span+1)
				score += reliefBase * minFloat(bonusScale, 1.0)
			}
		case cooldown > 0 && !spoke && st.GlobalTurn > 0:
			score += reliefBase * 0.5
		}

		if st.HasMetrics && st.Metrics.Diversity < diversityBoostThreshold && rec.Novelty > 0 {
			gap := diversityBoostThreshold - st.Metrics.Diversity
			novelty := textsim.Clamp(rec.Novelty, 0, 1)
			score += gap * ((0.5 * novelty) - (0.2 * (1.0 - novelty)))
		}
		if st.HasMetrics && st.Metrics.DecisionDensity < decisionBoostThreshold && rec.Action > 0 {
			gap := decisionBoostThreshold - st.Metrics.DecisionDensity
			score += 0.15 * gap * rec.Action
		}

		rec.Score = textsim.Clamp(score, 0, 1)
		adjusted[name] = rec
	}
	return adjusted
}

// ResolveWinner 结合直前发言者与修正分数决出发言者。
// 审查者指名有效且不是直前发言者时直接采纳；否则排除直前发言者后
// 取修正分最高者（并列时按名册顺序取首位）。
func (g *Generator) ResolveWinner(v Verdict, st SelectionState) string {
	names := g.cfg.AgentNames()
	if len(names) == 0 {
		return ""
	}
	previous := ""
	for _, n := range names {
		if n == st.Previous {
			previous = n
			break
		}
	}
	if v.Winner != "" && v.Winner != previous {
		for _, n := range names {
			if n == v.Winner {
				return v.Winner
			}
		}
	}

	scores := g.ApplyScoreModifiers(v.Scores, st)
	best := ""
	bestScore := -1.0
	for _, n := range names {
		if n == previous {
			continue
		}
		s := scores[n].Score
		if s > bestScore {
			best = n
			bestScore = s
		}
	}
	if best == "" {
		if v.Winner != "" {
			return v.Winner
		}
		if previous != "" {
			return previous
		}
		return names[0]
	}
	return best
}

// SelectSpeaker 非思考模式的发言者抽选：
// 基准分 − 冷却 − 相似度惩罚，取 top-K 后按 select_temp 做 softmax 抽选。
func (g *Generator) SelectSpeaker(base map[string]float64, st SelectionState) string {
	names := g.cfg.AgentNames()
	if len(names) == 0 {
		return ""
	}

	recentTokens := textsim.TokenSet(st.RecentText)
	adjusted := make([]textsim.ScoredName, 0, len(names))
	for _, name := range names {
		s := base[name]
		if lastTurn, ok := st.LastSpoke[name]; ok {
			ago := st.GlobalTurn - lastTurn
			if ago >= 0 && ago <= g.cfg.Selection.CooldownSpan {
				s -= g.cfg.Selection.Cooldown
			}
		}
		if last := st.LastUtterance[name]; last != "" && len(recentTokens) > 0 {
			sim := textsim.Jaccard(textsim.TokenSet(last), recentTokens)
			s -= g.cfg.Selection.SimPenalty * sim
		}
		adjusted = append(adjusted, textsim.ScoredName{Name: name, Score: s})
	}

	sort.SliceStable(adjusted, func(i, j int) bool { return adjusted[i].Score > adjusted[j].Score })
	topK := g.cfg.Selection.TopK
	if topK < 1 {
		topK = 1
	}
	if len(adjusted) > topK {
		adjusted = adjusted[:topK]
	}
	return textsim.SoftmaxPick(adjusted, g.cfg.Selection.SelectTemp, g.rng)
}

// ---------------------------------------------------------------------------
// 会話の流れサマリー
// ---------------------------------------------------------------------------

// RecordFlow 把新增要点并入流れ要約（按正规化文本去重）。
func (g *Generator) RecordFlow(lines ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, line := range lines {
		for _, piece := range strings.Split(line, "\n") {
			normalized := normalizeFlowLine(piece)
			if normalized == "" {
				continue
			}
			if _, seen := g.flowSeen[normalized]; seen {
				continue
			}
			g.flowSeen[normalized] = struct{}{}
			g.flow = append(g.flow, normalized)
		}
	}

	limit := g.cfg.Chat.Window * 3
	if limit < 4 {
		limit = 4
	}
	if len(g.flow) > limit {
		dropped := g.flow[:len(g.flow)-limit]
		for _, d := range dropped {
			delete(g.flowSeen, d)
		}
		g.flow = g.flow[len(g.flow)-limit:]
	}
}

// FlowSummary 返回注入提示的流れ要約（"- " 箇条書き、token 预算内截取最新行）。
func (g *Generator) FlowSummary() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.flow) == 0 {
		return ""
	}
	kept := g.flow
	for len(kept) > 1 && g.tokens.Count(strings.Join(kept, "\n")) > flowSummaryTokenBudget {
		kept = kept[1:]
	}
	var b strings.Builder
	for i, line := range kept {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}

func normalizeFlowLine(line string) string {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-・*• \t"))
	return chatSpaceRunRe.ReplaceAllString(line, " ")
}

// ---------------------------------------------------------------------------
// 最终纪要解析
// ---------------------------------------------------------------------------

// FinalSections 最终纪要按节拆分后的条目。
type FinalSections struct {
	Agreed      []string
	OpenIssues  []string
	NextActions []string
}

// ParseFinalNotes 把纪要全文按 Agreed/Open issues/Next actions 三节拆开。
// 未归属任何节的行计入 Agreed。
func ParseFinalNotes(text string) FinalSections {
	var out FinalSections
	target := &out.Agreed
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch strings.ToLower(strings.TrimRight(trimmed, ":：")) {
		case "agreed", "agreements", "合意事項":
			target = &out.Agreed
			continue
		case "open issues", "open issue", "残課題":
			target = &out.OpenIssues
			continue
		case "next actions", "next action", "ネクストアクション":
			target = &out.NextActions
			continue
		}
		item := strings.TrimSpace(strings.TrimLeft(trimmed, "-・* \t"))
		if item != "" {
			*target = append(*target, item)
		}
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
