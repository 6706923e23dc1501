package deliberation

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/llm/providers/deterministic"
	"github.com/BaSui01/meetingflow/types"
)

func deliberationConfig() *config.MeetingConfig {
	cfg := config.DefaultConfig()
	cfg.Topic = "improve the onboarding flow"
	cfg.Backend.Name = "deterministic"
	cfg.Agents = []config.AgentConfig{{Name: "aoi"}, {Name: "rin"}, {Name: "sora"}}
	cfg.Finalize()
	return cfg
}

func newTestGenerator(t *testing.T, cfg *config.MeetingConfig) *Generator {
	t.Helper()
	provider := deterministic.New(cfg.AgentNames())
	return New(cfg, provider, zap.NewNop(), rand.New(rand.NewSource(1)))
}

// ---------------------------------------------------------------------------
// 思考→審査→発言パイプライン
// ---------------------------------------------------------------------------

func TestThinkJudgeSpeakPipeline(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	g := newTestGenerator(t, cfg)
	ctx := context.Background()
	tc := TurnContext{PhaseGoal: "agree on the next step", Temperature: 0.7}

	var thoughts []CandidateThought
	for _, name := range cfg.AgentNames() {
		thought, err := g.Think(ctx, name, tc)
		require.NoError(t, err)
		require.NotEmpty(t, thought)
		thoughts = append(thoughts, CandidateThought{Agent: name, Thought: thought})
	}

	verdict, err := g.JudgeThoughts(ctx, tc, thoughts)
	require.NoError(t, err)
	assert.Contains(t, cfg.AgentNames(), verdict.Winner)
	require.Len(t, verdict.Scores, 3)

	remark, err := g.Speak(ctx, verdict.Winner, tc, thoughts[0].Thought)
	require.NoError(t, err)
	require.NotEmpty(t, remark)
	for _, line := range strings.Split(remark, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), cfg.Chat.MaxChars+1)
	}
	assert.LessOrEqual(t, len(strings.Split(remark, "\n")), cfg.Chat.MaxSentences)
}

func TestPipelineIsReplayable(t *testing.T) {
	t.Parallel()

	run := func() []string {
		cfg := deliberationConfig()
		g := newTestGenerator(t, cfg)
		ctx := context.Background()
		tc := TurnContext{Temperature: 0.7}

		var out []string
		for i := 0; i < 4; i++ {
			thought, err := g.Think(ctx, "aoi", tc)
			require.NoError(t, err)
			remark, err := g.Speak(ctx, "aoi", tc, thought)
			require.NoError(t, err)
			out = append(out, thought, remark)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestCritiquePassRevisesDraft(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	g := newTestGenerator(t, cfg)

	revised, err := g.CritiquePass(context.Background(), "aoi", TurnContext{Temperature: 0.7}, "We should do something.")
	require.NoError(t, err)
	assert.Contains(t, revised, "Revision")
}

func TestRoundSummaryProducesDelta(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	g := newTestGenerator(t, cfg)

	summary, err := g.RoundSummary(context.Background(), "aoi: we decide to pilot it")
	require.NoError(t, err)
	assert.Contains(t, summary, "delta")
}

func TestModeratorScoresCoverRoster(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	g := newTestGenerator(t, cfg)

	scores := g.ModeratorScores(context.Background(), "aoi: hello")
	require.Len(t, scores, 3)
	for _, name := range cfg.AgentNames() {
		assert.InDelta(t, 0.7, scores[name], 1e-9)
	}
}

func TestFinalNotesRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	g := newTestGenerator(t, cfg)

	notes, err := g.FinalNotes(context.Background(), []string{"record a walkthrough"})
	require.NoError(t, err)

	sections := ParseFinalNotes(notes)
	assert.NotEmpty(t, sections.Agreed)
	assert.NotEmpty(t, sections.OpenIssues)
	require.NotEmpty(t, sections.NextActions)
	assert.Contains(t, strings.Join(sections.NextActions, " "), "aoi")
}

// ---------------------------------------------------------------------------
// スコア補正と勝者決定
// ---------------------------------------------------------------------------

func TestApplyScoreModifiersCooldown(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig() // cooldown 0.10, span 1 → relief base 0.05
	g := newTestGenerator(t, cfg)

	scores := map[string]ScoreRecord{
		"aoi":  {Score: 0.8}, // 直前に発言 → 減点
		"rin":  {Score: 0.5}, // 久しく発言なし → 緩和ボーナス
		"sora": {Score: 0.5}, // 一度も発言なし → 新規ボーナス
	}
	st := SelectionState{
		GlobalTurn: 5,
		LastSpoke:  map[string]int{"aoi": 4, "rin": 2},
	}
	adjusted := g.ApplyScoreModifiers(scores, st)

	// aoi: 0.8 - 0.10*(1-1/2), rin: 0.5 + 0.05*min(2/2,1), sora: 0.5 + 0.05*0.5
	assert.InDelta(t, 0.75, adjusted["aoi"].Score, 1e-9)
	assert.InDelta(t, 0.55, adjusted["rin"].Score, 1e-9)
	assert.InDelta(t, 0.525, adjusted["sora"].Score, 1e-9)
}

func TestApplyScoreModifiersKPIBoosts(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	cfg.Selection.Cooldown = 0
	g := newTestGenerator(t, cfg)

	scores := map[string]ScoreRecord{
		"aoi": {Score: 0.5, Novelty: 1.0, Action: 1.0},
		"rin": {Score: 0.5, Novelty: 0.1},
	}
	st := SelectionState{
		HasMetrics: true,
		Metrics:    types.KPISnapshot{Diversity: 0.25, DecisionDensity: 0.20},
	}
	adjusted := g.ApplyScoreModifiers(scores, st)

	// aoi: +0.2*0.5 (novelty) + 0.15*0.2 (action)
	assert.InDelta(t, 0.63, adjusted["aoi"].Score, 1e-9)
	// rin: 低 novelty は減点方向 0.2*((0.05)-(0.2*0.9))
	assert.InDelta(t, 0.5+0.2*(0.05-0.18), adjusted["rin"].Score, 1e-9)
}

func TestResolveWinnerPrefersRequested(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t, deliberationConfig())
	v := Verdict{Winner: "rin", Scores: map[string]ScoreRecord{"aoi": {Score: 0.9}}}
	assert.Equal(t, "rin", g.ResolveWinner(v, SelectionState{}))
}

func TestResolveWinnerSkipsPreviousSpeaker(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t, deliberationConfig())
	v := Verdict{
		Winner: "rin",
		Scores: map[string]ScoreRecord{
			"aoi":  {Score: 0.6},
			"rin":  {Score: 0.9},
			"sora": {Score: 0.6},
		},
	}
	// 指名が直前の発言者 → 残りの最高点（同点は名簿順）
	winner := g.ResolveWinner(v, SelectionState{Previous: "rin"})
	assert.Equal(t, "aoi", winner)
}

func TestSelectSpeakerPenalizesSimilarity(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	cfg.Selection.SelectTemp = 0.01 // ほぼ貪欲
	cfg.Selection.Cooldown = 0
	g := newTestGenerator(t, cfg)

	recent := "we should pilot the onboarding flow"
	winner := g.SelectSpeaker(
		map[string]float64{"aoi": 0.5, "rin": 0.5, "sora": 0.1},
		SelectionState{
			RecentText:    recent,
			LastUtterance: map[string]string{"rin": recent},
		},
	)
	assert.Equal(t, "aoi", winner)
}

func TestSelectSpeakerAppliesCooldown(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	cfg.Selection.SelectTemp = 0.01
	cfg.Selection.Cooldown = 0.6
	g := newTestGenerator(t, cfg)

	winner := g.SelectSpeaker(
		map[string]float64{"aoi": 0.9, "rin": 0.5, "sora": 0.1},
		SelectionState{
			GlobalTurn: 5,
			LastSpoke:  map[string]int{"aoi": 5},
		},
	)
	assert.Equal(t, "rin", winner)
}

// ---------------------------------------------------------------------------
// 会話の流れサマリーと覚書
// ---------------------------------------------------------------------------

func TestFlowSummaryDeduplicatesAndCaps(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig() // chat.window 2 → 上限 6 行
	g := newTestGenerator(t, cfg)

	g.RecordFlow("- decided to pilot it")
	g.RecordFlow("decided to pilot it") // 正規化後は重複
	assert.Equal(t, "- decided to pilot it", g.FlowSummary())

	for _, line := range []string{"a1", "b2", "c3", "d4", "e5", "f6", "g7"} {
		g.RecordFlow(line + " point")
	}
	summary := g.FlowSummary()
	assert.Len(t, strings.Split(summary, "\n"), 6)
	assert.NotContains(t, summary, "decided to pilot it")
	assert.Contains(t, summary, "g7 point")
}

func TestGeneratorSeedsPersonaAndInitialMemory(t *testing.T) {
	t.Parallel()

	cfg := deliberationConfig()
	cfg.Agents[0].Memory = []string{"decision: keep the safety checks"}
	g := newTestGenerator(t, cfg)

	snapshot := g.Memory().Snapshot("aoi")
	require.NotEmpty(t, snapshot)
	assert.Contains(t, snapshot[0], "personality profile")
	assert.Contains(t, snapshot, "decision: keep the safety checks")
}

func TestParseFinalNotesSections(t *testing.T) {
	t.Parallel()

	text := "Agreed:\n- pilot with a small group\nOpen issues:\n- record a walkthrough\nNext actions:\n- aoi prepares the plan\n- rin finalizes the design"
	sections := ParseFinalNotes(text)

	assert.Equal(t, []string{"pilot with a small group"}, sections.Agreed)
	assert.Equal(t, []string{"record a walkthrough"}, sections.OpenIssues)
	assert.Equal(t, []string{"aoi prepares the plan", "rin finalizes the design"}, sections.NextActions)
}
