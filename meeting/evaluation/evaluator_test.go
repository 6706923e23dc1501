package evaluation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/types"
)

func testEvaluator() *Evaluator {
	cfg := config.DefaultConfig()
	cfg.Topic = "test"
	return New(cfg)
}

func turnsFrom(texts ...string) []types.Turn {
	turns := make([]types.Turn, len(texts))
	for i, text := range texts {
		turns[i] = types.Turn{Index: i + 1, Speaker: "a", Text: text}
	}
	return turns
}

func TestDiversity(t *testing.T) {
	t.Parallel()

	// 完全重复的相邻发言 → 多样性 0
	assert.InDelta(t, 0.0, Diversity([]string{"alpha beta gamma", "alpha beta gamma"}), 1e-9)
	// 完全不相交 → 多样性 1
	assert.InDelta(t, 1.0, Diversity([]string{"alpha beta", "gamma delta"}), 1e-9)
	// 发言不足
	assert.InDelta(t, 1.0, Diversity([]string{"solo remark"}), 1e-9)
	assert.InDelta(t, 1.0, Diversity(nil), 1e-9)
}

func TestDecisionDensity(t *testing.T) {
	t.Parallel()

	texts := []string{
		"We decide to ship on Monday.",
		"Interesting weather today.",
		"担当は田中、期限は金曜です。",
		"Just thinking out loud here.",
	}
	assert.InDelta(t, 0.5, DecisionDensity(texts), 1e-9)
	assert.Zero(t, DecisionDensity(nil))
}

func TestContainsDecisionWordCaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsDecisionWord("We AGREED on the plan"))
	assert.True(t, ContainsDecisionWord("次回までに決定する"))
	assert.False(t, ContainsDecisionWord("a pleasant chat about nothing"))
}

func TestStallDetected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hist []int
		want bool
	}{
		{"flat history", []int{3, 3, 3, 3}, true},
		{"strictly decreasing", []int{5, 4, 3, 2}, false},
		{"increasing", []int{2, 3, 4, 5}, false},
		{"too short", []int{3, 3}, false},
		{"flat tail after progress", []int{9, 4, 4, 4, 4}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StallDetected(tt.hist, 6))
		})
	}
}

func TestWindowRequiresThreeTurns(t *testing.T) {
	t.Parallel()

	e := testEvaluator()
	_, ok := e.Window(turnsFrom("one", "two"), nil)
	assert.False(t, ok)

	snap, ok := e.Window(turnsFrom("plan the demo", "list the risks", "assign the owner"), nil)
	require.True(t, ok)
	assert.Equal(t, 3, snap.Turn)
	assert.Equal(t, 3, snap.Window)
}

func TestWindowUsesOnlyRecentTurns(t *testing.T) {
	t.Parallel()

	e := testEvaluator()
	// 窗口=6（默认），前面的旧发言不应影响窗口值
	texts := make([]string, 0, 10)
	for i := 0; i < 4; i++ {
		texts = append(texts, "ancient filler remark about nothing")
	}
	texts = append(texts,
		"compare the caching options",
		"list the rollout risks",
		"assign an owner for the pilot",
		"set the deadline for friday",
		"review the safety checklist",
		"collect the kpi numbers",
	)
	snap, ok := e.Window(turnsFrom(texts...), nil)
	require.True(t, ok)
	assert.Equal(t, 10, snap.Turn)
	assert.Equal(t, 6, snap.Window)
	assert.Greater(t, snap.Diversity, 0.5)
}

func TestFinalProgressAndCoverage(t *testing.T) {
	t.Parallel()

	e := testEvaluator()
	final := "Goal reached; owner assigned with a deadline. Safety steps and KPI tracked. Risk accepted."
	snap := e.Final(turnsFrom("a b", "c d"), 4, 1, final)

	assert.InDelta(t, 0.75, snap.Progress, 1e-9)
	// goal, risk, owner, deadline, safety, steps, kpi → 全部命中
	assert.InDelta(t, 1.0, snap.SpecCoverage, 1e-9)
}

func TestFinalWithNoUnresolvedItems(t *testing.T) {
	t.Parallel()

	e := testEvaluator()
	snap := e.Final(turnsFrom("a", "b"), 0, 0, "")
	assert.Zero(t, snap.Progress)
	assert.Zero(t, snap.SpecCoverage)
}

func TestFinalProgressClampedWhenIssuesAppearLate(t *testing.T) {
	t.Parallel()

	e := testEvaluator()
	// 初期値ラッチ後に課題が増えたケースでも負に振れない
	snap := e.Final(turnsFrom("a", "b"), 0, 2, "")
	assert.Zero(t, snap.Progress)

	snap = e.Final(turnsFrom("a", "b"), 1, 4, "")
	assert.Zero(t, snap.Progress)
}

func TestWindowProgressMonotonicWithinPhase(t *testing.T) {
	t.Parallel()

	e := testEvaluator()
	turns := turnsFrom("plan the demo", "list the risks", "assign the owner")

	early, ok := e.Window(turns, []int{10, 8, 8, 8})
	require.True(t, ok)
	assert.InDelta(t, 0.2, early.Progress, 1e-9)

	// 下降点が履歴窓から滑り出ても阶段内では後退しない
	later, ok := e.Window(turns, []int{8, 8, 8, 8})
	require.True(t, ok)
	assert.InDelta(t, 0.2, later.Progress, 1e-9)

	// 阶段切替で下限はリセットされる
	e.PhaseReset()
	reset, ok := e.Window(turns, []int{8, 8, 8, 8})
	require.True(t, ok)
	assert.Zero(t, reset.Progress)
}

// ---------------------------------------------------------------------------
// 性质测试
// ---------------------------------------------------------------------------

func TestWindowIsIdempotent(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		e := testEvaluator()
		n := rapid.IntRange(3, 12).Draw(t, "n")
		texts := make([]string, n)
		for i := range texts {
			texts[i] = rapid.StringMatching(`[a-z]{2,8}( [a-z]{2,8}){0,6}`).
				Draw(t, fmt.Sprintf("text%d", i))
		}
		turns := turnsFrom(texts...)

		first, ok1 := e.Window(turns, []int{3, 2, 2})
		second, ok2 := e.Window(turns, []int{3, 2, 2})
		if ok1 != ok2 || first != second {
			t.Fatalf("window KPI not idempotent: %+v vs %+v", first, second)
		}
	})
}

func TestDiversityStaysInUnitRange(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(t, "n")
		texts := make([]string, n)
		for i := range texts {
			texts[i] = rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, fmt.Sprintf("text%d", i))
		}
		d := Diversity(texts)
		if d < 0 || d > 1 {
			t.Fatalf("diversity out of range: %v", d)
		}
	})
}
