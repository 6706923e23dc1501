package control

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/types"
)

func monitorConfig() *config.MeetingConfig {
	cfg := config.DefaultConfig()
	cfg.Topic = "test"
	return cfg
}

func historyOf(texts ...string) []types.Turn {
	turns := make([]types.Turn, len(texts))
	for i, text := range texts {
		turns[i] = types.Turn{Index: i + 1, Speaker: "a", Text: text}
	}
	return turns
}

// feed 把逐条增长的历史喂给监视器，返回每步产出的事件。
func feed(m *Monitor, history []types.Turn, unresolvedHist []int, window int) []*PhaseEvent {
	var events []*PhaseEvent
	for i := 1; i <= len(history); i++ {
		if ev := m.Observe(history[:i], unresolvedHist, window); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func TestMonitorNeedsWindow(t *testing.T) {
	t.Parallel()

	m := NewMonitor(monitorConfig())
	assert.Nil(t, m.Observe(historyOf("one", "two"), nil, 8))
}

func TestMonitorLoopDetection(t *testing.T) {
	t.Parallel()

	cfg := monitorConfig()
	m := NewMonitor(cfg)

	// 同一句话反复出现 → loop_streak 累积 → candidate → confirmed
	repeated := "we keep saying the exact same words every single turn"
	history := historyOf(
		"set the table with fresh options",
		"another fresh angle appears here",
		repeated, repeated, repeated, repeated, repeated, repeated,
	)
	events := feed(m, history, nil, cfg.Monitor.PhaseWindow)

	require.NotEmpty(t, events)
	assert.Equal(t, PhaseEventCandidate, events[0].Status)
	assert.Equal(t, ReasonLoop, events[0].Reason)
	assert.GreaterOrEqual(t, events[0].LoopStreak, cfg.Monitor.LoopThreshold)

	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, PhaseEventConfirmed, events[1].Status)
	assert.GreaterOrEqual(t, events[1].Confidence, 0.55)
}

func TestMonitorCohesionWithUnresolvedDrop(t *testing.T) {
	t.Parallel()

	cfg := monitorConfig()
	cfg.Monitor.CohesionMin = 0.30
	cfg.Monitor.UnresolvedDrop = 0.25
	m := NewMonitor(cfg)

	// 高度相似但不近乎相同的发言（凝聚但不触发 loop）
	base := "refine the rollout plan with safety checks"
	history := historyOf(
		base+" alpha", base+" beta", base+" gamma",
		base+" delta", base+" epsilon", base+" zeta",
	)
	// 未解决项从 4 降到 1 → drop 0.75
	events := feed(m, history, []int{4, 3, 2, 1}, cfg.Monitor.PhaseWindow)

	require.NotEmpty(t, events)
	assert.Equal(t, ReasonCohesionUnresolved, events[0].Reason)
	assert.Greater(t, events[0].UnresolvedDrop, 0.5)
}

func TestMonitorConfirmedClosesWhenConditionFades(t *testing.T) {
	t.Parallel()

	cfg := monitorConfig()
	m := NewMonitor(cfg)

	repeated := "identical words repeated to force a loop candidate right now"
	history := historyOf(
		"opening move", "second move",
		repeated, repeated, repeated, repeated, repeated,
	)
	events := feed(m, history, nil, cfg.Monitor.PhaseWindow)
	require.NotEmpty(t, events)
	assert.Equal(t, PhaseEventConfirmed, events[len(events)-1].Status)

	// 条件消失：已确认的事件以 closed 收尾
	next := append(history, types.Turn{Index: len(history) + 1, Speaker: "a",
		Text: "a totally different subject emerges with unrelated vocabulary"})
	ev := m.Observe(next, nil, cfg.Monitor.PhaseWindow)
	require.NotNil(t, ev)
	assert.Equal(t, PhaseEventClosed, ev.Status)
}

func TestMonitorResetClearsState(t *testing.T) {
	t.Parallel()

	cfg := monitorConfig()
	m := NewMonitor(cfg)
	repeated := "repeat repeat repeat the same idea again and again"
	history := historyOf(repeated, repeated, repeated, repeated, repeated, repeated)
	feed(m, history, nil, cfg.Monitor.PhaseWindow)

	m.Reset()
	assert.Zero(t, m.loopStreak)
	assert.Nil(t, m.current)
}

func TestMonitorLoopPriorityOverCohesion(t *testing.T) {
	t.Parallel()

	// 两个条件同时成立时，loop 优先
	cfg := monitorConfig()
	cfg.Monitor.CohesionMin = 0.10
	cfg.Monitor.UnresolvedDrop = 0.10
	m := NewMonitor(cfg)

	repeated := "everything here is identical in every turn of the window"
	history := make([]types.Turn, 0, 8)
	for i := 0; i < 8; i++ {
		history = append(history, types.Turn{Index: i + 1, Speaker: "a", Text: repeated})
	}
	events := feed(m, history, []int{5, 1}, cfg.Monitor.PhaseWindow)
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, ReasonLoop, ev.Reason, fmt.Sprintf("status=%s", ev.Status))
	}
}
