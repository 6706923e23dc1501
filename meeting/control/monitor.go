package control

import (
	"fmt"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/internal/textsim"
	"github.com/BaSui01/meetingflow/types"
)

// PhaseEventStatus 表示阶段检测事件的生命周期状态。
type PhaseEventStatus string

const (
	PhaseEventCandidate PhaseEventStatus = "candidate"
	PhaseEventConfirmed PhaseEventStatus = "confirmed"
	PhaseEventClosed    PhaseEventStatus = "closed"
)

// 阶段确定的触发原因
const (
	ReasonLoop               = "loop"
	ReasonCohesionUnresolved = "cohesion_unresolved"
)

// PhaseEvent 记录一次阶段检测的状态跃迁。
type PhaseEvent struct {
	StartTurn      int
	EndTurn        int
	Status         PhaseEventStatus
	Confidence     float64
	Summary        string
	Reason         string
	Cohesion       float64
	UnresolvedDrop float64
	LoopStreak     int
	ShockUsed      string
}

// confirmRequired 候选事件升级为 confirmed 所需的连续命中次数。
const confirmRequired = 2

// Monitor 监视发言窗口并检测阶段边界。
//
// 循环（最近两条发言相似度 ≥ loopSimThreshold 连续 K 次）优先于
// 凝聚度+未解决项下降的组合条件。
type Monitor struct {
	cfg          *config.MeetingConfig
	lastTurnIdx  int
	loopStreak   int
	current      *PhaseEvent
	candidateHit int
}

// 视为“几乎原话重复”的相似度下限
const loopSimThreshold = 0.90

// NewMonitor 创建阶段监视器。
func NewMonitor(cfg *config.MeetingConfig) *Monitor {
	return &Monitor{cfg: cfg}
}

// Reset 在阶段边界清空内部状态。
func (m *Monitor) Reset() {
	m.loopStreak = 0
	m.current = nil
	m.candidateHit = 0
}

// Observe 处理一条新发言后的转录，返回状态发生跃迁的事件：
// candidate（新候选）、confirmed（候选坐实）、closed（条件消失后收尾）。
// 无跃迁时返回 nil。
func (m *Monitor) Observe(history []types.Turn, unresolvedHist []int, window int) *PhaseEvent {
	if len(history)-m.lastTurnIdx < 1 {
		return nil
	}
	m.lastTurnIdx = len(history)

	w := window
	if w > len(history) {
		w = len(history)
	}
	if w < 3 {
		return nil
	}
	recent := history[len(history)-w:]
	sets := make([]map[string]struct{}, w)
	for i, t := range recent {
		sets[i] = textsim.TokenSet(t.Text)
	}

	var simSum float64
	cnt := 0
	for i := 0; i < w-1; i++ {
		for j := i + 1; j < w; j++ {
			simSum += textsim.Jaccard(sets[i], sets[j])
			cnt++
		}
	}
	cohesion := 0.0
	if cnt > 0 {
		cohesion = simSum / float64(cnt)
	}

	if len(recent) >= 2 {
		if textsim.Jaccard(sets[w-1], sets[w-2]) >= loopSimThreshold {
			m.loopStreak++
		} else {
			m.loopStreak = 0
		}
	}

	unresolvedDrop := 0.0
	if len(unresolvedHist) >= 2 {
		first := unresolvedHist[0]
		last := unresolvedHist[len(unresolvedHist)-1]
		if first > 0 {
			unresolvedDrop = float64(first-last) / float64(first)
			if unresolvedDrop < 0 {
				unresolvedDrop = 0
			}
		}
	}

	reason := ""
	switch {
	case m.loopStreak >= m.cfg.Monitor.LoopThreshold:
		reason = ReasonLoop
	case cohesion >= m.cfg.Monitor.CohesionMin && unresolvedDrop >= m.cfg.Monitor.UnresolvedDrop:
		reason = ReasonCohesionUnresolved
	}

	if reason == "" {
		if m.current == nil {
			return nil
		}
		if m.current.Status == PhaseEventConfirmed {
			// 条件消失：确认中的事件收尾
			m.current.Status = PhaseEventClosed
			event := m.current
			m.current = nil
			m.candidateHit = 0
			return event
		}
		// 候选未坐实就失效
		m.current = nil
		m.candidateHit = 0
		return nil
	}

	startTurn := len(history) - w + 1
	endTurn := len(history)
	summary := summarizePhase(recent)
	confidence := m.estimateConfidence(reason, cohesion, unresolvedDrop)

	if m.current == nil {
		m.candidateHit = 1
		m.current = &PhaseEvent{
			StartTurn:      startTurn,
			EndTurn:        endTurn,
			Status:         PhaseEventCandidate,
			Confidence:     confidence,
			Summary:        summary,
			Reason:         reason,
			Cohesion:       cohesion,
			UnresolvedDrop: unresolvedDrop,
			LoopStreak:     m.loopStreak,
		}
		return m.current
	}

	// 已有候选/确认事件在进行中，滚动更新观测值
	if startTurn < m.current.StartTurn {
		m.current.StartTurn = startTurn
	}
	m.current.EndTurn = endTurn
	m.current.Summary = summary
	m.current.Reason = reason
	m.current.Cohesion = cohesion
	m.current.UnresolvedDrop = unresolvedDrop
	m.current.LoopStreak = m.loopStreak
	m.current.Confidence = confidence

	if m.current.Status == PhaseEventCandidate {
		m.candidateHit++
		if m.candidateHit >= confirmRequired {
			m.current.Status = PhaseEventConfirmed
			return m.current
		}
		return nil
	}

	// confirmed 状态持续中
	return nil
}

// estimateConfidence 估算检测结果的置信度。
func (m *Monitor) estimateConfidence(reason string, cohesion, unresolvedDrop float64) float64 {
	var base float64
	if reason == ReasonLoop {
		over := m.loopStreak - m.cfg.Monitor.LoopThreshold + 1
		if over < 0 {
			over = 0
		}
		base = 0.55 + 0.1*float64(over)
	} else {
		cohSpan := 1.0 - m.cfg.Monitor.CohesionMin
		if cohSpan < 1e-6 {
			cohSpan = 1e-6
		}
		cohScore := (cohesion - m.cfg.Monitor.CohesionMin) / cohSpan
		if cohScore < 0 {
			cohScore = 0
		}
		dropReq := m.cfg.Monitor.UnresolvedDrop
		if dropReq < 1e-6 {
			dropReq = 1e-6
		}
		dropScore := unresolvedDrop / dropReq
		if dropScore < 0 {
			dropScore = 0
		}
		base = 0.45 + 0.3*minF(1.0, cohScore) + 0.25*minF(1.0, dropScore)
	}
	return textsim.Clamp(base, 0.0, 1.0)
}

func summarizePhase(turns []types.Turn) string {
	head := truncateRunes(turns[0].Text, 60)
	tail := truncateRunes(turns[len(turns)-1].Text, 60)
	return fmt.Sprintf("phase window: %q … %q", head, tail)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
