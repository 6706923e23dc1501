// Package evaluation 从会议记录中计算 KPI（多样性、决定密度、进展、覆盖率）。
//
// 多样性与决定密度永远从转录窗口重新导出，同一窗口上的重复计算结果
// 完全一致。进展（progress）在阶段内单调不减：窗口滑过下降点后沿用
// 阶段内已达到的最高值，阶段切换时用 PhaseReset 归零。
package evaluation

import (
	"strings"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/internal/textsim"
	"github.com/BaSui01/meetingflow/types"
)

// DecisionWords 判定“决定性发言”的关键词（中英日混合，子串匹配）。
var DecisionWords = []string{
	"決定", "合意", "採用", "実施", "次回", "担当", "期限",
	"decide", "decision", "agree", "agreed", "adopt",
	"owner", "deadline", "next action", "propose",
}

// Evaluator 从会议记录计算 KPI。
type Evaluator struct {
	cfg *config.MeetingConfig

	// 阶段内 progress 的下限。窗口滑动导致的见かけ上の後退を吸収する。
	progressFloor float64
}

// New 创建评估器。
func New(cfg *config.MeetingConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// PhaseReset 在阶段开启时复位阶段内 progress 下限。
func (e *Evaluator) PhaseReset() {
	e.progressFloor = 0
}

// ContainsDecisionWord 判断文本是否包含决定性关键词。
func ContainsDecisionWord(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range DecisionWords {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// Diversity 计算相邻发言的词汇多样性：1 − 平均相邻 Jaccard。
// 发言少于 2 条时返回 1.0。
func Diversity(texts []string) float64 {
	if len(texts) < 2 {
		return 1.0
	}
	var sum float64
	for i := 0; i < len(texts)-1; i++ {
		sum += textsim.Similarity(texts[i], texts[i+1])
	}
	return 1.0 - sum/float64(len(texts)-1)
}

// DecisionDensity 计算包含决定性关键词的发言占比。
func DecisionDensity(texts []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	hits := 0
	for _, t := range texts {
		if ContainsDecisionWord(t) {
			hits++
		}
	}
	return float64(hits) / float64(len(texts))
}

// StallDetected 判断未解决数在近期是否停滞：
// 取最后 min(4, window) 个计数，若全程无变化、或单调不增且从未严格下降，
// 则视为停滞。样本不足时返回 false。
func StallDetected(unresolvedHist []int, window int) bool {
	need := window
	if need > 4 {
		need = 4
	}
	if len(unresolvedHist) < need || need < 2 {
		return false
	}
	recent := unresolvedHist[len(unresolvedHist)-need:]

	nonIncreasing := true
	strictlyDecreased := false
	noChange := true
	for i := 1; i < len(recent); i++ {
		if recent[i] > recent[i-1] {
			nonIncreasing = false
		}
		if recent[i] < recent[i-1] {
			strictlyDecreased = true
		}
		if recent[i] != recent[0] {
			noChange = false
		}
	}
	return noChange || (nonIncreasing && !strictlyDecreased)
}

// Window 在最近 kpi_window 条发言上计算迷你 KPI。
// 窗口内发言不足 3 条时返回 ok=false。
func (e *Evaluator) Window(turns []types.Turn, unresolvedHist []int) (types.KPISnapshot, bool) {
	w := e.cfg.KPI.Window
	if w < 3 {
		w = 3
	}
	window := turns
	if len(turns) > w {
		window = turns[len(turns)-w:]
	}
	if len(window) < 3 {
		return types.KPISnapshot{}, false
	}

	texts := make([]string, len(window))
	for i, t := range window {
		texts[i] = t.Text
	}

	progress := progressFromHist(unresolvedHist)
	if progress < e.progressFloor {
		progress = e.progressFloor
	} else {
		e.progressFloor = progress
	}

	return types.KPISnapshot{
		Turn:            len(turns),
		Window:          len(window),
		Diversity:       Diversity(texts),
		DecisionDensity: DecisionDensity(texts),
		Progress:        progress,
		Stall:           StallDetected(unresolvedHist, w),
	}, true
}

// Final 在整场会议上计算最终 KPI。
// progress 以未解决项的初始/最终数量衡量，coverage 以必须关键词在
// 最终纪要中的出现比例衡量。
func (e *Evaluator) Final(turns []types.Turn, initialUnresolved, finalUnresolved int, finalText string) types.KPISnapshot {
	texts := make([]string, len(turns))
	for i, t := range turns {
		texts[i] = t.Text
	}

	denom := initialUnresolved
	if denom < 1 {
		denom = 1
	}
	// 終盤に新しい課題が積まれると差分が負に振れるので [0,1] に丸める
	progress := textsim.Clamp(float64(initialUnresolved-finalUnresolved)/float64(denom), 0, 1)

	return types.KPISnapshot{
		Turn:            len(turns),
		Window:          len(turns),
		Progress:        progress,
		Diversity:       Diversity(texts),
		DecisionDensity: DecisionDensity(texts),
		SpecCoverage:    e.Coverage(finalText),
	}
}

// Coverage 计算必须关键词在文本中的覆盖比例。
func (e *Evaluator) Coverage(text string) float64 {
	terms := e.cfg.KPI.CoverageTerms
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// progressFromHist 用未解决数历史估算窗口期进展。
func progressFromHist(unresolvedHist []int) float64 {
	if len(unresolvedHist) < 2 {
		return 0
	}
	first := unresolvedHist[0]
	last := unresolvedHist[len(unresolvedHist)-1]
	if first <= 0 {
		return 0
	}
	p := float64(first-last) / float64(first)
	if p < 0 {
		return 0
	}
	return p
}
