package control

import (
	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/meeting/evaluation"
	"github.com/BaSui01/meetingflow/types"
)

// TuneDirective 描述一次参数自动调整：加 Delta，并裁剪到 [Min, Max]。
type TuneDirective struct {
	Delta float64
	Min   float64
	Max   float64
}

// Assessment 是 KPIFeedback 一次评估的产出。
// 阈值未被触及时 Hints 与 Tune 为空，也不触发 shock。
type Assessment struct {
	Metrics      types.KPISnapshot
	Hints        []string
	Tune         map[string]TuneDirective
	ShockMode    string // stall 时建议的模式覆盖
	TriggerShock bool
	ShockReason  string
}

// Empty 判断评估是否没有任何干预。
func (a Assessment) Empty() bool {
	return len(a.Hints) == 0 && len(a.Tune) == 0 && !a.TriggerShock
}

// 隐藏提示文案。只注入给下一次发言生成，不进入公开转录。
const (
	hintDiversity = "Add exactly one new angle that did not appear in the previous remark."
	hintDecision  = "Include an owner and a deadline in one line (e.g. owner: A, deadline: 9/30)."
	hintStall     = "Avoid abstractions: give one line each for numbers, concrete steps, and a fallback."
)

// KPIFeedback 在滑动窗口上计算迷你 KPI，并按阈值产出提示或调参指令。
type KPIFeedback struct {
	cfg  *config.MeetingConfig
	eval *evaluation.Evaluator
}

// NewKPIFeedback 创建反馈控制器。
func NewKPIFeedback(cfg *config.MeetingConfig, eval *evaluation.Evaluator) *KPIFeedback {
	return &KPIFeedback{cfg: cfg, eval: eval}
}

// Assess 评估当前窗口。窗口数据不足时返回 ok=false。
func (f *KPIFeedback) Assess(turns []types.Turn, unresolvedHist []int) (Assessment, bool) {
	metrics, ok := f.eval.Window(turns, unresolvedHist)
	if !ok {
		return Assessment{}, false
	}

	out := Assessment{Metrics: metrics, Tune: map[string]TuneDirective{}}

	lowDiversity := metrics.Diversity < f.cfg.KPI.DiversityMin
	lowDecision := metrics.DecisionDensity < f.cfg.KPI.DecisionMin

	if lowDiversity {
		if f.cfg.KPI.AutoTune {
			out.Tune["select_temp"] = TuneDirective{Delta: 0.20, Min: 0.7, Max: 1.5}
			out.Tune["sim_penalty"] = TuneDirective{Delta: 0.10, Min: 0.15, Max: 0.60}
		} else {
			out.Hints = append(out.Hints, hintDiversity)
		}
	}
	if lowDecision {
		if f.cfg.KPI.AutoTune {
			out.Tune["cooldown"] = TuneDirective{Delta: 0.05, Min: 0.10, Max: 0.35}
		} else {
			out.Hints = append(out.Hints, hintDecision)
		}
	}
	if metrics.Stall {
		out.Hints = append(out.Hints, hintStall)
		out.ShockMode = "exploit"
	}

	if lowDiversity && lowDecision {
		out.TriggerShock = true
		out.ShockReason = "diversity_decision_drop"
	}

	if len(out.Tune) == 0 {
		out.Tune = nil
	}
	return out, true
}
