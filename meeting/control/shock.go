package control

import (
	"math/rand"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/internal/textsim"
	"github.com/BaSui01/meetingflow/types"
)

// shock 模式
const (
	ShockOff     = "off"
	ShockRandom  = "random"
	ShockExplore = "explore"
	ShockExploit = "exploit"
)

// TunableParams 是 shock 与自动调参共同作用的运行时参数组。
type TunableParams struct {
	Temperature float64
	SelectTemp  float64
	SimPenalty  float64
	Cooldown    float64
}

// ShockContext 传给 ShockEngine 的发火上下文。
type ShockContext struct {
	Mode       string
	Metrics    types.KPISnapshot
	HasMetrics bool
	RandomSpan float64
}

// ShockEngine 按模式计算参数扰动差分。
// 差分以“加在基线上的增量”表达，由 ShockState 负责应用与恢复。
type ShockEngine struct {
	cfg  *config.MeetingConfig
	Mode string
	rng  *rand.Rand
}

// NewShockEngine 创建扰动引擎。rng 注入以便确定性测试；nil 则退化为固定种子。
func NewShockEngine(cfg *config.MeetingConfig, rng *rand.Rand) *ShockEngine {
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &ShockEngine{cfg: cfg, Mode: cfg.Shock, rng: rng}
}

// Generate 返回当前模式下的扰动差分，近零项被丢弃。
func (e *ShockEngine) Generate(ctx ShockContext) map[string]float64 {
	mode := ctx.Mode
	if mode == "" {
		mode = e.Mode
	}
	if mode == "" || mode == ShockOff {
		mode = ShockRandom
	}
	switch mode {
	case ShockExplore:
		return e.explore(ctx)
	case ShockExploit:
		return e.exploit(ctx)
	default:
		return e.random(ctx)
	}
}

// explore 放大发散：升温、降相似惩罚与冷却。
func (e *ShockEngine) explore(ctx ShockContext) map[string]float64 {
	severity := e.severity(ctx.HasMetrics, ctx.Metrics.Diversity, e.cfg.KPI.DiversityMin, 0.25)
	if ctx.Metrics.Stall {
		severity = maxF(severity, 0.6)
	}
	return removeNearZero(map[string]float64{
		"temperature": 0.30 * severity,
		"select_temp": 0.40 * severity,
		"sim_penalty": -0.20 * severity,
		"cooldown":    -0.12 * severity,
	})
}

// exploit 促进收敛：降温、加重相似惩罚与冷却。
func (e *ShockEngine) exploit(ctx ShockContext) map[string]float64 {
	severity := e.severity(ctx.HasMetrics, ctx.Metrics.DecisionDensity, e.cfg.KPI.DecisionMin, 0.25)
	if ctx.Metrics.Stall {
		severity = maxF(severity, 0.5)
	}
	return removeNearZero(map[string]float64{
		"temperature": -0.28 * severity,
		"select_temp": -0.35 * severity,
		"sim_penalty": 0.18 * severity,
		"cooldown":    0.15 * severity,
	})
}

// random 轻微随机扰动。
func (e *ShockEngine) random(ctx ShockContext) map[string]float64 {
	span := ctx.RandomSpan
	if span <= 0 {
		span = 0.15
	}
	uniform := func(d float64) float64 {
		return e.rng.Float64()*2*d - d
	}
	return removeNearZero(map[string]float64{
		"temperature": uniform(span),
		"select_temp": uniform(span),
		"sim_penalty": uniform(span * 0.6),
		"cooldown":    uniform(span * 0.5),
	})
}

// severity 由“阈值-当前值”的落差映射到 [default, 1.0] 的强度。
func (e *ShockEngine) severity(hasCurrent bool, current, threshold, def float64) float64 {
	def = textsim.Clamp(def, 0.0, 1.0)
	if !hasCurrent || threshold <= 0 {
		return def
	}
	gap := threshold - current
	if gap <= 0 {
		return def
	}
	return maxF(def, minF(1.0, gap/threshold))
}

func removeNearZero(adjustments map[string]float64) map[string]float64 {
	for k, v := range adjustments {
		if v < 0.001 && v > -0.001 {
			delete(adjustments, k)
		}
	}
	return adjustments
}

// ShockState 管理一次 shock 的完整生命周期：
// 基线捕获 → 差分应用（带边界裁剪）→ TTL 递减 → 基线恢复。
type ShockState struct {
	engine   *ShockEngine
	baseline *TunableParams
	ttl      int
}

// NewShockState 创建 shock 生命周期管理器。
func NewShockState(engine *ShockEngine) *ShockState {
	return &ShockState{engine: engine}
}

// Active 返回是否有未过期的 shock。
func (s *ShockState) Active() bool { return s.ttl > 0 }

// TTL 返回剩余有效轮数。
func (s *ShockState) TTL() int { return s.ttl }

// Activate 发火：生成差分并应用到 params，返回实际生效的调整量。
// 第一次发火时捕获基线；重复发火在既有基线上重新计算。
func (s *ShockState) Activate(params *TunableParams, ctx ShockContext, ttl int) map[string]float64 {
	if s.engine == nil {
		return nil
	}
	if ttl < 1 {
		ttl = 1
	}
	s.ttl = ttl

	mode := ctx.Mode
	if mode == "" {
		mode = s.engine.Mode
	}
	deltas := s.engine.Generate(ctx)
	return s.apply(params, mode, deltas)
}

// apply 把差分加到基线上并裁剪到模式相关的安全边界。
func (s *ShockState) apply(params *TunableParams, mode string, deltas map[string]float64) map[string]float64 {
	if len(deltas) == 0 {
		return nil
	}
	if s.baseline == nil {
		copied := *params
		s.baseline = &copied
	}

	selectTempLow := 0.5
	if mode == ShockExplore {
		selectTempLow = 0.7
	}
	type bound struct{ low, high float64 }
	bounds := map[string]bound{
		"temperature": {0.2, 1.5},
		"select_temp": {selectTempLow, 1.5},
		"sim_penalty": {0.0, 0.6},
		"cooldown":    {0.0, 0.35},
	}
	baseOf := map[string]float64{
		"temperature": s.baseline.Temperature,
		"select_temp": s.baseline.SelectTemp,
		"sim_penalty": s.baseline.SimPenalty,
		"cooldown":    s.baseline.Cooldown,
	}

	applied := make(map[string]float64)
	for param, delta := range deltas {
		base, okBase := baseOf[param]
		limit, okLimit := bounds[param]
		if !okBase || !okLimit {
			continue
		}
		newValue := textsim.Clamp(base+delta, limit.low, limit.high)
		diff := newValue - base
		if diff < 1e-6 && diff > -1e-6 {
			continue
		}
		applied[param] = diff
		switch param {
		case "temperature":
			params.Temperature = newValue
		case "select_temp":
			params.SelectTemp = newValue
		case "sim_penalty":
			params.SimPenalty = newValue
		case "cooldown":
			params.Cooldown = newValue
		}
	}
	if len(applied) == 0 {
		return nil
	}
	return applied
}

// Tick 在每轮结束时递减 TTL；归零时把 params 恢复到基线。
// 返回是否发生了恢复。
func (s *ShockState) Tick(params *TunableParams) bool {
	if s.ttl <= 0 {
		return false
	}
	s.ttl--
	if s.ttl > 0 {
		return false
	}
	return s.Clear(params)
}

// Clear 立即恢复基线（阶段边界等强制复位时使用）。
func (s *ShockState) Clear(params *TunableParams) bool {
	s.ttl = 0
	if s.baseline == nil {
		return false
	}
	*params = *s.baseline
	s.baseline = nil
	return true
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
