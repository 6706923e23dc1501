package control

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/types"
)

func shockConfig(mode string) *config.MeetingConfig {
	cfg := config.DefaultConfig()
	cfg.Topic = "test"
	cfg.Shock = mode
	return cfg
}

func baseParams() TunableParams {
	return TunableParams{Temperature: 0.7, SelectTemp: 0.7, SimPenalty: 0.25, Cooldown: 0.10}
}

func TestExploreRaisesTemperature(t *testing.T) {
	t.Parallel()

	engine := NewShockEngine(shockConfig(ShockExplore), rand.New(rand.NewSource(1)))
	deltas := engine.Generate(ShockContext{
		Mode:       ShockExplore,
		HasMetrics: true,
		Metrics:    types.KPISnapshot{Diversity: 0.20},
	})

	// gap = (0.55-0.20)/0.55 ≈ 0.636 → severity ≈ 0.636
	assert.Greater(t, deltas["temperature"], 0.0)
	assert.Greater(t, deltas["select_temp"], 0.0)
	assert.Less(t, deltas["sim_penalty"], 0.0)
	assert.Less(t, deltas["cooldown"], 0.0)
	assert.InDelta(t, 0.30*(0.35/0.55), deltas["temperature"], 1e-6)
}

func TestExploitLowersTemperature(t *testing.T) {
	t.Parallel()

	engine := NewShockEngine(shockConfig(ShockExploit), rand.New(rand.NewSource(1)))
	deltas := engine.Generate(ShockContext{
		Mode:       ShockExploit,
		HasMetrics: true,
		Metrics:    types.KPISnapshot{DecisionDensity: 0.10},
	})

	assert.Less(t, deltas["temperature"], 0.0)
	assert.Less(t, deltas["select_temp"], 0.0)
	assert.Greater(t, deltas["sim_penalty"], 0.0)
	assert.Greater(t, deltas["cooldown"], 0.0)
}

func TestStallRaisesSeverityFloor(t *testing.T) {
	t.Parallel()

	engine := NewShockEngine(shockConfig(ShockExplore), rand.New(rand.NewSource(1)))
	// 指标健康但停滞：severity 至少 0.6
	deltas := engine.Generate(ShockContext{
		Mode:       ShockExplore,
		HasMetrics: true,
		Metrics:    types.KPISnapshot{Diversity: 0.9, Stall: true},
	})
	assert.InDelta(t, 0.30*0.6, deltas["temperature"], 1e-6)
}

func TestRandomModeIsSeedReplayable(t *testing.T) {
	t.Parallel()

	gen := func() []map[string]float64 {
		engine := NewShockEngine(shockConfig(ShockRandom), rand.New(rand.NewSource(42)))
		out := make([]map[string]float64, 0, 5)
		for i := 0; i < 5; i++ {
			out = append(out, engine.Generate(ShockContext{Mode: ShockRandom}))
		}
		return out
	}
	assert.Equal(t, gen(), gen())
}

func TestDefaultSeverityWithoutMetrics(t *testing.T) {
	t.Parallel()

	engine := NewShockEngine(shockConfig(ShockExplore), rand.New(rand.NewSource(1)))
	deltas := engine.Generate(ShockContext{Mode: ShockExplore})
	// 没有指标时回落到默认强度 0.25
	assert.InDelta(t, 0.30*0.25, deltas["temperature"], 1e-6)
}

// ---------------------------------------------------------------------------
// ShockState: 基线、边界、TTL
// ---------------------------------------------------------------------------

func TestShockStateApplyAndRestore(t *testing.T) {
	t.Parallel()

	cfg := shockConfig(ShockExplore)
	state := NewShockState(NewShockEngine(cfg, rand.New(rand.NewSource(1))))
	params := baseParams()
	original := params

	applied := state.Activate(&params, ShockContext{
		Mode:       ShockExplore,
		HasMetrics: true,
		Metrics:    types.KPISnapshot{Diversity: 0.10},
	}, 2)
	require.NotEmpty(t, applied)
	assert.True(t, state.Active())
	assert.Greater(t, params.Temperature, original.Temperature)

	// TTL 2 → 第一次 Tick 不恢复，第二次恢复基线
	assert.False(t, state.Tick(&params))
	assert.True(t, state.Tick(&params))
	assert.Equal(t, original, params)
	assert.False(t, state.Active())
}

func TestShockStateBounds(t *testing.T) {
	t.Parallel()

	cfg := shockConfig(ShockExplore)
	state := NewShockState(NewShockEngine(cfg, rand.New(rand.NewSource(1))))
	params := TunableParams{Temperature: 1.45, SelectTemp: 1.45, SimPenalty: 0.02, Cooldown: 0.01}

	state.Activate(&params, ShockContext{
		Mode:       ShockExplore,
		HasMetrics: true,
		Metrics:    types.KPISnapshot{Diversity: 0.0, Stall: true},
	}, 1)

	// explore 边界: temperature ≤ 1.5, select_temp ∈ [0.7, 1.5], sim_penalty ≥ 0, cooldown ≥ 0
	assert.LessOrEqual(t, params.Temperature, 1.5)
	assert.LessOrEqual(t, params.SelectTemp, 1.5)
	assert.GreaterOrEqual(t, params.SimPenalty, 0.0)
	assert.GreaterOrEqual(t, params.Cooldown, 0.0)
}

func TestShockStateClearWithoutActivation(t *testing.T) {
	t.Parallel()

	state := NewShockState(NewShockEngine(shockConfig(ShockRandom), rand.New(rand.NewSource(1))))
	params := baseParams()
	assert.False(t, state.Clear(&params))
	assert.False(t, state.Tick(&params))
}

func TestShockStateReactivationKeepsOriginalBaseline(t *testing.T) {
	t.Parallel()

	cfg := shockConfig(ShockExplore)
	state := NewShockState(NewShockEngine(cfg, rand.New(rand.NewSource(1))))
	params := baseParams()
	original := params

	ctx := ShockContext{Mode: ShockExplore, HasMetrics: true, Metrics: types.KPISnapshot{Diversity: 0.1}}
	state.Activate(&params, ctx, 2)
	// TTL 内再次发火：差分仍然相对最初的基线计算
	state.Activate(&params, ctx, 2)

	state.Clear(&params)
	assert.Equal(t, original, params)
}
