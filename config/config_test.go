package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/meetingflow/types"
)

func testConfig() *MeetingConfig {
	cfg := DefaultConfig()
	cfg.Topic = "Plan the Q3 rollout"
	cfg.Backend.Name = "deterministic"
	cfg.Agents = []AgentConfig{
		{Name: "aoi", System: "You are pragmatic."},
		{Name: "rin", System: "You are skeptical."},
		{Name: "saki", System: "You are optimistic."},
	}
	return cfg
}

// ---------------------------------------------------------------------------
// 派生值
// ---------------------------------------------------------------------------

func TestDerivePhaseTurnLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		agents      int
		phaseWindow int
		want        int
	}{
		{"agents dominate", 5, 8, 10},
		{"window dominates", 3, 8, 8},
		{"floor of six", 2, 3, 6},
		{"large crowd", 7, 4, 14},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DerivePhaseTurnLimit(tt.agents, tt.phaseWindow))
		})
	}
}

func TestFinalizeDerivesTurnLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	require.Zero(t, cfg.PhaseTurnLimit)
	cfg.Finalize()
	// 3 agents, window 8 → max(6, max(6,8)) = 8
	assert.Equal(t, 8, cfg.PhaseTurnLimit)
}

func TestFinalizeKeepsExplicitLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PhaseTurnLimit = 12
	cfg.Finalize()
	assert.Equal(t, 12, cfg.PhaseTurnLimit)
}

func TestPhaseTurnLimitFor(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PhaseTurnLimits = map[string]int{
		"discussion": 10,
		"wrapup":     4,
	}
	assert.Equal(t, 10, cfg.PhaseTurnLimitFor(types.PhaseDiscussion))
	assert.Equal(t, 4, cfg.PhaseTurnLimitFor(types.PhaseWrapup))
	// 未設定の種別は discussion にフォールバック
	assert.Equal(t, 10, cfg.PhaseTurnLimitFor(types.PhaseResolution))
}

func TestPhaseGoalFor(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PhaseGoal = "shared goal"
	assert.Equal(t, "shared goal", cfg.PhaseGoalFor(types.PhaseDiscussion))

	cfg.PhaseGoals = map[string]string{"wrapup": "close everything"}
	assert.Equal(t, "close everything", cfg.PhaseGoalFor(types.PhaseWrapup))
}

// ---------------------------------------------------------------------------
// 実行パラメータ
// ---------------------------------------------------------------------------

func TestRuntimeParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		precision  int
		wantTemp   float64
		wantPasses int
	}{
		{1, 1.0, 0},
		{5, 0.7, 1},
		{10, 0.3, 2},
	}
	for _, tt := range tests {
		tt := tt
		cfg := testConfig()
		cfg.Precision = tt.precision
		rp := cfg.Runtime()
		assert.InDelta(t, tt.wantTemp, rp.Temperature, 1e-9, "precision=%d", tt.precision)
		assert.Equal(t, tt.wantPasses, rp.CritiquePasses, "precision=%d", tt.precision)
	}
}

// ---------------------------------------------------------------------------
// 校验
// ---------------------------------------------------------------------------

func TestValidateOK(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Finalize()
	require.NoError(t, cfg.Validate())
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*MeetingConfig)
	}{
		{"empty topic", func(c *MeetingConfig) { c.Topic = "  " }},
		{"no agents", func(c *MeetingConfig) { c.Agents = nil }},
		{"duplicate agent", func(c *MeetingConfig) {
			c.Agents = append(c.Agents, AgentConfig{Name: "aoi", System: "dup"})
		}},
		{"blank agent name", func(c *MeetingConfig) {
			c.Agents[0].Name = ""
		}},
		{"precision too high", func(c *MeetingConfig) { c.Precision = 11 }},
		{"unknown backend", func(c *MeetingConfig) { c.Backend.Name = "delphi" }},
		{"openai without model", func(c *MeetingConfig) {
			c.Backend.Name = "openai"
			c.Backend.OpenAIModel = ""
		}},
		{"unknown shock mode", func(c *MeetingConfig) { c.Shock = "chaos" }},
		{"zero topk", func(c *MeetingConfig) { c.Selection.TopK = 0 }},
		{"tiny phase window", func(c *MeetingConfig) { c.Monitor.PhaseWindow = 2 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var me *types.Error
			require.ErrorAs(t, err, &me)
			assert.Equal(t, types.ErrInvalidConfig, me.Code)
		})
	}
}

func TestAgentNames(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	assert.Equal(t, []string{"aoi", "rin", "saki"}, cfg.AgentNames())
}
