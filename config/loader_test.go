package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
topic: "Decide the cache eviction policy"
precision: 7
backend:
  name: deterministic
  max_tokens: 400
chat:
  max_chars: 90
selection:
  topk: 2
agents:
  - name: aoi
    system: "You weigh trade-offs."
  - name: rin
    system: "You press for decisions."
    style: "terse"
    memory:
      - "prefers LRU"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderFromFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().WithConfigPath(writeTempConfig(t, sampleYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "Decide the cache eviction policy", cfg.Topic)
	assert.Equal(t, 7, cfg.Precision)
	assert.Equal(t, "deterministic", cfg.Backend.Name)
	assert.Equal(t, 400, cfg.Backend.MaxTokens)

	// YAML 只覆盖出现的字段，其余保持默认
	assert.Equal(t, 90, cfg.Chat.MaxChars)
	assert.Equal(t, 2, cfg.Chat.MaxSentences)
	assert.True(t, cfg.Chat.Enabled)
	assert.Equal(t, 2, cfg.Selection.TopK)
	assert.InDelta(t, 0.7, cfg.Selection.SelectTemp, 1e-9)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "terse", cfg.Agents[1].Style)
	assert.Equal(t, []string{"prefers LRU"}, cfg.Agents[1].Memory)

	// Finalize が実行済み: 2 agents, window 8 → 8
	assert.Equal(t, 8, cfg.PhaseTurnLimit)
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("MF_TEST_PRECISION", "9")
	t.Setenv("MF_TEST_KPI_DIVERSITY_MIN", "0.6")
	t.Setenv("MF_TEST_CHAT_ENABLED", "false")

	cfg, err := NewLoader().
		WithConfigPath(writeTempConfig(t, sampleYAML)).
		WithEnvPrefix("MF_TEST").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Precision)
	assert.InDelta(t, 0.6, cfg.KPI.DiversityMin, 1e-9)
	assert.False(t, cfg.Chat.Enabled)
}

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MF_MISS_TOPIC", "Pick a queue library")
	t.Setenv("MF_MISS_BACKEND_NAME", "deterministic")

	// 环境变量无法提供 agents，校验应失败
	_, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithEnvPrefix("MF_MISS").
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one agent")
}

func TestLoaderInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().WithConfigPath(writeTempConfig(t, "topic: [broken")).Load()
	require.Error(t, err)
}

func TestLoaderExtraValidator(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().
		WithConfigPath(writeTempConfig(t, sampleYAML)).
		WithValidator(func(c *MeetingConfig) error {
			return assert.AnError
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
