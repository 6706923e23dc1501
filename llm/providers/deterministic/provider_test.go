package deterministic

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/meetingflow/llm"
)

func completion(t *testing.T, p *Provider, system, user string) string {
	t.Helper()
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	})
	require.NoError(t, err)
	return resp.Text()
}

func TestThinkRotation(t *testing.T) {
	t.Parallel()

	p := New([]string{"aoi", "rin"})
	first := completion(t, p, "Write one line of inner thinking.", "")
	second := completion(t, p, "Write one line of inner thinking.", "")

	assert.Contains(t, first, "aoi view:")
	assert.Contains(t, second, "rin view:")
	assert.NotEqual(t, first, second)
}

func TestJudgeVerdictIsValidJSON(t *testing.T) {
	t.Parallel()

	p := New([]string{"aoi", "rin", "saki"})
	out := completion(t, p, "You are a neutral judge for this meeting.",
		"aoi: push for a decision\nrin: list the risks\nsaki: summarize")

	var verdict struct {
		Winner string                        `json:"winner"`
		Scores map[string]map[string]any `json:"scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &verdict))
	assert.Contains(t, []string{"aoi", "rin", "saki"}, verdict.Winner)
	require.Len(t, verdict.Scores, 3)
	assert.InDelta(t, 0.8, verdict.Scores[verdict.Winner]["score"], 1e-9)
}

func TestJudgeWinnerRotates(t *testing.T) {
	t.Parallel()

	p := New([]string{"aoi", "rin"})
	user := "aoi: idea\nrin: idea"

	winners := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		var verdict struct {
			Winner string `json:"winner"`
		}
		require.NoError(t, json.Unmarshal(
			[]byte(completion(t, p, "You are a neutral judge.", user)), &verdict))
		winners = append(winners, verdict.Winner)
	}
	assert.Equal(t, []string{"aoi", "rin", "aoi", "rin"}, winners)
}

func TestReplayIsIdentical(t *testing.T) {
	t.Parallel()

	run := func() []string {
		p := New([]string{"aoi", "rin"})
		out := make([]string, 0, 6)
		for i := 0; i < 3; i++ {
			out = append(out, completion(t, p, "inner thinking", ""))
			out = append(out, completion(t, p, "Turn your private note into a remark.", ""))
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestFinalNotesNameAgents(t *testing.T) {
	t.Parallel()

	p := New([]string{"aoi", "rin"})
	out := completion(t, p, "You are the discussion editor.", "")
	assert.Contains(t, out, "Agreed:")
	assert.Contains(t, out, "Open issues:")
	assert.Contains(t, out, "aoi")
	assert.Contains(t, out, "rin")
}
