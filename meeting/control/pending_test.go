package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTrackerExtractsKeyedLines(t *testing.T) {
	t.Parallel()

	p := NewPendingTracker()
	p.AddFromText("summary of the round\n" +
		"- open issue: verify the failover path\n" +
		"- risk: the deadline may slip\n" +
		"- everyone enjoyed the coffee\n" +
		"・課題: 手順の動画化\n")

	items := p.Items()
	require.Len(t, items, 3)
	assert.Contains(t, items, "verify the failover path")
	assert.Contains(t, items, "the deadline may slip")
	assert.Contains(t, items, "手順の動画化")
}

func TestPendingTrackerDeduplicates(t *testing.T) {
	t.Parallel()

	p := NewPendingTracker()
	p.AddFromText("risk: the deadline may slip")
	p.AddFromText("risk: the deadline may slip")
	assert.Equal(t, 1, p.Count())
}

func TestPendingTrackerInitialLocksOnFirstRead(t *testing.T) {
	t.Parallel()

	p := NewPendingTracker()
	p.AddFromText("issue: a\nissue: b\nissue: c")
	assert.Equal(t, 3, p.Initial())

	p.Clear()
	// initial 锁定后不随当前数量变化
	assert.Equal(t, 3, p.Initial())
	assert.Zero(t, p.Count())
}

func TestPendingTrackerReplace(t *testing.T) {
	t.Parallel()

	p := NewPendingTracker()
	p.AddFromText("issue: a\nissue: b")
	p.Replace(ExtractItems("issue: b\nissue: c"))

	assert.False(t, p.Has("a"))
	assert.True(t, p.Has("b"))
	assert.True(t, p.Has("c"))
}

func TestExtractItemsDoesNotMutate(t *testing.T) {
	t.Parallel()

	p := NewPendingTracker()
	_ = ExtractItems("issue: something")
	assert.Zero(t, p.Count())
}
