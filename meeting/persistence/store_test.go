package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/meeting"
	"github.com/BaSui01/meetingflow/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(id string) *types.MeetingResult {
	turn1 := types.NewTurn(1, 1, 1, "alice", "Let us pilot it.")
	turn2 := types.NewTurn(2, 1, 1, "bob", "(no statement this turn)")
	turn2.Degraded = true
	ctrl := types.NewControlEvent(2, 1, types.ActionPromptHintInjected)
	ctrl.Triggers = []string{"decision_density"}
	ctrl.Thresholds = map[string]float64{"decision_density": 0.40}
	ctrl.Hint = "Make one concrete decision"

	started := time.Now().Add(-time.Minute).Truncate(time.Second)
	return &types.MeetingResult{
		ID:    id,
		Topic: "improve the onboarding flow",
		State: types.StateDone,
		Agents: []types.Agent{
			{Name: "alice", Style: "blunt"},
			{Name: "bob"},
		},
		Turns: []types.Turn{turn1, turn2},
		Phases: []types.Phase{{
			ID: 1, Kind: types.PhaseDiscussion, Goal: "surface options",
			TurnBudget: 2, StartTurn: 1, TurnCount: 2,
			CloseReason: "turn_budget", Status: types.PhaseClosed,
		}},
		Agreement:   "pilot with a small group",
		OpenIssues:  []string{"record a walkthrough"},
		NextActions: "alice prepares the plan",
		FinalKPI:    types.KPISnapshot{Turn: 2, Window: 6, Diversity: 0.8, Progress: 1},
		Controls:    []types.ControlEvent{ctrl},
		StartedAt:   started,
		FinishedAt:  started.Add(time.Minute),
	}
}

// ---------------------------------------------------------------------------
// 保存と復元
// ---------------------------------------------------------------------------

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()
	original := sampleResult("meeting-1")

	require.NoError(t, store.Save(ctx, original))
	loaded, err := store.Load(ctx, "meeting-1")
	require.NoError(t, err)

	assert.Equal(t, original.Topic, loaded.Topic)
	assert.Equal(t, original.State, loaded.State)
	assert.Equal(t, original.Agreement, loaded.Agreement)
	assert.Equal(t, original.NextActions, loaded.NextActions)
	assert.Equal(t, original.OpenIssues, loaded.OpenIssues)
	assert.Equal(t, original.Agents, loaded.Agents)
	assert.Equal(t, original.FinalKPI, loaded.FinalKPI)

	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, "alice", loaded.Turns[0].Speaker)
	assert.Equal(t, original.Turns[0].Text, loaded.Turns[0].Text)
	assert.True(t, loaded.Turns[1].Degraded)

	require.Len(t, loaded.Phases, 1)
	assert.Equal(t, types.PhaseClosed, loaded.Phases[0].Status)
	assert.Equal(t, "turn_budget", loaded.Phases[0].CloseReason)

	require.Len(t, loaded.Controls, 1)
	assert.Equal(t, types.ActionPromptHintInjected, loaded.Controls[0].Action)
	assert.Equal(t, []string{"decision_density"}, loaded.Controls[0].Triggers)
	assert.InDelta(t, 0.40, loaded.Controls[0].Thresholds["decision_density"], 1e-9)
}

func TestStoreSaveIsIdempotentPerMeeting(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()

	result := sampleResult("meeting-1")
	require.NoError(t, store.Save(ctx, result))

	// 再保存で行が重複しない
	result.Agreement = "revised agreement"
	require.NoError(t, store.Save(ctx, result))

	loaded, err := store.Load(ctx, "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, "revised agreement", loaded.Agreement)
	assert.Len(t, loaded.Turns, 2)
}

func TestStoreLoadUnknownID(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	_, err := store.Load(context.Background(), "missing")
	require.Error(t, err)
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r := sampleResult(fmt.Sprintf("meeting-%d", i))
		r.FinishedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(ctx, r))
	}

	records, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "meeting-2", records[0].ID)
	assert.Equal(t, "meeting-1", records[1].ID)
}

// ---------------------------------------------------------------------------
// Sink 連携
// ---------------------------------------------------------------------------

func TestStoreEmitPersistsFinishedMeeting(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	result := sampleResult("meeting-sink")

	store.Emit(meeting.Event{Kind: meeting.EventMeetingFinished, Result: result})
	store.Emit(meeting.Event{Kind: meeting.EventTurn}) // 無視される

	loaded, err := store.Load(context.Background(), "meeting-sink")
	require.NoError(t, err)
	assert.Equal(t, result.Topic, loaded.Topic)
}

func TestFromConfigDisabled(t *testing.T) {
	t.Parallel()

	store, err := FromConfig(config.PersistenceConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestFromConfigCreatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "meetings.db")
	store, err := FromConfig(config.PersistenceConfig{Enabled: true, Path: path}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), sampleResult("meeting-file")))
	loaded, err := store.Load(context.Background(), "meeting-file")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, loaded.State)
}
