package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/solo-dm/pkg/state"
)

func startedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, defaultCampaign())
	_, err := f.mgr.StartNewSession(context.Background(), "")
	require.NoError(t, err)
	return f
}

func TestLifecycleTransitions(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mgr.Pause(ctx))
	assert.Equal(t, state.StatusPaused, f.mgr.Current().Status)

	_, err := f.mgr.ProcessPlayerAction(ctx, "wait")
	assert.True(t, errors.Is(err, ErrSessionNotActive), "got %v", err)

	require.NoError(t, f.mgr.Resume(ctx))
	_, err = f.mgr.ProcessPlayerAction(ctx, "wait")
	require.NoError(t, err)

	err = f.mgr.Archive(ctx)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)

	require.NoError(t, f.mgr.Complete(ctx, ""))
	require.NoError(t, f.mgr.Archive(ctx))

	saved, err := f.store.LoadSession(ctx, f.mgr.Current().SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusArchived, saved.Status)
}

func TestArchivedSessionIsReadOnly(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Complete(ctx, "done"))
	require.NoError(t, f.mgr.Archive(ctx))

	_, err := f.mgr.ProcessPlayerAction(ctx, "wait")
	assert.True(t, errors.Is(err, ErrSessionReadOnly), "got %v", err)
	assert.True(t, errors.Is(f.mgr.Resume(ctx), ErrSessionReadOnly))
	assert.True(t, errors.Is(f.mgr.MoveTo(ctx, "Market"), ErrSessionReadOnly))
	_, err = f.mgr.ApplyDamage(1)
	assert.True(t, errors.Is(err, ErrSessionReadOnly))

	saved, err := f.mgr.CheckAutoSave(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestTransitionRevertsOnSaveFailure(t *testing.T) {
	f := startedFixture(t)
	f.store.SetSaveError(errors.New("disk full"))

	assert.Error(t, f.mgr.Pause(context.Background()))
	assert.Equal(t, state.StatusActive, f.mgr.Current().Status)
}

func TestCompleteRecordsLedger(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mgr.MoveTo(ctx, "Lighthouse"))
	require.NoError(t, f.mgr.RecordEvent(ctx, "Found the fey contract"))
	require.NoError(t, f.mgr.Complete(ctx, ""))

	st, err := f.store.LoadCampaignState(ctx, "The Fey Bargain")
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalSessions)
	assert.Equal(t, f.clock.Now(), st.LastPlayed)
	assert.Equal(t, []string{"Docks", "Lighthouse"}, st.VisitedLocations)
	require.NotEmpty(t, st.MajorEvents)
	assert.Equal(t, "Found the fey contract", st.MajorEvents[0].Summary)
	assert.Equal(t, "The harbor bell tolls.", st.ImmediateContext)
}

func TestInfo(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	_, err := f.mgr.Info()
	assert.True(t, errors.Is(err, ErrNoActiveSession))

	_, err = f.mgr.StartNewSession(context.Background(), "")
	require.NoError(t, err)
	info, err := f.mgr.Info()
	require.NoError(t, err)
	assert.Equal(t, "Motu", info.CharacterName)
	assert.Equal(t, state.StatusActive, info.Status)
	assert.Equal(t, 0, info.Actions)
}

func TestAdjustNPCTrust(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	trust, err := f.mgr.AdjustNPCTrust("bram", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, trust)

	trust, err = f.mgr.AdjustNPCTrust("Aria", 10)
	require.NoError(t, err)
	assert.Equal(t, 5, trust)

	_, err = f.mgr.AdjustNPCTrust("Nobody", 1)
	assert.Error(t, err)

	assert.Equal(t, map[string]int{"Bram": 2, "Aria": 5}, f.mgr.Current().NPCTrust)

	// the overlay reaches the prompt, the directory on disk is untouched
	_, err = f.mgr.ProcessPlayerAction(ctx, "I speak with Bram")
	require.NoError(t, err)
	_, calls := f.llm.GetCalls()
	msgs := calls[len(calls)-1].Messages
	assert.Contains(t, msgs[len(msgs)-2].Content, "- Bram ⭐⭐: Dockmaster")

	npcs := f.mgr.campaign.NPCs()
	for _, n := range npcs {
		if n.Name == "Bram" {
			assert.Equal(t, 1, n.TrustLevel)
		}
	}
}

func TestDamageAndHealing(t *testing.T) {
	f := startedFixture(t)

	c, err := f.mgr.ApplyDamage(8)
	require.NoError(t, err)
	assert.Equal(t, 12, c.HitPoints)

	c, err = f.mgr.ApplyDamage(50)
	require.NoError(t, err)
	assert.Equal(t, 0, c.HitPoints)

	c, err = f.mgr.ApplyHealing(30)
	require.NoError(t, err)
	assert.Equal(t, 24, c.HitPoints)

	_, err = f.mgr.ApplyDamage(-1)
	assert.Error(t, err)
	_, err = f.mgr.ApplyHealing(-1)
	assert.Error(t, err)

	c.HitPoints = 1
	assert.Equal(t, 24, f.mgr.Current().Character.HitPoints, "returned character is a copy")
}

func TestMoveToValidation(t *testing.T) {
	f := startedFixture(t)
	assert.Error(t, f.mgr.MoveTo(context.Background(), "  "))
	require.NoError(t, f.mgr.MoveTo(context.Background(), "Market"))
	assert.Equal(t, "Market", f.mgr.Current().CurrentLocation)
}

func TestGrantTempHPAndLevelUp(t *testing.T) {
	f := startedFixture(t)

	c, err := f.mgr.GrantTempHP(6)
	require.NoError(t, err)
	assert.Equal(t, 6, c.TemporaryHP)
	c, err = f.mgr.GrantTempHP(3)
	require.NoError(t, err)
	assert.Equal(t, 6, c.TemporaryHP, "temporary HP does not stack")

	c, err = f.mgr.ApplyDamage(8)
	require.NoError(t, err)
	assert.Equal(t, 0, c.TemporaryHP)
	assert.Equal(t, 18, c.HitPoints)

	c, err = f.mgr.LevelUp(7)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Level)
	assert.Equal(t, 25, c.HitPoints)
	assert.Equal(t, 31, c.MaxHitPoints)
	assert.Equal(t, 4, f.mgr.Current().Character.Level)

	_, err = f.mgr.LevelUp(0)
	assert.Error(t, err)
	_, err = f.mgr.GrantTempHP(-2)
	assert.Error(t, err)
}

func TestAdjustFactionStanding(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	standing, err := f.mgr.AdjustFactionStanding(ctx, "Harbor Guild", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, standing)

	standing, err = f.mgr.AdjustFactionStanding(ctx, "harbor guild", 9)
	require.NoError(t, err)
	assert.Equal(t, 5, standing, "clamped, matched case-insensitively")

	st, err := f.store.LoadCampaignState(ctx, "The Fey Bargain")
	require.NoError(t, err)
	require.Len(t, st.Factions, 1)
	assert.Equal(t, 5, st.Factions["Harbor Guild"].Standing)

	_, err = f.mgr.AdjustFactionStanding(ctx, " ", 1)
	assert.Error(t, err)

	require.NoError(t, f.mgr.Complete(ctx, "done"))
	require.NoError(t, f.mgr.Archive(ctx))
	_, err = f.mgr.AdjustFactionStanding(ctx, "Harbor Guild", -1)
	assert.True(t, errors.Is(err, ErrSessionReadOnly), "got %v", err)
}
