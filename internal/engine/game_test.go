package engine

import (
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/api"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startMatch joins survivors plus an optional monster and starts the game.
func startMatch(h *harness, survivors int, monster bool) []domain.ParticipantID {
	h.t.Helper()
	var ids []domain.ParticipantID
	for i := 0; i < survivors; i++ {
		ids = append(ids, h.join())
	}
	if monster {
		m := h.join()
		h.intent(m, domain.ActionRoleToggle, nil)
		ids = append(ids, m)
	}
	h.allReady(ids...)
	h.intent(ids[0], domain.ActionStartGame, nil)
	require.Equal(h.t, domain.SessionInGame, h.s.phase)
	h.reset()
	return ids
}

func fastPillars(c *Config) {
	c.Pillar.RequiredTime = 1
}

func TestGame_VictoryAndReturnToLobby(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		fastPillars(c)
		c.Objectives = 2
		c.GameOverGrace = 5 * time.Second
	})
	ids := startMatch(h, 1, true)
	p1 := ids[0]

	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.run(1100 * time.Millisecond)

	collected := h.eventsOf(domain.EventObjectiveCollected)
	require.Len(t, collected, 1)
	assert.Equal(t, 1, collected[0].ObjectiveID)
	assert.Equal(t, 1, collected[0].Remaining)

	var progress []float64
	for _, ev := range h.eventsOf(domain.EventObjectiveProgress) {
		require.Equal(t, 1, ev.ObjectiveID)
		progress = append(progress, ev.Progress)
	}
	var want []float64
	for i := 1; i <= 9; i++ {
		want = append(want, float64(i)/10)
	}
	assert.Equal(t, want, progress)

	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 2})
	h.run(1100 * time.Millisecond)

	over := h.eventsOf(domain.EventGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, domain.OutcomeVictory, over[0].Outcome)
	assert.Equal(t, domain.MsgVictory, over[0].Message)
	assert.Equal(t, domain.SessionGameOver, h.s.phase)
	assert.Equal(t, int64(1), h.s.Metrics.Snapshot().Victories)
	assert.Equal(t, int64(2), h.s.Metrics.Snapshot().ObjectivesCaptured)

	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	assert.Equal(t, []string{domain.ErrNotInGame.Error()}, rejectionsOf(h, p1))

	h.run(5 * time.Second)
	require.Len(t, h.eventsOf(domain.EventReturnedToLobby), 1)
	assert.Equal(t, domain.SessionLobby, h.s.phase)
	assert.Equal(t, 0, h.s.pillars.Len())
	assert.False(t, h.s.allReady)
	for _, e := range h.s.roster.Snapshot() {
		assert.False(t, e.Ready)
		assert.True(t, e.Alive)
		assert.Equal(t, h.s.cfg.PlayerMaxHP, e.HP)
	}

	// A second match can start from the lobby.
	h.allReady(ids...)
	h.intent(p1, domain.ActionStartGame, nil)
	assert.Equal(t, domain.SessionInGame, h.s.phase)
	assert.Equal(t, 0, h.s.tracker.Collected())
}

func TestGame_AdversarySpawnsOnFirstCollection(t *testing.T) {
	h := newHarness(t, fastPillars)
	ids := startMatch(h, 2, false)

	h.intent(ids[0], domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.intent(ids[1], domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.run(time.Second)

	require.Len(t, h.eventsOf(domain.EventObjectiveCollected), 1)
	states := h.eventsOf(domain.EventAdversaryState)
	require.NotEmpty(t, states)
	assert.Equal(t, "PATROLLING", states[len(states)-1].AdversaryState)

	view := h.s.view()
	require.NotNil(t, view.Adversary)
	assert.Equal(t, "PATROLLING", view.Adversary.State)
	assert.Equal(t, 1, view.Collected)
}

func TestGame_DefeatByAdversaryContact(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.PlayerMaxHP = 3 })
	ids := startMatch(h, 1, true)
	p1, monster := ids[0], ids[1]

	h.s.report(reportAdversaryContact, monster)
	assert.Empty(t, h.eventsOf(domain.EventPlayerDamaged), "the monster player takes no damage")

	for i := 0; i < 3; i++ {
		h.s.report(reportAdversaryContact, p1)
	}

	var hps []int
	for _, ev := range h.eventsOf(domain.EventPlayerDamaged) {
		hps = append(hps, ev.HP)
	}
	assert.Equal(t, []int{2, 1, 0}, hps)
	require.Len(t, h.eventsOf(domain.EventPlayerKilled), 1)

	over := h.eventsOf(domain.EventGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, domain.OutcomeDefeat, over[0].Outcome)
	assert.Equal(t, domain.MsgDefeat, over[0].Message)

	e1, _ := h.s.roster.Get(p1)
	assert.False(t, e1.Alive)
	assert.Equal(t, 0, e1.HP)

	// Reports after the match are ignored.
	h.s.report(reportAdversaryContact, p1)
	assert.Len(t, h.eventsOf(domain.EventPlayerDamaged), 3)
}

func TestGame_EliminationByKillAndDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	ids := startMatch(h, 2, true)
	p1, p2, monster := ids[0], ids[1], ids[2]

	h.s.report(reportMonsterContact, p1)
	require.Len(t, h.eventsOf(domain.EventPlayerKilled), 1)
	assert.Equal(t, 1, h.s.tracker.Alive())
	assert.Empty(t, h.eventsOf(domain.EventGameOver))

	// The dead cannot collect.
	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	assert.Equal(t, []string{domain.ErrCannotInteract.Error()}, rejectionsOf(h, p1))

	h.s.leave(monster)
	require.Len(t, h.eventsOf(domain.EventRoleFreed), 1)
	assert.Empty(t, h.eventsOf(domain.EventGameOver))

	h.s.leave(p2)
	over := h.eventsOf(domain.EventGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, domain.OutcomeDefeat, over[0].Outcome)
	assert.Equal(t, int64(1), h.s.Metrics.Snapshot().Defeats)
}

func TestGame_NoSurvivorsIsAnImmediateDefeat(t *testing.T) {
	h := newHarness(t, nil)
	m := h.join()
	h.intent(m, domain.ActionRoleToggle, nil)
	h.allReady(m)
	h.intent(m, domain.ActionStartGame, nil)

	assert.Equal(t, domain.SessionGameOver, h.s.phase)
	require.Len(t, h.eventsOf(domain.EventGameOver), 1)
}

func TestGame_DisconnectDropsContribution(t *testing.T) {
	h := newHarness(t, fastPillars)
	ids := startMatch(h, 2, false)
	p1, p2 := ids[0], ids[1]

	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.intent(p2, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.run(500 * time.Millisecond)

	pillar, ok := h.s.pillars.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, pillar.Contributors())

	h.s.leave(p2)
	assert.Equal(t, 1, pillar.Contributors())
	assert.Greater(t, pillar.Progress(), 0.0, "a remaining contributor keeps the progress")

	h.reset()
	h.intent(p1, domain.ActionEndInteract, api.ObjectivePayload{ObjectiveID: 1})
	assert.Equal(t, 0.0, pillar.Progress())
	progress := h.eventsOf(domain.EventObjectiveProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, 0.0, progress[0].Progress)
}

func TestGame_InteractRejections(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		fastPillars(c)
		c.Objectives = 3
	})
	ids := startMatch(h, 1, true)
	p1, monster := ids[0], ids[1]

	h.intent(monster, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 99})
	assert.Equal(t, []string{domain.ErrCannotInteract.Error()}, rejectionsOf(h, monster))
	assert.Equal(t, []string{domain.ErrUnknownObjective.Error()}, rejectionsOf(h, p1))

	// Invalid payloads are dropped, not answered.
	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 0})
	assert.Len(t, rejectionsOf(h, p1), 1)
	assert.Equal(t, int64(1), h.s.Metrics.Snapshot().MalformedIntents)

	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	h.run(1100 * time.Millisecond)
	pillar, _ := h.s.pillars.Get(1)
	require.True(t, pillar.Collected())

	// A collected pillar is inert.
	h.intent(p1, domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: 1})
	assert.Len(t, rejectionsOf(h, p1), 1)
	assert.Equal(t, 0, pillar.Contributors())
}

func TestHint_PointsAtNearestPillar(t *testing.T) {
	h := newHarness(t, nil)
	p1 := h.join()
	p2 := h.join()

	h.intent(p1, domain.ActionHint, api.PositionPayload{X: 0, Z: 0})
	assert.Equal(t, []string{domain.ErrNotInGame.Error()}, rejectionsOf(h, p1))

	h.allReady(p1, p2)
	h.intent(p1, domain.ActionStartGame, nil)
	h.drain(p1)
	h.drain(p2)
	h.reset()

	from := domain.Vec2{X: 10, Z: -5}
	h.intent(p1, domain.ActionHint, api.PositionPayload{X: from.X, Z: from.Z})
	nearest, ok := h.s.pillars.Nearest(from)
	require.True(t, ok)

	hints := h.eventsOf(domain.EventHint)
	require.Len(t, hints, 1)
	assert.Equal(t, p1, hints[0].Participant)
	assert.Equal(t, nearest.ID, hints[0].ObjectiveID)
	assert.Equal(t, nearest.Pos, hints[0].Position)

	assert.Equal(t, []string{"HINT"}, eventKinds(h.drain(p1)))
	assert.Empty(t, eventKinds(h.drain(p2)))
}

func TestGame_ShutdownMidMatch(t *testing.T) {
	h := newHarness(t, nil)
	ids := startMatch(h, 1, false)
	h.drain(ids[0])

	h.s.shutdown()
	frames := h.drain(ids[0])
	require.Len(t, frames, 1)
	assert.Equal(t, api.TypeShutdown, frames[0].Type)
	assert.Equal(t, 0, h.s.scheduler.Len())
	assert.Equal(t, 0, h.s.Hub.SubscriberCount())

	_, err := h.s.join(JoinRequest{})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}
