package engine

import (
	"context"
	"encoding/json"
	"os"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/roster"
	"pillarhunt-server/pkg/api"
	"pillarhunt-server/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("warn", "text")
	os.Exit(m.Run())
}

// harness drives a session synchronously, without the Run goroutine.
type harness struct {
	t      *testing.T
	s      *SessionService
	clock  *fakeNow
	events []domain.Event
	conns  map[domain.ParticipantID]<-chan api.ServerMessage
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := NewConfig()
	cfg.Seed = 42
	if mutate != nil {
		mutate(&cfg)
	}

	s := NewService(cfg)
	clock := &fakeNow{t: time.Unix(1000, 0)}
	s.now = clock.Now
	s.lastTick = clock.Now()

	h := &harness{
		t:     t,
		s:     s,
		clock: clock,
		conns: make(map[domain.ParticipantID]<-chan api.ServerMessage),
	}
	s.Bus.Subscribe(func(ev domain.Event) { h.events = append(h.events, ev) })
	return h
}

func (h *harness) join() domain.ParticipantID {
	h.t.Helper()
	res, err := h.s.join(JoinRequest{RemoteAddr: "test"})
	require.NoError(h.t, err)
	h.conns[res.ID] = res.Updates
	return res.ID
}

func (h *harness) intent(id domain.ParticipantID, action domain.ActionType, payload any) {
	h.t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(h.t, err)
		raw = b
	}
	h.s.dispatch(domain.InternalCommand{Action: action, Actor: id, Payload: raw})
}

// drain returns every frame currently queued for id.
func (h *harness) drain(id domain.ParticipantID) []api.ServerMessage {
	var out []api.ServerMessage
	for {
		select {
		case msg, ok := <-h.conns[id]:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func (h *harness) eventsOf(kind domain.EventKind) []domain.Event {
	var out []domain.Event
	for _, ev := range h.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (h *harness) reset() { h.events = nil }

// run ticks the session in 50ms steps for d.
func (h *harness) run(d time.Duration) {
	const step = 50 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.s.tick(h.clock.Add(step))
	}
}

func (h *harness) allReady(ids ...domain.ParticipantID) {
	for _, id := range ids {
		h.intent(id, domain.ActionReadyToggle, nil)
	}
	require.True(h.t, h.s.allReady)
}

func rejectionsOf(h *harness, id domain.ParticipantID) []string {
	var out []string
	for _, ev := range h.eventsOf(domain.EventIntentRejected) {
		if ev.Participant == id {
			out = append(out, ev.Reason)
		}
	}
	return out
}

func eventKinds(frames []api.ServerMessage) []string {
	var out []string
	for _, f := range frames {
		if f.Type == api.TypeEvent {
			out = append(out, f.Event.Kind)
		}
	}
	return out
}

func TestJoin_WelcomeSnapshotThenOwnAdd(t *testing.T) {
	h := newHarness(t, nil)
	first := h.join()
	second := h.join()

	frames := h.drain(second)
	require.GreaterOrEqual(t, len(frames), 4)

	welcome := frames[0]
	assert.Equal(t, api.TypeWelcome, welcome.Type)
	assert.Equal(t, h.s.ID, welcome.Session)
	assert.Equal(t, uint64(second), welcome.YourID)
	require.NotNil(t, welcome.Snapshot)
	assert.Equal(t, "LOBBY", welcome.Snapshot.Phase)
	assert.Len(t, welcome.Snapshot.Roster, 1)

	assert.Equal(t, "CLEAR", frames[1].Roster.Kind)
	assert.True(t, frames[1].Roster.Synthetic)
	assert.Equal(t, "ADD", frames[2].Roster.Kind)
	assert.Equal(t, uint64(first), frames[2].Roster.Entry.ID)
	assert.True(t, frames[2].Roster.Synthetic)
	assert.Equal(t, "ADD", frames[3].Roster.Kind)
	assert.Equal(t, uint64(second), frames[3].Roster.Entry.ID)
	assert.False(t, frames[3].Roster.Synthetic)
}

func TestJoin_MirrorsConverge(t *testing.T) {
	h := newHarness(t, nil)
	ids := []domain.ParticipantID{h.join(), h.join()}
	h.intent(ids[0], domain.ActionNameChange, api.NamePayload{Name: "Ada"})
	ids = append(ids, h.join())
	h.intent(ids[1], domain.ActionRoleToggle, nil)
	h.s.leave(ids[0])
	h.intent(ids[2], domain.ActionReadyToggle, nil)

	for _, id := range ids[1:] {
		m := roster.NewMirror()
		for _, f := range h.drain(id) {
			if f.Type != api.TypeRoster {
				continue
			}
			c, err := roster.ChangeFromView(*f.Roster)
			require.NoError(t, err)
			require.NoError(t, m.Apply(c), "participant %s", id)
		}
		assert.Equal(t, h.s.roster.Snapshot(), m.Entries(), "participant %s", id)
	}
}

func TestJoin_Rejections(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		h := newHarness(t, func(c *Config) { c.MaxPlayers = 2 })
		h.join()
		h.join()

		_, err := h.s.join(JoinRequest{})
		assert.ErrorIs(t, err, domain.ErrGameFull)
		assert.Equal(t, 2, h.s.roster.Len())
		assert.Equal(t, int64(1), h.s.Metrics.Snapshot().RejectedJoins)
	})

	t.Run("in progress", func(t *testing.T) {
		h := newHarness(t, nil)
		id := h.join()
		h.allReady(id)
		require.NoError(t, h.s.startGame())

		assert.ErrorIs(t, h.s.approve(), domain.ErrGameInProgress)
		_, err := h.s.join(JoinRequest{})
		assert.ErrorIs(t, err, domain.ErrGameInProgress)
	})

	t.Run("ids are not reused", func(t *testing.T) {
		h := newHarness(t, nil)
		a := h.join()
		h.s.leave(a)
		b := h.join()
		assert.Greater(t, b, a)
	})
}

func TestRole_MonsterIsExclusive(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2, p3 := h.join(), h.join(), h.join()

	h.intent(p2, domain.ActionRoleToggle, nil)
	toggled := h.eventsOf(domain.EventRoleToggled)
	require.Len(t, toggled, 1)
	assert.Equal(t, p2, toggled[0].Participant)
	assert.Equal(t, domain.RoleMonster, toggled[0].Role)

	h.drain(p1)
	h.drain(p3)
	h.intent(p3, domain.ActionRoleToggle, nil)
	assert.Equal(t, []string{domain.ErrRoleTaken.Error()}, rejectionsOf(h, p3))
	e3, _ := h.s.roster.Get(p3)
	assert.Equal(t, domain.RoleSurvivor, e3.Role)

	// The rejection goes to the requester only.
	assert.Equal(t, []string{"INTENT_REJECTED"}, eventKinds(h.drain(p3)))
	assert.Empty(t, eventKinds(h.drain(p1)))

	h.s.leave(p2)
	freed := h.eventsOf(domain.EventRoleFreed)
	require.Len(t, freed, 1)
	assert.Equal(t, p2, freed[0].Participant)

	h.reset()
	h.intent(p3, domain.ActionRoleToggle, nil)
	assert.Empty(t, rejectionsOf(h, p3))
	e3, _ = h.s.roster.Get(p3)
	assert.Equal(t, domain.RoleMonster, e3.Role)

	// Toggling again goes back to survivor.
	h.intent(p3, domain.ActionRoleToggle, nil)
	e3, _ = h.s.roster.Get(p3)
	assert.Equal(t, domain.RoleSurvivor, e3.Role)
}

func TestAllReady_OnlyCrossingsAreReported(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2, p3 := h.join(), h.join(), h.join()

	h.intent(p1, domain.ActionStartGame, nil)
	assert.Equal(t, []string{domain.ErrNotAllReady.Error()}, rejectionsOf(h, p1))
	assert.Equal(t, domain.SessionLobby, h.s.phase)

	h.intent(p1, domain.ActionReadyToggle, nil)
	h.intent(p2, domain.ActionReadyToggle, nil)
	assert.Empty(t, h.eventsOf(domain.EventAllReadyToggled))

	h.intent(p3, domain.ActionReadyToggle, nil)
	h.intent(p2, domain.ActionReadyToggle, nil)
	h.intent(p2, domain.ActionReadyToggle, nil)
	// A newcomer is never ready.
	h.join()

	var flips []bool
	for _, ev := range h.eventsOf(domain.EventAllReadyToggled) {
		flips = append(flips, ev.AllReady)
	}
	assert.Equal(t, []bool{true, false, true, false}, flips)
}

func TestAllReady_LeavingCanCompleteIt(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2 := h.join(), h.join()
	h.intent(p1, domain.ActionReadyToggle, nil)
	assert.False(t, h.s.allReady)

	h.s.leave(p2)
	assert.True(t, h.s.allReady)

	h.s.leave(p1)
	assert.False(t, h.s.allReady, "an empty lobby is not ready")
}

func TestStart_OnlyLeader(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2 := h.join(), h.join()
	h.allReady(p1, p2)

	h.intent(p2, domain.ActionStartGame, nil)
	assert.Equal(t, []string{domain.ErrNotLobbyLeader.Error()}, rejectionsOf(h, p2))
	assert.Equal(t, domain.SessionLobby, h.s.phase)

	h.intent(p1, domain.ActionStartGame, nil)
	assert.Equal(t, domain.SessionInGame, h.s.phase)
	assert.Len(t, h.eventsOf(domain.EventGameStarted), 1)
	assert.Equal(t, h.s.cfg.Objectives, h.s.pillars.Len())
	assert.Equal(t, 2, h.s.tracker.Alive())
}

func TestNameChange_Results(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2 := h.join(), h.join()

	h.intent(p1, domain.ActionNameChange, api.NamePayload{Name: "Ada"})
	h.intent(p2, domain.ActionNameChange, api.NamePayload{Name: "Ada"})

	results := h.eventsOf(domain.EventNameChangeResult)
	require.Len(t, results, 2)
	assert.Equal(t, p1, results[0].Participant)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, p2, results[1].Participant)
	assert.False(t, results[1].Accepted)
	assert.Equal(t, domain.ErrNameTaken.Error(), results[1].Reason)

	e2, _ := h.s.roster.Get(p2)
	assert.Empty(t, e2.Name)
	assert.Empty(t, h.eventsOf(domain.EventIntentRejected))
}

func TestLobbyIntents_RejectedDuringMatch(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2 := h.join(), h.join()
	h.allReady(p1, p2)
	h.intent(p1, domain.ActionStartGame, nil)
	h.reset()

	h.intent(p2, domain.ActionReadyToggle, nil)
	h.intent(p2, domain.ActionRoleToggle, nil)
	h.intent(p2, domain.ActionNameChange, api.NamePayload{Name: "Bob"})

	reason := domain.ErrGameInProgress.Error()
	assert.Equal(t, []string{reason, reason}, rejectionsOf(h, p2))
	names := h.eventsOf(domain.EventNameChangeResult)
	require.Len(t, names, 1)
	assert.False(t, names[0].Accepted)
	assert.Equal(t, reason, names[0].Reason)

	e2, _ := h.s.roster.Get(p2)
	assert.True(t, e2.Ready)
	assert.Equal(t, domain.RoleSurvivor, e2.Role)
}

func TestDispatch_IgnoresStrangersAndMalformed(t *testing.T) {
	h := newHarness(t, nil)
	p1 := h.join()

	h.intent(99, domain.ActionReadyToggle, nil)
	assert.Equal(t, 0, h.s.roster.ReadyCount())

	h.intent(p1, domain.ActionNameChange, nil)
	h.s.dispatch(domain.InternalCommand{Action: domain.ActionNameChange, Actor: p1, Payload: json.RawMessage(`{"name":`)})
	assert.Empty(t, h.eventsOf(domain.EventNameChangeResult))
	assert.Equal(t, int64(2), h.s.Metrics.Snapshot().MalformedIntents)
}

func TestResync_SendsSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	p1, p2 := h.join(), h.join()
	h.drain(p1)
	h.drain(p2)

	h.intent(p1, domain.ActionSync, nil)
	frames := h.drain(p1)
	require.Len(t, frames, 4)
	assert.Equal(t, api.TypeSync, frames[0].Type)
	assert.Len(t, frames[0].Snapshot.Roster, 2)
	assert.Equal(t, "CLEAR", frames[1].Roster.Kind)
	assert.Equal(t, uint64(p1), frames[2].Roster.Entry.ID)
	assert.Equal(t, uint64(p2), frames[3].Roster.Entry.ID)
	assert.Empty(t, h.drain(p2), "sync is private")
}

func TestRun_JoinSubmitShutdown(t *testing.T) {
	cfg := NewConfig()
	cfg.Seed = 7
	s := NewService(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go s.Run(ctx)

	require.NoError(t, s.Approve(ctx))
	res, err := s.Join(ctx, JoinRequest{RemoteAddr: "127.0.0.1:5000"})
	require.NoError(t, err)

	s.Submit(res.ID, api.ClientCommand{Action: "ready_toggle"})
	s.Submit(res.ID, api.ClientCommand{Action: "DANCE"})

	view, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, view.Roster, 1)
	assert.True(t, view.Roster[0].Ready)
	assert.True(t, view.AllReady)

	require.NoError(t, s.Shutdown(ctx))
	<-s.Done()

	var last api.ServerMessage
	for msg := range res.Updates {
		last = msg
	}
	assert.Equal(t, api.TypeShutdown, last.Type)
	assert.Equal(t, domain.MsgHostDisconnected, last.Reason)

	_, err = s.Join(ctx, JoinRequest{})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.NoError(t, s.Shutdown(ctx), "second shutdown is a no-op")

	m := s.Metrics.Snapshot()
	assert.Equal(t, int64(1), m.IntentsReceived)
	assert.Equal(t, int64(1), m.MalformedIntents)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewService(NewConfig())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	res, err := s.Join(ctx, JoinRequest{})
	require.NoError(t, err)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
	}
	for range res.Updates {
	}
	_, err = s.Snapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}
