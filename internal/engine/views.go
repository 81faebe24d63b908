package engine

import (
	"pillarhunt-server/internal/core"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/roster"
	"pillarhunt-server/pkg/api"
)

func rosterFrame(c domain.RosterChange) api.ServerMessage {
	v := roster.ChangeToView(c)
	return api.ServerMessage{Type: api.TypeRoster, Roster: &v}
}

func eventFrame(ev domain.Event) api.ServerMessage {
	v := core.EventToView(ev)
	return api.ServerMessage{Type: api.TypeEvent, Event: &v}
}

// view renders the session for WELCOME and SYNC frames.
func (s *SessionService) view() api.SessionView {
	entries := s.roster.Snapshot()
	rosterViews := make([]api.RosterEntryView, 0, len(entries))
	for _, e := range entries {
		rosterViews = append(rosterViews, roster.EntryToView(e))
	}

	pillars := s.pillars.All()
	pillarViews := make([]api.ObjectiveView, 0, len(pillars))
	for _, p := range pillars {
		pillarViews = append(pillarViews, api.ObjectiveView{
			ID:           p.ID,
			X:            p.Pos.X,
			Z:            p.Pos.Z,
			Progress:     p.Fraction(),
			Contributors: p.Contributors(),
			Collected:    p.Collected(),
		})
	}

	v := api.SessionView{
		Session:    s.ID,
		Phase:      s.phase.String(),
		GamePhase:  s.tracker.Phase().String(),
		Outcome:    s.outcome.String(),
		MaxPlayers: s.cfg.MaxPlayers,
		AllReady:   s.allReady,
		RosterSeq:  s.roster.Seq(),
		Collected:  s.tracker.Collected(),
		Objectives: s.cfg.Objectives,
		Alive:      s.tracker.Alive(),
		Pillars:    pillarViews,
		Roster:     rosterViews,
	}
	if s.phase == domain.SessionInGame || s.phase == domain.SessionGameOver {
		a := s.adversary.View()
		v.Adversary = &api.AdversaryView{
			State:   a.State.String(),
			X:       a.Position.X,
			Z:       a.Position.Z,
			Hunting: a.Hunting,
		}
	}
	return v
}

// DebugState is what /debug/session shows.
type DebugState struct {
	View        api.SessionView          `json:"view"`
	Timers      []map[string]interface{} `json:"timers"`
	Subscribers int                      `json:"subscribers"`
	HuntsOn     bool                     `json:"hunts_enabled"`
	HuntChance  float64                  `json:"hunt_chance"`
	Matches     int64                    `json:"matches"`
}

func (s *SessionService) debugState() DebugState {
	return DebugState{
		View:        s.view(),
		Timers:      s.scheduler.DebugDump(),
		Subscribers: s.Hub.SubscriberCount(),
		HuntsOn:     s.adversary.HuntsEnabled(),
		HuntChance:  s.adversary.HuntChance(),
		Matches:     s.matches,
	}
}
