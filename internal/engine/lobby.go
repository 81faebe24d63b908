package engine

import (
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/api"

	"github.com/sirupsen/logrus"
)

// approve decides whether one more participant may join right now.
func (s *SessionService) approve() error {
	switch {
	case s.phase == domain.SessionClosed:
		return domain.ErrSessionClosed
	case s.roster.Len() >= s.cfg.MaxPlayers:
		return domain.ErrGameFull
	case s.phase != domain.SessionLobby:
		return domain.ErrGameInProgress
	}
	return nil
}

func (s *SessionService) join(req JoinRequest) (JoinResult, error) {
	if err := s.approve(); err != nil {
		s.Metrics.IncrementRejectedJoins()
		s.log.WithFields(logrus.Fields{
			"remote_addr": req.RemoteAddr,
			"reason":      domain.Reason(err),
		}).Info("Join rejected")
		return JoinResult{}, err
	}

	s.nextID++
	id := s.nextID
	updates := s.Hub.Register(id)

	// The newcomer is synced before its own Add is broadcast.
	view := s.view()
	s.sendTo(id, api.ServerMessage{
		Type:     api.TypeWelcome,
		Session:  s.ID,
		YourID:   uint64(id),
		Snapshot: &view,
	})
	for _, c := range s.roster.SnapshotChanges() {
		s.sendTo(id, rosterFrame(c))
	}

	if err := s.roster.Add(domain.NewRosterEntry(id, s.cfg.PlayerMaxHP)); err != nil {
		s.Hub.Unregister(id)
		return JoinResult{}, err
	}
	s.recomputeAllReady()

	s.log.WithFields(logrus.Fields{
		"participant_id": id,
		"remote_addr":    req.RemoteAddr,
		"players":        s.roster.Len(),
	}).Info("Participant joined")
	s.emit(domain.Event{Kind: domain.EventClientConnected, Participant: id})

	return JoinResult{ID: id, Updates: updates}, nil
}

// leave handles a disconnect in any phase.
func (s *SessionService) leave(id domain.ParticipantID) {
	s.Hub.Unregister(id)
	if s.roster.IndexOf(id) < 0 {
		return
	}

	for _, p := range s.pillars.DropParticipant(id) {
		s.publishProgress(p)
	}

	entry, _, _ := s.roster.Remove(id)
	s.log.WithFields(logrus.Fields{
		"participant_id": id,
		"role":           entry.Role.String(),
		"players":        s.roster.Len(),
	}).Info("Participant left")

	if entry.Role == domain.RoleMonster {
		s.emit(domain.Event{Kind: domain.EventRoleFreed, Participant: id, Role: domain.RoleMonster})
	}
	s.recomputeAllReady()

	if s.phase == domain.SessionInGame && entry.Role == domain.RoleSurvivor && entry.Alive {
		s.eliminate(id)
	}
}

// recomputeAllReady emits AllReadyToggled only when the value flips.
func (s *SessionService) recomputeAllReady() {
	n := s.roster.Len()
	now := n > 0 && s.roster.ReadyCount() == n
	if now == s.allReady {
		return
	}
	s.allReady = now
	s.emit(domain.Event{Kind: domain.EventAllReadyToggled, AllReady: now})
}

func (s *SessionService) toggleRole(id domain.ParticipantID) error {
	updated, err := s.roster.Modify(id, func(e *domain.RosterEntry) {
		if e.Role == domain.RoleMonster {
			e.Role = domain.RoleSurvivor
		} else {
			e.Role = domain.RoleMonster
		}
	})
	if err != nil {
		return err
	}
	s.emit(domain.Event{Kind: domain.EventRoleToggled, Participant: id, Role: updated.Role})
	return nil
}

func (s *SessionService) toggleReady(id domain.ParticipantID) error {
	if _, err := s.roster.Modify(id, func(e *domain.RosterEntry) { e.Ready = !e.Ready }); err != nil {
		return err
	}
	s.recomputeAllReady()
	return nil
}

func (s *SessionService) changeName(id domain.ParticipantID, name string) error {
	if _, err := s.roster.Modify(id, func(e *domain.RosterEntry) { e.Name = name }); err != nil {
		return err
	}
	s.emit(domain.Event{Kind: domain.EventNameChangeResult, Participant: id, Accepted: true})
	return nil
}

// requestStart lets the lobby leader (first roster entry) start the match.
func (s *SessionService) requestStart(id domain.ParticipantID) error {
	if s.roster.IndexOf(id) != 0 {
		return domain.ErrNotLobbyLeader
	}
	return s.startGame()
}

// resync resends the full state to one participant.
func (s *SessionService) resync(id domain.ParticipantID) error {
	view := s.view()
	s.sendTo(id, api.ServerMessage{Type: api.TypeSync, Session: s.ID, YourID: uint64(id), Snapshot: &view})
	for _, c := range s.roster.SnapshotChanges() {
		s.sendTo(id, rosterFrame(c))
	}
	return nil
}
