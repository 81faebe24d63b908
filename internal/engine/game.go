package engine

import (
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/systems"
	"pillarhunt-server/pkg/layout"
	"time"

	"github.com/sirupsen/logrus"
)

// maxTickStep caps dt after a stall so one tick cannot fill a pillar.
const maxTickStep = time.Second

// progressBuckets is how finely ObjectiveProgress is reported.
const progressBuckets = 10

type reportKind uint8

const (
	reportAdversaryContact reportKind = iota + 1
	reportMonsterContact
	reportTargetSighted
	reportTargetEvaded
	reportAdversaryArrived
)

func (s *SessionService) startGame() error {
	if s.phase != domain.SessionLobby {
		return domain.ErrGameInProgress
	}
	if !s.allReady {
		return domain.ErrNotAllReady
	}

	s.matches++
	s.phase = domain.SessionInGame
	s.outcome = domain.OutcomeNone

	survivors := 0
	for _, e := range s.roster.Snapshot() {
		if e.Role == domain.RoleSurvivor {
			survivors++
		}
		s.restore(e.ID, e.Ready)
	}

	s.pillars.Spawn(layout.Place(layout.Config{
		Count:      s.cfg.Objectives,
		Extent:     s.cfg.MapExtent,
		MinSpacing: s.cfg.PillarSpacing,
		Seed:       s.cfg.Seed + s.matches,
	}))
	s.buckets = make(map[int]int)
	s.tracker.Reset(survivors)
	s.adversary.Reset()
	s.lastTick = s.now()

	s.Metrics.IncrementGamesStarted()
	s.log.WithFields(logrus.Fields{
		"match":     s.matches,
		"players":   s.roster.Len(),
		"survivors": survivors,
		"pillars":   s.pillars.Len(),
	}).Info("Game started")
	s.emit(domain.Event{Kind: domain.EventGameStarted})

	if survivors == 0 {
		s.gameOver(domain.OutcomeDefeat)
	}
	return nil
}

// restore puts an entry back to full health. ready is the new ready flag.
func (s *SessionService) restore(id domain.ParticipantID, ready bool) {
	_, err := s.roster.Modify(id, func(e *domain.RosterEntry) {
		e.HP = s.cfg.PlayerMaxHP
		e.Alive = true
		e.Ready = ready
	})
	if err != nil {
		s.log.WithError(err).WithField("participant_id", id).Error("Failed to restore roster entry")
	}
}

// tick runs due timers and advances objective collection.
func (s *SessionService) tick(now time.Time) {
	s.scheduler.RunDue(now)

	elapsed := now.Sub(s.lastTick)
	s.lastTick = now
	if s.phase != domain.SessionInGame || elapsed <= 0 {
		return
	}
	if elapsed > maxTickStep {
		elapsed = maxTickStep
	}

	collected := s.pillars.Advance(elapsed.Seconds())
	for _, p := range s.pillars.Active() {
		s.publishProgress(p)
	}
	for _, p := range collected {
		s.objectiveCollected(p)
		if s.phase != domain.SessionInGame {
			return
		}
	}
}

// publishProgress emits ObjectiveProgress when a pillar crosses a tenth.
func (s *SessionService) publishProgress(p *systems.Pillar) {
	bucket := int(p.Fraction()*progressBuckets + 1e-9)
	if bucket == s.buckets[p.ID] {
		return
	}
	s.buckets[p.ID] = bucket
	s.emit(domain.Event{
		Kind:        domain.EventObjectiveProgress,
		ObjectiveID: p.ID,
		Progress:    float64(bucket) / progressBuckets,
	})
}

func (s *SessionService) objectiveCollected(p *systems.Pillar) {
	u := s.tracker.ObjectiveCollected()
	delete(s.buckets, p.ID)
	s.Metrics.IncrementObjectives()

	s.log.WithFields(logrus.Fields{
		"objective_id": p.ID,
		"collected":    u.Collected,
		"remaining":    u.Remaining,
		"phase":        u.Phase.String(),
	}).Info("Pillar collected")
	s.emit(domain.Event{
		Kind:        domain.EventObjectiveCollected,
		ObjectiveID: p.ID,
		Remaining:   u.Remaining,
		Position:    p.Pos,
	})
	if u.PhaseChanged {
		s.emit(domain.Event{Kind: domain.EventPhaseChanged, Phase: u.Phase})
	}

	if u.Victory {
		s.gameOver(domain.OutcomeVictory)
		return
	}
	s.adversary.OnProgress(u.Step, p.Pos)
}

// interactor checks that id may work on pillars right now.
func (s *SessionService) interactor(id domain.ParticipantID) error {
	if s.phase != domain.SessionInGame {
		return domain.ErrNotInGame
	}
	e, ok := s.roster.Get(id)
	if !ok || e.Role != domain.RoleSurvivor || !e.Alive {
		return domain.ErrCannotInteract
	}
	return nil
}

func (s *SessionService) beginInteract(id domain.ParticipantID, objectiveID int) error {
	if err := s.interactor(id); err != nil {
		return err
	}
	p, ok := s.pillars.Get(objectiveID)
	if !ok {
		return domain.ErrUnknownObjective
	}
	// A collected pillar is inert.
	if p.Begin(id) {
		s.log.WithFields(logrus.Fields{
			"participant_id": id,
			"objective_id":   objectiveID,
			"contributors":   p.Contributors(),
		}).Debug("Contribution started")
	}
	return nil
}

func (s *SessionService) endInteract(id domain.ParticipantID, objectiveID int) error {
	if s.phase != domain.SessionInGame {
		return domain.ErrNotInGame
	}
	p, ok := s.pillars.Get(objectiveID)
	if !ok {
		return domain.ErrUnknownObjective
	}
	if p.End(id) {
		s.publishProgress(p)
	}
	return nil
}

// hint points the requester at the nearest uncollected pillar.
func (s *SessionService) hint(id domain.ParticipantID, from domain.Vec2) error {
	if s.phase != domain.SessionInGame {
		return domain.ErrNotInGame
	}
	p, ok := s.pillars.Nearest(from)
	if !ok {
		return domain.ErrUnknownObjective
	}
	s.emit(domain.Event{Kind: domain.EventHint, Participant: id, ObjectiveID: p.ID, Position: p.Pos})
	return nil
}

// report applies a host-side physics or perception observation.
func (s *SessionService) report(kind reportKind, id domain.ParticipantID) {
	if s.phase != domain.SessionInGame {
		return
	}
	switch kind {
	case reportAdversaryContact:
		s.damage(id)
	case reportMonsterContact:
		if s.livingSurvivor(id) {
			s.kill(id)
		}
	case reportTargetSighted:
		if s.livingSurvivor(id) {
			s.adversary.TargetSighted(id)
		}
	case reportTargetEvaded:
		s.adversary.TargetEvaded()
	case reportAdversaryArrived:
		s.adversary.ArrivedAtLastKnown()
	}
}

func (s *SessionService) livingSurvivor(id domain.ParticipantID) bool {
	e, ok := s.roster.Get(id)
	return ok && e.Role == domain.RoleSurvivor && e.Alive
}

// damage takes one HP from a survivor the adversary touched.
func (s *SessionService) damage(id domain.ParticipantID) {
	if !s.livingSurvivor(id) {
		return
	}
	updated, err := s.roster.Modify(id, func(e *domain.RosterEntry) { e.HP-- })
	if err != nil {
		s.log.WithError(err).Error("Failed to apply damage")
		return
	}
	s.emit(domain.Event{Kind: domain.EventPlayerDamaged, Participant: id, HP: updated.HP})
	if updated.HP <= 0 {
		s.kill(id)
	}
}

func (s *SessionService) kill(id domain.ParticipantID) {
	if _, err := s.roster.Modify(id, func(e *domain.RosterEntry) {
		e.HP = 0
		e.Alive = false
	}); err != nil {
		s.log.WithError(err).Error("Failed to mark participant dead")
		return
	}
	for _, p := range s.pillars.DropParticipant(id) {
		s.publishProgress(p)
	}
	s.log.WithField("participant_id", id).Info("Participant killed")
	s.emit(domain.Event{Kind: domain.EventPlayerKilled, Participant: id})
	s.eliminate(id)
}

// eliminate counts a survivor out of the match, by death or disconnect.
func (s *SessionService) eliminate(id domain.ParticipantID) {
	alive, defeat := s.tracker.ParticipantEliminated()
	s.log.WithFields(logrus.Fields{
		"participant_id": id,
		"alive":          alive,
	}).Debug("Survivor eliminated")
	if defeat {
		s.gameOver(domain.OutcomeDefeat)
	}
}

// gameOver ends the match and schedules the return to the lobby.
func (s *SessionService) gameOver(outcome domain.Outcome) {
	if s.phase != domain.SessionInGame {
		return
	}
	s.phase = domain.SessionGameOver
	s.outcome = outcome
	s.adversary.Stop()
	s.Metrics.RecordOutcome(outcome == domain.OutcomeVictory)

	msg := domain.MsgDefeat
	if outcome == domain.OutcomeVictory {
		msg = domain.MsgVictory
	}
	s.log.WithFields(logrus.Fields{
		"outcome":   outcome.String(),
		"collected": s.tracker.Collected(),
		"alive":     s.tracker.Alive(),
	}).Info("Game over")
	s.emit(domain.Event{Kind: domain.EventGameOver, Message: msg, Outcome: outcome})

	s.scheduler.Schedule(s.cfg.GameOverGrace, s.returnToLobby)
}

func (s *SessionService) returnToLobby() {
	if s.phase != domain.SessionGameOver {
		return
	}
	s.pillars.Despawn()
	s.buckets = make(map[int]int)
	s.adversary.Reset()
	s.phase = domain.SessionLobby

	for _, e := range s.roster.Snapshot() {
		s.restore(e.ID, false)
	}
	s.recomputeAllReady()

	s.log.Info("Returned to lobby")
	s.emit(domain.Event{Kind: domain.EventReturnedToLobby})
}
