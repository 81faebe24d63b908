package systems

import "pillarhunt-server/internal/domain"

// AggressionStep tells the adversary what a collection unlocked.
type AggressionStep uint8

const (
	StepNone AggressionStep = iota
	StepSpawn
	StepReposition
	StepEnableHunts
	StepFinalHunt
)

func (s AggressionStep) String() string {
	switch s {
	case StepSpawn:
		return "SPAWN"
	case StepReposition:
		return "REPOSITION"
	case StepEnableHunts:
		return "ENABLE_HUNTS"
	case StepFinalHunt:
		return "FINAL_HUNT"
	}
	return "NONE"
}

// TrackerConfig holds the thresholds. Zero values pick the defaults
// N-3 for random hunts and N-1 for the final phase.
type TrackerConfig struct {
	Objectives     int
	RandomHuntFrom int
	FinalPhaseFrom int
}

func (c TrackerConfig) normalized() TrackerConfig {
	if c.Objectives < 1 {
		c.Objectives = 7
	}
	if c.RandomHuntFrom <= 0 {
		c.RandomHuntFrom = c.Objectives - 3
	}
	if c.RandomHuntFrom < 2 {
		c.RandomHuntFrom = 2
	}
	if c.FinalPhaseFrom <= 0 {
		c.FinalPhaseFrom = c.Objectives - 1
	}
	if c.FinalPhaseFrom < c.RandomHuntFrom {
		c.FinalPhaseFrom = c.RandomHuntFrom
	}
	return c
}

// ProgressUpdate is what a single collection changed.
type ProgressUpdate struct {
	Collected    int
	Remaining    int
	Phase        domain.GamePhase
	PhaseChanged bool
	Step         AggressionStep
	Victory      bool
}

// Tracker owns objectives_collected and participants_alive.
// Both counters are monotonic and the outcome is decided at most once.
type Tracker struct {
	cfg TrackerConfig

	collected int
	alive     int
	phase     domain.GamePhase
	outcome   domain.Outcome
}

func NewTracker(cfg TrackerConfig) *Tracker {
	return &Tracker{cfg: cfg.normalized()}
}

// Reset starts a new match with the given number of living survivors.
func (t *Tracker) Reset(alive int) {
	if alive < 0 {
		alive = 0
	}
	t.collected = 0
	t.alive = alive
	t.phase = domain.PhaseIdle
	t.outcome = domain.OutcomeNone
}

// ObjectiveCollected is the only way objectives_collected moves.
func (t *Tracker) ObjectiveCollected() ProgressUpdate {
	if t.Over() || t.collected >= t.cfg.Objectives {
		return ProgressUpdate{Collected: t.collected, Remaining: t.Remaining(), Phase: t.phase}
	}

	t.collected++
	next := t.PhaseFor(t.collected)
	update := ProgressUpdate{
		Collected:    t.collected,
		Remaining:    t.Remaining(),
		Phase:        next,
		PhaseChanged: next != t.phase,
		Step:         t.StepFor(t.collected),
	}
	t.phase = next

	if t.collected == t.cfg.Objectives {
		t.outcome = domain.OutcomeVictory
		update.Victory = true
	}
	return update
}

// ParticipantEliminated decrements participants_alive and reports a defeat
// the first time it reaches zero.
func (t *Tracker) ParticipantEliminated() (alive int, defeat bool) {
	if t.Over() || t.alive == 0 {
		return t.alive, false
	}
	t.alive--
	if t.alive == 0 {
		t.outcome = domain.OutcomeDefeat
		return 0, true
	}
	return t.alive, false
}

// PhaseFor maps a collected count to its phase.
func (t *Tracker) PhaseFor(collected int) domain.GamePhase {
	n := t.cfg.Objectives
	switch {
	case collected <= 0:
		return domain.PhaseIdle
	case collected >= n:
		return domain.PhaseComplete
	case collected == 1:
		return domain.PhaseStarted
	case collected >= n-1:
		return domain.PhaseAggressive
	}
	return domain.PhaseEscalating
}

// StepFor maps a collected count to the adversary behaviour it unlocks.
func (t *Tracker) StepFor(collected int) AggressionStep {
	switch {
	case collected <= 0 || collected >= t.cfg.Objectives:
		return StepNone
	case collected == 1:
		return StepSpawn
	case collected < t.cfg.RandomHuntFrom:
		return StepReposition
	case collected < t.cfg.FinalPhaseFrom:
		return StepEnableHunts
	}
	return StepFinalHunt
}

func (t *Tracker) Collected() int          { return t.collected }
func (t *Tracker) Alive() int              { return t.alive }
func (t *Tracker) Phase() domain.GamePhase { return t.phase }
func (t *Tracker) Outcome() domain.Outcome { return t.outcome }
func (t *Tracker) Over() bool              { return t.outcome != domain.OutcomeNone }
func (t *Tracker) Objectives() int         { return t.cfg.Objectives }
func (t *Tracker) Config() TrackerConfig   { return t.cfg }
func (t *Tracker) Remaining() int          { return t.cfg.Objectives - t.collected }
