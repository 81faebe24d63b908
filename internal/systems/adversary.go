package systems

import (
	"math"
	"math/rand"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/logger"
	"time"

	"github.com/sirupsen/logrus"
)

// AdversaryState is the behaviour mode of the AI adversary.
type AdversaryState uint8

const (
	AdversaryDespawned AdversaryState = iota
	AdversaryDespawning
	AdversaryInactive
	AdversaryPatrolling
	AdversaryChasing
	AdversaryEvade
	AdversaryStopped
)

var adversaryStateNames = [...]string{"DESPAWNED", "DESPAWNING", "INACTIVE", "PATROLLING", "CHASING", "EVADE", "STOPPED"}

func (s AdversaryState) String() string {
	if int(s) < len(adversaryStateNames) {
		return adversaryStateNames[s]
	}
	return "UNKNOWN"
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports false if it already ran or was stopped.
	Stop() bool
}

// Clock schedules callbacks. Implementations must run fn on the same
// goroutine that drives the Adversary.
type Clock interface {
	Schedule(d time.Duration, fn func()) Timer
}

// AdversaryConfig holds the aggression knobs.
type AdversaryConfig struct {
	HuntChance        float64
	HuntDuration      time.Duration
	SuccessCooldown   time.Duration
	FailureCooldown   time.Duration
	StopHold          time.Duration
	DespawnDelay      time.Duration
	EvadeTimeout      time.Duration
	SpawnRadius       float64
	FinalHuntChance   float64
	FinalHuntDuration time.Duration
}

func DefaultAdversaryConfig() AdversaryConfig {
	return AdversaryConfig{
		HuntChance:        0.3,
		HuntDuration:      10 * time.Second,
		SuccessCooldown:   60 * time.Second,
		FailureCooldown:   10 * time.Second,
		StopHold:          4 * time.Second,
		DespawnDelay:      4 * time.Second,
		EvadeTimeout:      6 * time.Second,
		SpawnRadius:       15,
		FinalHuntChance:   1.0,
		FinalHuntDuration: 5000 * time.Second,
	}
}

// AdversaryView is what observers get told on every change.
type AdversaryView struct {
	State    AdversaryState
	Position domain.Vec2
	Hunting  bool
	Target   domain.ParticipantID
}

// PillarLocator finds the pillar the adversary should guard.
type PillarLocator interface {
	Nearest(from domain.Vec2) (*Pillar, bool)
}

// Adversary is the phase-driven AI monster. It only reads session state;
// every effect leaves through OnChange. Not safe for concurrent use.
type Adversary struct {
	cfg     AdversaryConfig
	clock   Clock
	rng     *rand.Rand
	pillars PillarLocator
	log     *logrus.Entry

	OnChange func(AdversaryView)

	state  AdversaryState
	pos    domain.Vec2
	target domain.ParticipantID

	lastCollectedAt domain.Vec2
	huntChance      float64
	huntDuration    time.Duration

	huntsEnabled      bool
	coolingDown       bool
	shouldDespawn     bool
	progressedInChase bool
	hunting           bool

	holdTimer     Timer
	despawnTimer  Timer
	cooldownTimer Timer
	huntTimer     Timer
	evadeTimer    Timer
}

func NewAdversary(cfg AdversaryConfig, clock Clock, rng *rand.Rand, pillars PillarLocator) *Adversary {
	a := &Adversary{
		cfg:     cfg,
		clock:   clock,
		rng:     rng,
		pillars: pillars,
		log:     logger.Component("adversary"),
	}
	a.resetFlags()
	return a
}

func (a *Adversary) resetFlags() {
	a.huntChance = a.cfg.HuntChance
	a.huntDuration = a.cfg.HuntDuration
	a.huntsEnabled = false
	a.coolingDown = false
	a.shouldDespawn = true
	a.progressedInChase = false
	a.hunting = false
	a.target = 0
}

// Reset prepares a fresh match: timers cancelled, despawned, no aggression.
func (a *Adversary) Reset() {
	a.stopTimers()
	a.resetFlags()
	a.setState(AdversaryDespawned)
}

// Stop freezes the adversary until the next Reset.
func (a *Adversary) Stop() {
	a.stopTimers()
	a.hunting = false
	a.setState(AdversaryStopped)
}

// OnProgress reacts to a collection. collectedAt is where the pillar stood.
func (a *Adversary) OnProgress(step AggressionStep, collectedAt domain.Vec2) {
	if a.state == AdversaryStopped {
		return
	}
	a.lastCollectedAt = collectedAt

	switch step {
	case StepSpawn:
		a.spawnNearPillar()

	case StepReposition:
		switch a.state {
		case AdversaryPatrolling, AdversaryDespawned:
			a.spawnNearPillar()
		default:
			// Busy with a chase; reposition once it has despawned.
			a.progressedInChase = true
		}

	case StepEnableHunts:
		a.huntsEnabled = true
		a.shouldDespawn = false
		a.tryHunt()

	case StepFinalHunt:
		a.huntsEnabled = true
		a.shouldDespawn = false
		a.huntChance = a.cfg.FinalHuntChance
		a.huntDuration = a.cfg.FinalHuntDuration
		a.tryHunt()
	}
}

// TargetSighted starts a chase unless already chasing or despawned.
func (a *Adversary) TargetSighted(pid domain.ParticipantID) {
	switch a.state {
	case AdversaryDespawned, AdversaryStopped, AdversaryChasing:
		return
	}
	a.target = pid
	a.goChase()
}

// TargetEvaded ends the current chase.
func (a *Adversary) TargetEvaded() {
	if a.state != AdversaryChasing {
		return
	}
	a.endHunt()
	a.setState(AdversaryEvade)
	a.evadeTimer = a.clock.Schedule(a.cfg.EvadeTimeout, a.ArrivedAtLastKnown)
}

// ArrivedAtLastKnown is reported when the adversary reaches the point where
// it lost its target. It then holds still before leaving the chase.
func (a *Adversary) ArrivedAtLastKnown() {
	if a.state != AdversaryEvade {
		return
	}
	stop(a.evadeTimer)
	a.target = 0
	a.setState(AdversaryInactive)
	a.holdTimer = a.clock.Schedule(a.cfg.StopHold, a.comeOutOfChase)
}

func (a *Adversary) comeOutOfChase() {
	if a.state != AdversaryInactive {
		return
	}
	if !a.shouldDespawn {
		a.setState(AdversaryPatrolling)
		a.tryHunt()
		return
	}

	a.setState(AdversaryDespawning)
	a.despawnTimer = a.clock.Schedule(a.cfg.DespawnDelay, func() {
		if a.state != AdversaryDespawning {
			return
		}
		a.setState(AdversaryDespawned)
		if a.progressedInChase {
			a.progressedInChase = false
			a.spawnNearPillar()
			return
		}
		a.tryHunt()
	})
}

func (a *Adversary) goChase() {
	if a.state == AdversaryDespawning {
		a.log.Debug("Cancelling despawn, target sighted")
	}
	stop(a.despawnTimer)
	stop(a.holdTimer)
	stop(a.evadeTimer)
	a.setState(AdversaryChasing)
}

// tryHunt rolls for an unprovoked hunt when allowed. It runs as a
// continuation whenever the adversary settles or a cooldown ends.
func (a *Adversary) tryHunt() {
	if !a.huntsEnabled || a.coolingDown {
		return
	}
	if a.state != AdversaryDespawned && a.state != AdversaryPatrolling {
		return
	}

	if a.rng.Float64() < a.huntChance {
		a.log.WithField("chance", a.huntChance).Info("Hunt attempt succeeded")
		a.startCooldown(a.cfg.SuccessCooldown)
		a.startHunt()
		return
	}
	a.log.WithField("chance", a.huntChance).Debug("Hunt attempt failed, retrying after cooldown")
	a.startCooldown(a.cfg.FailureCooldown)
}

func (a *Adversary) startCooldown(d time.Duration) {
	a.coolingDown = true
	stop(a.cooldownTimer)
	a.cooldownTimer = a.clock.Schedule(d, func() {
		a.coolingDown = false
		a.tryHunt()
	})
}

func (a *Adversary) startHunt() {
	a.pos = a.randomPointNear(a.lastCollectedAt)
	a.hunting = true
	a.goChase()
	stop(a.huntTimer)
	a.huntTimer = a.clock.Schedule(a.huntDuration, func() {
		a.hunting = false
		a.TargetEvaded()
	})
}

func (a *Adversary) endHunt() {
	a.hunting = false
	stop(a.huntTimer)
}

func (a *Adversary) spawnNearPillar() {
	p, ok := a.pillars.Nearest(a.lastCollectedAt)
	if !ok {
		return
	}
	stop(a.holdTimer)
	stop(a.despawnTimer)
	a.pos = a.randomPointNear(p.Pos)
	a.state = AdversaryPatrolling
	a.log.WithFields(logrus.Fields{
		"objective_id": p.ID,
		"x":            a.pos.X,
		"z":            a.pos.Z,
	}).Info("Adversary warped to pillar")
	a.notify()
	a.tryHunt()
}

// randomPointNear picks a uniform point on the spawn disc around origin.
func (a *Adversary) randomPointNear(origin domain.Vec2) domain.Vec2 {
	theta := a.rng.Float64() * 2 * math.Pi
	r := math.Sqrt(a.rng.Float64()) * a.cfg.SpawnRadius
	return origin.Shift(r*math.Cos(theta), r*math.Sin(theta))
}

func (a *Adversary) setState(s AdversaryState) {
	if a.state == s {
		return
	}
	a.state = s
	a.notify()
}

func (a *Adversary) notify() {
	a.log.WithField("state", a.state).Debug("Adversary state")
	if a.OnChange != nil {
		a.OnChange(a.View())
	}
}

func (a *Adversary) stopTimers() {
	for _, t := range []Timer{a.holdTimer, a.despawnTimer, a.cooldownTimer, a.huntTimer, a.evadeTimer} {
		stop(t)
	}
}

func stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}

// View returns the replicated part of the adversary.
func (a *Adversary) View() AdversaryView {
	return AdversaryView{
		State:    a.state,
		Position: a.pos,
		Hunting:  a.hunting,
		Target:   a.target,
	}
}

func (a *Adversary) State() AdversaryState       { return a.state }
func (a *Adversary) HuntsEnabled() bool          { return a.huntsEnabled }
func (a *Adversary) HuntChance() float64         { return a.huntChance }
func (a *Adversary) HuntDuration() time.Duration { return a.huntDuration }
func (a *Adversary) Hunting() bool               { return a.hunting }
