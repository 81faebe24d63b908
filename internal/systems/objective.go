package systems

import (
	"pillarhunt-server/internal/domain"
	"sort"
)

// collectEpsilon absorbs float drift when summing tick deltas.
const collectEpsilon = 1e-9

// PillarConfig are the collection rules shared by every pillar.
type PillarConfig struct {
	RequiredTime  float64 // seconds
	CoopThreshold int     // contributors up to this count fill at the base rate
	CoopFactor    float64 // k in 1 + k*contributors
}

// DefaultPillarConfig matches the shipped game rules.
func DefaultPillarConfig() PillarConfig {
	return PillarConfig{RequiredTime: 5, CoopThreshold: 2, CoopFactor: 0.2}
}

// Pillar is one collectible objective. Collected is terminal.
type Pillar struct {
	ID  int
	Pos domain.Vec2

	cfg          PillarConfig
	progress     float64
	contributors map[domain.ParticipantID]struct{}
	collected    bool
}

func NewPillar(id int, pos domain.Vec2, cfg PillarConfig) *Pillar {
	return &Pillar{
		ID:           id,
		Pos:          pos,
		cfg:          cfg,
		contributors: make(map[domain.ParticipantID]struct{}),
	}
}

// Begin adds a contributor. Repeats by the same participant do not count twice.
func (p *Pillar) Begin(pid domain.ParticipantID) bool {
	if p.collected {
		return false
	}
	if _, ok := p.contributors[pid]; ok {
		return false
	}
	p.contributors[pid] = struct{}{}
	return true
}

// End removes a contributor. With nobody left the progress drains to zero.
func (p *Pillar) End(pid domain.ParticipantID) bool {
	if p.collected {
		return false
	}
	if _, ok := p.contributors[pid]; !ok {
		return false
	}
	delete(p.contributors, pid)
	if len(p.contributors) == 0 {
		p.progress = 0
	}
	return true
}

// RateMultiplier is the cooperative speed-up for the current contributor count.
func (p *Pillar) RateMultiplier() float64 {
	n := len(p.contributors)
	if n <= p.cfg.CoopThreshold {
		return 1
	}
	return 1 + p.cfg.CoopFactor*float64(n)
}

// Advance accumulates dt seconds of work and returns true exactly once,
// on the tick the pillar becomes collected.
func (p *Pillar) Advance(dt float64) bool {
	if p.collected || len(p.contributors) == 0 || dt <= 0 {
		return false
	}
	p.progress += dt * p.RateMultiplier()
	if p.progress+collectEpsilon >= p.cfg.RequiredTime {
		p.progress = p.cfg.RequiredTime
		p.collected = true
		p.contributors = make(map[domain.ParticipantID]struct{})
		return true
	}
	return false
}

func (p *Pillar) Progress() float64 { return p.progress }
func (p *Pillar) Collected() bool   { return p.collected }
func (p *Pillar) Contributors() int { return len(p.contributors) }

// Fraction is progress normalised to 0..1.
func (p *Pillar) Fraction() float64 {
	if p.cfg.RequiredTime <= 0 {
		return 1
	}
	return p.progress / p.cfg.RequiredTime
}

// PillarSet is the map's objective collection.
type PillarSet struct {
	cfg     PillarConfig
	pillars map[int]*Pillar
}

func NewPillarSet(cfg PillarConfig) *PillarSet {
	return &PillarSet{cfg: cfg, pillars: make(map[int]*Pillar)}
}

// Spawn replaces the current pillars with one per position. Ids start at 1.
func (s *PillarSet) Spawn(positions []domain.Vec2) {
	s.pillars = make(map[int]*Pillar, len(positions))
	for i, pos := range positions {
		s.pillars[i+1] = NewPillar(i+1, pos, s.cfg)
	}
}

// Despawn removes every pillar.
func (s *PillarSet) Despawn() {
	s.pillars = make(map[int]*Pillar)
}

func (s *PillarSet) Get(id int) (*Pillar, bool) {
	p, ok := s.pillars[id]
	return p, ok
}

// All returns every pillar ordered by id, collected ones included.
func (s *PillarSet) All() []*Pillar {
	out := make([]*Pillar, 0, len(s.pillars))
	for _, p := range s.pillars {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns the uncollected pillars ordered by id.
func (s *PillarSet) Active() []*Pillar {
	all := s.All()
	out := all[:0]
	for _, p := range all {
		if !p.collected {
			out = append(out, p)
		}
	}
	return out
}

// Nearest returns the closest uncollected pillar. Ties go to the lower id.
func (s *PillarSet) Nearest(from domain.Vec2) (*Pillar, bool) {
	var best *Pillar
	bestDist := 0.0
	for _, p := range s.Active() {
		d := from.DistanceSquaredTo(p.Pos)
		if best == nil || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, best != nil
}

// DropParticipant ends every contribution pid had open and returns the touched pillars.
func (s *PillarSet) DropParticipant(pid domain.ParticipantID) []*Pillar {
	var touched []*Pillar
	for _, p := range s.All() {
		if p.End(pid) {
			touched = append(touched, p)
		}
	}
	return touched
}

// Advance ticks every pillar and returns those collected on this tick, ordered by id.
func (s *PillarSet) Advance(dt float64) []*Pillar {
	var done []*Pillar
	for _, p := range s.All() {
		if p.Advance(dt) {
			done = append(done, p)
		}
	}
	return done
}

func (s *PillarSet) Len() int { return len(s.pillars) }
