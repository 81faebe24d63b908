package engine

import (
	"pillarhunt-server/internal/systems"
	"time"
)

// Config holds the game rules of one session.
type Config struct {
	// Seed drives pillar placement and adversary rolls. 0 picks one at startup.
	Seed int64

	MaxPlayers  int
	PlayerMaxHP int

	Objectives     int
	RandomHuntFrom int // 0 means Objectives-3
	FinalPhaseFrom int // 0 means Objectives-1
	Pillar         systems.PillarConfig

	MapExtent     float64
	PillarSpacing float64

	TickRate      int // objective ticks per second
	GameOverGrace time.Duration

	Adversary systems.AdversaryConfig
}

// NewConfig returns the shipped rules with a random seed.
func NewConfig() Config {
	return Config{
		Seed:          time.Now().UnixNano(),
		MaxPlayers:    5,
		PlayerMaxHP:   3,
		Objectives:    7,
		Pillar:        systems.DefaultPillarConfig(),
		MapExtent:     100,
		PillarSpacing: 20,
		TickRate:      20,
		GameOverGrace: 5 * time.Second,
		Adversary:     systems.DefaultAdversaryConfig(),
	}
}

// Sanitize replaces out-of-range values with defaults.
func (c *Config) Sanitize() {
	def := NewConfig()
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	if c.MaxPlayers < 1 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.PlayerMaxHP < 1 {
		c.PlayerMaxHP = def.PlayerMaxHP
	}
	if c.Objectives < 1 {
		c.Objectives = def.Objectives
	}
	if c.Pillar.RequiredTime <= 0 {
		c.Pillar.RequiredTime = def.Pillar.RequiredTime
	}
	if c.Pillar.CoopThreshold < 0 {
		c.Pillar.CoopThreshold = def.Pillar.CoopThreshold
	}
	if c.Pillar.CoopFactor < 0 {
		c.Pillar.CoopFactor = def.Pillar.CoopFactor
	}
	if c.MapExtent <= 0 {
		c.MapExtent = def.MapExtent
	}
	if c.PillarSpacing < 0 {
		c.PillarSpacing = def.PillarSpacing
	}
	if c.TickRate < 1 || c.TickRate > 1000 {
		c.TickRate = def.TickRate
	}
	if c.GameOverGrace < 0 {
		c.GameOverGrace = def.GameOverGrace
	}
	if c.Adversary.HuntChance < 0 || c.Adversary.HuntChance > 1 {
		c.Adversary.HuntChance = def.Adversary.HuntChance
	}
	if c.Adversary.FinalHuntChance < 0 || c.Adversary.FinalHuntChance > 1 {
		c.Adversary.FinalHuntChance = def.Adversary.FinalHuntChance
	}
	if c.Adversary.SpawnRadius <= 0 {
		c.Adversary.SpawnRadius = def.Adversary.SpawnRadius
	}
}

// TickInterval is the period of the objective ticker.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func (c Config) trackerConfig() systems.TrackerConfig {
	return systems.TrackerConfig{
		Objectives:     c.Objectives,
		RandomHuntFrom: c.RandomHuntFrom,
		FinalPhaseFrom: c.FinalPhaseFrom,
	}
}
