// Package layout scatters pillars over the play area.
package layout

import (
	"math"
	"math/rand"
	"pillarhunt-server/internal/domain"
)

// Placement constants
const (
	DefaultExtent     = 100.0
	DefaultMinSpacing = 20.0
	attemptsPerRound  = 200
	relaxFactor       = 0.9
)

// Config describes one placement. The same Seed always yields the same map.
type Config struct {
	Count      int
	Extent     float64 // square half-size, points land in [-Extent, Extent]
	MinSpacing float64
	Seed       int64
}

// grid is a spatial hash with cells as wide as the spacing, so a
// conflicting point can only be in the 3x3 neighbourhood.
type grid struct {
	cell  float64
	cells map[[2]int][]domain.Vec2
}

func newGrid(cell float64) *grid {
	return &grid{cell: cell, cells: make(map[[2]int][]domain.Vec2)}
}

func (g *grid) key(p domain.Vec2) [2]int {
	return [2]int{int(math.Floor(p.X / g.cell)), int(math.Floor(p.Z / g.cell))}
}

func (g *grid) add(p domain.Vec2) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], p)
}

func (g *grid) clear(p domain.Vec2, spacing float64) bool {
	k := g.key(p)
	limit := spacing * spacing
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, q := range g.cells[[2]int{k[0] + dx, k[1] + dz}] {
				if p.DistanceSquaredTo(q) < limit {
					return false
				}
			}
		}
	}
	return true
}

// Place returns cfg.Count points at least MinSpacing apart. When the area
// is too crowded the spacing is relaxed round by round until everything fits.
func Place(cfg Config) []domain.Vec2 {
	if cfg.Count <= 0 {
		return nil
	}
	if cfg.Extent <= 0 {
		cfg.Extent = DefaultExtent
	}
	if cfg.MinSpacing < 0 {
		cfg.MinSpacing = 0
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	spacing := cfg.MinSpacing
	points := make([]domain.Vec2, 0, cfg.Count)

	for len(points) < cfg.Count {
		cell := spacing
		if cell <= 0 {
			cell = cfg.Extent
		}
		g := newGrid(cell)
		for _, p := range points {
			g.add(p)
		}

		for attempt := 0; attempt < attemptsPerRound && len(points) < cfg.Count; attempt++ {
			p := domain.Vec2{
				X: (rng.Float64()*2 - 1) * cfg.Extent,
				Z: (rng.Float64()*2 - 1) * cfg.Extent,
			}
			if spacing > 0 && !g.clear(p, spacing) {
				continue
			}
			g.add(p)
			points = append(points, p)
		}
		spacing *= relaxFactor
		if spacing < 1e-6 {
			spacing = 0
		}
	}
	return points
}
