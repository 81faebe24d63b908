package layout

import (
	"testing"
)

func TestPlace(t *testing.T) {
	cfg := Config{Count: 7, Extent: 100, MinSpacing: 20, Seed: 42}
	points := Place(cfg)

	// 1. Count
	if len(points) != cfg.Count {
		t.Fatalf("Expected %d pillars, got %d", cfg.Count, len(points))
	}

	// 2. Bounds
	for _, p := range points {
		if p.X < -cfg.Extent || p.X > cfg.Extent || p.Z < -cfg.Extent || p.Z > cfg.Extent {
			t.Errorf("Pillar %+v is outside the play area", p)
		}
	}

	// 3. Spacing. 7 points in a 200x200 square fit easily.
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			if d := points[i].DistanceTo(points[j]); d < cfg.MinSpacing {
				t.Errorf("Pillars %d and %d are %.2f apart", i, j, d)
			}
		}
	}
}

func TestPlace_Deterministic(t *testing.T) {
	a := Place(Config{Count: 5, Seed: 9, MinSpacing: 10})
	b := Place(Config{Count: 5, Seed: 9, MinSpacing: 10})
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Same seed produced different maps at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPlace_CrowdedAreaStillFits(t *testing.T) {
	points := Place(Config{Count: 30, Extent: 10, MinSpacing: 50, Seed: 1})
	if len(points) != 30 {
		t.Fatalf("Expected relaxed spacing to fit 30 pillars, got %d", len(points))
	}
}

func TestPlace_Empty(t *testing.T) {
	if got := Place(Config{Count: 0}); got != nil {
		t.Errorf("Expected nil for zero count, got %v", got)
	}
}
