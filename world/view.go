package world

import (
	"time"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/geom"
	"github.com/4cecoder/snakearena/models"
)

// Snapshot returns the complete public state of the world.
func (w *World) Snapshot(tick uint64, now time.Time) models.Snapshot {
	snap := models.Snapshot{
		Tick:   tick,
		Now:    now.UnixMilli(),
		World:  w.Bounds(),
		Snakes: make([]models.SnakeState, 0, len(w.snakes)),
		Food:   make([]models.FoodState, 0, len(w.food)),
	}
	for _, s := range w.snakes {
		snap.Snakes = append(snap.Snakes, s.State())
	}
	for _, f := range w.food {
		snap.Food = append(snap.Food, f.State())
	}
	return snap
}

// View returns the slice of the world visible from (cx, cy): snakes whose
// head is within radius, whole, and food within radius. When tail
// subsampling is enabled, distant bodies are thinned.
func (w *World) View(tick uint64, now time.Time, cx, cy, radius float64) models.Snapshot {
	r2 := radius * radius
	tail := w.cfg.Network.Tail
	snap := models.Snapshot{
		Tick:   tick,
		Now:    now.UnixMilli(),
		World:  w.Bounds(),
		Snakes: []models.SnakeState{},
		Food:   []models.FoodState{},
	}
	for _, s := range w.snakes {
		h := s.Head()
		d2 := geom.DistSq(h.X, h.Y, cx, cy)
		if d2 > r2 {
			continue
		}
		if !tail.Enabled {
			snap.Snakes = append(snap.Snakes, s.State())
			continue
		}
		limit := TailLimit(tail, geom.Dist(h.X, h.Y, cx, cy))
		snap.Snakes = append(snap.Snakes, s.StateWithSegments(Subsample(s.Segments, limit)))
	}
	for _, f := range w.food {
		if geom.DistSq(f.X, f.Y, cx, cy) <= r2 {
			snap.Food = append(snap.Food, f.State())
		}
	}
	return snap
}

// TailLimit returns the maximum number of body points sent for a snake at
// distance d from the observer.
func TailLimit(tail config.TailSubsampling, d float64) int {
	switch {
	case d <= tail.NearDistance:
		return tail.NearSegments
	case d <= tail.MediumDistance:
		return tail.MediumSegments
	case d <= tail.FarDistance:
		return tail.FarSegments
	default:
		return tail.VeryFarSegments
	}
}

// Subsample reduces points to at most limit entries. The head is always
// first; the rest are picked at a uniform index stride across the input
// sequence so the last point stays the tail.
func Subsample(points []models.Point, limit int) []models.Point {
	if limit <= 0 || len(points) <= limit {
		return points
	}
	if limit == 1 {
		return points[:1]
	}
	out := make([]models.Point, limit)
	last := len(points) - 1
	for i := 0; i < limit; i++ {
		out[i] = points[i*last/(limit-1)]
	}
	return out
}
