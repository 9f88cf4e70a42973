package world

import (
	"math"

	"github.com/4cecoder/snakearena/geom"
	"github.com/4cecoder/snakearena/models"
)

// Update advances the simulation by one step of dt seconds: kinematics, wall
// deaths, collisions, then food top-up. Not re-entrant.
func (w *World) Update(dt float64) {
	var wallDeaths []string
	for id, s := range w.snakes {
		if !w.advance(s, dt) {
			wallDeaths = append(wallDeaths, id)
		}
	}
	// Removed before collision resolution so no grid ever indexes a snake
	// whose head left the arena.
	w.killSnakes(wallDeaths, false)

	w.resolveCollisions()
	w.maintainFoodPopulation()
}

// advance moves one snake. It returns false when the new head would leave the
// arena, in which case the snake is left untouched for removal.
func (w *World) advance(s *models.Snake, dt float64) bool {
	sc := w.cfg.Snake
	if s.Spawning(w.now(), sc.SpawnDelay) {
		return true
	}

	s.Angle = geom.RotateTowards(s.Angle, s.DesiredAngle, sc.TurnRate*dt)

	speed := s.Speed
	if s.Boosting {
		speed *= sc.BoostMultiplier
	}

	head := s.Head()
	nx := head.X + math.Cos(s.Angle)*speed*dt
	ny := head.Y + math.Sin(s.Angle)*speed*dt
	if nx < 0 || nx > w.width || ny < 0 || ny > w.height {
		return false
	}

	body := make([]models.Point, 0, len(s.Segments)+1)
	body = append(body, models.Point{X: nx, Y: ny})
	body = append(body, s.Segments...)
	s.Segments = resample(body, s.SegmentSpacing)

	if len(s.Segments) > s.TargetSegments {
		s.Segments = s.Segments[:s.TargetSegments]
	}
	return true
}

// resample keeps the head, then every point at least spacing away from the
// previously kept point.
func resample(points []models.Point, spacing float64) []models.Point {
	if len(points) == 0 {
		return points
	}
	out := make([]models.Point, 1, len(points))
	out[0] = points[0]
	minSq := spacing * spacing
	for _, p := range points[1:] {
		last := out[len(out)-1]
		if geom.DistSq(last.X, last.Y, p.X, p.Y) >= minSq {
			out = append(out, p)
		}
	}
	return out
}
