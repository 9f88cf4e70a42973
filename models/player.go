// Package models defines the simulated entities and the logical messages
// exchanged with clients.
package models

import "time"

// Point is a 2D position on the arena plane.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Snake is one creature on the arena, controlled by a player or a bot.
// Segments[0] is always the head.
type Snake struct {
	ID             string
	Name           string
	Color          int
	Angle          float64 // current heading, normalized to (-π, π]
	DesiredAngle   float64 // target heading from input
	Boosting       bool
	Speed          float64 // units per second
	Radius         float64
	SegmentSpacing float64
	TargetSegments int
	Segments       []Point
	SpawnedAt      time.Time
}

// Head returns the head position.
func (s *Snake) Head() Point {
	return s.Segments[0]
}

// Spawning reports whether the snake is still inside its spawn-delay window at now.
func (s *Snake) Spawning(now time.Time, delay time.Duration) bool {
	return now.Sub(s.SpawnedAt) < delay
}

// State converts the snake to its public form with every segment.
func (s *Snake) State() SnakeState {
	return s.StateWithSegments(s.Segments)
}

// StateWithSegments converts the snake to its public form using the given segments.
func (s *Snake) StateWithSegments(segments []Point) SnakeState {
	pairs := make([][2]float64, len(segments))
	for i, p := range segments {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	return SnakeState{
		ID:       s.ID,
		Name:     s.Name,
		Color:    s.Color,
		Radius:   s.Radius,
		Segments: pairs,
	}
}

// Food is a pellet. IDs increase monotonically and are never reused.
type Food struct {
	ID     uint64
	X, Y   float64
	Radius float64
	Color  int
}

// State converts the pellet to its public form.
func (f Food) State() FoodState {
	return FoodState{ID: f.ID, X: f.X, Y: f.Y, Radius: f.Radius, Color: f.Color}
}
