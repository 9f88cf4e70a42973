// Package bots steers computer-controlled snakes through the same input path
// clients use.
package bots

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/4cecoder/snakearena/models"
)

const (
	foodChance       = 0.6
	foodSearchRadius = 300.0
	wallMargin       = 120.0
	lookAhead        = 140.0
	avoidStep        = 0.25
	boostChance      = 0.2
)

// World is what a bot may see and do.
type World interface {
	Spawn(name string, color int) string
	Snake(id string) (*models.Snake, bool)
	Snakes(fn func(s *models.Snake))
	Food() []models.Food
	Bounds() models.WorldBounds
	ApplyInput(id string, desiredAngle float64, boosting bool)
}

type bot struct {
	snakeID      string // rebound on every respawn
	name         string
	color        int
	nextRetarget time.Time
	targetAngle  float64
	boostUntil   time.Time
}

// Manager owns the bot population. It is driven from the tick goroutine.
type Manager struct {
	bots []*bot
	rng  *rand.Rand
}

func NewManager(rng *rand.Rand) *Manager {
	return &Manager{rng: rng}
}

// Spawn adds count bots to the world.
func (m *Manager) Spawn(w World, count int, now time.Time) {
	for i := 0; i < count; i++ {
		b := &bot{
			name:  fmt.Sprintf("Bot %d", len(m.bots)+1),
			color: m.rng.Intn(0xffffff),
		}
		b.snakeID = w.Spawn(b.name, b.color)
		b.nextRetarget = now.Add(m.between(800, 2200))
		if s, ok := w.Snake(b.snakeID); ok {
			b.targetAngle = s.Angle
		}
		m.bots = append(m.bots, b)
	}
}

// Len returns the number of bots.
func (m *Manager) Len() int {
	return len(m.bots)
}

// SnakeIDs returns the snakes currently controlled by bots.
func (m *Manager) SnakeIDs() []string {
	ids := make([]string, len(m.bots))
	for i, b := range m.bots {
		ids[i] = b.snakeID
	}
	return ids
}

// Update respawns dead bots and feeds every live bot its steering input.
func (m *Manager) Update(w World, now time.Time) {
	for _, b := range m.bots {
		s, ok := w.Snake(b.snakeID)
		if !ok {
			m.respawn(w, b, now)
			continue
		}
		if !now.Before(b.nextRetarget) {
			b.nextRetarget = now.Add(m.between(700, 1800))
			b.targetAngle = m.steer(w, s)
			if m.rng.Float64() < boostChance {
				b.boostUntil = now.Add(m.between(300, 900))
			} else {
				b.boostUntil = time.Time{}
			}
		}
		w.ApplyInput(b.snakeID, b.targetAngle, now.Before(b.boostUntil))
	}
}

func (m *Manager) respawn(w World, b *bot, now time.Time) {
	b.snakeID = w.Spawn(b.name, b.color)
	b.nextRetarget = now.Add(m.between(500, 1500))
	b.boostUntil = time.Time{}
	if s, ok := w.Snake(b.snakeID); ok {
		b.targetAngle = s.Angle
	}
}

// steer picks a new heading: nearby food or a random wander, overridden near
// walls, then nudged away from bodies ahead.
func (m *Manager) steer(w World, s *models.Snake) float64 {
	head := s.Head()
	desired, found := 0.0, false
	if m.rng.Float64() < foodChance {
		desired, found = nearestFoodAngle(w.Food(), head, foodSearchRadius)
	}
	if !found {
		desired = m.rng.Float64()*2*math.Pi - math.Pi
	}

	bounds := w.Bounds()
	if head.X < wallMargin {
		desired = 0
	} else if head.X > bounds.Width-wallMargin {
		desired = math.Pi
	}
	if head.Y < wallMargin {
		desired = math.Pi / 2
	} else if head.Y > bounds.Height-wallMargin {
		desired = -math.Pi / 2
	}

	return desired + avoidBias(w, s.Angle, head)
}

// nearestFoodAngle returns the heading from head to the closest pellet within
// radius on both axes.
func nearestFoodAngle(food []models.Food, head models.Point, radius float64) (float64, bool) {
	best := math.Inf(1)
	angle, found := 0.0, false
	for _, f := range food {
		dx, dy := f.X-head.X, f.Y-head.Y
		if math.Abs(dx) > radius || math.Abs(dy) > radius {
			continue
		}
		if d2 := dx*dx + dy*dy; d2 < best {
			best = d2
			angle = math.Atan2(dy, dx)
			found = true
		}
	}
	return angle, found
}

// avoidBias sums a fixed turn away from every body point within lookAhead
// that lies in the forward half-plane of heading.
func avoidBias(w World, heading float64, head models.Point) float64 {
	bias := 0.0
	w.Snakes(func(other *models.Snake) {
		for _, p := range other.Segments {
			dx, dy := p.X-head.X, p.Y-head.Y
			if math.Abs(dx) > lookAhead || math.Abs(dy) > lookAhead {
				continue
			}
			d2 := dx*dx + dy*dy
			if d2 >= lookAhead*lookAhead || d2 <= 1 {
				continue
			}
			ang := math.Atan2(dy, dx)
			delta := math.Atan2(math.Sin(ang-heading), math.Cos(ang-heading))
			if math.Abs(delta) < math.Pi/2 {
				bias -= sign(delta) * avoidStep
			}
		}
	})
	return bias
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// between returns a random duration in [lo, hi) milliseconds.
func (m *Manager) between(lo, hi int) time.Duration {
	return time.Duration(lo+m.rng.Intn(hi-lo)) * time.Millisecond
}
