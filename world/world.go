// Package world owns the authoritative arena: snakes, food, the tick step and
// the per-observer view builder. A World is not safe for concurrent use; the
// game loop is its only writer.
package world

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/geom"
	"github.com/4cecoder/snakearena/models"
	"github.com/4cecoder/snakearena/spatial"
)

// bodyRef is a body point indexed in the collision grid.
type bodyRef struct {
	owner  string
	radius float64
}

// World is the authoritative simulation state.
type World struct {
	cfg    config.Config
	width  float64
	height float64

	snakes     map[string]*models.Snake
	food       []models.Food
	nextFoodID uint64

	rng   *rand.Rand
	now   func() time.Time
	newID func() string

	// Rebuilt every tick by resolveCollisions.
	foodGrid *spatial.Grid[int]
	bodyGrid *spatial.Grid[bodyRef]
}

// Option customizes a World at construction.
type Option func(*World)

// WithRand sets the random source used for spawn positions, headings and food.
func WithRand(r *rand.Rand) Option {
	return func(w *World) { w.rng = r }
}

// WithClock sets the clock used for spawn-delay gating.
func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

// WithIDs sets the snake id generator. Ids must never repeat.
func WithIDs(newID func() string) Option {
	return func(w *World) { w.newID = newID }
}

// New creates a world sized by cfg and seeds half of the target food count.
func New(cfg config.Config, opts ...Option) *World {
	w := &World{
		cfg:        cfg,
		width:      cfg.WorldWidth,
		height:     cfg.WorldHeight,
		snakes:     make(map[string]*models.Snake),
		nextFoodID: 1,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		newID:      uuid.NewString,
		foodGrid:   spatial.NewGrid[int](cfg.GridCellSize),
		bodyGrid:   spatial.NewGrid[bodyRef](cfg.GridCellSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	for i := 0; i < cfg.Food.TargetCount/2; i++ {
		w.spawnFood()
	}
	return w
}

// Bounds returns the world extent.
func (w *World) Bounds() models.WorldBounds {
	return models.WorldBounds{Width: w.width, Height: w.height}
}

// Spawn places a new snake at a uniformly random point with a random heading
// and a short straight tail, and returns its id.
func (w *World) Spawn(name string, color int) string {
	x := w.rng.Float64() * w.width
	y := w.rng.Float64() * w.height
	angle := geom.NormalizeAngle(w.rng.Float64()*2*math.Pi - math.Pi)
	return w.spawnAt(name, color, x, y, angle).ID
}

func (w *World) spawnAt(name string, color int, x, y, angle float64) *models.Snake {
	sc := w.cfg.Snake
	segments := make([]models.Point, sc.InitialSegments)
	for i := range segments {
		t := float64(i) * sc.SegmentSpacing
		segments[i] = models.Point{
			X: geom.Clamp(x-math.Cos(angle)*t, 0, w.width),
			Y: geom.Clamp(y-math.Sin(angle)*t, 0, w.height),
		}
	}
	s := &models.Snake{
		ID:             w.newID(),
		Name:           name,
		Color:          color,
		Angle:          angle,
		DesiredAngle:   angle,
		Speed:          sc.BaseSpeed,
		Radius:         sc.Radius,
		SegmentSpacing: sc.SegmentSpacing,
		TargetSegments: sc.InitialSegments,
		Segments:       segments,
		SpawnedAt:      w.now(),
	}
	w.snakes[s.ID] = s
	return s
}

// Respawn removes oldID if present and spawns a fresh snake under a new id.
func (w *World) Respawn(oldID, name string, color int) string {
	delete(w.snakes, oldID)
	return w.Spawn(name, color)
}

// Remove deletes a snake without dropping food.
func (w *World) Remove(id string) {
	delete(w.snakes, id)
}

// ApplyInput sets the steering target and boost flag of a snake. Unknown ids
// and snakes still inside their spawn delay are ignored.
func (w *World) ApplyInput(id string, desiredAngle float64, boosting bool) {
	s, ok := w.snakes[id]
	if !ok || s.Spawning(w.now(), w.cfg.Snake.SpawnDelay) {
		return
	}
	s.DesiredAngle = geom.NormalizeAngle(desiredAngle)
	s.Boosting = boosting
}

// Snake returns the live snake with the given id.
func (w *World) Snake(id string) (*models.Snake, bool) {
	s, ok := w.snakes[id]
	return s, ok
}

// Has reports whether a snake with the given id is alive.
func (w *World) Has(id string) bool {
	_, ok := w.snakes[id]
	return ok
}

// Snakes calls fn for every live snake.
func (w *World) Snakes(fn func(s *models.Snake)) {
	for _, s := range w.snakes {
		fn(s)
	}
}

// SnakeCount returns the number of live snakes.
func (w *World) SnakeCount() int {
	return len(w.snakes)
}

// Food returns the current pellets. The slice must not be modified.
func (w *World) Food() []models.Food {
	return w.food
}

// FoodCount returns the number of pellets.
func (w *World) FoodCount() int {
	return len(w.food)
}

// NearestHeadDistance returns the distance from the head of snake id to the
// closest other head, or +Inf when there is no other snake or id is unknown.
func (w *World) NearestHeadDistance(id string) float64 {
	s, ok := w.snakes[id]
	if !ok {
		return math.Inf(1)
	}
	head := s.Head()
	best := math.Inf(1)
	for otherID, o := range w.snakes {
		if otherID == id {
			continue
		}
		h := o.Head()
		if d := geom.DistSq(head.X, head.Y, h.X, h.Y); d < best {
			best = d
		}
	}
	return math.Sqrt(best)
}
