package world

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/geom"
	"github.com/4cecoder/snakearena/models"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Food.TargetCount = 0
	return cfg
}

func newTestWorld(t *testing.T, cfg config.Config) (*World, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	n := 0
	w := New(cfg,
		WithRand(rand.New(rand.NewSource(7))),
		WithClock(clock.Now),
		WithIDs(func() string {
			n++
			return fmt.Sprintf("s%d", n)
		}),
	)
	return w, clock
}

// line builds count points starting at (x, y) and stepping by (dx, dy).
func line(x, y, dx, dy float64, count int) []models.Point {
	pts := make([]models.Point, count)
	for i := range pts {
		pts[i] = models.Point{X: x + dx*float64(i), Y: y + dy*float64(i)}
	}
	return pts
}

// place inserts a snake directly. Frozen snakes are inside their spawn delay,
// so they collide but do not move.
func place(w *World, id string, angle float64, frozen bool, segments []models.Point) *models.Snake {
	spawned := w.now().Add(-time.Hour)
	if frozen {
		spawned = w.now()
	}
	s := &models.Snake{
		ID:             id,
		Name:           id,
		Color:          0x123456,
		Angle:          angle,
		DesiredAngle:   angle,
		Speed:          w.cfg.Snake.BaseSpeed,
		Radius:         w.cfg.Snake.Radius,
		SegmentSpacing: w.cfg.Snake.SegmentSpacing,
		TargetSegments: len(segments),
		Segments:       segments,
		SpawnedAt:      spawned,
	}
	w.snakes[id] = s
	return s
}

func TestWallExitKillsWithoutFood(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	place(w, "x", 0, false, line(2999, 1500, -2, 0, 5))

	w.Update(0.1)

	if w.Has("x") {
		t.Fatalf("expected snake to die on wall exit")
	}
	if w.FoodCount() != 0 {
		t.Fatalf("wall death dropped %d food, want 0", w.FoodCount())
	}
}

func TestFoodConsumedWithinSummedRadii(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	s := place(w, "eater", 0, true, line(103, 100, 2, 0, 5))
	s.Radius = 15
	w.addFood(100, 100, 0xff0000)

	w.Update(0.03)

	if w.FoodCount() != 0 {
		t.Fatalf("food count = %d, want 0", w.FoodCount())
	}
	if s.TargetSegments != 6 {
		t.Fatalf("TargetSegments = %d, want 6", s.TargetSegments)
	}
}

func TestFoodClaimedByOneSnakePerTick(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	// Heads 30 apart: both reach the pellet, neither touches the other.
	a := place(w, "a", 0, true, line(485, 500, -2, 0, 3))
	b := place(w, "b", math.Pi, true, line(515, 500, 2, 0, 3))
	w.addFood(500, 500, 0xff0000)

	w.Update(0.03)

	grown := (a.TargetSegments - 3) + (b.TargetSegments - 3)
	if grown != 1 {
		t.Fatalf("total growth = %d, want 1", grown)
	}
	if w.FoodCount() != 0 {
		t.Fatalf("food count = %d, want 0", w.FoodCount())
	}
}

func TestGrowthCappedAtMaxSegments(t *testing.T) {
	cfg := testConfig()
	cfg.Snake.MaxSegments = 5
	w, _ := newTestWorld(t, cfg)
	s := place(w, "big", 0, true, line(500, 500, -2, 0, 5))
	w.addFood(500, 500, 0)
	w.addFood(501, 500, 0)

	w.Update(0.03)

	if s.TargetSegments != 5 {
		t.Fatalf("TargetSegments = %d, want cap 5", s.TargetSegments)
	}
	if len(s.Segments) > s.TargetSegments {
		t.Fatalf("body length %d exceeds target %d", len(s.Segments), s.TargetSegments)
	}
}

func TestBodyCollisionKillsAndDropsFood(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	place(w, "wall", math.Pi, true, line(300, 500, 2, 0, 20))
	victim := place(w, "victim", -math.Pi/2, true, line(330, 520, 0, 2, 20))
	victim.Color = 0xabcdef

	w.Update(0.03)

	if w.Has("victim") {
		t.Fatalf("expected victim to die on foreign body contact")
	}
	if !w.Has("wall") {
		t.Fatalf("expected the other snake to survive")
	}
	if got := w.FoodCount(); got != 10 {
		t.Fatalf("dropped food = %d, want 10", got)
	}
	for _, f := range w.Food() {
		if f.Color != 0xabcdef {
			t.Fatalf("dropped food color = %#x, want victim color", f.Color)
		}
		if f.X != 330 || f.Y < 520 || f.Y > 558 {
			t.Fatalf("dropped food at (%v,%v) not on victim body", f.X, f.Y)
		}
	}
}

func TestShortBodyDropsOnePelletPerPoint(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	place(w, "wall", math.Pi, true, line(300, 500, 2, 0, 20))
	place(w, "short", -math.Pi/2, true, line(330, 520, 0, 2, 4))

	w.Update(0.03)

	if got := w.FoodCount(); got != 4 {
		t.Fatalf("dropped food = %d, want 4", got)
	}
}

func TestSelfIntersectionIsIgnored(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	// A tight coil: the head sits on top of its own body.
	body := []models.Point{{X: 500, Y: 500}, {X: 502, Y: 500}, {X: 502, Y: 502}, {X: 500, Y: 502}, {X: 500, Y: 500}}
	place(w, "coil", 0, true, body)

	w.Update(0.03)

	if !w.Has("coil") {
		t.Fatalf("self-intersection must not kill")
	}
}

func TestHeadOnCollisionIsConsistent(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	place(w, "a", 0, true, line(1000, 1000, -2, 0, 10))
	place(w, "b", math.Pi, true, line(1010, 1000, 2, 0, 10))

	w.Update(0.03)

	if w.Has("a") || w.Has("b") {
		t.Fatalf("expected both heads to die, a=%v b=%v", w.Has("a"), w.Has("b"))
	}
	if got := w.FoodCount(); got > 20 {
		t.Fatalf("dropped food = %d, want <= 20", got)
	}
	w.Update(0.03)
	if w.SnakeCount() != 0 {
		t.Fatalf("SnakeCount = %d after second tick, want 0", w.SnakeCount())
	}
}

func TestMovementKeepsSpacingAndLength(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	s := place(w, "mover", 0, false, line(1500, 1500, -2, 0, 20))
	s.TargetSegments = 40

	for i := 0; i < 200; i++ {
		w.ApplyInput("mover", s.Angle+1, i%3 == 0)
		w.Update(0.03)
		if !w.Has("mover") {
			t.Fatalf("snake died unexpectedly at step %d", i)
		}
		if len(s.Segments) > s.TargetSegments {
			t.Fatalf("step %d: length %d exceeds target %d", i, len(s.Segments), s.TargetSegments)
		}
		for j := 1; j < len(s.Segments); j++ {
			a, b := s.Segments[j-1], s.Segments[j]
			if d := geom.Dist(a.X, a.Y, b.X, b.Y); d < s.SegmentSpacing-1e-9 {
				t.Fatalf("step %d: spacing %v between %d and %d below %v", i, d, j-1, j, s.SegmentSpacing)
			}
		}
		if s.Angle <= -math.Pi || s.Angle > math.Pi {
			t.Fatalf("angle %v not normalized", s.Angle)
		}
	}
}

func TestTurnRateLimitsRotation(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	s := place(w, "turner", 0, false, line(1500, 1500, -2, 0, 5))
	w.ApplyInput("turner", math.Pi/2, false)

	w.Update(0.1)

	want := w.cfg.Snake.TurnRate * 0.1
	if math.Abs(s.Angle-want) > 1e-9 {
		t.Fatalf("angle = %v, want %v", s.Angle, want)
	}
}

func TestBoostMultipliesSpeed(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	s := place(w, "boost", 0, false, line(1500, 1500, -2, 0, 5))
	w.ApplyInput("boost", 0, true)

	w.Update(0.1)

	want := 1500 + w.cfg.Snake.BaseSpeed*w.cfg.Snake.BoostMultiplier*0.1
	if got := s.Head().X; math.Abs(got-want) > 1e-9 {
		t.Fatalf("head x = %v, want %v", got, want)
	}
}

func TestSpawnDelayGatesMovementAndInput(t *testing.T) {
	w, clock := newTestWorld(t, testConfig())
	id := w.Spawn("new", 0)
	s, _ := w.Snake(id)
	head := s.Head()
	initialDesired := s.DesiredAngle

	w.ApplyInput(id, initialDesired+1, true)
	w.Update(0.03)

	if s.Head() != head {
		t.Fatalf("snake moved during spawn delay")
	}
	if s.DesiredAngle != initialDesired || s.Boosting {
		t.Fatalf("input accepted during spawn delay")
	}

	clock.Advance(2 * time.Second)
	w.ApplyInput(id, initialDesired, true)
	if !s.Boosting {
		t.Fatalf("input ignored after spawn delay")
	}
}

func TestApplyInputUnknownIDIsNoop(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	w.ApplyInput("missing", 1, true)
	if w.SnakeCount() != 0 {
		t.Fatalf("ApplyInput must not create snakes")
	}
}

func TestSpawnAndRespawn(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	id := w.Spawn("alice", 0xff00ff)
	s, ok := w.Snake(id)
	if !ok {
		t.Fatalf("spawned snake missing")
	}
	if len(s.Segments) != w.cfg.Snake.InitialSegments || s.TargetSegments != w.cfg.Snake.InitialSegments {
		t.Fatalf("segments = %d target = %d", len(s.Segments), s.TargetSegments)
	}
	for _, p := range s.Segments {
		if p.X < 0 || p.X > w.width || p.Y < 0 || p.Y > w.height {
			t.Fatalf("segment %v outside world", p)
		}
	}

	newID := w.Respawn(id, "alice", 0xff00ff)
	if newID == id {
		t.Fatalf("respawn reused id %q", id)
	}
	if w.Has(id) || !w.Has(newID) {
		t.Fatalf("respawn did not replace snake: old=%v new=%v", w.Has(id), w.Has(newID))
	}

	// Respawning an id that no longer exists still spawns.
	again := w.Respawn("gone", "bob", 0)
	if !w.Has(again) {
		t.Fatalf("respawn of unknown id did not spawn")
	}
}

func TestFoodPopulationGrowsByCappedAmount(t *testing.T) {
	cfg := testConfig()
	cfg.Food.TargetCount = 100
	cfg.Food.PerTickSpawnMax = 10
	w, _ := newTestWorld(t, cfg)
	if w.FoodCount() != 50 {
		t.Fatalf("initial food = %d, want 50", w.FoodCount())
	}

	w.Update(0.03)
	if w.FoodCount() != 60 {
		t.Fatalf("food after one tick = %d, want 60", w.FoodCount())
	}
	for i := 0; i < 10; i++ {
		w.Update(0.03)
	}
	if w.FoodCount() != 100 {
		t.Fatalf("food after top-up = %d, want 100", w.FoodCount())
	}
}

func TestFoodIDsNeverReused(t *testing.T) {
	cfg := testConfig()
	cfg.Food.TargetCount = 20
	w, _ := newTestWorld(t, cfg)
	seen := make(map[uint64]bool)
	var last uint64
	for _, f := range w.Food() {
		seen[f.ID] = true
		last = f.ID
	}
	s := place(w, "eater", 0, true, line(0, 0, 0, 0, 1))
	s.Radius = 10000 // swallows every pellet
	w.Update(0.03)
	for _, f := range w.Food() {
		if seen[f.ID] || f.ID <= last {
			t.Fatalf("food id %d reused or not increasing (last %d)", f.ID, last)
		}
	}
}

func TestNearestHeadDistance(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	place(w, "a", 0, true, line(100, 100, -2, 0, 3))
	if d := w.NearestHeadDistance("a"); !math.IsInf(d, 1) {
		t.Fatalf("distance with no neighbours = %v, want +Inf", d)
	}
	place(w, "b", 0, true, line(400, 500, -2, 0, 3))
	place(w, "c", 0, true, line(1000, 1000, -2, 0, 3))
	if d := w.NearestHeadDistance("a"); math.Abs(d-500) > 1e-9 {
		t.Fatalf("distance = %v, want 500", d)
	}
	if d := w.NearestHeadDistance("missing"); !math.IsInf(d, 1) {
		t.Fatalf("distance for unknown id = %v, want +Inf", d)
	}
}

func TestViewFiltersByHeadAndFoodDistance(t *testing.T) {
	cfg := testConfig()
	cfg.Network.Tail.Enabled = false
	w, _ := newTestWorld(t, cfg)
	place(w, "near", 0, true, line(1100, 1000, -2, 0, 5))
	place(w, "edge", 0, true, line(1600, 1000, -2, 0, 5))
	place(w, "far", 0, true, line(1601, 1000, 2, 0, 5))
	w.addFood(1000, 1590, 0)
	w.addFood(1000, 1601, 0)

	snap := w.View(9, time.UnixMilli(1234), 1000, 1000, 600)

	if snap.Tick != 9 || snap.Now != 1234 {
		t.Fatalf("tick/now = %d/%d", snap.Tick, snap.Now)
	}
	got := make(map[string]int)
	for _, s := range snap.Snakes {
		got[s.ID] = len(s.Segments)
	}
	if len(got) != 2 || got["near"] != 5 || got["edge"] != 5 {
		t.Fatalf("visible snakes = %v, want near and edge with full bodies", got)
	}
	if len(snap.Food) != 1 || snap.Food[0].Y != 1590 {
		t.Fatalf("visible food = %+v, want the pellet at y=1590", snap.Food)
	}
}

func TestViewSubsamplesDistantTails(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	place(w, "close", 0, true, line(1100, 1000, -2, 0, 100))
	place(w, "mid", 0, true, line(1000, 1450, -2, 0, 100))

	snap := w.View(1, time.Now(), 1000, 1000, 600)
	s, ok := snap.SnakeByID("mid")
	if !ok {
		t.Fatalf("mid snake not visible")
	}
	want := w.cfg.Network.Tail.MediumSegments
	if len(s.Segments) != want {
		t.Fatalf("mid segments = %d, want %d", len(s.Segments), want)
	}
	if s.Segments[0] != [2]float64{1000, 1450} {
		t.Fatalf("first point = %v, want head", s.Segments[0])
	}
	if c, _ := snap.SnakeByID("close"); len(c.Segments) != 100 {
		t.Fatalf("close segments = %d, want 100", len(c.Segments))
	}
}

func TestTailLimitBands(t *testing.T) {
	tail := config.Default().Network.Tail
	cases := []struct {
		d    float64
		want int
	}{
		{0, tail.NearSegments},
		{tail.NearDistance, tail.NearSegments},
		{tail.NearDistance + 1, tail.MediumSegments},
		{tail.MediumDistance, tail.MediumSegments},
		{tail.FarDistance, tail.FarSegments},
		{tail.FarDistance + 1, tail.VeryFarSegments},
	}
	for _, c := range cases {
		if got := TailLimit(tail, c.d); got != c.want {
			t.Errorf("TailLimit(%v) = %d, want %d", c.d, got, c.want)
		}
	}
}

func TestSubsample(t *testing.T) {
	pts := line(0, 0, 1, 0, 10)

	if got := Subsample(pts, 20); len(got) != 10 {
		t.Fatalf("limit above length: got %d points", len(got))
	}
	if got := Subsample(pts, 1); len(got) != 1 || got[0] != pts[0] {
		t.Fatalf("limit 1: got %v", got)
	}
	got := Subsample(pts, 4)
	want := []float64{0, 3, 6, 9}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, x := range want {
		if got[i].X != x {
			t.Errorf("point %d = %v, want x=%v", i, got[i], x)
		}
	}
}

func TestSnapshotIncludesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Food.TargetCount = 10
	w, _ := newTestWorld(t, cfg)
	w.Spawn("a", 0)
	w.Spawn("b", 0)

	snap := w.Snapshot(3, time.Now())
	if len(snap.Snakes) != 2 || len(snap.Food) != 5 {
		t.Fatalf("snapshot has %d snakes and %d food", len(snap.Snakes), len(snap.Food))
	}
	if snap.World.Width != 3000 || snap.World.Height != 3000 {
		t.Fatalf("world bounds = %+v", snap.World)
	}
}
