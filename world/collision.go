package world

import (
	"github.com/4cecoder/snakearena/geom"
	"github.com/4cecoder/snakearena/models"
)

// resolveCollisions rebuilds both grids, then runs food consumption and
// head-to-foreign-body deaths. Removals happen after each full scan.
func (w *World) resolveCollisions() {
	w.foodGrid.Clear()
	for i, f := range w.food {
		w.foodGrid.Insert(f.X, f.Y, i)
	}
	w.bodyGrid.Clear()
	maxRadius := 0.0
	for id, s := range w.snakes {
		for _, p := range s.Segments {
			w.bodyGrid.Insert(p.X, p.Y, bodyRef{owner: id, radius: s.Radius})
		}
		if s.Radius > maxRadius {
			maxRadius = s.Radius
		}
	}

	w.consumeFood()

	var dead []string
	for id, s := range w.snakes {
		head := s.Head()
		hit := false
		w.bodyGrid.QueryDisc(head.X, head.Y, s.Radius+maxRadius, func(px, py float64, ref bodyRef) bool {
			if ref.owner == id {
				return false
			}
			rr := s.Radius + ref.radius
			if geom.DistSq(head.X, head.Y, px, py) <= rr*rr {
				hit = true
				return true
			}
			return false
		})
		if hit {
			dead = append(dead, id)
		}
	}
	w.killSnakes(dead, true)
}

// consumeFood grows every snake whose head touches a pellet. A pellet is
// claimed by at most one snake per tick.
func (w *World) consumeFood() {
	consumed := make(map[int]struct{})
	maxSegments := w.cfg.Snake.MaxSegments
	for _, s := range w.snakes {
		head := s.Head()
		w.foodGrid.QueryDisc(head.X, head.Y, s.Radius+w.cfg.Food.Radius, func(_, _ float64, idx int) bool {
			if _, taken := consumed[idx]; taken {
				return false
			}
			f := w.food[idx]
			rr := s.Radius + f.Radius
			if geom.DistSq(head.X, head.Y, f.X, f.Y) <= rr*rr {
				consumed[idx] = struct{}{}
				if s.TargetSegments < maxSegments {
					s.TargetSegments++
				}
			}
			return false
		})
	}
	if len(consumed) == 0 {
		return
	}
	kept := w.food[:0]
	for i, f := range w.food {
		if _, gone := consumed[i]; !gone {
			kept = append(kept, f)
		}
	}
	w.food = kept
}

// killSnakes removes a batch of snakes. With dropFood, each body leaves up to
// DeathDropMax pellets sampled at even intervals, in the snake's color.
func (w *World) killSnakes(ids []string, dropFood bool) {
	for _, id := range ids {
		s, ok := w.snakes[id]
		if !ok {
			continue
		}
		if dropFood {
			w.dropBody(s)
		}
		delete(w.snakes, id)
	}
}

func (w *World) dropBody(s *models.Snake) {
	n := len(s.Segments)
	drops := w.cfg.Food.DeathDropMax
	if n < drops {
		drops = n
	}
	for i := 0; i < drops; i++ {
		p := s.Segments[i*n/w.cfg.Food.DeathDropMax]
		w.addFood(p.X, p.Y, s.Color)
	}
}
