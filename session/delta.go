package session

import (
	"math"
	"sort"

	"github.com/4cecoder/snakearena/models"
)

// Diff compares two snake sets by id. changed holds every snake in next that
// is new, has a different segment count, or has a coordinate that moved by
// more than eps. removed holds the ids present in prev but not in next.
func Diff(prev, next []models.SnakeState, eps float64) (changed []models.SnakeState, removed []string) {
	before := make(map[string]models.SnakeState, len(prev))
	for _, s := range prev {
		before[s.ID] = s
	}
	changed = []models.SnakeState{}
	for _, s := range next {
		old, ok := before[s.ID]
		delete(before, s.ID)
		if !ok || moved(old, s, eps) {
			changed = append(changed, s)
		}
	}
	for id := range before {
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return changed, removed
}

func moved(a, b models.SnakeState, eps float64) bool {
	if len(a.Segments) != len(b.Segments) {
		return true
	}
	for i, p := range a.Segments {
		q := b.Segments[i]
		if math.Abs(p[0]-q[0]) > eps || math.Abs(p[1]-q[1]) > eps {
			return true
		}
	}
	return false
}

// Choose picks the message that brings a client holding prev up to next: a
// full state when there is no baseline or more than half of the visible
// snakes changed, a delta otherwise. Food is always sent in full.
func Choose(prev *models.Snapshot, next models.Snapshot, eps float64) models.Message {
	if prev == nil {
		return models.NewState(next)
	}
	changed, removed := Diff(prev.Snakes, next.Snakes, eps)
	if len(changed)*2 > len(next.Snakes) {
		return models.NewState(next)
	}
	return models.StateDelta{
		Type:    models.MsgStateDelta,
		Tick:    next.Tick,
		Now:     next.Now,
		World:   next.World,
		Snakes:  changed,
		Removed: removed,
		Food:    next.Food,
	}
}
