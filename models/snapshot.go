package models

import (
	"encoding/json"
	"fmt"
)

// WorldBounds is the fixed rectangular extent of the arena.
type WorldBounds struct {
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// SnakeState is the public view of a snake. Segments are [x, y] pairs, head first.
type SnakeState struct {
	ID       string       `json:"id" msgpack:"id"`
	Name     string       `json:"name" msgpack:"name"`
	Color    int          `json:"color" msgpack:"color"`
	Radius   float64      `json:"radius" msgpack:"radius"`
	Segments [][2]float64 `json:"segments" msgpack:"segments"`
}

// FoodState is the public view of a pellet. On the wire it is the tuple
// [id, x, y, radius, color].
type FoodState struct {
	_msgpack struct{} `msgpack:",as_array"`
	ID       uint64
	X        float64
	Y        float64
	Radius   float64
	Color    int
}

// MarshalJSON encodes the pellet as a 5-tuple.
func (f FoodState) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]float64{float64(f.ID), f.X, f.Y, f.Radius, float64(f.Color)})
}

// UnmarshalJSON decodes the 5-tuple form.
func (f *FoodState) UnmarshalJSON(b []byte) error {
	var t []float64
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	if len(t) != 5 {
		return fmt.Errorf("food tuple has %d elements, want 5", len(t))
	}
	f.ID = uint64(t[0])
	f.X, f.Y, f.Radius = t[1], t[2], t[3]
	f.Color = int(t[4])
	return nil
}

// Snapshot is a point-in-time public view of the world, either complete or
// restricted to one observer.
type Snapshot struct {
	Tick   uint64       `json:"tick" msgpack:"tick"`
	Now    int64        `json:"now" msgpack:"now"` // unix milliseconds
	World  WorldBounds  `json:"world" msgpack:"world"`
	Snakes []SnakeState `json:"snakes" msgpack:"snakes"`
	Food   []FoodState  `json:"food" msgpack:"food"`
}

// SnakeByID returns the snake with the given id.
func (s *Snapshot) SnakeByID(id string) (SnakeState, bool) {
	for _, sn := range s.Snakes {
		if sn.ID == id {
			return sn, true
		}
	}
	return SnakeState{}, false
}
