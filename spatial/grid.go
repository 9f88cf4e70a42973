// Package spatial provides a uniform hash grid for broad-phase proximity queries.
package spatial

import "math"

// cellKey identifies a grid cell by integer cell coordinates.
type cellKey struct {
	cx, cy int
}

type entry[T any] struct {
	x, y    float64
	payload T
}

// Grid buckets points with an attached payload into square cells.
// Cells are unbounded, so points outside any nominal world area are still indexed.
// The grid is meant to be rebuilt from scratch each tick: Clear, then Insert.
type Grid[T any] struct {
	cellSize    float64
	invCellSize float64 // 1 / cellSize
	cells       map[cellKey][]entry[T]
	count       int
}

// NewGrid creates an empty grid. cellSize must be positive.
func NewGrid[T any](cellSize float64) *Grid[T] {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid[T]{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]entry[T]),
	}
}

// CellSize returns the edge length of a cell.
func (g *Grid[T]) CellSize() float64 {
	return g.cellSize
}

// Len returns the number of indexed points.
func (g *Grid[T]) Len() int {
	return g.count
}

// Clear removes all points. Bucket memory is kept for reuse.
func (g *Grid[T]) Clear() {
	for k, bucket := range g.cells {
		g.cells[k] = bucket[:0]
	}
	g.count = 0
}

// Insert indexes payload at (x, y).
func (g *Grid[T]) Insert(x, y float64, payload T) {
	k := g.keyFor(x, y)
	g.cells[k] = append(g.cells[k], entry[T]{x: x, y: y, payload: payload})
	g.count++
}

// QueryDisc calls fn for every point whose cell intersects the axis-aligned
// cell range covering the disc at (x, y) with the given radius. Candidates are
// not distance-filtered; fn receives the point so the caller can refine.
// Returning true from fn stops the scan.
func (g *Grid[T]) QueryDisc(x, y, radius float64, fn func(px, py float64, payload T) bool) {
	minCX := int(math.Floor((x - radius) * g.invCellSize))
	maxCX := int(math.Floor((x + radius) * g.invCellSize))
	minCY := int(math.Floor((y - radius) * g.invCellSize))
	maxCY := int(math.Floor((y + radius) * g.invCellSize))

	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, e := range g.cells[cellKey{cx, cy}] {
				if fn(e.x, e.y, e.payload) {
					return
				}
			}
		}
	}
}

func (g *Grid[T]) keyFor(x, y float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x * g.invCellSize)),
		cy: int(math.Floor(y * g.invCellSize)),
	}
}
