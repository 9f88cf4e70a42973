// Package geom provides the small amount of plane geometry the simulation needs.
package geom

import "math"

// Clamp limits val to the closed range [min, max].
func Clamp(val, min, max float64) float64 {
	return math.Max(min, math.Min(max, val))
}

// DistSq returns the squared distance between two points.
func DistSq(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}

// Dist returns the Euclidean distance between two points.
func Dist(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}

// NormalizeAngle maps a to the half-open range (-π, π].
func NormalizeAngle(a float64) float64 {
	x := math.Mod(a, 2*math.Pi)
	if x <= -math.Pi {
		x += 2 * math.Pi
	}
	if x > math.Pi {
		x -= 2 * math.Pi
	}
	return x
}

// RotateTowards turns current toward target by at most maxDelta radians,
// taking the shorter way around. The result is normalized.
func RotateTowards(current, target, maxDelta float64) float64 {
	delta := NormalizeAngle(target - current)
	if math.Abs(delta) <= maxDelta {
		return NormalizeAngle(target)
	}
	if delta < 0 {
		return NormalizeAngle(current - maxDelta)
	}
	return NormalizeAngle(current + maxDelta)
}
