package session

import "github.com/4cecoder/snakearena/config"

// RateFor returns the broadcast divisor for an observer whose nearest other
// head is d away. A divisor of n means one update every n ticks.
func RateFor(d float64, rates config.UpdateRates, bands config.DistanceBands) int {
	var n int
	switch {
	case d <= bands.VeryClose:
		n = rates.VeryClose
	case d <= bands.Close:
		n = rates.Close
	case d <= bands.Medium:
		n = rates.Medium
	case d <= bands.Far:
		n = rates.Far
	default:
		n = rates.VeryFar
	}
	if n < 1 {
		return 1
	}
	return n
}
