package world

import "github.com/4cecoder/snakearena/models"

// maintainFoodPopulation tops food up toward the target count, never adding
// more than PerTickSpawnMax pellets in one tick.
func (w *World) maintainFoodPopulation() {
	deficit := w.cfg.Food.TargetCount - len(w.food)
	if deficit <= 0 {
		return
	}
	if deficit > w.cfg.Food.PerTickSpawnMax {
		deficit = w.cfg.Food.PerTickSpawnMax
	}
	for i := 0; i < deficit; i++ {
		w.spawnFood()
	}
}

func (w *World) spawnFood() {
	color := 0xffffff
	if colors := w.cfg.Food.Colors; len(colors) > 0 {
		color = colors[w.rng.Intn(len(colors))]
	}
	w.addFood(w.rng.Float64()*w.width, w.rng.Float64()*w.height, color)
}

func (w *World) addFood(x, y float64, color int) {
	w.food = append(w.food, models.Food{
		ID:     w.nextFoodID,
		X:      x,
		Y:      y,
		Radius: w.cfg.Food.Radius,
		Color:  color,
	})
	w.nextFoodID++
}
