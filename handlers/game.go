package handlers

import (
	"encoding/json"
	"net/http"
)

// HandleRoot reports the state of the arena as JSON.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.game.Stats()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
