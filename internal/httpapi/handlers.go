package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/chainduel/backend/internal/hub"
)

func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Chain Duel game server. Connect with a websocket at /ws\n"))
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Stats exposes the hub registries for monitoring. Counts only, never
// identities.
func Stats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.Stats, 1)
		h.Inbox() <- hub.GetStats{Reply: reply}
		stats := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Players    int `json:"players"`
			Sessions   int `json:"sessions"`
			Challenges int `json:"challenges"`
		}{stats.Players, stats.Sessions, stats.Challenges})
	}
}
