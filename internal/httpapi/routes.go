package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/hub"
	"github.com/chainduel/backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/", Root)
	r.Get("/healthz", Healthz)
	r.Get("/stats", Stats(h))
	r.Get("/ws", ws.Handler(h, log))
	return r
}
