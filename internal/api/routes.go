package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.Handle("GET /api/v1/graph", chain(http.HandlerFunc(h.GetGraph)))
	mux.Handle("GET /api/v1/nodes", chain(http.HandlerFunc(h.ListNodes)))
	mux.Handle("GET /api/v1/nodes/{name}", chain(http.HandlerFunc(h.GetNode)))
	mux.Handle("GET /api/v1/nodes/{name}/history", chain(http.HandlerFunc(h.GetNodeHistory)))
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
}
