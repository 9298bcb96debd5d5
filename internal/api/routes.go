package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes wires the room relay request surface onto r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/room/create", h.ReserveRoom)
	r.Get("/room/list", h.ListRooms)
	r.HandleFunc("/room/{identifier}", h.ConnectRoom)
	r.Get("/version", h.Version)
	r.Get("/health", h.Health)
}
