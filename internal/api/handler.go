// Package api provides HTTP handlers for the room relay service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/halvard-k/roomrelay/internal/cache"
	"github.com/halvard-k/roomrelay/internal/config"
	"github.com/halvard-k/roomrelay/internal/hub"
	"github.com/halvard-k/roomrelay/internal/store"
)

// Handler provides the shared dependencies every route needs.
type Handler struct {
	db    *store.Postgres
	cache *cache.Client
	hubs  *hub.Registry
	cfg   *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(db *store.Postgres, c *cache.Client, hubs *hub.Registry, cfg *config.Config) *Handler {
	return &Handler{
		db:    db,
		cache: c,
		hubs:  hubs,
		cfg:   cfg,
	}
}

// envelope is the shared response shape every endpoint returns.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Respond writes the shared {success, data} JSON envelope.
func Respond(w http.ResponseWriter, status int, success bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: success, Data: data}); err != nil {
		http.Error(w, `{"success":false,"data":"failed to encode response"}`, http.StatusInternalServerError)
	}
}
