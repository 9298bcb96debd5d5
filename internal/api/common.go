package api

import (
	"net/http"
	"runtime/debug"
)

var buildVersion = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	return info.Main.Version
}()

// Version reports the running build's module version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, true, buildVersion)
}

// Health reports liveness of the database and cache dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		Respond(w, http.StatusServiceUnavailable, false, "database unavailable")

		return
	}

	if err := h.cache.Ping(r.Context()); err != nil {
		Respond(w, http.StatusServiceUnavailable, false, "cache unavailable")

		return
	}

	Respond(w, http.StatusOK, true, "ok")
}
