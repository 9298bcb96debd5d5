package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/halvard-k/roomrelay/internal/admission"
	"github.com/halvard-k/roomrelay/internal/ids"
	"github.com/halvard-k/roomrelay/internal/ratelimit"
	"github.com/halvard-k/roomrelay/internal/session"
)

const reservationKeyPrefix = "room:"

// ReserveRoom mints a new room identifier and writes it to the cache as
// a reservation, grounded on spec.md §4.8's reserve-room flow.
func (h *Handler) ReserveRoom(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	rule := h.cfg.RateLimit.ReserveRoom
	if !ratelimit.Allow(r.Context(), h.cache, ip, rule.Limit, rule.Window) {
		w.WriteHeader(http.StatusTooManyRequests)

		return
	}

	roomID, err := ids.NewRoomID()
	if err != nil {
		slog.Error("reserve room: generate id failed", "error", err)
		Respond(w, http.StatusInternalServerError, false, nil)

		return
	}

	key := reservationKeyPrefix + roomID.String()
	if err := h.cache.SetWithTTL(r.Context(), key, roomID.String(), h.cfg.ReservationTTL); err != nil {
		slog.Error("reserve room: cache write failed", "error", err)
		Respond(w, http.StatusInternalServerError, false, nil)

		return
	}

	Respond(w, http.StatusOK, true, roomID.String())
}

// roomListEntry is one row of the list-rooms response.
type roomListEntry struct {
	UUID       string `json:"uuid"`
	RoomSize   int    `json:"room_size"`
	ConnectURL string `json:"connect_url"`
}

// ListRooms snapshots the in-process hub registry under its guard,
// without creating or mutating any entry, sorted descending by current
// subscriber count.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	rule := h.cfg.RateLimit.ListRooms
	if !ratelimit.Allow(r.Context(), h.cache, ip, rule.Limit, rule.Window) {
		w.WriteHeader(http.StatusTooManyRequests)

		return
	}

	snapshot := h.hubs.Snapshot()

	entries := make([]roomListEntry, 0, len(snapshot))
	for _, e := range snapshot {
		entries = append(entries, roomListEntry{
			UUID:       e.RoomID.String(),
			RoomSize:   e.Size,
			ConnectURL: fmt.Sprintf(h.cfg.ConnectURLTemplate, e.RoomID.String()),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].RoomSize > entries[j].RoomSize })

	Respond(w, http.StatusOK, true, entries)
}

// ConnectRoom admits the request per §4.7 and, on success, upgrades to a
// websocket and hands off to the session package.
func (h *Handler) ConnectRoom(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "identifier")

	deps := admission.Deps{
		Cache: h.cache,
		DB:    h.db.DB(),
		Rooms: h.db,
	}

	result, status, err := admission.Admit(r.Context(), deps, rawID)
	if err != nil {
		if status >= http.StatusInternalServerError {
			slog.Error("connect room: admission failed", "identifier", rawID, "error", err)
		} else {
			slog.Debug("connect room: admission denied", "identifier", rawID, "error", err)
		}
		w.WriteHeader(status)

		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		slog.Error("connect room: upgrade failed", "error", err)

		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	sessionDeps := session.Deps{
		DB:                 h.db.DB(),
		Messages:           h.db,
		Hubs:               h.hubs,
		Cache:              h.cache,
		IP:                 ratelimit.ExtractIP(r),
		HistoryReplayLimit: h.cfg.HistoryReplayLimit,
		ChatRateLimit:      h.cfg.RateLimit.ChatFrame.Limit,
		ChatRateWindow:     h.cfg.RateLimit.ChatFrame.Window,
	}

	session.Run(r.Context(), conn, result.RoomID, result.RoomKey, sessionDeps)
}
