// Package session runs a single connected peer through the
// joining/serving/closing lifecycle of one chat room connection: hub
// subscription, handle assignment, history replay, and the paired
// reader/writer goroutines that move frames between the socket and the
// room's hub.
//
// Grounded on the teacher's terminal.WebSocketHandler.ServeHTTP and its
// inputLoop/outputLoop pair: upgrade via coder/websocket, a
// context.WithCancel shared by both goroutines so either side exiting
// cancels the other, joined with a sync.WaitGroup.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/halvard-k/roomrelay/internal/hub"
	"github.com/halvard-k/roomrelay/internal/ids"
	"github.com/halvard-k/roomrelay/internal/ratelimit"
	"github.com/halvard-k/roomrelay/internal/store"
)

// Cache is the subset of cache.Client the rate limiter needs.
type Cache = ratelimit.Cache

// Deps bundles the collaborators and per-connection configuration a
// session needs for its lifetime.
type Deps struct {
	DB       *sql.DB
	Messages store.MessageRepository
	Hubs     *hub.Registry
	Cache    Cache
	IP       string

	// HistoryReplayLimit caps how many persisted messages replayHistory
	// sends on join.
	HistoryReplayLimit int

	// ChatRateLimit and ChatRateWindow bound how often this peer's IP
	// may publish a chat frame.
	ChatRateLimit  int
	ChatRateWindow time.Duration
}

// inbound mirrors the wire shape of a chat payload: Message carries the
// client frame's raw text and User is stamped server-side. Client frames
// are never decoded into it.
type inbound struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// Run drives one connection through joining, serving, and closing. It
// blocks until both the reader and writer goroutines return.
func Run(ctx context.Context, conn *websocket.Conn, roomID ids.RoomID, roomKey int64, deps Deps) {
	handle, err := ids.NewHandle()
	if err != nil {
		slog.Error("session: assign handle failed", "room", roomID, "error", err)
		conn.Close(websocket.StatusInternalError, "handle assignment failed")

		return
	}

	h := deps.Hubs.GetOrCreate(roomID)
	subID, sub := h.Subscribe()

	replayHistory(ctx, conn, deps, roomKey)

	h.Publish([]byte("user " + handle + " joined to room"))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		writer(sessionCtx, conn, sub)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		reader(sessionCtx, conn, handle, roomID, roomKey, h, deps)
	}()

	wg.Wait()

	h.Publish([]byte("user " + handle + " leave the room"))
	h.Unsubscribe(subID)
	deps.Hubs.Release(roomID, h)
}

// replayHistory sends the last deps.HistoryReplayLimit persisted messages
// to this peer only, oldest first, before the join announcement goes out.
func replayHistory(ctx context.Context, conn *websocket.Conn, deps Deps, roomKey int64) {
	msgs, err := deps.Messages.ReadMessages(ctx, deps.DB, roomKey, deps.HistoryReplayLimit)
	if err != nil {
		slog.Warn("session: history replay failed", "room_key", roomKey, "error", err)

		return
	}

	for _, m := range msgs {
		if err := conn.Write(ctx, websocket.MessageText, []byte(m.Payload)); err != nil {
			slog.Debug("session: history replay write failed", "room_key", roomKey, "error", err)

			return
		}
	}
}

// writer ranges over the subscription and forwards each item to the
// socket, returning on the first write failure.
func writer(ctx context.Context, conn *websocket.Conn, sub <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}

			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				slog.Debug("session: writer exiting on write error", "error", err)

				return
			}
		}
	}
}

// reader loops on inbound frames until the socket closes or errors.
// Text frames are rate-limited, persisted, and published before commit;
// binary frames are ignored; a close frame ends the loop cleanly.
func reader(ctx context.Context, conn *websocket.Conn, handle string, roomID ids.RoomID, roomKey int64, h *hub.Hub, deps Deps) {
	for {
		kind, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("session: closed by peer", "room", roomID)
			} else {
				slog.Debug("session: read error, ending session", "room", roomID, "error", err)
			}

			return
		}

		if kind != websocket.MessageText {
			continue
		}

		if !ratelimit.Allow(ctx, deps.Cache, deps.IP, deps.ChatRateLimit, deps.ChatRateWindow) {
			continue
		}

		payload, err := encodeChat(handle, data)
		if err != nil {
			slog.Debug("session: dropping unencodable frame", "error", err)

			continue
		}

		if err := persistAndPublish(ctx, deps, h, roomKey, payload); err != nil {
			slog.Warn("session: persist and publish failed", "room", roomID, "error", err)
		}
	}
}

func encodeChat(handle string, raw []byte) (string, error) {
	b, err := json.Marshal(inbound{User: handle, Message: string(raw)})
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// persistAndPublish runs inside a transaction: publish happens before
// commit, so a committed-not-published outcome is impossible while a
// published-not-committed outcome is possible and accepted — the
// message was seen live but will not appear in replay.
func persistAndPublish(ctx context.Context, deps Deps, h *hub.Hub, roomKey int64, payload string) error {
	tx, err := deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := deps.Messages.CreateMessage(ctx, tx, roomKey, payload); err != nil {
		return err
	}

	h.Publish([]byte(payload))

	return tx.Commit()
}
