// Package admission implements the two-phase room lookup that runs
// before a connect-to-room websocket upgrade is accepted: a reservation
// found in the cache is promoted to a durable row; otherwise the room
// must already exist in storage, or the request is rejected.
//
// Grounded on original_source/server/src/handlers/room.rs's
// handle_connect_room control flow (parse uuid, check cache exists,
// branch into promotion or lookup), reimplemented with database/sql
// transactions in place of sqlx.
package admission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/halvard-k/roomrelay/internal/domain"
	"github.com/halvard-k/roomrelay/internal/ids"
	"github.com/halvard-k/roomrelay/internal/store"
)

const reservationKeyPrefix = "room:"

// Cache is the subset of cache.Client admission depends on.
type Cache interface {
	Exists(ctx context.Context, k string) (bool, error)
	Delete(ctx context.Context, k string) error
}

// Deps bundles the collaborators Admit needs from the caller.
type Deps struct {
	Cache Cache
	DB    *sql.DB
	Rooms store.RoomRepository
}

// Result carries the outcome of a successful admission.
type Result struct {
	RoomKey int64
	RoomID  ids.RoomID
}

// Admit runs the four-step algorithm: parse the raw identifier, consult
// the cache reservation, and either promote it to a durable room inside
// a transaction or fall back to an existing stored room. status is the
// HTTP status to use on failure (404 for malformed/not-found, 500 for
// infra failure); it is meaningless when err is nil.
func Admit(ctx context.Context, deps Deps, rawID string) (Result, int, error) {
	roomID, err := ids.ParseRoomID(rawID)
	if err != nil {
		return Result{}, http.StatusNotFound, fmt.Errorf("parse room id: %w", err)
	}

	key := reservationKeyPrefix + roomID.String()

	reserved, err := deps.Cache.Exists(ctx, key)
	if err != nil {
		return Result{}, http.StatusInternalServerError, fmt.Errorf("check reservation: %w", err)
	}

	if reserved {
		room, err := promote(ctx, deps, roomID, key)
		if err != nil {
			return Result{}, http.StatusInternalServerError, fmt.Errorf("promote reservation: %w", err)
		}

		return Result{RoomKey: room.Key, RoomID: room.ID}, 0, nil
	}

	room, err := deps.Rooms.GetByUUID(ctx, deps.DB, roomID)
	if err != nil {
		return Result{}, http.StatusInternalServerError, fmt.Errorf("lookup room: %w", err)
	}
	if room == nil {
		return Result{}, http.StatusNotFound, errors.New("no reservation and no stored room")
	}

	return Result{RoomKey: room.Key, RoomID: room.ID}, 0, nil
}

// promote creates the durable room row inside a transaction, deletes the
// cache reservation, then commits. The reservation is not restored when
// a step fails; a failed promotion surfaces as a 500. A failure before
// the delete leaves the reservation in place, so a retry promotes again;
// a commit failure after the delete leaves neither the reservation nor
// the room, so a retry is rejected as not found.
func promote(ctx context.Context, deps Deps, roomID ids.RoomID, key string) (*domain.Room, error) {
	tx, err := deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	room, err := deps.Rooms.Create(ctx, tx, roomID)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	if err := deps.Cache.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("delete reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return room, nil
}
