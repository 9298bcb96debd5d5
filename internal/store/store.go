// Package store provides the durable Postgres persistence layer for rooms
// and messages.
//
// The interface shape follows the teacher's internal/store.Repository:
// a narrow, operation-named interface that both the process-wide pool and
// an in-flight transaction can satisfy, so admission and session code can
// run the same repository methods whether or not they are inside a
// transaction.
package store

import (
	"context"
	"database/sql"

	"github.com/halvard-k/roomrelay/internal/domain"
	"github.com/halvard-k/roomrelay/internal/ids"
)

// Queryer is the subset of *sql.DB and *sql.Tx that the repositories
// need. Passing either in lets admission run room promotion and the
// session persist chat messages inside a transaction, while history
// replay runs against the pool directly.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RoomRepository persists and looks up rooms.
type RoomRepository interface {
	// Create inserts a new room row with the given id and returns its
	// generated primary key alongside the row.
	Create(ctx context.Context, q Queryer, id ids.RoomID) (*domain.Room, error)

	// GetByUUID looks up a room by its public id. It returns nil, nil
	// when no such room exists.
	GetByUUID(ctx context.Context, q Queryer, id ids.RoomID) (*domain.Room, error)

	// List returns every persisted room, most recent first.
	List(ctx context.Context, q Queryer) ([]*domain.Room, error)

	// Delete removes the room row with the given surrogate key.
	Delete(ctx context.Context, q Queryer, key int64) error
}

// MessageRepository persists and replays chat messages.
type MessageRepository interface {
	// CreateMessage inserts a message row for the given room.
	CreateMessage(ctx context.Context, q Queryer, roomKey int64, payload string) (*domain.Message, error)

	// ReadMessages returns the most recent limit messages for roomKey,
	// oldest first, for history replay on join.
	ReadMessages(ctx context.Context, q Queryer, roomKey int64, limit int) ([]*domain.Message, error)

	// DeleteMessage removes the message row with the given surrogate key.
	DeleteMessage(ctx context.Context, q Queryer, key int64) error
}
