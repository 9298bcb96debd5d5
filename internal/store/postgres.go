package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/halvard-k/roomrelay/internal/domain"
	"github.com/halvard-k/roomrelay/internal/ids"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// errDatabaseMissing is the lib/pq code for "invalid_catalog_name",
// returned when connecting to a database that does not yet exist.
const errDatabaseMissing = "3D000"

// Postgres is the database/sql + lib/pq backed implementation of
// RoomRepository and MessageRepository. The pool follows the original
// implementation's sqlx PgPoolOptions where database/sql has a match
// (max_connections=20, idle_timeout=300s) and keeps up to 5 idle
// connections; it holds no minimum of open connections and sets no
// acquire timeout, so queries wait under the caller's context alone.
type Postgres struct {
	db *sql.DB
}

// Open connects to dsn, creating the target database first if it does
// not exist, then runs pending goose migrations and returns a ready
// Postgres handle.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	if err := ensureDatabase(dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(300 * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()

		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ensureDatabase connects to the server's default database and issues a
// CREATE DATABASE when the target database does not exist yet, detected
// via pq's invalid_catalog_name error code.
func ensureDatabase(dsn string) error {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	target := strings.TrimPrefix(parsed.Path, "/")
	if target == "" {
		return nil
	}

	probe, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open probe connection: %w", err)
	}
	defer probe.Close()

	err = probe.Ping()
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != errDatabaseMissing {
		return fmt.Errorf("ping probe connection: %w", err)
	}

	parsed.Path = "/postgres"

	admin, err := sql.Open("postgres", parsed.String())
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(target))); err != nil {
		return fmt.Errorf("create database %s: %w", target, err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// DB exposes the pool for callers that need to start a transaction, such
// as room admission's promote-and-delete-reservation sequence.
func (p *Postgres) DB() *sql.DB {
	return p.db
}

// Create inserts a new room row and returns it with its generated key.
func (p *Postgres) Create(ctx context.Context, q Queryer, id ids.RoomID) (*domain.Room, error) {
	row := q.QueryRowContext(ctx, `INSERT INTO room (uuid) VALUES ($1) RETURNING id, uuid, created_at`, id.String())

	return scanRoom(row)
}

// GetByUUID looks up a room by its public id, returning nil, nil when
// absent.
func (p *Postgres) GetByUUID(ctx context.Context, q Queryer, id ids.RoomID) (*domain.Room, error) {
	row := q.QueryRowContext(ctx, `SELECT id, uuid, created_at FROM room WHERE uuid = $1`, id.String())

	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return room, err
}

// List returns every persisted room, most recently created first.
func (p *Postgres) List(ctx context.Context, q Queryer) ([]*domain.Room, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, uuid, created_at FROM room ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []*domain.Room

	for rows.Next() {
		var (
			key       int64
			rawUUID   string
			createdAt time.Time
		)

		if err := rows.Scan(&key, &rawUUID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}

		roomID, err := ids.ParseRoomID(rawUUID)
		if err != nil {
			return nil, fmt.Errorf("parse room uuid: %w", err)
		}

		out = append(out, &domain.Room{Key: key, ID: roomID, CreatedAt: createdAt})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}

	return out, nil
}

// Delete removes the room row with the given surrogate key.
func (p *Postgres) Delete(ctx context.Context, q Queryer, key int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM room WHERE id = $1`, key); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	return nil
}

func scanRoom(row *sql.Row) (*domain.Room, error) {
	var (
		key       int64
		rawUUID   string
		createdAt time.Time
	)

	if err := row.Scan(&key, &rawUUID, &createdAt); err != nil {
		return nil, err
	}

	roomID, err := ids.ParseRoomID(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("parse room uuid: %w", err)
	}

	return &domain.Room{Key: key, ID: roomID, CreatedAt: createdAt}, nil
}

// CreateMessage inserts a message row for roomKey.
func (p *Postgres) CreateMessage(ctx context.Context, q Queryer, roomKey int64, payload string) (*domain.Message, error) {
	row := q.QueryRowContext(ctx,
		`INSERT INTO message (room_id, message) VALUES ($1, $2) RETURNING id, room_id, message, created_at`,
		roomKey, payload)

	var msg domain.Message
	if err := row.Scan(&msg.Key, &msg.RoomKey, &msg.Payload, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return &msg, nil
}

// ReadMessages returns the most recent limit messages for roomKey,
// oldest first.
func (p *Postgres) ReadMessages(ctx context.Context, q Queryer, roomKey int64, limit int) ([]*domain.Message, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, room_id, message, created_at FROM message
		 WHERE room_id = $1 ORDER BY created_at DESC LIMIT $2`,
		roomKey, limit)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message

	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.Key, &msg.RoomKey, &msg.Payload, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		out = append(out, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out, nil
}

// DeleteMessage removes the message row with the given surrogate key.
func (p *Postgres) DeleteMessage(ctx context.Context, q Queryer, key int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM message WHERE id = $1`, key); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	return nil
}
