package domain

import "time"

// Message is a persisted chat payload linked to a room.
//
// Payload is the serialized `{"user": handle, "message": text}` object; the
// server never parses it back, it only stores and replays it verbatim.
type Message struct {
	Key       int64     `json:"-"`
	RoomKey   int64     `json:"-"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
