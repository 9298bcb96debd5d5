// Package domain contains core domain types for the chat service.
package domain

import (
	"time"

	"github.com/halvard-k/roomrelay/internal/ids"
)

// Room is the durable unit of conversation.
type Room struct {
	Key       int64     `json:"-"`
	ID        ids.RoomID `json:"uuid"`
	CreatedAt time.Time `json:"created_at"`
}
