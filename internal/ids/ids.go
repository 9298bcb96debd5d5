// Package ids generates the two kinds of opaque identifiers the system
// hands out: room identifiers and anonymous session handles.
package ids

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// RoomID is a 128-bit room identifier in its canonical lowercase form.
type RoomID string

// NewRoomID draws a random 128-bit identifier from a cryptographic source.
func NewRoomID() (RoomID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}

	return RoomID(id.String()), nil
}

// ParseRoomID validates a textual identifier, rejecting malformed input.
func ParseRoomID(raw string) (RoomID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse room id: %w", err)
	}

	return RoomID(id.String()), nil
}

func (r RoomID) String() string { return string(r) }

const handleAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewHandle draws 10 alphanumeric characters from a cryptographic source
// and returns the anonymous display name derived from them.
func NewHandle() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate handle: %w", err)
	}

	out := make([]byte, 10)
	for i, b := range buf {
		out[i] = handleAlphabet[int(b)%len(handleAlphabet)]
	}

	return "anonymous_" + string(out), nil
}
