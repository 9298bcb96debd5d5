package store

import (
	"context"
	"os"
	"testing"

	"github.com/halvard-k/roomrelay/internal/ids"
)

// openTestStore connects to TEST_DATABASE_URL or skips the test. Grounded
// on the original implementation's test/prod DSN split
// (TEST_DATABASE_URL vs DATABASE_URL).
func openTestStore(t *testing.T) *Postgres {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres-backed test")
	}

	p, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })

	return p
}

func TestRoomCreateAndGetByUUID(t *testing.T) {
	p := openTestStore(t)
	ctx := context.Background()

	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	created, err := p.Create(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != roomID {
		t.Fatalf("created.ID = %v, want %v", created.ID, roomID)
	}

	got, err := p.GetByUUID(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}
	if got == nil || got.Key != created.Key {
		t.Fatalf("GetByUUID() = %+v, want key %d", got, created.Key)
	}
}

func TestRoomGetByUUIDMissing(t *testing.T) {
	p := openTestStore(t)
	ctx := context.Background()

	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	got, err := p.GetByUUID(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetByUUID() = %+v, want nil for unknown room", got)
	}
}

func TestMessageCreateAndReadOrdering(t *testing.T) {
	p := openTestStore(t)
	ctx := context.Background()

	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	room, err := p.Create(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	payloads := []string{"first", "second", "third"}
	for _, p2 := range payloads {
		if _, err := p.CreateMessage(ctx, p.DB(), room.Key, p2); err != nil {
			t.Fatalf("CreateMessage(%q) error = %v", p2, err)
		}
	}

	msgs, err := p.ReadMessages(ctx, p.DB(), room.Key, 100)
	if err != nil {
		t.Fatalf("ReadMessages() error = %v", err)
	}
	if len(msgs) != len(payloads) {
		t.Fatalf("len(msgs) = %d, want %d", len(msgs), len(payloads))
	}
	for i, want := range payloads {
		if msgs[i].Payload != want {
			t.Fatalf("msgs[%d].Payload = %q, want %q", i, msgs[i].Payload, want)
		}
	}
}

func TestRoomDeleteRemovesRow(t *testing.T) {
	p := openTestStore(t)
	ctx := context.Background()

	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	room, err := p.Create(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := p.Delete(ctx, p.DB(), room.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := p.GetByUUID(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetByUUID() = %+v after Delete, want nil", got)
	}
}

func TestMessageDeleteRemovesRow(t *testing.T) {
	p := openTestStore(t)
	ctx := context.Background()

	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	room, err := p.Create(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	msg, err := p.CreateMessage(ctx, p.DB(), room.Key, "gone soon")
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	if err := p.DeleteMessage(ctx, p.DB(), msg.Key); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}

	msgs, err := p.ReadMessages(ctx, p.DB(), room.Key, 100)
	if err != nil {
		t.Fatalf("ReadMessages() error = %v", err)
	}
	for _, m := range msgs {
		if m.Key == msg.Key {
			t.Fatalf("ReadMessages() still contains deleted message key %d", msg.Key)
		}
	}
}

func TestMessageReadRespectsLimit(t *testing.T) {
	p := openTestStore(t)
	ctx := context.Background()

	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	room, err := p.Create(ctx, p.DB(), roomID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := p.CreateMessage(ctx, p.DB(), room.Key, "msg"); err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
	}

	msgs, err := p.ReadMessages(ctx, p.DB(), room.Key, 2)
	if err != nil {
		t.Fatalf("ReadMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
}
