package hub

import (
	"testing"
	"time"

	"github.com/halvard-k/roomrelay/internal/ids"
)

const backlogForTest = 100

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	h := New(backlogForTest)
	id1, ch1 := h.Subscribe()
	id2, ch2 := h.Subscribe()
	defer h.Unsubscribe(id1)
	defer h.Unsubscribe(id2)

	h.Publish([]byte("hello"))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg) != "hello" {
				t.Fatalf("got %q, want %q", msg, "hello")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for publish")
		}
	}
}

func TestPublishEvictsSubscriberOnFullBuffer(t *testing.T) {
	h := New(backlogForTest)
	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	for i := 0; i < backlogForTest+10; i++ {
		h.Publish([]byte("x"))
	}

	if h.Count() != 0 {
		t.Fatalf("Count() = %d after overflow, want 0 (subscriber evicted)", h.Count())
	}

	for i := 0; i < backlogForTest; i++ {
		if _, ok := <-ch; !ok {
			t.Fatalf("channel closed early, after %d of %d buffered messages", i, backlogForTest)
		}
	}

	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after overflow eviction")
	}
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	h := New(backlogForTest)
	id, _ := h.Subscribe()

	if h.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", h.Count())
	}

	h.Unsubscribe(id)

	if h.Count() != 0 {
		t.Fatalf("Count() = %d after unsubscribe, want 0", h.Count())
	}
}

func TestUnsubscribeTwiceIsNoOp(t *testing.T) {
	h := New(backlogForTest)
	id, _ := h.Subscribe()

	h.Unsubscribe(id)
	h.Unsubscribe(id)
}

func TestRegistryGetOrCreateReusesHub(t *testing.T) {
	r := NewRegistry(backlogForTest)
	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	h1 := r.GetOrCreate(roomID)
	h2 := r.GetOrCreate(roomID)

	if h1 != h2 {
		t.Fatal("GetOrCreate returned distinct hubs for the same room id")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryReleaseEvictsEmptyHub(t *testing.T) {
	r := NewRegistry(backlogForTest)
	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	h := r.GetOrCreate(roomID)
	id, _ := h.Subscribe()
	h.Unsubscribe(id)

	r.Release(roomID, h)

	if r.Len() != 0 {
		t.Fatalf("Len() = %d after release of empty hub, want 0", r.Len())
	}
}

func TestRegistryReleaseKeepsHubWithSubscribers(t *testing.T) {
	r := NewRegistry(backlogForTest)
	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	h := r.GetOrCreate(roomID)
	h.Subscribe()

	r.Release(roomID, h)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d after release with a live subscriber, want 1", r.Len())
	}
}

func TestRegistrySnapshotDoesNotCreateEntries(t *testing.T) {
	r := NewRegistry(backlogForTest)
	roomID, err := ids.NewRoomID()
	if err != nil {
		t.Fatalf("NewRoomID() error = %v", err)
	}

	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot() = %v on empty registry, want empty", got)
	}

	h := r.GetOrCreate(roomID)
	subID, _ := h.Subscribe()

	snapshot := r.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", len(snapshot))
	}
	if snapshot[0].RoomID != roomID || snapshot[0].Size != 1 {
		t.Fatalf("Snapshot() = %+v, want {%s 1}", snapshot[0], roomID)
	}

	h.Unsubscribe(subID)
	r.Release(roomID, h)

	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot() = %v after release, want empty", got)
	}
}
