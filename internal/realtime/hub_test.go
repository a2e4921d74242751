package realtime

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitForClients(t *testing.T, hub *Hub, facultyID int64, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientsCount(facultyID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("faculty %d client count never reached %d, have %d",
		facultyID, want, hub.ClientsCount(facultyID))
}

func TestSlowClientDroppedWithoutStallingHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	// A client that never drains its send buffer.
	stalled := &Client{hub: hub, send: make(chan []byte), facultyID: 1, deviceID: "tablet-01"}
	hub.register <- stalled
	waitForClients(t, hub, 1, 1)

	hub.Publish(1, EventStudentsUpdated, &StudentsUpdated{})

	// Dropping the stalled client must not wedge the hub loop: a
	// follow-up registration has to go through.
	healthy := &Client{hub: hub, send: make(chan []byte, 4), facultyID: 1, deviceID: "tablet-02"}
	registered := make(chan struct{})
	go func() {
		hub.register <- healthy
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("hub stopped accepting registrations after dropping a slow client")
	}

	// The stalled client is gone and its send channel closed.
	waitForClients(t, hub, 1, 1)
	select {
	case _, ok := <-stalled.send:
		if ok {
			t.Error("expected stalled client's send channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stalled client's send channel was never closed")
	}

	// The surviving client still receives events. It may also hold the
	// earlier broadcast, so read until the new one arrives.
	hub.Publish(1, EventCaptureRequest, &CaptureRequest{StudentID: 7})
	for {
		select {
		case data := <-healthy.send:
			eventType, _, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if eventType == EventCaptureRequest {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("surviving client never received the broadcast")
		}
	}
}
