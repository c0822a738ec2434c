package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu     sync.Mutex
	msgs   []published
	err    error
	closed bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic, qos, retained, payload})
	return nil
}

func (f *fakeClient) Close() { f.closed = true }

func TestNotifier_Topics(t *testing.T) {
	client := &fakeClient{}
	n := NewNotifier(client, "rooms", 1, nil)

	n.EventChanged(reservation.EventChange{
		Kind:  reservation.ChangeApproved,
		Event: models.Event{ID: "ev-1", Status: models.EventStatusConfirmed},
	})
	n.RoomLinked(models.Room{ID: "room-1"})
	n.SchedulePushed(reservation.PushOutcome{Op: reservation.OpUpsert, EventID: "ev-1", Source: "reconcile"})

	want := []struct {
		topic    string
		retained bool
	}{
		{"rooms/events/ev-1", true},
		{"rooms/rooms/room-1", true},
		{"rooms/schedules/ev-1", false},
	}
	if len(client.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(client.msgs), len(want))
	}
	for i, w := range want {
		got := client.msgs[i]
		if got.topic != w.topic || got.retained != w.retained || got.qos != 1 {
			t.Errorf("message %d = %s retained=%v qos=%d, want %s retained=%v", i, got.topic, got.retained, got.qos, w.topic, w.retained)
		}
	}
}

func TestNotifier_EventPayload(t *testing.T) {
	client := &fakeClient{}
	n := NewNotifier(client, "site", 0, nil)

	n.EventChanged(reservation.EventChange{
		Kind:           reservation.ChangeCancelled,
		PreviousStatus: models.EventStatusConfirmed,
		Event:          models.Event{ID: "ev-2", RoomID: "room-1", Status: models.EventStatusCancelled},
	})

	var got reservation.EventChange
	if err := json.Unmarshal(client.msgs[0].payload, &got); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if got.Kind != "cancelled" || got.PreviousStatus != "confirmed" || got.Event.Status != "cancelled" {
		t.Errorf("payload = %+v", got)
	}
}

func TestNotifier_PublishErrorDoesNotPanic(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	n := NewNotifier(client, "rooms", 1, nil)

	n.SchedulePushed(reservation.PushOutcome{EventID: "ev-1"})
	n.Close()

	if !client.closed {
		t.Error("Close() did not close the client")
	}
}
