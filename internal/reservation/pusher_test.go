package reservation

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/room-reservation-manager/backend/internal/metrics"
	"github.com/room-reservation-manager/backend/internal/openremote"
)

// capturingNotifier records push outcomes.
type capturingNotifier struct {
	noopNotifier
	outcomes chan PushOutcome
}

func (n *capturingNotifier) SchedulePushed(o PushOutcome) {
	n.outcomes <- o
}

func TestPusher_RunsTasks(t *testing.T) {
	client := newFakeClient()
	notifier := &capturingNotifier{outcomes: make(chan PushOutcome, 4)}
	p := NewPusher(client, PusherConfig{QueueSize: 4, Workers: 2}, notifier, nil, nil)
	p.Start()

	if !p.Enqueue(PushTask{Op: OpUpsert, EventID: "e1", Schedule: openremote.Schedule{ScheduleID: "e1"}}) {
		t.Fatal("Enqueue(upsert) = false")
	}
	if !p.Enqueue(PushTask{Op: OpRemove, EventID: "e2"}) {
		t.Fatal("Enqueue(remove) = false")
	}
	p.Stop()

	if ids := client.upsertIDs(); len(ids) != 1 || ids[0] != "e1" {
		t.Errorf("upserts = %v, want [e1]", ids)
	}
	if ids := client.removed(); len(ids) != 1 || ids[0] != "e2" {
		t.Errorf("removes = %v, want [e2]", ids)
	}
	if len(notifier.outcomes) != 2 {
		t.Errorf("outcomes = %d, want 2", len(notifier.outcomes))
	}
}

func TestPusher_FullQueueDrops(t *testing.T) {
	client := newFakeClient()
	client.block = make(chan struct{})
	m := metrics.New()
	p := NewPusher(client, PusherConfig{QueueSize: 1, Workers: 1}, nil, nil, m)

	// Without started workers nothing drains the queue.
	if !p.Enqueue(PushTask{Op: OpRemove, EventID: "e1"}) {
		t.Fatal("first Enqueue() = false")
	}
	if p.Enqueue(PushTask{Op: OpRemove, EventID: "e2"}) {
		t.Error("Enqueue() on full queue = true, want false")
	}
	if got := testutil.ToFloat64(m.Dropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if p.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", p.Pending())
	}

	p.Start()
	close(client.block)
	p.Stop()

	if ids := client.removed(); len(ids) != 1 || ids[0] != "e1" {
		t.Errorf("removes = %v, want [e1]", ids)
	}
}

func TestPusher_EnqueueAfterStop(t *testing.T) {
	p := NewPusher(newFakeClient(), PusherConfig{}, nil, nil, nil)
	p.Start()
	p.Stop()
	p.Stop()

	if p.Enqueue(PushTask{Op: OpRemove, EventID: "late"}) {
		t.Error("Enqueue() after Stop = true, want false")
	}
}

func TestPusher_FailureIsReported(t *testing.T) {
	client := newFakeClient()
	client.failFor["bad"] = true
	notifier := &capturingNotifier{outcomes: make(chan PushOutcome, 1)}
	m := metrics.New()
	p := NewPusher(client, PusherConfig{Workers: 1}, notifier, nil, m)
	p.Start()
	p.Enqueue(PushTask{Op: OpRemove, EventID: "bad"})
	p.Stop()

	o := <-notifier.outcomes
	if o.Error == "" || o.EventID != "bad" || o.Source != "request" {
		t.Errorf("outcome = %+v, want failed request remove", o)
	}
	if got := testutil.ToFloat64(m.Pushes.WithLabelValues("remove", "error")); got != 1 {
		t.Errorf("remove errors = %v, want 1", got)
	}
}

func TestPusher_KeepsPerEventOrder(t *testing.T) {
	client := newFakeClient()
	client.delay = 50 * time.Millisecond
	p := NewPusher(client, PusherConfig{QueueSize: 16, Workers: 4}, nil, nil, nil)
	p.Start()

	for _, id := range []string{"e1", "e2", "e3"} {
		p.Enqueue(PushTask{Op: OpUpsert, EventID: id, Schedule: openremote.Schedule{ScheduleID: id}})
		p.Enqueue(PushTask{Op: OpRemove, EventID: id})
	}
	p.Stop()

	client.mu.Lock()
	defer client.mu.Unlock()
	for _, id := range []string{"e1", "e2", "e3"} {
		if _, ok := client.schedule[id]; ok {
			t.Errorf("schedule %s still present after upsert then remove", id)
		}
	}
}

func TestPusher_PendingCountsAllShards(t *testing.T) {
	p := NewPusher(newFakeClient(), PusherConfig{QueueSize: 40, Workers: 4}, nil, nil, nil)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		p.Enqueue(PushTask{Op: OpRemove, EventID: id})
	}
	if got := p.Pending(); got != 5 {
		t.Errorf("Pending() = %d, want 5", got)
	}

	p.Start()
	p.Stop()
	if got := p.Pending(); got != 0 {
		t.Errorf("Pending() after Stop = %d, want 0", got)
	}
}
