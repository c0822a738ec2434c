package reservation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/room-reservation-manager/backend/internal/openremote"
	"github.com/room-reservation-manager/backend/internal/storage"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// setupTestStore opens a migrated SQLite store in a temp directory.
func setupTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "reservations.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return storage.NewStore(db)
}

// recordingQueue captures push tasks instead of running them.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []PushTask
}

func (q *recordingQueue) Enqueue(task PushTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return true
}

func (q *recordingQueue) snapshot() []PushTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]PushTask(nil), q.tasks...)
}

// fakeClient records scheduler calls and fails for selected schedule IDs.
type fakeClient struct {
	mu       sync.Mutex
	upserts  []openremote.Schedule
	removes  []string
	failFor  map[string]bool
	block    chan struct{}
	delay    time.Duration
	schedule map[string]openremote.Schedule
}

func newFakeClient() *fakeClient {
	return &fakeClient{failFor: map[string]bool{}, schedule: map[string]openremote.Schedule{}}
}

var errFakePush = errors.New("fake push failure")

func (c *fakeClient) Upsert(ctx context.Context, s openremote.Schedule) error {
	if c.block != nil {
		<-c.block
	}
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upserts = append(c.upserts, s)
	if c.failFor[s.ScheduleID] {
		return errFakePush
	}
	c.schedule[s.ScheduleID] = s
	return nil
}

func (c *fakeClient) Remove(ctx context.Context, id string) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removes = append(c.removes, id)
	if c.failFor[id] {
		return errFakePush
	}
	delete(c.schedule, id)
	return nil
}

func (c *fakeClient) upsertIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.upserts))
	for i, s := range c.upserts {
		ids[i] = s.ScheduleID
	}
	return ids
}

func (c *fakeClient) removed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.removes...)
}

// day anchors test times at a fixed UTC date.
var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func hm(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func mustCreateRoom(t *testing.T, m *Manager, name string, assetID *string) *models.Room {
	t.Helper()
	room, err := m.CreateRoom(context.Background(), CreateRoomInput{Name: name, AssetID: assetID})
	if err != nil {
		t.Fatalf("CreateRoom(%s) error = %v", name, err)
	}
	return room
}

func mustCreateEvent(t *testing.T, m *Manager, roomID string, start, end time.Time, status string) *models.Event {
	t.Helper()
	ev, err := m.CreateEvent(context.Background(), CreateEventInput{
		RoomID:   roomID,
		Title:    "meeting",
		StartsAt: start,
		EndsAt:   end,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("CreateEvent(%v-%v, %s) error = %v", start, end, status, err)
	}
	return ev
}

func assertNoConfirmedOverlaps(t *testing.T, s *storage.Store) {
	t.Helper()
	events, err := s.ListEvents(context.Background(), models.EventFilter{Status: models.EventStatusConfirmed})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			if a.RoomID == b.RoomID && Overlaps(a.StartsAt, a.EndsAt, b.StartsAt, b.EndsAt) {
				t.Errorf("confirmed events %s [%v,%v) and %s [%v,%v) overlap in room %s",
					a.ID, a.StartsAt, a.EndsAt, b.ID, b.StartsAt, b.EndsAt, a.RoomID)
			}
		}
	}
}
