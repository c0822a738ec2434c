package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// setupTestStore opens a migrated SQLite database in a temp directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewStore(db)
}

func strPtr(s string) *string { return &s }

func mustRoom(t *testing.T, s *Store, name string, assetID *string) *models.Room {
	t.Helper()
	room := &models.Room{Name: name, AssetID: assetID}
	if err := s.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("CreateRoom(%s): %v", name, err)
	}
	return room
}

func mustEvent(t *testing.T, s *Store, roomID, status string, start, end time.Time) *models.Event {
	t.Helper()
	ev := &models.Event{
		RoomID:   roomID,
		Title:    "meeting",
		StartsAt: start,
		EndsAt:   end,
		Timezone: "UTC",
		Status:   status,
	}
	if err := s.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return base.Add(time.Duration(h-10)*time.Hour + time.Duration(m)*time.Minute)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	s := setupTestStore(t)

	if err := RunMigrations(context.Background(), s.DB(), nil); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&n); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("applied migrations = %d, want 1", n)
	}
}

func TestRoomRepository(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := mustRoom(t, s, "Board Room", strPtr("asset-b"))
	a := mustRoom(t, s, "Atrium", nil)

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetRoom(ctx, b.ID)
		if err != nil {
			t.Fatalf("GetRoom() error = %v", err)
		}
		if got == nil || got.Name != "Board Room" || got.AssetID == nil || *got.AssetID != "asset-b" {
			t.Errorf("GetRoom() = %+v", got)
		}
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := s.GetRoom(ctx, "missing")
		if err != nil || got != nil {
			t.Errorf("GetRoom(missing) = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("get by asset", func(t *testing.T) {
		got, err := s.GetRoomByAsset(ctx, "asset-b")
		if err != nil || got == nil || got.ID != b.ID {
			t.Errorf("GetRoomByAsset() = %v, %v", got, err)
		}
	})

	t.Run("list ordered by name", func(t *testing.T) {
		rooms, err := s.ListRooms(ctx)
		if err != nil {
			t.Fatalf("ListRooms() error = %v", err)
		}
		if len(rooms) != 2 || rooms[0].ID != a.ID || rooms[1].ID != b.ID {
			t.Errorf("ListRooms() order = %v", rooms)
		}
	})

	t.Run("duplicate asset", func(t *testing.T) {
		err := s.CreateRoom(ctx, &models.Room{Name: "Copy", AssetID: strPtr("asset-b")})
		if !errors.Is(err, ErrAssetInUse) {
			t.Errorf("CreateRoom(dup asset) error = %v, want ErrAssetInUse", err)
		}
	})

	t.Run("update link keeps absent fields", func(t *testing.T) {
		lead := 7
		got, err := s.UpdateRoomLink(ctx, models.RoomLink{
			RoomID:           a.ID,
			AssetID:          strPtr("asset-a"),
			PowerLeadMinutes: &lead,
		})
		if err != nil {
			t.Fatalf("UpdateRoomLink() error = %v", err)
		}
		if got.LinkedAt == nil {
			t.Error("LinkedAt not set")
		}
		if got.PowerLeadMinutes == nil || *got.PowerLeadMinutes != 7 {
			t.Errorf("PowerLeadMinutes = %v, want 7", got.PowerLeadMinutes)
		}

		got, err = s.UpdateRoomLink(ctx, models.RoomLink{RoomID: a.ID, Timezone: strPtr("Europe/Lisbon")})
		if err != nil {
			t.Fatalf("UpdateRoomLink() error = %v", err)
		}
		if got.AssetID == nil || *got.AssetID != "asset-a" {
			t.Errorf("AssetID = %v, want asset-a preserved", got.AssetID)
		}
	})

	t.Run("update link missing room", func(t *testing.T) {
		got, err := s.UpdateRoomLink(ctx, models.RoomLink{RoomID: "missing"})
		if err != nil || got != nil {
			t.Errorf("UpdateRoomLink(missing) = %v, %v; want nil, nil", got, err)
		}
	})
}

func TestEventRepository_RoundTripNormalizesInstants(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	room := mustRoom(t, s, "A", nil)

	loc := time.FixedZone("BRT", -3*3600)
	start := time.Date(2026, 3, 2, 7, 0, 0, 500, loc)
	ev := mustEvent(t, s, room.ID, models.EventStatusPending, start, start.Add(time.Hour))

	got, err := s.GetEvent(ctx, ev.ID)
	if err != nil || got == nil {
		t.Fatalf("GetEvent() = %v, %v", got, err)
	}
	if !got.StartsAt.Equal(at(10, 0)) {
		t.Errorf("StartsAt = %v, want %v", got.StartsAt, at(10, 0))
	}
	if got.StartsAt.Location() != time.UTC {
		t.Errorf("StartsAt location = %v, want UTC", got.StartsAt.Location())
	}
}

func TestEventRepository_ConfirmedOverlapTrigger(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	room := mustRoom(t, s, "A", nil)
	other := mustRoom(t, s, "B", nil)

	first := mustEvent(t, s, room.ID, models.EventStatusConfirmed, at(10, 0), at(11, 0))

	t.Run("insert overlapping confirmed", func(t *testing.T) {
		err := s.CreateEvent(ctx, &models.Event{
			RoomID: room.ID, Title: "x", StartsAt: at(10, 30), EndsAt: at(11, 30),
			Timezone: "UTC", Status: models.EventStatusConfirmed,
		})
		if !errors.Is(err, ErrConfirmedOverlap) {
			t.Errorf("CreateEvent() error = %v, want ErrConfirmedOverlap", err)
		}
	})

	t.Run("pending may overlap", func(t *testing.T) {
		mustEvent(t, s, room.ID, models.EventStatusPending, at(10, 30), at(11, 30))
	})

	t.Run("adjacent confirmed allowed", func(t *testing.T) {
		mustEvent(t, s, room.ID, models.EventStatusConfirmed, at(11, 0), at(12, 0))
	})

	t.Run("other room unaffected", func(t *testing.T) {
		mustEvent(t, s, other.ID, models.EventStatusConfirmed, at(10, 0), at(11, 0))
	})

	t.Run("transition into overlap", func(t *testing.T) {
		p := mustEvent(t, s, room.ID, models.EventStatusPending, at(9, 30), at(10, 15))
		ok, err := s.TransitionEvent(ctx, p.ID, models.EventStatusConfirmed, models.EventStatusPending)
		if !errors.Is(err, ErrConfirmedOverlap) || ok {
			t.Errorf("TransitionEvent() = %v, %v; want false, ErrConfirmedOverlap", ok, err)
		}
		got, _ := s.GetEvent(ctx, p.ID)
		if got.Status != models.EventStatusPending {
			t.Errorf("status = %s, want pending", got.Status)
		}
	})

	t.Run("update moves into overlap", func(t *testing.T) {
		moved := *first
		moved.RoomID = other.ID
		_, err := s.UpdateEvent(ctx, &moved)
		if !errors.Is(err, ErrConfirmedOverlap) {
			t.Errorf("UpdateEvent() error = %v, want ErrConfirmedOverlap", err)
		}
	})

	t.Run("update in place does not collide with itself", func(t *testing.T) {
		e := *first
		e.Title = "renamed"
		ok, err := s.UpdateEvent(ctx, &e)
		if err != nil || !ok {
			t.Errorf("UpdateEvent() = %v, %v", ok, err)
		}
	})
}

func TestEventRepository_StartBeforeEndCheck(t *testing.T) {
	s := setupTestStore(t)
	room := mustRoom(t, s, "A", nil)

	err := s.CreateEvent(context.Background(), &models.Event{
		RoomID: room.ID, Title: "x", StartsAt: at(11, 0), EndsAt: at(11, 0),
		Timezone: "UTC", Status: models.EventStatusPending,
	})
	if err == nil {
		t.Error("CreateEvent(start == end) succeeded, want CHECK failure")
	}
}

func TestEventRepository_TransitionEvent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	room := mustRoom(t, s, "A", nil)
	ev := mustEvent(t, s, room.ID, models.EventStatusPending, at(10, 0), at(11, 0))

	ok, err := s.TransitionEvent(ctx, ev.ID, models.EventStatusRejected, models.EventStatusPending)
	if err != nil || !ok {
		t.Fatalf("TransitionEvent(pending->rejected) = %v, %v", ok, err)
	}

	ok, err = s.TransitionEvent(ctx, ev.ID, models.EventStatusConfirmed, models.EventStatusPending)
	if err != nil || ok {
		t.Errorf("TransitionEvent(rejected->confirmed) = %v, %v; want false, nil", ok, err)
	}
}

func TestEventRepository_FindConfirmedOverlaps(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	room := mustRoom(t, s, "A", nil)

	late := mustEvent(t, s, room.ID, models.EventStatusConfirmed, at(12, 0), at(13, 0))
	early := mustEvent(t, s, room.ID, models.EventStatusConfirmed, at(10, 0), at(11, 0))
	mustEvent(t, s, room.ID, models.EventStatusPending, at(10, 0), at(13, 0))

	got, err := s.FindConfirmedOverlaps(ctx, room.ID, at(10, 30), at(12, 30), "")
	if err != nil {
		t.Fatalf("FindConfirmedOverlaps() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != early.ID || got[1].ID != late.ID {
		t.Errorf("FindConfirmedOverlaps() = %v, want [early, late]", got)
	}

	got, err = s.FindConfirmedOverlaps(ctx, room.ID, at(10, 30), at(12, 30), early.ID)
	if err != nil || len(got) != 1 || got[0].ID != late.ID {
		t.Errorf("FindConfirmedOverlaps(exclude early) = %v, %v", got, err)
	}

	got, err = s.FindConfirmedOverlaps(ctx, room.ID, at(11, 0), at(12, 0), "")
	if err != nil || len(got) != 0 {
		t.Errorf("FindConfirmedOverlaps(gap) = %v, %v; want none", got, err)
	}
}

func TestEventRepository_ListEvents(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	a := mustRoom(t, s, "A", nil)
	b := mustRoom(t, s, "B", nil)

	e2 := mustEvent(t, s, a.ID, models.EventStatusPending, at(12, 0), at(13, 0))
	e1 := mustEvent(t, s, a.ID, models.EventStatusConfirmed, at(9, 0), at(10, 0))
	mustEvent(t, s, b.ID, models.EventStatusPending, at(9, 0), at(10, 0))

	tests := []struct {
		name   string
		filter models.EventFilter
		want   int
	}{
		{"all", models.EventFilter{}, 3},
		{"by room", models.EventFilter{RoomID: a.ID}, 2},
		{"by status", models.EventFilter{Status: models.EventStatusConfirmed}, 1},
		{"window", models.EventFilter{From: at(9, 30), To: at(11, 0)}, 2},
		{"window touching end", models.EventFilter{From: at(10, 0), To: at(11, 0)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEvents(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListEvents() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListEvents() returned %d events, want %d", len(got), tt.want)
			}
		})
	}

	got, _ := s.ListEvents(ctx, models.EventFilter{RoomID: a.ID})
	if got[0].ID != e1.ID || got[1].ID != e2.ID {
		t.Error("ListEvents() not ordered by start")
	}
}

func TestEventRepository_ListConfirmedInWindow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	a := mustRoom(t, s, "A", strPtr("asset-a"))
	b := mustRoom(t, s, "B", nil)

	inside := mustEvent(t, s, a.ID, models.EventStatusConfirmed, at(14, 0), at(15, 0))
	running := mustEvent(t, s, b.ID, models.EventStatusConfirmed, at(13, 0), at(14, 0))
	mustEvent(t, s, b.ID, models.EventStatusConfirmed, at(14, 10), at(15, 10))
	mustEvent(t, s, a.ID, models.EventStatusConfirmed, at(12, 0), at(13, 0))
	mustEvent(t, s, b.ID, models.EventStatusPending, at(13, 55), at(14, 30))

	now := at(13, 52)
	got, err := s.ListConfirmedInWindow(ctx, now, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("ListConfirmedInWindow() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListConfirmedInWindow() returned %d events, want 2", len(got))
	}
	if got[0].ID != running.ID || got[1].ID != inside.ID {
		t.Errorf("ListConfirmedInWindow() = [%s %s], want [running inside]", got[0].ID, got[1].ID)
	}
	if got[1].Room.AssetID == nil || *got[1].Room.AssetID != "asset-a" {
		t.Errorf("joined room asset = %v, want asset-a", got[1].Room.AssetID)
	}
	if got[0].Room.AssetID != nil {
		t.Errorf("unlinked room asset = %v, want nil", *got[0].Room.AssetID)
	}
}

func TestEventRepository_CountEventsByStatus(t *testing.T) {
	s := setupTestStore(t)
	room := mustRoom(t, s, "A", nil)
	mustEvent(t, s, room.ID, models.EventStatusPending, at(9, 0), at(10, 0))
	mustEvent(t, s, room.ID, models.EventStatusPending, at(9, 0), at(10, 0))
	mustEvent(t, s, room.ID, models.EventStatusConfirmed, at(9, 0), at(10, 0))

	counts, err := s.CountEventsByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountEventsByStatus() error = %v", err)
	}
	if counts[models.EventStatusPending] != 2 || counts[models.EventStatusConfirmed] != 1 {
		t.Errorf("CountEventsByStatus() = %v", counts)
	}
}
