package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bytelocker/bytelocker/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(database.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.NewMigrator(db).Run(context.Background()); err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	return NewService(db)
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	event := &Event{
		CameraID:   "cam-1",
		EventType:  EventPersonDetected,
		Details:    json.RawMessage(`{"count":2}`),
		Confidence: 0.87,
	}
	if err := svc.Create(ctx, event); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if event.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	got, err := svc.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CameraID != "cam-1" || got.EventType != EventPersonDetected {
		t.Errorf("Event fields lost: %+v", got)
	}
	if got.Confidence != 0.87 {
		t.Errorf("Expected confidence 0.87, got %f", got.Confidence)
	}
	var details map[string]int
	if err := json.Unmarshal(got.Details, &details); err != nil || details["count"] != 2 {
		t.Errorf("Details round trip failed: %s (%v)", got.Details, err)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Get(context.Background(), "no-such-id"); err == nil {
		t.Error("Expected an error for a missing event")
	}
}

func TestService_Record_FireAndForget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, "cam-1", EventBehaviorAnomaly, map[string]any{"area": "vault"}, 0.9)
	// Unserializable payloads fall back to their string form instead of
	// dropping the event
	svc.Record(ctx, "cam-1", EventSafetyViolation, func() {}, 0.5)

	count, err := svc.Count(ctx, ListOptions{CameraID: "cam-1"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recorded events, got %d", count)
	}
}

func TestService_List_FiltersAndOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	seed := []struct {
		camera string
		typ    EventType
		at     time.Time
	}{
		{"cam-1", EventPersonDetected, base},
		{"cam-1", EventHighDensity, base.Add(10 * time.Second)},
		{"cam-2", EventPersonDetected, base.Add(20 * time.Second)},
		{"cam-1", EventPersonDetected, base.Add(30 * time.Second)},
	}
	for _, s := range seed {
		err := svc.Create(ctx, &Event{
			CameraID:  s.camera,
			EventType: s.typ,
			Timestamp: s.at,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(all))
	}
	// Newest first
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Errorf("Events out of order at %d", i)
		}
	}

	cam1, err := svc.List(ctx, ListOptions{CameraID: "cam-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cam1) != 3 {
		t.Errorf("Expected 3 cam-1 events, got %d", len(cam1))
	}

	people, err := svc.List(ctx, ListOptions{CameraID: "cam-1", EventType: EventPersonDetected})
	if err != nil {
		t.Fatal(err)
	}
	if len(people) != 2 {
		t.Errorf("Expected 2 person events on cam-1, got %d", len(people))
	}

	windowed, err := svc.List(ctx, ListOptions{
		StartTime: base.Add(5 * time.Second),
		EndTime:   base.Add(25 * time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed) != 2 {
		t.Errorf("Expected 2 events in window, got %d", len(windowed))
	}

	limited, err := svc.List(ctx, ListOptions{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(limited))
	}
}

func TestService_Count(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Record(ctx, "cam-1", EventPersonDetected, nil, 0.9)
	}
	svc.Record(ctx, "cam-2", EventCameraOffline, nil, 0)

	total, err := svc.Count(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("Expected 4 events, got %d", total)
	}

	offline, err := svc.Count(ctx, ListOptions{EventType: EventCameraOffline})
	if err != nil {
		t.Fatal(err)
	}
	if offline != 1 {
		t.Errorf("Expected 1 offline event, got %d", offline)
	}
}
