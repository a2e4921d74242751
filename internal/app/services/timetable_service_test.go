package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/realtime"
	"github.com/campusroll/rollcall/internal/schedule"
)

type mockTimetableStore struct {
	byFaculty map[int64][]models.TimetableDay
}

func newMockTimetableStore() *mockTimetableStore {
	return &mockTimetableStore{byFaculty: make(map[int64][]models.TimetableDay)}
}

func (m *mockTimetableStore) Get(_ context.Context, facultyID int64) ([]models.TimetableDay, error) {
	return m.byFaculty[facultyID], nil
}

func (m *mockTimetableStore) Replace(_ context.Context, facultyID int64, days []models.TimetableDay) error {
	m.byFaculty[facultyID] = days
	return nil
}

func newTestTimetableService() (*TimetableService, *mockTimetableStore, *mockPublisher) {
	store := newMockTimetableStore()
	publisher := &mockPublisher{}
	svc := NewTimetableService(store, schedule.DefaultTable(), publisher, zerolog.Nop())
	return svc, store, publisher
}

func validWeek() []models.TimetableDay {
	return []models.TimetableDay{
		{Day: "Monday", Sessions: []models.SessionTemplate{
			{Subject: "Physics", Section: "A", SessionType: models.SessionLecture, RoomNumber: "101", Hours: []int{3, 4}},
		}},
		{Day: "Tuesday", Sessions: []models.SessionTemplate{
			{Subject: "Chemistry", Section: "B", SessionType: models.SessionPractical, Hours: []int{7}},
		}},
	}
}

func TestReplaceStoresAndBroadcasts(t *testing.T) {
	svc, store, publisher := newTestTimetableService()
	ctx := context.Background()

	if err := svc.Replace(ctx, 1, validWeek()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(store.byFaculty[1]) != 2 {
		t.Errorf("timetable not stored: %d days", len(store.byFaculty[1]))
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != realtime.EventTimetableUpdated {
		t.Fatalf("expected one timetable_updated broadcast, got %+v", publisher.events)
	}
}

func TestReplaceValidation(t *testing.T) {
	svc, store, publisher := newTestTimetableService()
	ctx := context.Background()

	cases := []struct {
		name string
		days []models.TimetableDay
	}{
		{"duplicate day", []models.TimetableDay{
			{Day: "Monday"}, {Day: "Monday"},
		}},
		{"missing subject", []models.TimetableDay{
			{Day: "Monday", Sessions: []models.SessionTemplate{
				{Section: "A", SessionType: models.SessionLecture, Hours: []int{3}},
			}},
		}},
		{"missing section", []models.TimetableDay{
			{Day: "Monday", Sessions: []models.SessionTemplate{
				{Subject: "Physics", SessionType: models.SessionLecture, Hours: []int{3}},
			}},
		}},
		{"invalid session type", []models.TimetableDay{
			{Day: "Monday", Sessions: []models.SessionTemplate{
				{Subject: "Physics", Section: "A", SessionType: "Seminar", Hours: []int{3}},
			}},
		}},
		{"no hours", []models.TimetableDay{
			{Day: "Monday", Sessions: []models.SessionTemplate{
				{Subject: "Physics", Section: "A", SessionType: models.SessionLecture},
			}},
		}},
		{"unknown hour slot", []models.TimetableDay{
			{Day: "Monday", Sessions: []models.SessionTemplate{
				{Subject: "Physics", Section: "A", SessionType: models.SessionLecture, Hours: []int{99}},
			}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Replace(ctx, 1, tc.days); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if len(store.byFaculty[1]) != 0 {
		t.Error("invalid timetables must not be stored")
	}
	if len(publisher.events) != 0 {
		t.Error("invalid timetables must not be broadcast")
	}
}

func TestLiveResolvesAgainstStoredWeek(t *testing.T) {
	svc, _, _ := newTestTimetableService()
	ctx := context.Background()

	if err := svc.Replace(ctx, 1, validWeek()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	// 2025-04-21 is a Monday; hours 3-4 run 09:20-11:00.
	during := time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)
	live, err := svc.Live(ctx, 1, during)
	if err != nil {
		t.Fatalf("Live failed: %v", err)
	}
	if live == nil || live.Subject != "Physics" {
		t.Fatalf("expected Physics live, got %+v", live)
	}
	if live.TimeRange != "9:20 - 11:00" {
		t.Errorf("unexpected time range %q", live.TimeRange)
	}

	after := time.Date(2025, 4, 21, 11, 1, 0, 0, time.UTC)
	if live, _ := svc.Live(ctx, 1, after); live != nil {
		t.Errorf("expected nothing live at 11:01, got %+v", live)
	}
}
