package schedule

import (
	"testing"
	"time"

	"github.com/campusroll/rollcall/internal/app/models"
)

// 2025-04-21 is a Monday
func mondayAt(hour, minute int) time.Time {
	return time.Date(2025, 4, 21, hour, minute, 0, 0, time.UTC)
}

func mondayTimetable(sessions ...models.SessionTemplate) []models.TimetableDay {
	return []models.TimetableDay{
		{Day: "Monday", Sessions: sessions},
	}
}

func TestResolveActiveSession(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(models.SessionTemplate{
		Subject:     "Physics",
		SessionType: models.SessionLecture,
		Section:     "A",
		RoomNumber:  "101",
		Hours:       []int{3, 4},
	})

	live := Resolve(table, timetable, mondayAt(9, 45))
	if live == nil {
		t.Fatal("expected a live session at 09:45, got nil")
	}
	if live.Subject != "Physics" {
		t.Errorf("expected subject Physics, got %q", live.Subject)
	}
	if live.TimeRange != "9:20 - 11:00" {
		t.Errorf("expected time range 9:20 - 11:00, got %q", live.TimeRange)
	}
}

func TestResolveInclusiveBounds(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(models.SessionTemplate{
		Subject: "Physics",
		Hours:   []int{3, 4},
	})

	cases := []struct {
		name string
		now  time.Time
		live bool
	}{
		{"minute before start", mondayAt(9, 19), false},
		{"exactly at start", mondayAt(9, 20), true},
		{"exactly at end", mondayAt(11, 0), true},
		{"minute after end", mondayAt(11, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(table, timetable, tc.now)
			if (got != nil) != tc.live {
				t.Errorf("at %s: live=%v, want %v", tc.now.Format("15:04"), got != nil, tc.live)
			}
		})
	}
}

func TestResolveNoTimetableDay(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(models.SessionTemplate{
		Subject: "Physics",
		Hours:   []int{3},
	})

	// 2025-04-22 is a Tuesday; no Tuesday in the timetable.
	tuesday := time.Date(2025, 4, 22, 9, 45, 0, 0, time.UTC)
	if got := Resolve(table, timetable, tuesday); got != nil {
		t.Errorf("expected nil on a day without sessions, got %+v", got)
	}
}

func TestResolveUnorderedHours(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(models.SessionTemplate{
		Subject: "Chemistry",
		Hours:   []int{4, 3},
	})

	live := Resolve(table, timetable, mondayAt(10, 30))
	if live == nil {
		t.Fatal("expected live session with unordered hours")
	}
	if live.TimeRange != "9:20 - 11:00" {
		t.Errorf("expected range from lowest to highest hour, got %q", live.TimeRange)
	}
}

// Slot 6 is configured with a midnight window, deliberately out of clock
// order with its neighbours. The resolver must treat it by its own window,
// not by its position in the table.
func TestResolveMidnightSlot(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(models.SessionTemplate{
		Subject: "Night Lab",
		Hours:   []int{6},
	})

	if got := Resolve(table, timetable, mondayAt(0, 25)); got == nil {
		t.Error("expected slot 6 live at 00:25")
	}
	if got := Resolve(table, timetable, mondayAt(12, 25)); got != nil {
		t.Error("slot 6 must not be live at 12:25; its window is at midnight")
	}
}

func TestResolveUnknownHoursSkipped(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(
		models.SessionTemplate{Subject: "Ghost", Hours: []int{99}},
		models.SessionTemplate{Subject: "Real", Hours: []int{3}},
	)

	live := Resolve(table, timetable, mondayAt(9, 30))
	if live == nil {
		t.Fatal("expected live session")
	}
	if live.Subject != "Real" {
		t.Errorf("expected the template with known hours, got %q", live.Subject)
	}
}

func TestResolveFirstDeclaredWins(t *testing.T) {
	table := DefaultTable()
	timetable := mondayTimetable(
		models.SessionTemplate{Subject: "First", Hours: []int{3}},
		models.SessionTemplate{Subject: "Second", Hours: []int{3}},
	)

	live := Resolve(table, timetable, mondayAt(9, 30))
	if live == nil {
		t.Fatal("expected live session")
	}
	if live.Subject != "First" {
		t.Errorf("expected first declared template, got %q", live.Subject)
	}
}

func TestNewSlotTableRejectsDuplicates(t *testing.T) {
	_, err := NewSlotTable([]HourSlot{
		{Hour: 1, Label: "a", StartMinute: 0, EndMinute: 10},
		{Hour: 1, Label: "b", StartMinute: 20, EndMinute: 30},
	})
	if err == nil {
		t.Fatal("expected error for duplicate hour ids")
	}
}

func TestTimeRange(t *testing.T) {
	table := DefaultTable()

	cases := []struct {
		name  string
		hours []int
		want  string
	}{
		{"single hour", []int{3}, "9:20 - 10:10"},
		{"consecutive", []int{3, 4}, "9:20 - 11:00"},
		{"unordered", []int{4, 3}, "9:20 - 11:00"},
		{"unknown hour", []int{99}, ""},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := table.TimeRange(tc.hours); got != tc.want {
				t.Errorf("TimeRange(%v) = %q, want %q", tc.hours, got, tc.want)
			}
		})
	}
}
