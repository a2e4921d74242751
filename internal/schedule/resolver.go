package schedule

import (
	"sort"
	"time"

	"github.com/campusroll/rollcall/internal/app/models"
)

// LiveSession is a timetable template resolved as active right now,
// decorated with its rendered time range.
type LiveSession struct {
	models.SessionTemplate
	TimeRange string `json:"timeRange"`
}

// Resolve returns the session template active at now, or nil when nothing is
// live. It is a pure function of its inputs so callers can invoke it on a
// fixed cadence and on every foreground transition.
//
// A template is live when now falls inside [start of its lowest hour's slot,
// end of its highest hour's slot], bounds inclusive; a session stays live
// through its final minute. Templates whose hours reference unknown slots are
// skipped. The first declared match wins; overlapping templates on the same
// day are not arbitrated.
func Resolve(table *SlotTable, timetable []models.TimetableDay, now time.Time) *LiveSession {
	weekday := models.Weekdays[now.Weekday()]

	var today *models.TimetableDay
	for i := range timetable {
		if timetable[i].Day == weekday {
			today = &timetable[i]
			break
		}
	}
	if today == nil || len(today.Sessions) == 0 {
		return nil
	}

	nowMinutes := now.Hour()*60 + now.Minute()

	for _, session := range today.Sessions {
		if len(session.Hours) == 0 {
			continue
		}
		hours := append([]int(nil), session.Hours...)
		sort.Ints(hours)

		first, okFirst := table.Lookup(hours[0])
		last, okLast := table.Lookup(hours[len(hours)-1])
		if !okFirst || !okLast {
			continue
		}

		if nowMinutes >= first.StartMinute && nowMinutes <= last.EndMinute {
			return &LiveSession{
				SessionTemplate: session,
				TimeRange:       table.TimeRange(session.Hours),
			}
		}
	}

	return nil
}
