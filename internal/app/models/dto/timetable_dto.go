package dto

import "github.com/campusroll/rollcall/internal/app/models"

// UpdateTimetableRequest replaces the faculty's weekly timetable wholesale
type UpdateTimetableRequest struct {
	Timetable []models.TimetableDay `json:"timetable" binding:"required"`
}

// TimetableResponse is the stored weekly timetable
type TimetableResponse struct {
	Timetable []models.TimetableDay `json:"timetable"`
}

// LiveSessionResponse is the currently active session per the resolver,
// or an empty body when no session is live
type LiveSessionResponse struct {
	Active  bool               `json:"active"`
	Session *LiveSessionDetail `json:"session,omitempty"`
}

// LiveSessionDetail describes the resolved live session
type LiveSessionDetail struct {
	Subject     string             `json:"subject"`
	SessionType models.SessionType `json:"sessionType"`
	Section     string             `json:"section"`
	RoomNumber  string             `json:"roomNumber,omitempty"`
	Hours       []int              `json:"hours"`
	TimeRange   string             `json:"timeRange"`
}
