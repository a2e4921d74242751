package models

// SessionTemplate is one taught slot inside a timetable day
type SessionTemplate struct {
	Subject     string      `json:"subject"`
	SessionType SessionType `json:"sessionType"`
	Section     string      `json:"section"`
	RoomNumber  string      `json:"roomNumber"`
	Hours       []int       `json:"hours"`
}

// TimetableDay is one weekday's worth of session templates. A faculty's
// timetable is replaced wholesale on edit; there are no partial updates.
type TimetableDay struct {
	Day      string            `json:"day"`
	Sessions []SessionTemplate `json:"sessions"`
}

// Weekdays in time.Weekday order (Sunday first), used to match time.Now()
// against stored timetable days.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
