package models

import "time"

// MarkedVia records how a presence transition happened
type MarkedVia string

const (
	MarkedViaFace   MarkedVia = "face"
	MarkedViaManual MarkedVia = "manual"
)

// Location is an optional geographic snapshot attached to a session
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

// AttendanceSession is one class meeting's ledger, keyed uniquely by
// (faculty, subject, section, session type, calendar date).
type AttendanceSession struct {
	ID              int64       `json:"id" db:"id"`
	FacultyID       int64       `json:"-" db:"faculty_id"`
	Subject         string      `json:"subject" db:"subject"`
	Section         string      `json:"section" db:"section"`
	SessionType     SessionType `json:"sessionType" db:"session_type"`
	Hours           []int       `json:"hours" db:"hours"`
	Date            time.Time   `json:"date" db:"date"`
	TotalStudents   int         `json:"totalStudents" db:"total_students"`
	PresentStudents int         `json:"presentStudents" db:"present_students"`
	AbsentStudents  int         `json:"absentStudents" db:"absent_students"`
	Location        *Location   `json:"location,omitempty" db:"location"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// AttendancePercentage returns rounded present/total in percent
func (s *AttendanceSession) AttendancePercentage() int {
	if s.TotalStudents <= 0 {
		return 0
	}
	return int(float64(s.PresentStudents)/float64(s.TotalStudents)*100 + 0.5)
}

// AttendanceRecord is one student's row in a session ledger. Seeded absent at
// session creation; moves to present at most once and never backward.
type AttendanceRecord struct {
	ID          int64      `json:"-" db:"id"`
	SessionID   int64      `json:"sessionId" db:"session_id"`
	StudentID   int64      `json:"studentId" db:"student_id"`
	StudentName string     `json:"studentName" db:"student_name"`
	RollNumber  string     `json:"rollNumber" db:"roll_number"`
	IsPresent   bool       `json:"isPresent" db:"is_present"`
	MarkedAt    *time.Time `json:"markedAt,omitempty" db:"marked_at"`
	Confidence  *float64   `json:"confidence,omitempty" db:"confidence"`
	MarkedVia   *MarkedVia `json:"markedVia,omitempty" db:"marked_via"`
}
