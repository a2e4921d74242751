package models

import "time"

// Student defines the student model based on the 'students' table.
// FaceDescriptor is the enrolled recognition vector; a student without one
// cannot be matched automatically but can still be marked present manually.
type Student struct {
	ID             int64       `json:"id" db:"id"`
	FacultyID      int64       `json:"-" db:"faculty_id"`
	Name           string      `json:"name" db:"name"`
	RollNumber     string      `json:"rollNumber" db:"roll_number"`
	Subject        string      `json:"subject" db:"subject"`
	Section        string      `json:"section" db:"section"`
	SessionType    SessionType `json:"sessionType" db:"session_type"`
	FaceDescriptor []float64   `json:"-" db:"face_descriptor"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
}

// HasFaceDescriptor reports whether the student can be matched automatically
func (s *Student) HasFaceDescriptor() bool {
	return len(s.FaceDescriptor) > 0
}
