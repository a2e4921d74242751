package dto

import (
	"time"

	"github.com/campusroll/rollcall/internal/app/models"
)

// StartSessionRequest starts (or idempotently returns) today's session
type StartSessionRequest struct {
	Subject     string             `json:"subject" binding:"required"`
	Section     string             `json:"section" binding:"required"`
	SessionType models.SessionType `json:"sessionType" binding:"required"`
	Hours       []int              `json:"hours" binding:"required,min=1"`
	Location    *models.Location   `json:"location,omitempty"`
}

// RosterStudent is the per-student roster entry returned at session start
type RosterStudent struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	RollNumber        string `json:"rollNumber"`
	HasFaceDescriptor bool   `json:"hasFaceDescriptor"`
	IsPresent         bool   `json:"isPresent"`
}

// StartSessionResponse is returned by both the create and the
// already-exists paths of session start
type StartSessionResponse struct {
	SessionID       int64           `json:"sessionId"`
	TotalStudents   int             `json:"totalStudents"`
	PresentStudents int             `json:"presentStudents"`
	AbsentStudents  int             `json:"absentStudents"`
	AlreadyExisted  bool            `json:"alreadyExisted"`
	Students        []RosterStudent `json:"students"`
}

// MarkAttendanceRequest carries either a precomputed descriptor (preferred)
// or a raw base64 image for server-side extraction
type MarkAttendanceRequest struct {
	FaceDescriptor  []float64 `json:"faceDescriptor,omitempty"`
	FaceImageBase64 string    `json:"faceImageBase64,omitempty"`
}

// MarkedStudent describes the student a successful mark resolved to
type MarkedStudent struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	RollNumber string  `json:"rollNumber"`
	Confidence float64 `json:"confidence"`
}

// AttendanceCounts is the post-mutation counter snapshot
type AttendanceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// MarkAttendanceResponse reports the outcome of one mark operation
type MarkAttendanceResponse struct {
	Student        MarkedStudent    `json:"student"`
	Attendance     AttendanceCounts `json:"attendance"`
	AlreadyPresent bool             `json:"alreadyPresent"`
}

// StatusResponse is the side-effect-free today-session probe result
type StatusResponse struct {
	HasAttendance   bool             `json:"hasAttendance"`
	SessionID       *int64           `json:"sessionId,omitempty"`
	TotalStudents   *int             `json:"totalStudents,omitempty"`
	PresentStudents *int             `json:"presentStudents,omitempty"`
	AbsentStudents  *int             `json:"absentStudents,omitempty"`
	Location        *models.Location `json:"location,omitempty"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time       `json:"updatedAt,omitempty"`
}

// SessionDetailResponse is the full ledger for one session
type SessionDetailResponse struct {
	Session SessionSummary            `json:"session"`
	Records []models.AttendanceRecord `json:"records"`
}

// SessionSummary is one session with computed percentage
type SessionSummary struct {
	ID                   int64              `json:"id"`
	Subject              string             `json:"subject"`
	Section              string             `json:"section"`
	SessionType          models.SessionType `json:"sessionType"`
	Hours                []int              `json:"hours"`
	Date                 time.Time          `json:"date"`
	TotalStudents        int                `json:"totalStudents"`
	PresentStudents      int                `json:"presentStudents"`
	AbsentStudents       int                `json:"absentStudents"`
	AttendancePercentage int                `json:"attendancePercentage"`
	Location             *models.Location   `json:"location,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// ReportsQuery filters historical sessions
type ReportsQuery struct {
	Subject   string `form:"subject"`
	Section   string `form:"section"`
	StartDate string `form:"startDate"` // YYYY-MM-DD
	EndDate   string `form:"endDate"`   // YYYY-MM-DD
}

// ReportsResponse lists historical sessions, most recent first
type ReportsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// StudentReport aggregates one student's attendance across sessions
type StudentReport struct {
	StudentID            int64      `json:"studentId"`
	Name                 string     `json:"name"`
	RollNumber           string     `json:"rollNumber"`
	TotalSessions        int        `json:"totalSessions"`
	PresentSessions      int        `json:"presentSessions"`
	AbsentSessions       int        `json:"absentSessions"`
	AttendancePercentage int        `json:"attendancePercentage"`
	LastPresentDate      *time.Time `json:"lastPresentDate,omitempty"`
}

// StudentReportsResponse is the per-student aggregate report
type StudentReportsResponse struct {
	Students      []StudentReport `json:"students"`
	TotalSessions int             `json:"totalSessions"`
}

// UpdateLocationRequest attaches or replaces a session's location snapshot
type UpdateLocationRequest struct {
	Latitude  float64  `json:"latitude" binding:"required"`
	Longitude float64  `json:"longitude" binding:"required"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   *string  `json:"address,omitempty"`
}
