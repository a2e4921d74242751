package models

import (
	"strings"
	"time"
)

// Faculty defines the faculty account model based on the 'faculties' table
type Faculty struct {
	ID        int64     `json:"id" db:"id" example:"1"`
	Name      string    `json:"name" db:"name" example:"Dr. Anita Rao"`
	Email     string    `json:"email" db:"email" example:"anita.rao@college.edu"`
	Username  string    `json:"username" db:"username" example:"anita.rao"`
	Password  string    `json:"-" db:"password"` // Hashed, excluded from JSON
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SessionType enumerates the kinds of timetable sessions
type SessionType string

const (
	SessionLecture   SessionType = "Lecture"
	SessionTutorial  SessionType = "Tutorial"
	SessionPractical SessionType = "Practical"
	SessionSkill     SessionType = "Skill"
)

// ValidSessionType reports whether t is one of the known session types
func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionLecture, SessionTutorial, SessionPractical, SessionSkill:
		return true
	}
	return false
}

// Device defines a faculty-owned device based on the 'devices' table.
// DeviceID is generated client-side and compared normalized.
type Device struct {
	ID         int64     `json:"-" db:"id"`
	FacultyID  int64     `json:"-" db:"faculty_id"`
	DeviceID   string    `json:"deviceId" db:"device_id"`
	DeviceName string    `json:"deviceName" db:"device_name"`
	IsTrusted  bool      `json:"isTrusted" db:"is_trusted"`
	LastLogin  *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

// Platform names the kind of client that performed an audited action
const (
	PlatformWeb    = "Web"
	PlatformMobile = "Mobile"
)

// AuditLog records one security-relevant faculty action based on the
// 'audit_logs' table
type AuditLog struct {
	ID         int64     `json:"id" db:"id"`
	FacultyID  int64     `json:"-" db:"faculty_id"`
	Action     string    `json:"action" db:"action"`
	Details    string    `json:"details" db:"details"`
	Platform   string    `json:"platform" db:"platform"`
	DeviceID   string    `json:"deviceId,omitempty" db:"device_id"`
	DeviceName string    `json:"deviceName,omitempty" db:"device_name"`
	IPAddress  string    `json:"ipAddress,omitempty" db:"ip_address"`
	CreatedAt  time.Time `json:"timestamp" db:"created_at"`
}

// NormalizeDeviceID trims whitespace and lowercases a device identifier.
// All device id comparisons go through this.
func NormalizeDeviceID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SameDevice reports whether two device identifiers refer to the same device
func SameDevice(a, b string) bool {
	return NormalizeDeviceID(a) != "" && NormalizeDeviceID(a) == NormalizeDeviceID(b)
}
