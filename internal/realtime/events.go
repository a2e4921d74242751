package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/campusroll/rollcall/internal/app/models"
)

// EventType identifies a sync-channel event. The set is closed: every event a
// server can push is one of these, so clients can match exhaustively.
type EventType string

const (
	// EventTimetableUpdated tells clients to replace their cached timetable
	EventTimetableUpdated EventType = "timetable_updated"
	// EventStudentsUpdated tells clients to re-run roster/status checks
	EventStudentsUpdated EventType = "students_updated"
	// EventCaptureRequest asks a device to present a face-capture UI
	EventCaptureRequest EventType = "capture_request"
	// EventDevicesUpdated carries the full device list for trust recompute
	EventDevicesUpdated EventType = "devices_updated"
	// EventForceLogout revokes one device's local session, non-negotiably
	EventForceLogout EventType = "force_logout"
	// EventAuditLog carries a freshly recorded audit trail entry
	EventAuditLog EventType = "new_audit_log"
)

// TimetableUpdated replaces the cached timetable wholesale.
type TimetableUpdated struct {
	Timetable []models.TimetableDay `json:"timetable"`
}

// StudentsUpdated invalidates roster state. Subject/Section narrow the scope;
// both empty means "re-check whatever you have resolved".
type StudentsUpdated struct {
	Subject string `json:"subject,omitempty"`
	Section string `json:"section,omitempty"`
}

// CaptureRequest asks a connected device to capture a face sample for one
// student. The result is uploaded over the ordinary request path.
type CaptureRequest struct {
	StudentID  int64  `json:"studentId"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Subject    string `json:"subject"`
	Section    string `json:"section"`
}

// DevicesUpdated carries the authoritative device list; each device locates
// itself by normalized id and recomputes local trust.
type DevicesUpdated struct {
	Devices []models.Device `json:"devices"`
}

// ForceLogout orders the named device to purge all local session state.
type ForceLogout struct {
	DeviceID string `json:"deviceId"`
}

// AuditLogCreated announces one new entry in the faculty's audit trail.
type AuditLogCreated struct {
	Log models.AuditLog `json:"log"`
}

// Envelope is the wire shape of every pushed event.
type Envelope struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps a typed payload into a marshaled envelope.
func Encode(eventType EventType, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Event: eventType, Payload: raw})
}

// Decode parses an envelope and returns its typed payload: one of
// *TimetableUpdated, *StudentsUpdated, *CaptureRequest, *DevicesUpdated,
// *ForceLogout, *AuditLogCreated.
func Decode(data []byte) (EventType, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var payload interface{}
	switch env.Event {
	case EventTimetableUpdated:
		payload = &TimetableUpdated{}
	case EventStudentsUpdated:
		payload = &StudentsUpdated{}
	case EventCaptureRequest:
		payload = &CaptureRequest{}
	case EventDevicesUpdated:
		payload = &DevicesUpdated{}
	case EventForceLogout:
		payload = &ForceLogout{}
	case EventAuditLog:
		payload = &AuditLogCreated{}
	default:
		return env.Event, nil, fmt.Errorf("unknown event type %q", env.Event)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return env.Event, nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
	}
	return env.Event, payload, nil
}
