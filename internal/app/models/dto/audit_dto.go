package dto

import "time"

// AuditLogResponse is the public shape of one audit trail entry
type AuditLogResponse struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	Platform   string    `json:"platform"`
	DeviceID   string    `json:"deviceId,omitempty"`
	DeviceName string    `json:"deviceName,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuditLogListResponse lists a faculty's recent audit entries
type AuditLogListResponse struct {
	Logs []AuditLogResponse `json:"logs"`
}
