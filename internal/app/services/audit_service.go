package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/realtime"
)

// Audited action names
const (
	AuditLogin          = "LOGIN"
	AuditPasswordChange = "PASSWORD_CHANGE"
	AuditDeviceTrusted  = "DEVICE_TRUSTED"
	AuditDeviceRevoked  = "DEVICE_REVOKED"
	AuditDeviceRemoved  = "DEVICE_REMOVED"
)

// AuditStore is the audit trail persistence surface
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListForFaculty(ctx context.Context, facultyID int64) ([]models.AuditLog, error)
}

// AuditService keeps a per-faculty trail of security-relevant actions.
// New entries are pushed over the realtime channel so open dashboards
// update without polling.
type AuditService struct {
	store     AuditStore
	publisher Publisher
	logger    zerolog.Logger
}

func NewAuditService(store AuditStore, publisher Publisher, logger zerolog.Logger) *AuditService {
	return &AuditService{store: store, publisher: publisher, logger: logger}
}

// Record appends one entry. Recording is best-effort: a failed write is
// logged and never fails the action it describes.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if entry.FacultyID == 0 || entry.Action == "" {
		return
	}
	if entry.Platform == "" {
		entry.Platform = models.PlatformWeb
	}
	entry.DeviceID = models.NormalizeDeviceID(entry.DeviceID)

	if err := s.store.Insert(ctx, &entry); err != nil {
		s.logger.Error().Err(err).
			Int64("facultyID", entry.FacultyID).
			Str("action", entry.Action).
			Msg("Failed to record audit log")
		return
	}
	s.publisher.Publish(entry.FacultyID, realtime.EventAuditLog, realtime.AuditLogCreated{Log: entry})
}

// List returns the faculty's recent trail, newest first
func (s *AuditService) List(ctx context.Context, facultyID int64) ([]models.AuditLog, error) {
	return s.store.ListForFaculty(ctx, facultyID)
}

// ToAuditLogResponses maps audit entries to their public shape
func ToAuditLogResponses(logs []models.AuditLog) []dto.AuditLogResponse {
	out := make([]dto.AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.AuditLogResponse{
			ID:         l.ID,
			Action:     l.Action,
			Details:    l.Details,
			Platform:   l.Platform,
			DeviceID:   l.DeviceID,
			DeviceName: l.DeviceName,
			IPAddress:  l.IPAddress,
			Timestamp:  l.CreatedAt,
		})
	}
	return out
}
