package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/realtime"
)

// Publisher pushes events to a faculty's connected devices
type Publisher interface {
	Publish(facultyID int64, eventType realtime.EventType, payload interface{})
}

// DeviceManagementStore is the full device persistence surface
type DeviceManagementStore interface {
	DeviceStore
	ListForFaculty(ctx context.Context, facultyID int64) ([]models.Device, error)
	SetTrusted(ctx context.Context, facultyID, id int64, trusted bool) (*models.Device, error)
	Rename(ctx context.Context, facultyID, id int64, name string) (*models.Device, error)
	Delete(ctx context.Context, facultyID, id int64) (*models.Device, error)
}

// DeviceService manages device registrations and trust. Trust changes
// fan out over the realtime channel so every connected device converges
// on the new state; revocation also forces the affected device out.
type DeviceService struct {
	deviceStore DeviceManagementStore
	tokenStore  TokenStore
	publisher   Publisher
	logger      zerolog.Logger
}

func NewDeviceService(
	deviceStore DeviceManagementStore,
	tokenStore TokenStore,
	publisher Publisher,
	logger zerolog.Logger,
) *DeviceService {
	return &DeviceService{
		deviceStore: deviceStore,
		tokenStore:  tokenStore,
		publisher:   publisher,
		logger:      logger,
	}
}

// List returns all of the faculty's registered devices
func (s *DeviceService) List(ctx context.Context, facultyID int64) ([]models.Device, error) {
	return s.deviceStore.ListForFaculty(ctx, facultyID)
}

// SetTrusted toggles a device's trusted flag. Revoking trust purges the
// device's refresh tokens and pushes a force logout at it.
func (s *DeviceService) SetTrusted(ctx context.Context, facultyID, id int64, trusted bool) (*models.Device, error) {
	device, err := s.deviceStore.SetTrusted(ctx, facultyID, id, trusted)
	if err != nil {
		return nil, err
	}

	if !trusted {
		if err := s.tokenStore.DeleteForDevice(ctx, facultyID, device.DeviceID); err != nil {
			s.logger.Error().Err(err).Str("deviceId", device.DeviceID).Msg("Failed to purge tokens for revoked device")
		}
		s.publisher.Publish(facultyID, realtime.EventForceLogout, realtime.ForceLogout{DeviceID: device.DeviceID})
	}

	s.broadcastDevices(ctx, facultyID)
	s.logger.Info().
		Int64("facultyID", facultyID).
		Str("deviceId", device.DeviceID).
		Bool("trusted", trusted).
		Msg("Device trust updated")
	return device, nil
}

// Rename changes a device's display name
func (s *DeviceService) Rename(ctx context.Context, facultyID, id int64, name string) (*models.Device, error) {
	device, err := s.deviceStore.Rename(ctx, facultyID, id, name)
	if err != nil {
		return nil, err
	}
	s.broadcastDevices(ctx, facultyID)
	return device, nil
}

// Remove deletes a device registration, purging its tokens and forcing
// it out of any live session
func (s *DeviceService) Remove(ctx context.Context, facultyID, id int64) error {
	device, err := s.deviceStore.Delete(ctx, facultyID, id)
	if err != nil {
		return err
	}

	if err := s.tokenStore.DeleteForDevice(ctx, facultyID, device.DeviceID); err != nil {
		s.logger.Error().Err(err).Str("deviceId", device.DeviceID).Msg("Failed to purge tokens for removed device")
	}
	s.publisher.Publish(facultyID, realtime.EventForceLogout, realtime.ForceLogout{DeviceID: device.DeviceID})
	s.broadcastDevices(ctx, facultyID)

	s.logger.Info().Int64("facultyID", facultyID).Str("deviceId", device.DeviceID).Msg("Device removed")
	return nil
}

// CheckTrusted verifies that the named device exists and is trusted.
// Identifiers are compared in normalized form.
func (s *DeviceService) CheckTrusted(ctx context.Context, facultyID int64, deviceID string) error {
	deviceID = models.NormalizeDeviceID(deviceID)
	if deviceID == "" {
		return apperrors.ErrDeviceIDMissing
	}
	device, err := s.deviceStore.GetByDeviceID(ctx, facultyID, deviceID)
	if err != nil {
		return err
	}
	if !device.IsTrusted {
		return apperrors.ErrDeviceUntrusted
	}
	return nil
}

func (s *DeviceService) broadcastDevices(ctx context.Context, facultyID int64) {
	devices, err := s.deviceStore.ListForFaculty(ctx, facultyID)
	if err != nil {
		s.logger.Error().Err(err).Int64("facultyID", facultyID).Msg("Failed to load devices for broadcast")
		return
	}
	s.publisher.Publish(facultyID, realtime.EventDevicesUpdated, realtime.DevicesUpdated{Devices: devices})
}

// ToDeviceResponses maps devices to their public shape
func ToDeviceResponses(devices []models.Device) []dto.DeviceResponse {
	out := make([]dto.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, dto.DeviceResponse{
			ID:         d.ID,
			DeviceID:   d.DeviceID,
			DeviceName: d.DeviceName,
			IsTrusted:  d.IsTrusted,
			LastLogin:  d.LastLogin,
		})
	}
	return out
}
