package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/auth"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// FacultyStore is the faculty persistence surface the auth service needs
type FacultyStore interface {
	Create(ctx context.Context, faculty *models.Faculty) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Faculty, error)
	GetByUsername(ctx context.Context, username string) (*models.Faculty, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
}

// TokenStore persists refresh tokens
type TokenStore interface {
	Save(ctx context.Context, facultyID int64, deviceID, token string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*repositories.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteForDevice(ctx context.Context, facultyID int64, deviceID string) error
}

// DeviceStore is the device persistence surface the auth service needs
type DeviceStore interface {
	Upsert(ctx context.Context, facultyID int64, deviceID, deviceName string) (*models.Device, error)
	GetByDeviceID(ctx context.Context, facultyID int64, deviceID string) (*models.Device, error)
}

// AuthService handles faculty registration, login and token rotation.
// Every login is bound to a device; the refresh token it issues only
// refreshes for that same device.
type AuthService struct {
	facultyStore FacultyStore
	tokenStore   TokenStore
	deviceStore  DeviceStore
	jwtService   *auth.JWTService
	logger       zerolog.Logger
}

func NewAuthService(
	facultyStore FacultyStore,
	tokenStore TokenStore,
	deviceStore DeviceStore,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		facultyStore: facultyStore,
		tokenStore:   tokenStore,
		deviceStore:  deviceStore,
		jwtService:   jwtService,
		logger:       logger,
	}
}

func (s *AuthService) validateRegistration(req *dto.RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewBadRequestError("name cannot be empty")
	}
	if !emailRegex.MatchString(req.Email) {
		return apperrors.NewBadRequestError("invalid email format")
	}
	if len(req.Username) < 3 {
		return apperrors.NewBadRequestError("username must be at least 3 characters")
	}
	if len(req.Password) < 8 {
		return apperrors.NewBadRequestError("password must be at least 8 characters")
	}
	return nil
}

// Register creates a new faculty account
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*models.Faculty, error) {
	if err := s.validateRegistration(req); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return nil, err
	}

	faculty := &models.Faculty{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Password: hashed,
	}
	if _, err := s.facultyStore.Create(ctx, faculty); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("facultyID", faculty.ID).Str("username", faculty.Username).Msg("Faculty registered")
	return faculty, nil
}

// Login verifies credentials, registers the calling device and issues a
// token pair bound to it
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	deviceID := models.NormalizeDeviceID(req.DeviceID)
	if deviceID == "" {
		return nil, apperrors.ErrDeviceIDMissing
	}

	faculty, err := s.facultyStore.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrFacultyNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(faculty.Password, req.Password) {
		s.logger.Warn().Str("username", req.Username).Msg("Login failed, wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}

	device, err := s.deviceStore.Upsert(ctx, faculty.ID, deviceID, req.DeviceName)
	if err != nil {
		return nil, err
	}

	accessToken, refreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(faculty)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token pair")
		return nil, err
	}

	if err := s.tokenStore.Save(ctx, faculty.ID, device.DeviceID, refreshToken, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("facultyID", faculty.ID).
		Str("deviceId", device.DeviceID).
		Bool("trusted", device.IsTrusted).
		Msg("Faculty logged in")

	return &dto.LoginResponse{
		Faculty: dto.FacultyProfile{
			ID:       faculty.ID,
			Name:     faculty.Name,
			Email:    faculty.Email,
			Username: faculty.Username,
		},
		Tokens: dto.TokenResponse{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			ExpiresIn:        int64(expiresIn),
			RefreshExpiresIn: int64(refreshExpiresIn),
		},
		Device: dto.DeviceResponse{
			ID:         device.ID,
			DeviceID:   device.DeviceID,
			DeviceName: device.DeviceName,
			IsTrusted:  device.IsTrusted,
			LastLogin:  device.LastLogin,
		},
	}, nil
}

// Refresh rotates a refresh token into a new pair. The old token is
// consumed whether or not rotation succeeds past validation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	stored, err := s.tokenStore.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	faculty, err := s.facultyStore.GetByID(ctx, stored.FacultyID)
	if err != nil {
		return nil, err
	}

	// The device must still be registered; a removed device cannot
	// silently keep a session alive through its refresh token.
	if _, err := s.deviceStore.GetByDeviceID(ctx, faculty.ID, stored.DeviceID); err != nil {
		_ = s.tokenStore.Delete(ctx, refreshToken)
		return nil, apperrors.ErrTokenInvalid
	}

	accessToken, newRefreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(faculty)
	if err != nil {
		return nil, err
	}

	if err := s.tokenStore.Save(ctx, faculty.ID, stored.DeviceID, newRefreshToken, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:      accessToken,
		RefreshToken:     newRefreshToken,
		ExpiresIn:        int64(expiresIn),
		RefreshExpiresIn: int64(refreshExpiresIn),
	}, nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *AuthService) ChangePassword(ctx context.Context, facultyID int64, req *dto.ChangePasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return apperrors.NewBadRequestError("password must be at least 8 characters")
	}

	faculty, err := s.facultyStore.GetByID(ctx, facultyID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(faculty.Password, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return err
	}
	if err := s.facultyStore.UpdatePassword(ctx, facultyID, hashed); err != nil {
		return err
	}

	s.logger.Info().Int64("facultyID", facultyID).Msg("Password changed")
	return nil
}

// Logout discards the device's refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokenStore.Delete(ctx, refreshToken)
}

// Profile returns the public account details
func (s *AuthService) Profile(ctx context.Context, facultyID int64) (*dto.FacultyProfile, error) {
	faculty, err := s.facultyStore.GetByID(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	return &dto.FacultyProfile{
		ID:       faculty.ID,
		Name:     faculty.Name,
		Email:    faculty.Email,
		Username: faculty.Username,
	}, nil
}
