package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/auth"
)

// ── Mock faculty store ──

type mockFacultyStore struct {
	nextID    int64
	faculties map[string]*models.Faculty
}

func newMockFacultyStore() *mockFacultyStore {
	return &mockFacultyStore{nextID: 1, faculties: make(map[string]*models.Faculty)}
}

func (m *mockFacultyStore) Create(_ context.Context, faculty *models.Faculty) (int64, error) {
	if _, taken := m.faculties[faculty.Username]; taken {
		return 0, apperrors.ErrUsernameAlreadyTaken
	}
	faculty.ID = m.nextID
	m.nextID++
	m.faculties[faculty.Username] = faculty
	return faculty.ID, nil
}

func (m *mockFacultyStore) GetByID(_ context.Context, id int64) (*models.Faculty, error) {
	for _, f := range m.faculties {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, apperrors.ErrFacultyNotFound
}

func (m *mockFacultyStore) GetByUsername(_ context.Context, username string) (*models.Faculty, error) {
	if f, ok := m.faculties[username]; ok {
		return f, nil
	}
	return nil, apperrors.ErrFacultyNotFound
}

func (m *mockFacultyStore) UpdatePassword(_ context.Context, id int64, hashedPassword string) error {
	for _, f := range m.faculties {
		if f.ID == id {
			f.Password = hashedPassword
			return nil
		}
	}
	return apperrors.ErrFacultyNotFound
}

// ── Mock token store ──

type mockTokenStore struct {
	tokens map[string]*repositories.RefreshToken
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]*repositories.RefreshToken)}
}

func (m *mockTokenStore) Save(_ context.Context, facultyID int64, deviceID, token string, expiresAt time.Time) error {
	for t, stored := range m.tokens {
		if stored.FacultyID == facultyID && stored.DeviceID == deviceID {
			delete(m.tokens, t)
		}
	}
	m.tokens[token] = &repositories.RefreshToken{
		FacultyID: facultyID,
		DeviceID:  deviceID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m *mockTokenStore) Get(_ context.Context, token string) (*repositories.RefreshToken, error) {
	stored, ok := m.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	if time.Now().After(stored.ExpiresAt) {
		delete(m.tokens, token)
		return nil, apperrors.ErrTokenExpired
	}
	return stored, nil
}

func (m *mockTokenStore) Delete(_ context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func (m *mockTokenStore) DeleteForDevice(_ context.Context, facultyID int64, deviceID string) error {
	for t, stored := range m.tokens {
		if stored.FacultyID == facultyID && stored.DeviceID == deviceID {
			delete(m.tokens, t)
		}
	}
	return nil
}

// ── Mock device store ──

type mockDeviceStore struct {
	nextID  int64
	devices []*models.Device
}

func (m *mockDeviceStore) Upsert(_ context.Context, facultyID int64, deviceID, deviceName string) (*models.Device, error) {
	deviceID = models.NormalizeDeviceID(deviceID)
	for _, d := range m.devices {
		if d.FacultyID == facultyID && d.DeviceID == deviceID {
			d.DeviceName = deviceName
			now := time.Now()
			d.LastLogin = &now
			return d, nil
		}
	}
	first := true
	for _, d := range m.devices {
		if d.FacultyID == facultyID {
			first = false
			break
		}
	}
	m.nextID++
	now := time.Now()
	device := &models.Device{
		ID:         m.nextID,
		FacultyID:  facultyID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IsTrusted:  first,
		LastLogin:  &now,
	}
	m.devices = append(m.devices, device)
	return device, nil
}

func (m *mockDeviceStore) GetByDeviceID(_ context.Context, facultyID int64, deviceID string) (*models.Device, error) {
	deviceID = models.NormalizeDeviceID(deviceID)
	for _, d := range m.devices {
		if d.FacultyID == facultyID && d.DeviceID == deviceID {
			return d, nil
		}
	}
	return nil, apperrors.ErrDeviceNotFound
}

// ── Tests ──

func newTestAuthService() (*AuthService, *mockFacultyStore, *mockTokenStore, *mockDeviceStore) {
	faculties := newMockFacultyStore()
	tokens := newMockTokenStore()
	devices := &mockDeviceStore{}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret-key-for-units-only",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "rollcall.test",
	})
	svc := NewAuthService(faculties, tokens, devices, jwtService, zerolog.Nop())
	return svc, faculties, tokens, devices
}

func registerAndLogin(t *testing.T, svc *AuthService, deviceID string) *dto.LoginResponse {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Register(ctx, &dto.RegisterRequest{
		Name:     "Priya Sharma",
		Email:    "priya@college.edu",
		Username: "priya",
		Password: "correct-horse",
	})
	if err != nil && !errors.Is(err, apperrors.ErrUsernameAlreadyTaken) {
		t.Fatalf("Register failed: %v", err)
	}
	resp, err := svc.Login(ctx, &dto.LoginRequest{
		Username:   "priya",
		Password:   "correct-horse",
		DeviceID:   deviceID,
		DeviceName: "Staff Room Tablet",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return resp
}

func TestLoginIssuesDeviceBoundTokens(t *testing.T) {
	svc, _, tokens, _ := newTestAuthService()

	resp := registerAndLogin(t, svc, "Tablet-01")
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if resp.Device.DeviceID != "tablet-01" {
		t.Errorf("device id not normalized: %q", resp.Device.DeviceID)
	}
	if !resp.Device.IsTrusted {
		t.Error("first device must be auto-trusted")
	}

	stored, err := tokens.Get(context.Background(), resp.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token not persisted: %v", err)
	}
	if stored.DeviceID != "tablet-01" {
		t.Errorf("refresh token bound to %q, want tablet-01", stored.DeviceID)
	}
}

func TestLoginSecondDeviceUntrusted(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	registerAndLogin(t, svc, "tablet-01")
	resp, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "priya",
		Password: "correct-horse",
		DeviceID: "tablet-02",
	})
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if resp.Device.IsTrusted {
		t.Error("second device must start untrusted")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	registerAndLogin(t, svc, "tablet-01")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "priya",
		Password: "wrong",
		DeviceID: "tablet-01",
	})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "nobody",
		Password: "whatever",
		DeviceID: "tablet-01",
	})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("unknown user must look like bad credentials, got %v", err)
	}
}

func TestLoginRequiresDeviceID(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "priya",
		Password: "correct-horse",
		DeviceID: "   ",
	})
	if !errors.Is(err, apperrors.ErrDeviceIDMissing) {
		t.Fatalf("expected ErrDeviceIDMissing, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens, _ := newTestAuthService()
	ctx := context.Background()

	login := registerAndLogin(t, svc, "tablet-01")
	rotated, err := svc.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rotated.RefreshToken == login.Tokens.RefreshToken {
		t.Error("refresh must rotate the token")
	}
	if _, err := tokens.Get(ctx, login.Tokens.RefreshToken); !errors.Is(err, apperrors.ErrTokenNotFound) {
		t.Error("old refresh token must be consumed")
	}
}

func TestRefreshFailsForRemovedDevice(t *testing.T) {
	svc, _, tokens, devices := newTestAuthService()
	ctx := context.Background()

	login := registerAndLogin(t, svc, "tablet-01")
	devices.devices = nil // device removed from the account

	_, err := svc.Refresh(ctx, login.Tokens.RefreshToken)
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := tokens.Get(ctx, login.Tokens.RefreshToken); err == nil {
		t.Error("token for a removed device must be consumed")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.RegisterRequest
	}{
		{"empty name", dto.RegisterRequest{Email: "a@b.co", Username: "abc", Password: "longenough"}},
		{"bad email", dto.RegisterRequest{Name: "A", Email: "not-an-email", Username: "abc", Password: "longenough"}},
		{"short username", dto.RegisterRequest{Name: "A", Email: "a@b.co", Username: "ab", Password: "longenough"}},
		{"short password", dto.RegisterRequest{Name: "A", Email: "a@b.co", Username: "abc", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, &tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	login := registerAndLogin(t, svc, "tablet-01")
	facultyID := login.Faculty.ID

	err := svc.ChangePassword(ctx, facultyID, &dto.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "brand-new-password",
	})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}

	err = svc.ChangePassword(ctx, facultyID, &dto.ChangePasswordRequest{
		CurrentPassword: "correct-horse",
		NewPassword:     "brand-new-password",
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := svc.Login(ctx, &dto.LoginRequest{
		Username: "priya", Password: "correct-horse", DeviceID: "tablet-01",
	}); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Error("old password must stop working")
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{
		Username: "priya", Password: "brand-new-password", DeviceID: "tablet-01",
	}); err != nil {
		t.Errorf("new password must work: %v", err)
	}
}
