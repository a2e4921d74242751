package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/campusroll/rollcall/internal/app/models/dto"
)

// APIError carries a decoded server error envelope
type APIError struct {
	StatusCode int
	Code       dto.ErrorCode
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// API is a typed client for the attendance backend. It rides on
// Transport so calls fail over between candidate servers, and tags
// every request with the device identity.
type API struct {
	transport *Transport
	device    *DeviceIdentity

	// The sync client reads the token from its own goroutine on every
	// reconnect while logins and refreshes rewrite it.
	mu    sync.RWMutex
	token string
}

// NewAPI builds a client over the transport. The device identity is
// sent on every request so the server can enforce device trust.
func NewAPI(transport *Transport, device *DeviceIdentity) *API {
	return &API{transport: transport, device: device}
}

// SetToken installs the bearer token used for authenticated calls
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// Token returns the current access token, if any
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) headers(withBody bool) http.Header {
	h := http.Header{}
	if withBody {
		h.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if a.device != nil && a.device.ID != "" {
		h.Set("X-Device-Id", a.device.ID)
	}
	return h
}

// call issues a request and decodes the success envelope's data field
// into out. Non-2xx responses decode into an *APIError.
func (a *API) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := a.transport.Do(ctx, method, path, payload, a.headers(body != nil))
	if err != nil {
		return err
	}
	raw, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope dto.ErrorResponse
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Login authenticates and installs the returned access token. The
// device id and name are attached so the server registers this device.
func (a *API) Login(ctx context.Context, username, password, deviceName string) (*dto.LoginResponse, error) {
	req := dto.LoginRequest{
		Username:   username,
		Password:   password,
		DeviceName: deviceName,
	}
	if a.device != nil {
		req.DeviceID = a.device.ID
	}
	var result dto.LoginResponse
	if err := a.call(ctx, http.MethodPost, "/api/v1/auth/login", req, &result); err != nil {
		return nil, err
	}
	a.SetToken(result.Tokens.AccessToken)
	return &result, nil
}

// Refresh exchanges a refresh token for a new token pair
func (a *API) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	var result dto.TokenResponse
	err := a.call(ctx, http.MethodPost, "/api/v1/auth/refresh", dto.RefreshTokenRequest{RefreshToken: refreshToken}, &result)
	if err != nil {
		return nil, err
	}
	a.SetToken(result.AccessToken)
	return &result, nil
}

// Logout revokes the refresh token server-side and clears the local
// access token
func (a *API) Logout(ctx context.Context, refreshToken string) error {
	err := a.call(ctx, http.MethodPost, "/api/v1/auth/logout", dto.RefreshTokenRequest{RefreshToken: refreshToken}, nil)
	if err != nil {
		return err
	}
	a.SetToken("")
	return nil
}

// StartSession opens (or rejoins) today's session for a class group
func (a *API) StartSession(ctx context.Context, req dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	var result dto.StartSessionResponse
	if err := a.call(ctx, http.MethodPost, "/api/v1/attendance/start", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Mark submits a face capture against a session
func (a *API) Mark(ctx context.Context, sessionID int64, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	var result dto.MarkAttendanceResponse
	path := fmt.Sprintf("/api/v1/attendance/%d/mark", sessionID)
	if err := a.call(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status reports whether today's session exists for a class group
func (a *API) Status(ctx context.Context, subject, section, sessionType string) (*dto.StatusResponse, error) {
	query := url.Values{}
	query.Set("subject", subject)
	query.Set("section", section)
	query.Set("sessionType", sessionType)
	var result dto.StatusResponse
	if err := a.call(ctx, http.MethodGet, "/api/v1/attendance/status?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Session fetches a session with its full attendance record list
func (a *API) Session(ctx context.Context, sessionID int64) (*dto.SessionDetailResponse, error) {
	var result dto.SessionDetailResponse
	path := fmt.Sprintf("/api/v1/attendance/%d", sessionID)
	if err := a.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reports lists past sessions, optionally filtered by class group and
// date range (dates formatted as 2006-01-02)
func (a *API) Reports(ctx context.Context, q dto.ReportsQuery) (*dto.ReportsResponse, error) {
	query := url.Values{}
	if q.Subject != "" {
		query.Set("subject", q.Subject)
	}
	if q.Section != "" {
		query.Set("section", q.Section)
	}
	if q.StartDate != "" {
		query.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		query.Set("endDate", q.EndDate)
	}
	path := "/api/v1/attendance/reports"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var result dto.ReportsResponse
	if err := a.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Live asks which timetable slot is active right now
func (a *API) Live(ctx context.Context) (*dto.LiveSessionResponse, error) {
	var result dto.LiveSessionResponse
	if err := a.call(ctx, http.MethodGet, "/api/v1/timetable/live", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// waitBackoff sleeps with context cancellation support
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
