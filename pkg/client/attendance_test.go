package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/campusroll/rollcall/internal/app/models/dto"
)

func newTestAPI(serverURL string) *API {
	tr := NewTransport([]string{serverURL}, nil, 5*time.Second)
	return NewAPI(tr, &DeviceIdentity{ID: "tablet-01"})
}

func TestLoginSendsDeviceAndStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req dto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad login body: %v", err)
		}
		if req.DeviceID != "tablet-01" {
			t.Errorf("expected device id tablet-01, got %q", req.DeviceID)
		}
		json.NewEncoder(w).Encode(dto.NewAPIResponse(dto.LoginResponse{
			Tokens: dto.TokenResponse{AccessToken: "access-abc", RefreshToken: "refresh-def"},
		}))
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	resp, err := api.Login(context.Background(), "priya", "correct-horse", "Staff Tablet")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Tokens.AccessToken != "access-abc" {
		t.Errorf("token not decoded: %+v", resp.Tokens)
	}
	if api.Token() != "access-abc" {
		t.Errorf("access token not installed, got %q", api.Token())
	}
}

func TestAuthenticatedCallCarriesHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-abc" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if got := r.Header.Get("X-Device-Id"); got != "tablet-01" {
			t.Errorf("missing device header, got %q", got)
		}
		json.NewEncoder(w).Encode(dto.NewAPIResponse(dto.StartSessionResponse{SessionID: 9, TotalStudents: 3}))
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	api.SetToken("access-abc")

	resp, err := api.StartSession(context.Background(), dto.StartSessionRequest{
		Subject: "Physics", Section: "A", SessionType: "Lecture", Hours: []int{3, 4},
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if resp.SessionID != 9 || resp.TotalStudents != 3 {
		t.Errorf("response not decoded: %+v", resp)
	}
}

func TestTokenConcurrentAccess(t *testing.T) {
	api := newTestAPI("http://127.0.0.1:1")

	// Writers and readers share the token exactly like the sync client
	// reconnect loop racing a refresh; must be clean under -race.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				api.SetToken(fmt.Sprintf("token-%d-%d", n, j))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = api.Token()
			}
		}()
	}
	wg.Wait()

	if api.Token() == "" {
		t.Error("expected a token to survive the writers")
	}
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeDeviceUntrusted, "This device is not trusted.")))
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	_, err := api.Status(context.Background(), "Physics", "A", "Lecture")
	if err == nil {
		t.Fatal("expected an error for the 403")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", apiErr.StatusCode)
	}
	if apiErr.Code != dto.ErrorCodeDeviceUntrusted {
		t.Errorf("expected DEV_001, got %s", apiErr.Code)
	}
}

func TestMarkDecodesAlreadyPresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/attendance/7/mark" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(dto.NewAPIResponse(dto.MarkAttendanceResponse{
			Student:        dto.MarkedStudent{ID: 2, Confidence: 0.93},
			Attendance:     dto.AttendanceCounts{Present: 1, Absent: 2, Total: 3},
			AlreadyPresent: true,
		}))
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	resp, err := api.Mark(context.Background(), 7, dto.MarkAttendanceRequest{FaceDescriptor: []float64{1, 0}})
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if !resp.AlreadyPresent || resp.Student.ID != 2 {
		t.Errorf("response not decoded: %+v", resp)
	}
}
