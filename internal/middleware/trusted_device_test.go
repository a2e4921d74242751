package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/pkg/apperrors"
)

type stubTrustChecker struct {
	err       error
	gotDevice string
}

func (s *stubTrustChecker) CheckTrusted(_ context.Context, facultyID int64, deviceID string) error {
	s.gotDevice = deviceID
	return s.err
}

func trustedDeviceRequest(t *testing.T, checker TrustChecker, authenticated bool, deviceHeader string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if authenticated {
		router.Use(func(c *gin.Context) {
			c.Set(ContextFacultyID, int64(1))
			c.Next()
		})
	}
	router.Use(TrustedDevice(checker))
	router.POST("/start", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/start", nil)
	if deviceHeader != "" {
		req.Header.Set(DeviceHeader, deviceHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTrustedDeviceAllowsTrusted(t *testing.T) {
	checker := &stubTrustChecker{}
	w := trustedDeviceRequest(t, checker, true, "Tablet-01")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if checker.gotDevice != "tablet-01" {
		t.Errorf("device id not normalized before the check: %q", checker.gotDevice)
	}
}

func TestTrustedDeviceRejectsUntrusted(t *testing.T) {
	checker := &stubTrustChecker{err: apperrors.ErrDeviceUntrusted}
	w := trustedDeviceRequest(t, checker, true, "tablet-02")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "DEV_001") {
		t.Errorf("expected DEV_001 in body, got %s", body)
	}
}

func TestTrustedDeviceUnregistered(t *testing.T) {
	checker := &stubTrustChecker{err: apperrors.ErrDeviceNotFound}
	w := trustedDeviceRequest(t, checker, true, "ghost")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "DEV_002") {
		t.Errorf("expected DEV_002 in body, got %s", body)
	}
}

func TestTrustedDeviceMissingHeader(t *testing.T) {
	w := trustedDeviceRequest(t, &stubTrustChecker{}, true, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTrustedDeviceRequiresAuth(t *testing.T) {
	w := trustedDeviceRequest(t, &stubTrustChecker{}, false, "tablet-01")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
