package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
)

// DeviceHeader carries the caller's device identifier
const DeviceHeader = "X-Device-Id"

// ContextDeviceID is the normalized device id set by TrustedDevice
const ContextDeviceID = "deviceID"

// TrustChecker verifies a device's trust state
type TrustChecker interface {
	CheckTrusted(ctx context.Context, facultyID int64, deviceID string) error
}

// TrustedDevice gates attendance mutations behind device trust. The
// device identifier arrives in the X-Device-Id header and is compared
// in normalized form. Must run after JWTAuth.
func TrustedDevice(checker TrustChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		facultyID, ok := FacultyID(c)
		if !ok {
			detail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(detail))
			return
		}

		deviceID := models.NormalizeDeviceID(c.GetHeader(DeviceHeader))
		if deviceID == "" {
			detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Device id required").
				WithField("X-Device-Id")
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
			return
		}

		if err := checker.CheckTrusted(c.Request.Context(), facultyID, deviceID); err != nil {
			status := http.StatusForbidden
			code := dto.ErrorCodeDeviceUntrusted
			message := "This device is not trusted for attendance operations"
			if apperrors.Is(err, apperrors.ErrDeviceNotFound) {
				status = http.StatusNotFound
				code = dto.ErrorCodeDeviceNotFound
				message = "Device not registered"
			}
			c.AbortWithStatusJSON(status, dto.NewErrorResponse(dto.NewErrorDetail(code, message)))
			return
		}

		c.Set(ContextDeviceID, deviceID)
		c.Next()
	}
}
