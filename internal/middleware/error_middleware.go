package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// HandleAPIError maps service errors onto HTTP responses. Controllers
// funnel every error through here so status codes and error codes stay
// consistent across the API.
func HandleAPIError(c *gin.Context, err error) {
	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		handleSentinel(c, custom.Err, custom.Message)
		return
	}
	handleSentinel(c, err, "")
}

func handleSentinel(c *gin.Context, err error, message string) {
	respond := func(status int, code dto.ErrorCode, fallback string) {
		if message == "" {
			message = fallback
		}
		c.JSON(status, dto.NewErrorResponse(dto.NewErrorDetail(code, message)))
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		respond(http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		respond(http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		respond(http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrTokenNotFound):
		respond(http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		respond(http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied")
	case errors.Is(err, apperrors.ErrDeviceUntrusted):
		respond(http.StatusForbidden, dto.ErrorCodeDeviceUntrusted, "This device is not trusted for attendance operations")
	case errors.Is(err, apperrors.ErrDeviceIDMissing):
		respond(http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Device id required")
	case errors.Is(err, apperrors.ErrDeviceNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeDeviceNotFound, "Device not found")
	case errors.Is(err, apperrors.ErrSessionNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeSessionNotFound, "Attendance session not found")
	case errors.Is(err, apperrors.ErrRosterEmpty):
		respond(http.StatusNotFound, dto.ErrorCodeRosterEmpty, "No students enrolled in this subject and section")
	case errors.Is(err, apperrors.ErrNoFaceDetected):
		respond(http.StatusUnprocessableEntity, dto.ErrorCodeNoFaceDetected, "No face detected in the sample")
	case errors.Is(err, apperrors.ErrNoMatch):
		respond(http.StatusNotFound, dto.ErrorCodeNoMatch, "No matching student found")
	case errors.Is(err, apperrors.ErrStudentNotInRoster):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Student is not part of this session")
	case errors.Is(err, apperrors.ErrTooManyStarts):
		respond(http.StatusTooManyRequests, dto.ErrorCodeTooManyStarts, "Session started too recently, slow down")
	case errors.Is(err, apperrors.ErrStudentNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Student not found")
	case errors.Is(err, apperrors.ErrFacultyNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Faculty not found")
	case errors.Is(err, apperrors.ErrRollNumberExists):
		respond(http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Roll number already registered for this section")
	case errors.Is(err, apperrors.ErrUsernameAlreadyTaken):
		respond(http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Username already taken")
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		respond(http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists")
	case errors.Is(err, apperrors.ErrDescriptorMissing):
		respond(http.StatusUnprocessableEntity, dto.ErrorCodeValidationFailed, "Student has no enrolled face descriptor")
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		respond(http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed")
	case errors.Is(err, apperrors.ErrResourceNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrResourceAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		respond(http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists")
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled API error")
		respond(http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error")
	}
}

// HandleValidationError maps gin binding failures to a 400 response
func HandleValidationError(c *gin.Context, err error) {
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body").
		WithDetails(err.Error())
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
}
