package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
)

// AttendanceController drives the attendance session lifecycle
type AttendanceController struct {
	attendanceService *services.AttendanceService
}

func NewAttendanceController(attendanceService *services.AttendanceService) *AttendanceController {
	return &AttendanceController{attendanceService: attendanceService}
}

func sessionIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid session ID").
			WithDetails("Session ID must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return 0, false
	}
	return id, true
}

// Start creates or returns today's session
// @Summary Start an attendance session
// @Description Creates today's session for the class group, or returns the existing one. Idempotent per day.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Device-Id header string true "Trusted device identifier"
// @Param request body dto.StartSessionRequest true "Class group and hours"
// @Success 200 {object} dto.APIResponse{data=dto.StartSessionResponse} "Session ready"
// @Failure 403 {object} dto.ErrorResponse "Device not trusted"
// @Failure 404 {object} dto.ErrorResponse "No students enrolled"
// @Failure 429 {object} dto.ErrorResponse "Started too recently"
// @Router /attendance/start [post]
func (c *AttendanceController) Start(ctx *gin.Context) {
	var req dto.StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.Start(ctx, facultyID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Mark resolves a face sample and marks the matched student present
// @Summary Mark attendance by face
// @Description Matches the sample against the session roster and flips the matched student to present
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Device-Id header string true "Trusted device identifier"
// @Param id path int true "Session ID"
// @Param request body dto.MarkAttendanceRequest true "Face descriptor or base64 image"
// @Success 200 {object} dto.APIResponse{data=dto.MarkAttendanceResponse} "Marked"
// @Failure 404 {object} dto.ErrorResponse "Session missing or no match"
// @Failure 422 {object} dto.ErrorResponse "No face detected"
// @Router /attendance/{id}/mark [post]
func (c *AttendanceController) Mark(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.Mark(ctx, facultyID, sessionID, &req)
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrNoMatch):
			middleware.CountMark("no_match")
		case apperrors.Is(err, apperrors.ErrNoFaceDetected):
			middleware.CountMark("no_face")
		default:
			middleware.CountMark("error")
		}
		middleware.HandleAPIError(ctx, err)
		return
	}

	if resp.AlreadyPresent {
		middleware.CountMark("already_present")
	} else {
		middleware.CountMark("marked")
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// MarkManual flips one student's presence by hand
// @Summary Mark attendance manually
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Device-Id header string true "Trusted device identifier"
// @Param id path int true "Session ID"
// @Param studentId path int true "Student ID"
// @Param present query bool false "Presence value, defaults to true"
// @Success 200 {object} dto.APIResponse{data=dto.MarkAttendanceResponse} "Updated"
// @Failure 404 {object} dto.ErrorResponse "Session or student not found"
// @Router /attendance/{id}/students/{studentId} [put]
func (c *AttendanceController) MarkManual(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}
	studentID, err := strconv.ParseInt(ctx.Param("studentId"), 10, 64)
	if err != nil || studentID < 1 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student ID")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}
	present := ctx.DefaultQuery("present", "true") == "true"

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.MarkManual(ctx, facultyID, sessionID, studentID, present)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Status probes today's session without creating one
// @Summary Check today's session status
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param subject query string true "Subject"
// @Param section query string true "Section"
// @Param sessionType query string true "Session type"
// @Success 200 {object} dto.APIResponse{data=dto.StatusResponse} "Status"
// @Router /attendance/status [get]
func (c *AttendanceController) Status(ctx *gin.Context) {
	subject := ctx.Query("subject")
	section := ctx.Query("section")
	sessionType := models.SessionType(ctx.Query("sessionType"))
	if subject == "" || section == "" || !models.ValidSessionType(sessionType) {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "subject, section and sessionType are required")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.Status(ctx, facultyID, subject, section, sessionType)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Detail returns a session with its full ledger
// @Summary Get session detail
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} dto.APIResponse{data=dto.SessionDetailResponse} "Session detail"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /attendance/{id} [get]
func (c *AttendanceController) Detail(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}
	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.Detail(ctx, facultyID, sessionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Retake lists students still absent for another recognition pass
// @Summary List absent students for a retake pass
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param X-Device-Id header string true "Trusted device identifier"
// @Param id path int true "Session ID"
// @Success 200 {object} dto.APIResponse "Absent students"
// @Router /attendance/{id}/retake [post]
func (c *AttendanceController) Retake(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}
	facultyID, _ := middleware.FacultyID(ctx)
	records, err := c.attendanceService.Retake(ctx, facultyID, sessionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(gin.H{"absent": records}))
}

// Reports lists historical sessions
// @Summary List attendance reports
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param subject query string false "Subject filter"
// @Param section query string false "Section filter"
// @Param startDate query string false "Start date YYYY-MM-DD"
// @Param endDate query string false "End date YYYY-MM-DD"
// @Success 200 {object} dto.APIResponse{data=dto.ReportsResponse} "Sessions"
// @Router /attendance/reports [get]
func (c *AttendanceController) Reports(ctx *gin.Context) {
	var query dto.ReportsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.Reports(ctx, facultyID, &query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// StudentReports aggregates attendance per student
// @Summary Per-student attendance totals
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param subject query string true "Subject"
// @Param section query string true "Section"
// @Param sessionType query string true "Session type"
// @Success 200 {object} dto.APIResponse{data=dto.StudentReportsResponse} "Aggregates"
// @Router /attendance/reports/students [get]
func (c *AttendanceController) StudentReports(ctx *gin.Context) {
	subject := ctx.Query("subject")
	section := ctx.Query("section")
	sessionType := models.SessionType(ctx.Query("sessionType"))
	if subject == "" || section == "" || !models.ValidSessionType(sessionType) {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "subject, section and sessionType are required")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.StudentReports(ctx, facultyID, subject, section, sessionType)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// UpdateLocation attaches a location snapshot to a session
// @Summary Update session location
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param request body dto.UpdateLocationRequest true "Location snapshot"
// @Success 200 {object} dto.APIResponse{data=dto.SessionSummary} "Updated"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /attendance/{id}/location [put]
func (c *AttendanceController) UpdateLocation(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}
	var req dto.UpdateLocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	resp, err := c.attendanceService.UpdateLocation(ctx, facultyID, sessionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}
