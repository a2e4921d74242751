package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
)

// TimetableController manages the weekly timetable and live-session lookups
type TimetableController struct {
	timetableService *services.TimetableService
}

func NewTimetableController(timetableService *services.TimetableService) *TimetableController {
	return &TimetableController{timetableService: timetableService}
}

// Get returns the stored weekly timetable
// @Summary Get the weekly timetable
// @Tags timetable
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.TimetableResponse} "Timetable"
// @Router /timetable [get]
func (c *TimetableController) Get(ctx *gin.Context) {
	facultyID, _ := middleware.FacultyID(ctx)
	days, err := c.timetableService.Get(ctx, facultyID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.TimetableResponse{Timetable: days}))
}

// Replace stores a new weekly timetable wholesale
// @Summary Replace the weekly timetable
// @Description Replaces the whole week and notifies every connected device
// @Tags timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateTimetableRequest true "Full week"
// @Success 200 {object} dto.APIResponse{data=dto.TimetableResponse} "Stored"
// @Failure 400 {object} dto.ErrorResponse "Invalid timetable"
// @Router /timetable [put]
func (c *TimetableController) Replace(ctx *gin.Context) {
	var req dto.UpdateTimetableRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	if err := c.timetableService.Replace(ctx, facultyID, req.Timetable); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.TimetableResponse{Timetable: req.Timetable}))
}

// Live resolves the currently active session
// @Summary Resolve the live session
// @Description Matches the current wall-clock time against the timetable and hour-slot table
// @Tags timetable
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LiveSessionResponse} "Live session, if any"
// @Router /timetable/live [get]
func (c *TimetableController) Live(ctx *gin.Context) {
	facultyID, _ := middleware.FacultyID(ctx)
	live, err := c.timetableService.Live(ctx, facultyID, time.Now())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.LiveSessionResponse{Active: live != nil}
	if live != nil {
		resp.Session = &dto.LiveSessionDetail{
			Subject:     live.Subject,
			SessionType: live.SessionType,
			Section:     live.Section,
			RoomNumber:  live.RoomNumber,
			Hours:       live.Hours,
			TimeRange:   live.TimeRange,
		}
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}
