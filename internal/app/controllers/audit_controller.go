package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
)

// AuditController exposes the faculty's security audit trail
type AuditController struct {
	auditService *services.AuditService
}

func NewAuditController(auditService *services.AuditService) *AuditController {
	return &AuditController{auditService: auditService}
}

// auditEntry builds an audit row from the calling request. Devices
// identify themselves with the X-Device-Id header; its absence means the
// call came from a browser.
func auditEntry(ctx *gin.Context, facultyID int64, action, details string) models.AuditLog {
	deviceID := ctx.GetHeader("X-Device-Id")
	platform := models.PlatformWeb
	if deviceID != "" {
		platform = models.PlatformMobile
	}
	return models.AuditLog{
		FacultyID:  facultyID,
		Action:     action,
		Details:    details,
		Platform:   platform,
		DeviceID:   deviceID,
		DeviceName: ctx.GetHeader("X-Device-Name"),
		IPAddress:  ctx.ClientIP(),
	}
}

// List returns the faculty's recent audit entries
// @Summary List audit logs
// @Description Returns the hundred most recent security-relevant actions, newest first
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AuditLogListResponse} "Audit trail"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /auth/audit-logs [get]
func (c *AuditController) List(ctx *gin.Context) {
	facultyID, _ := middleware.FacultyID(ctx)
	logs, err := c.auditService.List(ctx, facultyID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.AuditLogListResponse{
		Logs: services.ToAuditLogResponses(logs),
	}))
}
