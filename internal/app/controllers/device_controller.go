package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
)

// DeviceController manages registered devices and their trust state
type DeviceController struct {
	deviceService *services.DeviceService
	auditService  *services.AuditService
}

func NewDeviceController(deviceService *services.DeviceService, auditService *services.AuditService) *DeviceController {
	return &DeviceController{deviceService: deviceService, auditService: auditService}
}

func deviceIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid device ID")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return 0, false
	}
	return id, true
}

// List returns the faculty's registered devices
// @Summary List devices
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DeviceListResponse} "Devices"
// @Router /devices [get]
func (c *DeviceController) List(ctx *gin.Context) {
	facultyID, _ := middleware.FacultyID(ctx)
	devices, err := c.deviceService.List(ctx, facultyID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.DeviceListResponse{
		Devices: services.ToDeviceResponses(devices),
	}))
}

// SetTrusted toggles a device's trusted flag
// @Summary Trust or revoke a device
// @Description Revoking trust purges the device's tokens and forces it out of live sessions
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Device ID"
// @Param request body dto.TrustDeviceRequest true "Trust state"
// @Success 200 {object} dto.APIResponse{data=dto.DeviceResponse} "Updated"
// @Failure 404 {object} dto.ErrorResponse "Device not found"
// @Router /devices/{id}/trust [put]
func (c *DeviceController) SetTrusted(ctx *gin.Context) {
	id, ok := deviceIDParam(ctx)
	if !ok {
		return
	}
	var req dto.TrustDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	device, err := c.deviceService.SetTrusted(ctx, facultyID, id, req.IsTrusted)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	action := services.AuditDeviceTrusted
	if !device.IsTrusted {
		action = services.AuditDeviceRevoked
	}
	c.auditService.Record(ctx, auditEntry(ctx, facultyID, action,
		"Trust changed for device "+device.DeviceID))

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.DeviceResponse{
		ID:         device.ID,
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
		IsTrusted:  device.IsTrusted,
		LastLogin:  device.LastLogin,
	}))
}

// Rename changes a device's display name
// @Summary Rename a device
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Device ID"
// @Param request body dto.RenameDeviceRequest true "New name"
// @Success 200 {object} dto.APIResponse{data=dto.DeviceResponse} "Renamed"
// @Failure 404 {object} dto.ErrorResponse "Device not found"
// @Router /devices/{id} [put]
func (c *DeviceController) Rename(ctx *gin.Context) {
	id, ok := deviceIDParam(ctx)
	if !ok {
		return
	}
	var req dto.RenameDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	device, err := c.deviceService.Rename(ctx, facultyID, id, req.DeviceName)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.DeviceResponse{
		ID:         device.ID,
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
		IsTrusted:  device.IsTrusted,
		LastLogin:  device.LastLogin,
	}))
}

// Remove deletes a device registration
// @Summary Remove a device
// @Description Deletes the registration, purges its tokens and forces the device out
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Param id path int true "Device ID"
// @Success 200 {object} dto.APIResponse "Removed"
// @Failure 404 {object} dto.ErrorResponse "Device not found"
// @Router /devices/{id} [delete]
func (c *DeviceController) Remove(ctx *gin.Context) {
	id, ok := deviceIDParam(ctx)
	if !ok {
		return
	}
	facultyID, _ := middleware.FacultyID(ctx)
	if err := c.deviceService.Remove(ctx, facultyID, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.auditService.Record(ctx, auditEntry(ctx, facultyID, services.AuditDeviceRemoved, "Device registration removed"))
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Device removed"))
}
