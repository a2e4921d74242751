package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
)

// Handler upgrades authenticated HTTP requests to sync-channel connections
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new sync-channel handler
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

// HandleConnection godoc
// @Summary Open the real-time sync channel
// @Description Upgrades the HTTP connection to a WebSocket over which session, roster, and device-trust events are pushed
// @Tags realtime
// @Security BearerAuth
// @Param deviceId query string true "Device identity of the connecting client"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} gin.H "Missing device id"
// @Failure 401 {object} gin.H "Unauthorized: JWT token missing or invalid"
// @Router /realtime/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	deviceID := models.NormalizeDeviceID(c.Query("deviceId"))
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "deviceId query parameter is required",
		})
		return
	}

	// Set by the auth middleware
	facultyIDValue, exists := c.Get("facultyID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Faculty ID not found in context",
		})
		return
	}

	facultyID, ok := facultyIDValue.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid faculty ID format",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("facultyID", facultyID).
			Str("deviceID", deviceID).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		facultyID: facultyID,
		deviceID:  deviceID,
		logger:    h.logger,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
