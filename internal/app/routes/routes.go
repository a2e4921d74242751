package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusroll/rollcall/internal/app/controllers"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
	"github.com/campusroll/rollcall/internal/realtime"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	attendanceController *controllers.AttendanceController,
	studentController *controllers.StudentController,
	deviceController *controllers.DeviceController,
	timetableController *controllers.TimetableController,
	auditController *controllers.AuditController,
	realtimeHandler *realtime.Handler,
	authMiddleware *middleware.AuthMiddleware,
	deviceService *services.DeviceService,
	limiter *middleware.TokenBucket,
) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Metrics())

	// --- Public auth routes ---
	auth := v1.Group("/auth")
	auth.Use(limiter.RateLimit())
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.Refresh)
		auth.POST("/logout", authController.Logout)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.GET("/auth/me", authController.Profile)
		authenticated.PUT("/auth/password", authController.ChangePassword)
		authenticated.GET("/auth/audit-logs", auditController.List)

		// Realtime sync channel; the device id rides as a query param
		authenticated.GET("/realtime", realtimeHandler.HandleConnection)

		students := authenticated.Group("/students")
		{
			students.GET("", studentController.List)
			students.POST("", studentController.Create)
			students.GET("/:id", studentController.Get)
			students.PUT("/:id", studentController.Update)
			students.DELETE("/:id", studentController.Delete)
			students.POST("/:id/capture", studentController.RequestCapture)
		}

		timetable := authenticated.Group("/timetable")
		{
			timetable.GET("", timetableController.Get)
			timetable.PUT("", timetableController.Replace)
			timetable.GET("/live", timetableController.Live)
		}

		devices := authenticated.Group("/devices")
		{
			devices.GET("", deviceController.List)
			devices.PUT("/:id", deviceController.Rename)
			devices.PUT("/:id/trust", deviceController.SetTrusted)
			devices.DELETE("/:id", deviceController.Remove)
		}

		attendance := authenticated.Group("/attendance")
		{
			// Read-only views need auth but not device trust
			attendance.GET("/status", attendanceController.Status)
			attendance.GET("/reports", attendanceController.Reports)
			attendance.GET("/reports/students", attendanceController.StudentReports)
			attendance.GET("/:id", attendanceController.Detail)

			// Mutations only run from a trusted device
			trusted := attendance.Group("")
			trusted.Use(middleware.TrustedDevice(deviceService))
			{
				trusted.POST("/start", attendanceController.Start)
				trusted.POST("/:id/mark", attendanceController.Mark)
				trusted.POST("/:id/retake", attendanceController.Retake)
				trusted.PUT("/:id/students/:studentId", attendanceController.MarkManual)
				trusted.PUT("/:id/location", attendanceController.UpdateLocation)
			}
		}
	}
}
