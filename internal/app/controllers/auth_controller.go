package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
)

// AuthController handles registration, login and token rotation
type AuthController struct {
	authService  *services.AuthService
	auditService *services.AuditService
}

func NewAuthController(authService *services.AuthService, auditService *services.AuditService) *AuthController {
	return &AuthController{authService: authService, auditService: auditService}
}

// Register creates a faculty account
// @Summary Register a faculty account
// @Description Creates a new faculty account with the provided credentials
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.APIResponse{data=dto.FacultyProfile} "Account created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "Username or email already exists"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	faculty, err := c.authService.Register(ctx, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.FacultyProfile{
		ID:       faculty.ID,
		Name:     faculty.Name,
		Email:    faculty.Email,
		Username: faculty.Username,
	}))
}

// Login authenticates a faculty from a device
// @Summary Log in
// @Description Verifies credentials, registers the calling device and issues tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials and device identity"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Logged in"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	resp, err := c.authService.Login(ctx, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	entry := auditEntry(ctx, resp.Faculty.ID, services.AuditLogin,
		"Signed in as "+resp.Faculty.Username)
	entry.DeviceID = resp.Device.DeviceID
	entry.DeviceName = resp.Device.DeviceName
	entry.Platform = models.PlatformMobile
	c.auditService.Record(ctx, entry)

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Refresh rotates a refresh token
// @Summary Refresh tokens
// @Description Exchanges a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Tokens rotated"
// @Failure 401 {object} dto.ErrorResponse "Token invalid or expired"
// @Router /auth/refresh [post]
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	tokens, err := c.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(tokens))
}

// Logout discards the caller's refresh token
// @Summary Log out
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token to discard"
// @Success 200 {object} dto.APIResponse "Logged out"
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	if err := c.authService.Logout(ctx, req.RefreshToken); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Logged out"))
}

// ChangePassword replaces the authenticated faculty's password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.APIResponse "Password changed"
// @Failure 401 {object} dto.ErrorResponse "Current password wrong"
// @Router /auth/password [put]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	if err := c.authService.ChangePassword(ctx, facultyID, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.auditService.Record(ctx, auditEntry(ctx, facultyID, services.AuditPasswordChange, "Account password changed"))
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Password changed"))
}

// Profile returns the authenticated faculty's account
// @Summary Get profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.FacultyProfile} "Profile"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (c *AuthController) Profile(ctx *gin.Context) {
	facultyID, _ := middleware.FacultyID(ctx)
	profile, err := c.authService.Profile(ctx, facultyID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(profile))
}
