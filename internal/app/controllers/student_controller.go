package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/middleware"
)

// StudentController manages enrollment and face capture requests
type StudentController struct {
	studentService *services.StudentService
}

func NewStudentController(studentService *services.StudentService) *StudentController {
	return &StudentController{studentService: studentService}
}

func studentIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student ID")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return 0, false
	}
	return id, true
}

// Create enrolls a student
// @Summary Enroll a student
// @Description Adds a student to a class group, optionally with a face descriptor or image
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStudentRequest true "Student details"
// @Success 201 {object} dto.APIResponse{data=dto.StudentResponse} "Enrolled"
// @Failure 409 {object} dto.ErrorResponse "Roll number already registered"
// @Router /students [post]
func (c *StudentController) Create(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	student, err := c.studentService.Create(ctx, facultyID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.NewStudentResponse(student)))
}

// List returns students, optionally filtered by class group
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param subject query string false "Subject filter"
// @Param section query string false "Section filter"
// @Param sessionType query string false "Session type filter"
// @Success 200 {object} dto.APIResponse{data=dto.StudentListResponse} "Students"
// @Router /students [get]
func (c *StudentController) List(ctx *gin.Context) {
	var query dto.StudentListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	students, err := c.studentService.List(ctx, facultyID, repositories.StudentFilter{
		Subject:     query.Subject,
		Section:     query.Section,
		SessionType: query.SessionType,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	out := make([]dto.StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, dto.NewStudentResponse(s))
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.StudentListResponse{Students: out, Total: len(out)}))
}

// Get returns one student
// @Summary Get a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse} "Student"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [get]
func (c *StudentController) Get(ctx *gin.Context) {
	id, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	facultyID, _ := middleware.FacultyID(ctx)
	student, err := c.studentService.Get(ctx, facultyID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewStudentResponse(student)))
}

// Update applies a partial update, including face re-enrollment
// @Summary Update a student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse} "Updated"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [put]
func (c *StudentController) Update(ctx *gin.Context) {
	id, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	facultyID, _ := middleware.FacultyID(ctx)
	student, err := c.studentService.Update(ctx, facultyID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewStudentResponse(student)))
}

// Delete removes a student
// @Summary Delete a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse "Deleted"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [delete]
func (c *StudentController) Delete(ctx *gin.Context) {
	id, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	facultyID, _ := middleware.FacultyID(ctx)
	if err := c.studentService.Delete(ctx, facultyID, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Student deleted"))
}

// RequestCapture asks connected devices to capture a face sample
// @Summary Request a face capture
// @Description Pushes a capture request to the faculty's connected devices
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse "Capture requested"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/capture [post]
func (c *StudentController) RequestCapture(ctx *gin.Context) {
	id, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	facultyID, _ := middleware.FacultyID(ctx)
	if err := c.studentService.RequestCapture(ctx, facultyID, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Capture requested"))
}
