package dto

import "github.com/campusroll/rollcall/internal/app/models"

// CreateStudentRequest enrolls a student into a class group
type CreateStudentRequest struct {
	Name            string             `json:"name" binding:"required,max=120"`
	RollNumber      string             `json:"rollNumber" binding:"required,max=40"`
	Subject         string             `json:"subject" binding:"required"`
	Section         string             `json:"section" binding:"required"`
	SessionType     models.SessionType `json:"sessionType" binding:"required"`
	FaceDescriptor  []float64          `json:"faceDescriptor,omitempty"`
	FaceImageBase64 string             `json:"faceImageBase64,omitempty"`
}

// UpdateStudentRequest partially updates an enrolled student
type UpdateStudentRequest struct {
	Name            *string   `json:"name,omitempty"`
	RollNumber      *string   `json:"rollNumber,omitempty"`
	FaceDescriptor  []float64 `json:"faceDescriptor,omitempty"`
	FaceImageBase64 string    `json:"faceImageBase64,omitempty"`
}

// StudentResponse is the public shape of an enrolled student
type StudentResponse struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	RollNumber        string             `json:"rollNumber"`
	Subject           string             `json:"subject"`
	Section           string             `json:"section"`
	SessionType       models.SessionType `json:"sessionType"`
	HasFaceDescriptor bool               `json:"hasFaceDescriptor"`
}

// StudentListResponse lists students, optionally filtered by class group
type StudentListResponse struct {
	Students []StudentResponse `json:"students"`
	Total    int               `json:"total"`
}

// StudentListQuery filters the student list
type StudentListQuery struct {
	Subject     string `form:"subject"`
	Section     string `form:"section"`
	SessionType string `form:"sessionType"`
}

// CaptureRequestBody asks a trusted device to capture a student's face
type CaptureRequestBody struct {
	StudentID int64 `json:"studentId" binding:"required"`
}

// NewStudentResponse maps a model to its public shape
func NewStudentResponse(s *models.Student) StudentResponse {
	return StudentResponse{
		ID:                s.ID,
		Name:              s.Name,
		RollNumber:        s.RollNumber,
		Subject:           s.Subject,
		Section:           s.Section,
		SessionType:       s.SessionType,
		HasFaceDescriptor: s.HasFaceDescriptor(),
	}
}
