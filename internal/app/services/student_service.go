package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/realtime"
)

// StudentStore is the student persistence surface
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) (int64, error)
	GetByID(ctx context.Context, facultyID, id int64) (*models.Student, error)
	List(ctx context.Context, facultyID int64, filter repositories.StudentFilter) ([]*models.Student, error)
	Roster(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType) ([]*models.Student, error)
	Update(ctx context.Context, facultyID, id int64, name, rollNumber *string, descriptor []float64) (*models.Student, error)
	Delete(ctx context.Context, facultyID, id int64) (*models.Student, error)
}

// Embedder extracts a face descriptor from a base64 image
type Embedder interface {
	Embed(ctx context.Context, imageBase64 string) ([]float64, error)
}

// StudentService manages enrollment and face descriptor capture.
// Mutations push a students update over the realtime channel so other
// devices refresh their rosters.
type StudentService struct {
	studentStore StudentStore
	embedder     Embedder
	publisher    Publisher
	logger       zerolog.Logger
}

func NewStudentService(
	studentStore StudentStore,
	embedder Embedder,
	publisher Publisher,
	logger zerolog.Logger,
) *StudentService {
	return &StudentService{
		studentStore: studentStore,
		embedder:     embedder,
		publisher:    publisher,
		logger:       logger,
	}
}

// resolveDescriptor prefers an explicit descriptor over a raw image
func (s *StudentService) resolveDescriptor(ctx context.Context, descriptor []float64, imageBase64 string) ([]float64, error) {
	if len(descriptor) > 0 {
		return descriptor, nil
	}
	if imageBase64 == "" {
		return nil, nil
	}
	return s.embedder.Embed(ctx, imageBase64)
}

// Create enrolls a student, extracting a descriptor server-side when
// only an image was supplied
func (s *StudentService) Create(ctx context.Context, facultyID int64, req *dto.CreateStudentRequest) (*models.Student, error) {
	if !models.ValidSessionType(req.SessionType) {
		return nil, apperrors.NewBadRequestError("invalid session type")
	}

	descriptor, err := s.resolveDescriptor(ctx, req.FaceDescriptor, req.FaceImageBase64)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		FacultyID:      facultyID,
		Name:           strings.TrimSpace(req.Name),
		RollNumber:     strings.TrimSpace(req.RollNumber),
		Subject:        strings.TrimSpace(req.Subject),
		Section:        strings.TrimSpace(req.Section),
		SessionType:    req.SessionType,
		FaceDescriptor: descriptor,
	}
	if _, err := s.studentStore.Create(ctx, student); err != nil {
		return nil, err
	}

	s.publisher.Publish(facultyID, realtime.EventStudentsUpdated, realtime.StudentsUpdated{
		Subject: student.Subject,
		Section: student.Section,
	})
	s.logger.Info().
		Int64("facultyID", facultyID).
		Int64("studentID", student.ID).
		Str("rollNumber", student.RollNumber).
		Msg("Student enrolled")
	return student, nil
}

// Get returns one of the faculty's students
func (s *StudentService) Get(ctx context.Context, facultyID, id int64) (*models.Student, error) {
	return s.studentStore.GetByID(ctx, facultyID, id)
}

// List returns students matching the filter
func (s *StudentService) List(ctx context.Context, facultyID int64, filter repositories.StudentFilter) ([]*models.Student, error) {
	return s.studentStore.List(ctx, facultyID, filter)
}

// Update applies a partial update, including descriptor re-enrollment
func (s *StudentService) Update(ctx context.Context, facultyID, id int64, req *dto.UpdateStudentRequest) (*models.Student, error) {
	descriptor, err := s.resolveDescriptor(ctx, req.FaceDescriptor, req.FaceImageBase64)
	if err != nil {
		return nil, err
	}

	student, err := s.studentStore.Update(ctx, facultyID, id, req.Name, req.RollNumber, descriptor)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(facultyID, realtime.EventStudentsUpdated, realtime.StudentsUpdated{
		Subject: student.Subject,
		Section: student.Section,
	})
	return student, nil
}

// Delete removes a student from the roster
func (s *StudentService) Delete(ctx context.Context, facultyID, id int64) error {
	student, err := s.studentStore.Delete(ctx, facultyID, id)
	if err != nil {
		return err
	}
	s.publisher.Publish(facultyID, realtime.EventStudentsUpdated, realtime.StudentsUpdated{
		Subject: student.Subject,
		Section: student.Section,
	})
	s.logger.Info().Int64("facultyID", facultyID).Int64("studentID", id).Msg("Student removed")
	return nil
}

// RequestCapture asks the faculty's trusted devices to capture a face
// sample for the named student
func (s *StudentService) RequestCapture(ctx context.Context, facultyID, studentID int64) error {
	student, err := s.studentStore.GetByID(ctx, facultyID, studentID)
	if err != nil {
		return err
	}
	s.publisher.Publish(facultyID, realtime.EventCaptureRequest, realtime.CaptureRequest{
		StudentID:  student.ID,
		Name:       student.Name,
		RollNumber: student.RollNumber,
		Subject:    student.Subject,
		Section:    student.Section,
	})
	s.logger.Info().Int64("facultyID", facultyID).Int64("studentID", studentID).Msg("Capture requested")
	return nil
}
