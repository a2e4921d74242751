package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/realtime"
)

func newTestStudentService(embedder *mockEmbedder) (*StudentService, *mockStudentStore, *mockPublisher) {
	store := &mockStudentStore{}
	publisher := &mockPublisher{}
	svc := NewStudentService(store, embedder, publisher, zerolog.Nop())
	return svc, store, publisher
}

func createStudentRequest() *dto.CreateStudentRequest {
	return &dto.CreateStudentRequest{
		Name:        " Asha Rao ",
		RollNumber:  "21CS001",
		Subject:     "Physics",
		Section:     "A",
		SessionType: models.SessionLecture,
	}
}

func TestCreateStudentTrimsAndBroadcasts(t *testing.T) {
	svc, store, publisher := newTestStudentService(&mockEmbedder{})

	student, err := svc.Create(context.Background(), 1, createStudentRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if student.Name != "Asha Rao" {
		t.Errorf("name not trimmed: %q", student.Name)
	}
	if len(store.students) != 1 {
		t.Fatalf("student not stored")
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != realtime.EventStudentsUpdated {
		t.Fatalf("expected students_updated broadcast, got %+v", publisher.events)
	}
	update := publisher.events[0].payload.(realtime.StudentsUpdated)
	if update.Subject != "Physics" || update.Section != "A" {
		t.Errorf("broadcast scope wrong: %+v", update)
	}
}

func TestCreateStudentExtractsDescriptorFromImage(t *testing.T) {
	embedder := &mockEmbedder{descriptor: []float64{0.1, 0.2}}
	svc, _, _ := newTestStudentService(embedder)

	req := createStudentRequest()
	req.FaceImageBase64 = "aW1hZ2U="
	student, err := svc.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !student.HasFaceDescriptor() {
		t.Error("descriptor not extracted from image")
	}
}

func TestCreateStudentNoFaceInImage(t *testing.T) {
	embedder := &mockEmbedder{err: apperrors.ErrNoFaceDetected}
	svc, store, publisher := newTestStudentService(embedder)

	req := createStudentRequest()
	req.FaceImageBase64 = "aW1hZ2U="
	_, err := svc.Create(context.Background(), 1, req)
	if !errors.Is(err, apperrors.ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
	if len(store.students) != 0 {
		t.Error("failed enrollment must not store the student")
	}
	if len(publisher.events) != 0 {
		t.Error("failed enrollment must not broadcast")
	}
}

func TestCreateStudentWithoutSampleIsUnenrolled(t *testing.T) {
	svc, _, _ := newTestStudentService(&mockEmbedder{})

	student, err := svc.Create(context.Background(), 1, createStudentRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if student.HasFaceDescriptor() {
		t.Error("student without a sample must be unenrolled for matching")
	}
}

func TestDeleteStudentBroadcasts(t *testing.T) {
	svc, store, publisher := newTestStudentService(&mockEmbedder{})
	ctx := context.Background()

	student, _ := svc.Create(ctx, 1, createStudentRequest())
	publisher.events = nil

	if err := svc.Delete(ctx, 1, student.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(store.students) != 0 {
		t.Error("student not removed")
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != realtime.EventStudentsUpdated {
		t.Errorf("expected students_updated after delete, got %+v", publisher.events)
	}
}

func TestRequestCapturePushesStudentDetails(t *testing.T) {
	svc, _, publisher := newTestStudentService(&mockEmbedder{})
	ctx := context.Background()

	student, _ := svc.Create(ctx, 1, createStudentRequest())
	publisher.events = nil

	if err := svc.RequestCapture(ctx, 1, student.ID); err != nil {
		t.Fatalf("RequestCapture failed: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != realtime.EventCaptureRequest {
		t.Fatalf("expected capture_request, got %+v", publisher.events)
	}
	capture := publisher.events[0].payload.(realtime.CaptureRequest)
	if capture.StudentID != student.ID || capture.RollNumber != "21CS001" {
		t.Errorf("capture payload wrong: %+v", capture)
	}
}

func TestRequestCaptureUnknownStudent(t *testing.T) {
	svc, _, publisher := newTestStudentService(&mockEmbedder{})

	err := svc.RequestCapture(context.Background(), 1, 42)
	if !errors.Is(err, apperrors.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Error("no capture_request for unknown students")
	}
}
