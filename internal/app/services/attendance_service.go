package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/models/dto"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/db"
	"github.com/campusroll/rollcall/internal/facematch"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
)

// AttendanceStore is the session ledger persistence surface
type AttendanceStore interface {
	StartOrGet(ctx context.Context, session *models.AttendanceSession, roster []*models.Student) (*repositories.StartResult, error)
	MarkPresent(ctx context.Context, facultyID, sessionID, studentID int64, confidence *float64, via models.MarkedVia) (*repositories.MarkResult, error)
	SetAbsent(ctx context.Context, facultyID, sessionID, studentID int64) (*repositories.MarkResult, error)
	GetByID(ctx context.Context, facultyID, sessionID int64) (*models.AttendanceSession, error)
	GetByKey(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType, date time.Time) (*models.AttendanceSession, error)
	Records(ctx context.Context, sessionID int64) ([]models.AttendanceRecord, error)
	AbsentRecords(ctx context.Context, sessionID int64) ([]models.AttendanceRecord, error)
	ListSessions(ctx context.Context, facultyID int64, filter repositories.SessionFilter) ([]*models.AttendanceSession, error)
	StudentAggregates(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType) ([]repositories.StudentAggregate, error)
	UpdateLocation(ctx context.Context, facultyID, sessionID int64, location *models.Location) (*models.AttendanceSession, error)
}

// StartLimiter throttles session creation. Acquire reports whether the
// caller may proceed; a false return means another start ran within the
// cooldown window.
type StartLimiter interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) bool
}

// RedisStartLimiter backs the cooldown with redis SET NX PX. When redis
// is unreachable the limiter fails open so attendance keeps working.
type RedisStartLimiter struct {
	redis *db.Redis
}

func NewRedisStartLimiter(r *db.Redis) *RedisStartLimiter {
	return &RedisStartLimiter{redis: r}
}

func (l *RedisStartLimiter) Acquire(ctx context.Context, key string, ttl time.Duration) bool {
	if l == nil || l.redis == nil || l.redis.Client == nil {
		return true
	}
	ok, err := l.redis.Client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// AttendanceService drives the session ledger: starting the per-day
// session, marking students present through face matching or manual
// override, and reporting. Exactly one session exists per class group
// per day and each student flips to present at most once.
type AttendanceService struct {
	attendanceStore AttendanceStore
	studentStore    StudentStore
	matcher         *facematch.Matcher
	embedder        Embedder
	limiter         StartLimiter
	startCooldown   time.Duration
	logger          zerolog.Logger
}

func NewAttendanceService(
	attendanceStore AttendanceStore,
	studentStore StudentStore,
	matcher *facematch.Matcher,
	embedder Embedder,
	limiter StartLimiter,
	startCooldown time.Duration,
	logger zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		attendanceStore: attendanceStore,
		studentStore:    studentStore,
		matcher:         matcher,
		embedder:        embedder,
		limiter:         limiter,
		startCooldown:   startCooldown,
		logger:          logger,
	}
}

// sessionDate truncates to the calendar day in local time
func sessionDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Start creates today's session for the class group or returns the
// existing one. A short cooldown absorbs double-taps from the client.
func (s *AttendanceService) Start(ctx context.Context, facultyID int64, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	if !models.ValidSessionType(req.SessionType) {
		return nil, apperrors.NewBadRequestError("invalid session type")
	}

	cooldownKey := fmt.Sprintf("attendance:start:%d:%s:%s:%s", facultyID, req.Subject, req.Section, req.SessionType)
	if !s.limiter.Acquire(ctx, cooldownKey, s.startCooldown) {
		return nil, apperrors.ErrTooManyStarts
	}

	roster, err := s.studentStore.Roster(ctx, facultyID, req.Subject, req.Section, req.SessionType)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, apperrors.ErrRosterEmpty
	}

	session := &models.AttendanceSession{
		FacultyID:   facultyID,
		Subject:     req.Subject,
		Section:     req.Section,
		SessionType: req.SessionType,
		Hours:       req.Hours,
		Date:        sessionDate(time.Now()),
		Location:    req.Location,
	}
	result, err := s.attendanceStore.StartOrGet(ctx, session, roster)
	if err != nil {
		return nil, err
	}

	if !result.AlreadyExisted {
		s.logger.Info().
			Int64("facultyID", facultyID).
			Int64("sessionID", result.Session.ID).
			Str("subject", req.Subject).
			Str("section", req.Section).
			Int("students", result.Session.TotalStudents).
			Msg("Attendance session started")
	}

	return s.buildStartResponse(result, roster), nil
}

func (s *AttendanceService) buildStartResponse(result *repositories.StartResult, roster []*models.Student) *dto.StartSessionResponse {
	descriptors := make(map[int64]bool, len(roster))
	for _, student := range roster {
		descriptors[student.ID] = student.HasFaceDescriptor()
	}

	students := make([]dto.RosterStudent, 0, len(result.Records))
	for _, rec := range result.Records {
		students = append(students, dto.RosterStudent{
			ID:                rec.StudentID,
			Name:              rec.StudentName,
			RollNumber:        rec.RollNumber,
			HasFaceDescriptor: descriptors[rec.StudentID],
			IsPresent:         rec.IsPresent,
		})
	}

	return &dto.StartSessionResponse{
		SessionID:       result.Session.ID,
		TotalStudents:   result.Session.TotalStudents,
		PresentStudents: result.Session.PresentStudents,
		AbsentStudents:  result.Session.AbsentStudents,
		AlreadyExisted:  result.AlreadyExisted,
		Students:        students,
	}
}

// Mark resolves a face sample against the session's roster and flips
// the matched student to present. Re-marking an already present student
// is a no-op reported in the response, never an error.
func (s *AttendanceService) Mark(ctx context.Context, facultyID, sessionID int64, req *dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	session, err := s.attendanceStore.GetByID(ctx, facultyID, sessionID)
	if err != nil {
		return nil, err
	}

	descriptor := req.FaceDescriptor
	if len(descriptor) == 0 {
		if req.FaceImageBase64 == "" {
			return nil, apperrors.NewBadRequestError("a face descriptor or image is required")
		}
		descriptor, err = s.embedder.Embed(ctx, req.FaceImageBase64)
		if err != nil {
			return nil, err
		}
	}

	roster, err := s.studentStore.Roster(ctx, facultyID, session.Subject, session.Section, session.SessionType)
	if err != nil {
		return nil, err
	}

	match, err := s.matcher.Match(descriptor, roster)
	if err != nil {
		return nil, err
	}

	confidence := match.Confidence
	result, err := s.attendanceStore.MarkPresent(ctx, facultyID, sessionID, match.Student.ID, &confidence, models.MarkedViaFace)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("sessionID", sessionID).
		Int64("studentID", match.Student.ID).
		Float64("confidence", match.Confidence).
		Bool("alreadyPresent", result.AlreadyPresent).
		Msg("Attendance marked")

	return &dto.MarkAttendanceResponse{
		Student: dto.MarkedStudent{
			ID:         match.Student.ID,
			Name:       match.Student.Name,
			RollNumber: match.Student.RollNumber,
			Confidence: match.Confidence,
		},
		Attendance: dto.AttendanceCounts{
			Present: result.Session.PresentStudents,
			Absent:  result.Session.AbsentStudents,
			Total:   result.Session.TotalStudents,
		},
		AlreadyPresent: result.AlreadyPresent,
	}, nil
}

// MarkManual flips one student's presence by hand, bypassing matching
func (s *AttendanceService) MarkManual(ctx context.Context, facultyID, sessionID, studentID int64, present bool) (*dto.MarkAttendanceResponse, error) {
	var result *repositories.MarkResult
	var err error
	if present {
		result, err = s.attendanceStore.MarkPresent(ctx, facultyID, sessionID, studentID, nil, models.MarkedViaManual)
	} else {
		result, err = s.attendanceStore.SetAbsent(ctx, facultyID, sessionID, studentID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("sessionID", sessionID).
		Int64("studentID", studentID).
		Bool("present", present).
		Msg("Attendance marked manually")

	return &dto.MarkAttendanceResponse{
		Student: dto.MarkedStudent{
			ID:         result.Record.StudentID,
			Name:       result.Record.StudentName,
			RollNumber: result.Record.RollNumber,
		},
		Attendance: dto.AttendanceCounts{
			Present: result.Session.PresentStudents,
			Absent:  result.Session.AbsentStudents,
			Total:   result.Session.TotalStudents,
		},
		AlreadyPresent: result.AlreadyPresent,
	}, nil
}

// Status probes whether today's session exists without creating one
func (s *AttendanceService) Status(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType) (*dto.StatusResponse, error) {
	session, err := s.attendanceStore.GetByKey(ctx, facultyID, subject, section, sessionType, sessionDate(time.Now()))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return &dto.StatusResponse{HasAttendance: false}, nil
		}
		return nil, err
	}

	return &dto.StatusResponse{
		HasAttendance:   true,
		SessionID:       &session.ID,
		TotalStudents:   &session.TotalStudents,
		PresentStudents: &session.PresentStudents,
		AbsentStudents:  &session.AbsentStudents,
		Location:        session.Location,
		CreatedAt:       &session.CreatedAt,
		UpdatedAt:       &session.UpdatedAt,
	}, nil
}

// Detail returns the session with its full ledger
func (s *AttendanceService) Detail(ctx context.Context, facultyID, sessionID int64) (*dto.SessionDetailResponse, error) {
	session, err := s.attendanceStore.GetByID(ctx, facultyID, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := s.attendanceStore.Records(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionDetailResponse{
		Session: toSessionSummary(session),
		Records: records,
	}, nil
}

// Retake lists the students still absent so a device can run another
// recognition pass over just them. Present students are untouched.
func (s *AttendanceService) Retake(ctx context.Context, facultyID, sessionID int64) ([]models.AttendanceRecord, error) {
	session, err := s.attendanceStore.GetByID(ctx, facultyID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.attendanceStore.AbsentRecords(ctx, session.ID)
}

// Reports lists historical sessions matching the filter
func (s *AttendanceService) Reports(ctx context.Context, facultyID int64, query *dto.ReportsQuery) (*dto.ReportsResponse, error) {
	filter := repositories.SessionFilter{
		Subject: query.Subject,
		Section: query.Section,
	}
	if query.StartDate != "" {
		t, err := time.ParseInLocation("2006-01-02", query.StartDate, time.Local)
		if err != nil {
			return nil, apperrors.NewBadRequestError("invalid startDate, expected YYYY-MM-DD")
		}
		filter.StartDate = &t
	}
	if query.EndDate != "" {
		t, err := time.ParseInLocation("2006-01-02", query.EndDate, time.Local)
		if err != nil {
			return nil, apperrors.NewBadRequestError("invalid endDate, expected YYYY-MM-DD")
		}
		filter.EndDate = &t
	}

	sessions, err := s.attendanceStore.ListSessions(ctx, facultyID, filter)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionSummary(session))
	}
	return &dto.ReportsResponse{Sessions: out}, nil
}

// StudentReports aggregates attendance per student for one class group
func (s *AttendanceService) StudentReports(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType) (*dto.StudentReportsResponse, error) {
	aggregates, err := s.attendanceStore.StudentAggregates(ctx, facultyID, subject, section, sessionType)
	if err != nil {
		return nil, err
	}

	students := make([]dto.StudentReport, 0, len(aggregates))
	total := 0
	for _, a := range aggregates {
		if a.TotalSessions > total {
			total = a.TotalSessions
		}
		percentage := 0
		if a.TotalSessions > 0 {
			percentage = int(float64(a.PresentSessions)/float64(a.TotalSessions)*100 + 0.5)
		}
		students = append(students, dto.StudentReport{
			StudentID:            a.StudentID,
			Name:                 a.Name,
			RollNumber:           a.RollNumber,
			TotalSessions:        a.TotalSessions,
			PresentSessions:      a.PresentSessions,
			AbsentSessions:       a.TotalSessions - a.PresentSessions,
			AttendancePercentage: percentage,
			LastPresentDate:      a.LastPresent,
		})
	}
	return &dto.StudentReportsResponse{Students: students, TotalSessions: total}, nil
}

// UpdateLocation attaches a location snapshot to an existing session
func (s *AttendanceService) UpdateLocation(ctx context.Context, facultyID, sessionID int64, req *dto.UpdateLocationRequest) (*dto.SessionSummary, error) {
	session, err := s.attendanceStore.UpdateLocation(ctx, facultyID, sessionID, &models.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Address:   req.Address,
	})
	if err != nil {
		return nil, err
	}
	summary := toSessionSummary(session)
	return &summary, nil
}

func toSessionSummary(session *models.AttendanceSession) dto.SessionSummary {
	return dto.SessionSummary{
		ID:                   session.ID,
		Subject:              session.Subject,
		Section:              session.Section,
		SessionType:          session.SessionType,
		Hours:                session.Hours,
		Date:                 session.Date,
		TotalStudents:        session.TotalStudents,
		PresentStudents:      session.PresentStudents,
		AbsentStudents:       session.AbsentStudents,
		AttendancePercentage: session.AttendancePercentage(),
		Location:             session.Location,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
	}
}
