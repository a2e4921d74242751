package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/realtime"
)

// mockStudentStore serves a fixed roster
type mockStudentStore struct {
	students []*models.Student
}

func (m *mockStudentStore) Create(_ context.Context, student *models.Student) (int64, error) {
	student.ID = int64(len(m.students) + 1)
	m.students = append(m.students, student)
	return student.ID, nil
}

func (m *mockStudentStore) GetByID(_ context.Context, facultyID, id int64) (*models.Student, error) {
	for _, s := range m.students {
		if s.ID == id && s.FacultyID == facultyID {
			return s, nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (m *mockStudentStore) List(_ context.Context, facultyID int64, _ repositories.StudentFilter) ([]*models.Student, error) {
	var out []*models.Student
	for _, s := range m.students {
		if s.FacultyID == facultyID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStudentStore) Roster(_ context.Context, facultyID int64, subject, section string, sessionType models.SessionType) ([]*models.Student, error) {
	var out []*models.Student
	for _, s := range m.students {
		if s.FacultyID == facultyID && s.Subject == subject && s.Section == section && s.SessionType == sessionType {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStudentStore) Update(_ context.Context, facultyID, id int64, name, rollNumber *string, descriptor []float64) (*models.Student, error) {
	s, err := m.GetByID(context.Background(), facultyID, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		s.Name = *name
	}
	if rollNumber != nil {
		s.RollNumber = *rollNumber
	}
	if descriptor != nil {
		s.FaceDescriptor = descriptor
	}
	return s, nil
}

func (m *mockStudentStore) Delete(_ context.Context, facultyID, id int64) (*models.Student, error) {
	for i, s := range m.students {
		if s.ID == id && s.FacultyID == facultyID {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return s, nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

// mockAttendanceStore keeps the ledger in memory with the same
// semantics as the SQL repository: one session per class group per day,
// records seeded absent, present flips at most once, counters derived
// from records.
type mockAttendanceStore struct {
	nextID   int64
	sessions map[string]*models.AttendanceSession
	byID     map[int64]*models.AttendanceSession
	records  map[int64][]models.AttendanceRecord
}

func newMockAttendanceStore() *mockAttendanceStore {
	return &mockAttendanceStore{
		nextID:   1,
		sessions: make(map[string]*models.AttendanceSession),
		byID:     make(map[int64]*models.AttendanceSession),
		records:  make(map[int64][]models.AttendanceRecord),
	}
}

func sessionKey(facultyID int64, subject, section string, sessionType models.SessionType, date time.Time) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", facultyID, subject, section, sessionType, date.Format("2006-01-02"))
}

func (m *mockAttendanceStore) StartOrGet(_ context.Context, session *models.AttendanceSession, roster []*models.Student) (*repositories.StartResult, error) {
	if len(roster) == 0 {
		return nil, apperrors.ErrRosterEmpty
	}
	key := sessionKey(session.FacultyID, session.Subject, session.Section, session.SessionType, session.Date)
	if existing, ok := m.sessions[key]; ok {
		return &repositories.StartResult{
			Session:        existing,
			Records:        m.records[existing.ID],
			AlreadyExisted: true,
		}, nil
	}

	session.ID = m.nextID
	m.nextID++
	session.TotalStudents = len(roster)
	session.AbsentStudents = len(roster)
	m.sessions[key] = session
	m.byID[session.ID] = session

	recs := make([]models.AttendanceRecord, 0, len(roster))
	for _, s := range roster {
		recs = append(recs, models.AttendanceRecord{
			SessionID:   session.ID,
			StudentID:   s.ID,
			StudentName: s.Name,
			RollNumber:  s.RollNumber,
		})
	}
	m.records[session.ID] = recs

	return &repositories.StartResult{Session: session, Records: recs}, nil
}

func (m *mockAttendanceStore) recompute(session *models.AttendanceSession) {
	present := 0
	for _, r := range m.records[session.ID] {
		if r.IsPresent {
			present++
		}
	}
	session.PresentStudents = present
	session.AbsentStudents = session.TotalStudents - present
}

func (m *mockAttendanceStore) MarkPresent(_ context.Context, facultyID, sessionID, studentID int64, confidence *float64, via models.MarkedVia) (*repositories.MarkResult, error) {
	session, ok := m.byID[sessionID]
	if !ok || session.FacultyID != facultyID {
		return nil, apperrors.ErrSessionNotFound
	}
	recs := m.records[sessionID]
	for i := range recs {
		if recs[i].StudentID != studentID {
			continue
		}
		if recs[i].IsPresent {
			return &repositories.MarkResult{Session: session, Record: &recs[i], AlreadyPresent: true}, nil
		}
		now := time.Now()
		recs[i].IsPresent = true
		recs[i].MarkedAt = &now
		recs[i].Confidence = confidence
		recs[i].MarkedVia = &via
		m.recompute(session)
		return &repositories.MarkResult{Session: session, Record: &recs[i]}, nil
	}
	return nil, apperrors.ErrStudentNotInRoster
}

func (m *mockAttendanceStore) SetAbsent(_ context.Context, facultyID, sessionID, studentID int64) (*repositories.MarkResult, error) {
	session, ok := m.byID[sessionID]
	if !ok || session.FacultyID != facultyID {
		return nil, apperrors.ErrSessionNotFound
	}
	recs := m.records[sessionID]
	for i := range recs {
		if recs[i].StudentID != studentID {
			continue
		}
		recs[i].IsPresent = false
		recs[i].MarkedAt = nil
		recs[i].Confidence = nil
		recs[i].MarkedVia = nil
		m.recompute(session)
		return &repositories.MarkResult{Session: session, Record: &recs[i]}, nil
	}
	return nil, apperrors.ErrStudentNotInRoster
}

func (m *mockAttendanceStore) GetByID(_ context.Context, facultyID, sessionID int64) (*models.AttendanceSession, error) {
	session, ok := m.byID[sessionID]
	if !ok || session.FacultyID != facultyID {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

func (m *mockAttendanceStore) GetByKey(_ context.Context, facultyID int64, subject, section string, sessionType models.SessionType, date time.Time) (*models.AttendanceSession, error) {
	if session, ok := m.sessions[sessionKey(facultyID, subject, section, sessionType, date)]; ok {
		return session, nil
	}
	return nil, apperrors.ErrSessionNotFound
}

func (m *mockAttendanceStore) Records(_ context.Context, sessionID int64) ([]models.AttendanceRecord, error) {
	return m.records[sessionID], nil
}

func (m *mockAttendanceStore) AbsentRecords(_ context.Context, sessionID int64) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range m.records[sessionID] {
		if !r.IsPresent {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockAttendanceStore) ListSessions(_ context.Context, facultyID int64, filter repositories.SessionFilter) ([]*models.AttendanceSession, error) {
	var out []*models.AttendanceSession
	for _, s := range m.byID {
		if s.FacultyID != facultyID {
			continue
		}
		if filter.Subject != "" && s.Subject != filter.Subject {
			continue
		}
		if filter.Section != "" && s.Section != filter.Section {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockAttendanceStore) StudentAggregates(_ context.Context, facultyID int64, subject, section string, sessionType models.SessionType) ([]repositories.StudentAggregate, error) {
	byStudent := make(map[int64]*repositories.StudentAggregate)
	var order []int64
	for _, s := range m.byID {
		if s.FacultyID != facultyID || s.Subject != subject || s.Section != section || s.SessionType != sessionType {
			continue
		}
		for _, r := range m.records[s.ID] {
			agg, ok := byStudent[r.StudentID]
			if !ok {
				agg = &repositories.StudentAggregate{
					StudentID:  r.StudentID,
					Name:       r.StudentName,
					RollNumber: r.RollNumber,
				}
				byStudent[r.StudentID] = agg
				order = append(order, r.StudentID)
			}
			agg.TotalSessions++
			if r.IsPresent {
				agg.PresentSessions++
				agg.LastPresent = r.MarkedAt
			}
		}
	}
	out := make([]repositories.StudentAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byStudent[id])
	}
	return out, nil
}

func (m *mockAttendanceStore) UpdateLocation(_ context.Context, facultyID, sessionID int64, location *models.Location) (*models.AttendanceSession, error) {
	session, ok := m.byID[sessionID]
	if !ok || session.FacultyID != facultyID {
		return nil, apperrors.ErrSessionNotFound
	}
	session.Location = location
	return session, nil
}

// mockEmbedder returns a canned descriptor
type mockEmbedder struct {
	descriptor []float64
	err        error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return m.descriptor, m.err
}

// mockLimiter tracks acquired keys; deny forces the cooldown path
type mockLimiter struct {
	deny bool
	keys []string
}

func (m *mockLimiter) Acquire(_ context.Context, key string, _ time.Duration) bool {
	m.keys = append(m.keys, key)
	return !m.deny
}

// mockPublisher records events pushed over the sync channel
type mockPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	facultyID int64
	eventType realtime.EventType
	payload   interface{}
}

func (m *mockPublisher) Publish(facultyID int64, eventType realtime.EventType, payload interface{}) {
	m.events = append(m.events, publishedEvent{facultyID: facultyID, eventType: eventType, payload: payload})
}
