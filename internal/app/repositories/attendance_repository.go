package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/db"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// AttendanceRepository is the session ledger. One session exists per
// (faculty, subject, section, session type, date); records are seeded
// absent from the roster at session start and flip to present at most
// once. Counters are always recomputed from the records inside the
// same transaction that mutates them.
type AttendanceRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const sessionColumns = `id, faculty_id, subject, section, session_type, hours, session_date,
	total_students, present_students, absent_students, location, created_at, updated_at`

func scanSession(row pgx.Row) (*models.AttendanceSession, error) {
	s := &models.AttendanceSession{}
	var hours []int32
	var location []byte
	err := row.Scan(&s.ID, &s.FacultyID, &s.Subject, &s.Section, &s.SessionType,
		&hours, &s.Date, &s.TotalStudents, &s.PresentStudents, &s.AbsentStudents,
		&location, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Hours = make([]int, len(hours))
	for i, h := range hours {
		s.Hours[i] = int(h)
	}
	if len(location) > 0 {
		s.Location = &models.Location{}
		if err := json.Unmarshal(location, s.Location); err != nil {
			return nil, fmt.Errorf("corrupt location for session %d: %w", s.ID, err)
		}
	}
	return s, nil
}

func int32Hours(hours []int) []int32 {
	out := make([]int32, len(hours))
	for i, h := range hours {
		out[i] = int32(h)
	}
	return out
}

// StartResult is the outcome of StartOrGet
type StartResult struct {
	Session        *models.AttendanceSession
	Records        []models.AttendanceRecord
	AlreadyExisted bool
}

// StartOrGet creates today's session for the class group, seeding one
// absent record per roster student. If the session already exists it is
// returned as-is; starting is idempotent per day.
func (r *AttendanceRepository) StartOrGet(ctx context.Context, session *models.AttendanceSession, roster []*models.Student) (*StartResult, error) {
	if len(roster) == 0 {
		return nil, apperrors.ErrRosterEmpty
	}

	var result *StartResult
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var locationJSON []byte
		if session.Location != nil {
			var err error
			locationJSON, err = json.Marshal(session.Location)
			if err != nil {
				return fmt.Errorf("failed to encode location: %w", err)
			}
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO attendance_sessions
				(faculty_id, subject, section, session_type, hours, session_date,
				 total_students, present_students, absent_students, location)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $7, $8)
			ON CONFLICT (faculty_id, subject, section, session_type, session_date) DO NOTHING
			RETURNING `+sessionColumns,
			session.FacultyID, session.Subject, session.Section, session.SessionType,
			int32Hours(session.Hours), session.Date, len(roster), locationJSON)

		created, err := scanSession(row)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			logger.Error().Err(err).Msg("Error creating attendance session")
			return fmt.Errorf("error creating attendance session: %w", err)
		}

		if created == nil {
			// Lost the race or the session already existed; load it.
			existing, err := r.getByKeyTx(ctx, tx, session.FacultyID, session.Subject,
				session.Section, session.SessionType, session.Date)
			if err != nil {
				return err
			}
			records, err := r.recordsTx(ctx, tx, existing.ID)
			if err != nil {
				return err
			}
			result = &StartResult{Session: existing, Records: records, AlreadyExisted: true}
			return nil
		}

		for _, student := range roster {
			_, err := tx.Exec(ctx, `
				INSERT INTO attendance_records (session_id, student_id, student_name, roll_number, is_present)
				VALUES ($1, $2, $3, $4, FALSE)`,
				created.ID, student.ID, student.Name, student.RollNumber)
			if err != nil {
				return fmt.Errorf("error seeding attendance record: %w", err)
			}
		}

		records, err := r.recordsTx(ctx, tx, created.ID)
		if err != nil {
			return err
		}
		result = &StartResult{Session: created, Records: records, AlreadyExisted: false}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkResult is the outcome of a presence mutation
type MarkResult struct {
	Session        *models.AttendanceSession
	Record         *models.AttendanceRecord
	AlreadyPresent bool
}

// MarkPresent flips a student's record to present. The session row is
// locked for the duration so concurrent marks serialize, and marking a
// student who is already present is a no-op that reports AlreadyPresent.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, facultyID, sessionID, studentID int64, confidence *float64, via models.MarkedVia) (*MarkResult, error) {
	var result *MarkResult
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		session, err := r.lockSession(ctx, tx, facultyID, sessionID)
		if err != nil {
			return err
		}

		record, err := r.recordForStudentTx(ctx, tx, sessionID, studentID)
		if err != nil {
			return err
		}

		if record.IsPresent {
			result = &MarkResult{Session: session, Record: record, AlreadyPresent: true}
			return nil
		}

		now := time.Now()
		_, err = tx.Exec(ctx, `
			UPDATE attendance_records
			SET is_present = TRUE, marked_at = $1, confidence = $2, marked_via = $3
			WHERE id = $4`,
			now, confidence, via, record.ID)
		if err != nil {
			return fmt.Errorf("error marking record present: %w", err)
		}
		record.IsPresent = true
		record.MarkedAt = &now
		record.Confidence = confidence
		record.MarkedVia = &via

		session, err = r.recomputeCounters(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		result = &MarkResult{Session: session, Record: record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetAbsent reverts a student's record to absent. Used by the manual
// correction flow.
func (r *AttendanceRepository) SetAbsent(ctx context.Context, facultyID, sessionID, studentID int64) (*MarkResult, error) {
	var result *MarkResult
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		session, err := r.lockSession(ctx, tx, facultyID, sessionID)
		if err != nil {
			return err
		}

		record, err := r.recordForStudentTx(ctx, tx, sessionID, studentID)
		if err != nil {
			return err
		}

		if record.IsPresent {
			_, err = tx.Exec(ctx, `
				UPDATE attendance_records
				SET is_present = FALSE, marked_at = NULL, confidence = NULL, marked_via = NULL
				WHERE id = $1`, record.ID)
			if err != nil {
				return fmt.Errorf("error marking record absent: %w", err)
			}
			record.IsPresent = false
			record.MarkedAt = nil
			record.Confidence = nil
			record.MarkedVia = nil

			session, err = r.recomputeCounters(ctx, tx, sessionID)
			if err != nil {
				return err
			}
		}
		result = &MarkResult{Session: session, Record: record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockSession loads the session row FOR UPDATE, checking ownership
func (r *AttendanceRepository) lockSession(ctx context.Context, tx pgx.Tx, facultyID, sessionID int64) (*models.AttendanceSession, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE id = $1 AND faculty_id = $2
		FOR UPDATE`, sessionID, facultyID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error locking session: %w", err)
	}
	return session, nil
}

// recomputeCounters derives the session counters from its records
func (r *AttendanceRepository) recomputeCounters(ctx context.Context, tx pgx.Tx, sessionID int64) (*models.AttendanceSession, error) {
	row := tx.QueryRow(ctx, `
		UPDATE attendance_sessions SET
			total_students = sub.total,
			present_students = sub.present,
			absent_students = sub.total - sub.present,
			updated_at = NOW()
		FROM (
			SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_present) AS present
			FROM attendance_records WHERE session_id = $1
		) AS sub
		WHERE id = $1
		RETURNING `+sessionColumns, sessionID)
	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("error recomputing session counters: %w", err)
	}
	return session, nil
}

// GetByID loads one of the faculty's sessions
func (r *AttendanceRepository) GetByID(ctx context.Context, facultyID, sessionID int64) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE id = $1 AND faculty_id = $2`, sessionID, facultyID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	return session, nil
}

// GetByKey loads the session for one class group on one date
func (r *AttendanceRepository) GetByKey(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType, date time.Time) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE faculty_id = $1 AND subject = $2 AND section = $3
			AND session_type = $4 AND session_date = $5`,
		facultyID, subject, section, sessionType, date)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error getting session by key: %w", err)
	}
	return session, nil
}

func (r *AttendanceRepository) getByKeyTx(ctx context.Context, tx pgx.Tx, facultyID int64, subject, section string, sessionType models.SessionType, date time.Time) (*models.AttendanceSession, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE faculty_id = $1 AND subject = $2 AND section = $3
			AND session_type = $4 AND session_date = $5`,
		facultyID, subject, section, sessionType, date)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error getting session by key: %w", err)
	}
	return session, nil
}

const recordColumns = `id, session_id, student_id, student_name, roll_number,
	is_present, marked_at, confidence, marked_via`

func scanRecord(row pgx.Row) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.StudentName,
		&rec.RollNumber, &rec.IsPresent, &rec.MarkedAt, &rec.Confidence, &rec.MarkedVia)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Records returns the session's ledger rows ordered by roll number
func (r *AttendanceRepository) Records(ctx context.Context, sessionID int64) ([]models.AttendanceRecord, error) {
	return r.records(ctx, r.db, sessionID, false)
}

// AbsentRecords returns only the students still marked absent, the
// population a retake pass works through
func (r *AttendanceRepository) AbsentRecords(ctx context.Context, sessionID int64) ([]models.AttendanceRecord, error) {
	return r.records(ctx, r.db, sessionID, true)
}

func (r *AttendanceRepository) recordsTx(ctx context.Context, tx pgx.Tx, sessionID int64) ([]models.AttendanceRecord, error) {
	return r.records(ctx, tx, sessionID, false)
}

func (r *AttendanceRepository) records(ctx context.Context, q querier, sessionID int64, absentOnly bool) ([]models.AttendanceRecord, error) {
	sql := `SELECT ` + recordColumns + ` FROM attendance_records WHERE session_id = $1`
	if absentOnly {
		sql += ` AND is_present = FALSE`
	}
	sql += ` ORDER BY roll_number ASC`

	rows, err := q.Query(ctx, sql, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error listing attendance records: %w", err)
	}
	defer rows.Close()

	records := []models.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *AttendanceRepository) recordForStudentTx(ctx context.Context, tx pgx.Tx, sessionID, studentID int64) (*models.AttendanceRecord, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE session_id = $1 AND student_id = $2`, sessionID, studentID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotInRoster
		}
		return nil, fmt.Errorf("error getting attendance record: %w", err)
	}
	return rec, nil
}

// SessionFilter narrows historical session queries
type SessionFilter struct {
	Subject   string
	Section   string
	StartDate *time.Time
	EndDate   *time.Time
}

// maxReportSessions caps history queries, newest first
const maxReportSessions = 100

// ListSessions returns the faculty's sessions, most recent first
func (r *AttendanceRepository) ListSessions(ctx context.Context, facultyID int64, filter SessionFilter) ([]*models.AttendanceSession, error) {
	q := r.sb.Select("id", "faculty_id", "subject", "section", "session_type", "hours",
		"session_date", "total_students", "present_students", "absent_students",
		"location", "created_at", "updated_at").
		From("attendance_sessions").
		Where(squirrel.Eq{"faculty_id": facultyID}).
		OrderBy("session_date DESC", "id DESC").
		Limit(maxReportSessions)

	if filter.Subject != "" {
		q = q.Where(squirrel.Eq{"subject": filter.Subject})
	}
	if filter.Section != "" {
		q = q.Where(squirrel.Eq{"section": filter.Section})
	}
	if filter.StartDate != nil {
		q = q.Where(squirrel.GtOrEq{"session_date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		q = q.Where(squirrel.LtOrEq{"session_date": *filter.EndDate})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list sessions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.AttendanceSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// StudentAggregate is one student's attendance totals across sessions
type StudentAggregate struct {
	StudentID       int64
	Name            string
	RollNumber      string
	TotalSessions   int
	PresentSessions int
	LastPresent     *time.Time
}

// StudentAggregates computes per-student totals across every session of
// one class group
func (r *AttendanceRepository) StudentAggregates(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType) ([]StudentAggregate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ar.student_id, ar.student_name, ar.roll_number,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE ar.is_present) AS present,
			MAX(ar.marked_at) FILTER (WHERE ar.is_present) AS last_present
		FROM attendance_records ar
		JOIN attendance_sessions s ON s.id = ar.session_id
		WHERE s.faculty_id = $1 AND s.subject = $2 AND s.section = $3 AND s.session_type = $4
		GROUP BY ar.student_id, ar.student_name, ar.roll_number
		ORDER BY ar.roll_number ASC`,
		facultyID, subject, section, sessionType)
	if err != nil {
		return nil, fmt.Errorf("error aggregating student attendance: %w", err)
	}
	defer rows.Close()

	aggregates := []StudentAggregate{}
	for rows.Next() {
		var a StudentAggregate
		err := rows.Scan(&a.StudentID, &a.Name, &a.RollNumber,
			&a.TotalSessions, &a.PresentSessions, &a.LastPresent)
		if err != nil {
			return nil, fmt.Errorf("error scanning student aggregate: %w", err)
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

// UpdateLocation attaches or replaces the session's location snapshot
func (r *AttendanceRepository) UpdateLocation(ctx context.Context, facultyID, sessionID int64, location *models.Location) (*models.AttendanceSession, error) {
	raw, err := json.Marshal(location)
	if err != nil {
		return nil, fmt.Errorf("failed to encode location: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE attendance_sessions
		SET location = $1, updated_at = NOW()
		WHERE id = $2 AND faculty_id = $3
		RETURNING `+sessionColumns, raw, sessionID, facultyID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error updating session location: %w", err)
	}
	return session, nil
}
