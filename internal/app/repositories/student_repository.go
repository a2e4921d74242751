package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// StudentRepository persists enrolled students and their face descriptors
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var studentColumns = []string{
	"id", "faculty_id", "name", "roll_number", "subject", "section",
	"session_type", "face_descriptor", "created_at", "updated_at",
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	s := &models.Student{}
	var descriptor []byte
	err := row.Scan(&s.ID, &s.FacultyID, &s.Name, &s.RollNumber, &s.Subject,
		&s.Section, &s.SessionType, &descriptor, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(descriptor) > 0 {
		if err := json.Unmarshal(descriptor, &s.FaceDescriptor); err != nil {
			return nil, fmt.Errorf("corrupt face descriptor for student %d: %w", s.ID, err)
		}
	}
	return s, nil
}

func marshalDescriptor(descriptor []float64) (interface{}, error) {
	if descriptor == nil {
		return nil, nil
	}
	return json.Marshal(descriptor)
}

// Create enrolls a student into a class group
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	descriptor, err := marshalDescriptor(student.FaceDescriptor)
	if err != nil {
		return 0, fmt.Errorf("failed to encode face descriptor: %w", err)
	}

	sql, args, err := r.sb.Insert("students").
		Columns("faculty_id", "name", "roll_number", "subject", "section", "session_type", "face_descriptor").
		Values(student.FacultyID, student.Name, student.RollNumber, student.Subject,
			student.Section, student.SessionType, descriptor).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create student query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, apperrors.ErrRollNumberExists
		}
		logger.Error().Err(err).Msg("Error executing create student query")
		return 0, fmt.Errorf("error creating student: %w", err)
	}
	return student.ID, nil
}

// GetByID retrieves one of the faculty's students
func (r *StudentRepository) GetByID(ctx context.Context, facultyID, id int64) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"id": id, "faculty_id": facultyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student: %w", err)
	}
	return student, nil
}

// StudentFilter narrows student queries to a class group. Empty fields
// are not applied.
type StudentFilter struct {
	Subject     string
	Section     string
	SessionType string
}

// List returns students ordered by roll number, optionally filtered
func (r *StudentRepository) List(ctx context.Context, facultyID int64, filter StudentFilter) ([]*models.Student, error) {
	q := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"faculty_id": facultyID}).
		OrderBy("roll_number ASC")

	if filter.Subject != "" {
		q = q.Where(squirrel.Eq{"subject": filter.Subject})
	}
	if filter.Section != "" {
		q = q.Where(squirrel.Eq{"section": filter.Section})
	}
	if filter.SessionType != "" {
		q = q.Where(squirrel.Eq{"session_type": filter.SessionType})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Roster returns the students enrolled in one exact class group, the
// population an attendance session is seeded from
func (r *StudentRepository) Roster(ctx context.Context, facultyID int64, subject, section string, sessionType models.SessionType) ([]*models.Student, error) {
	return r.List(ctx, facultyID, StudentFilter{
		Subject:     subject,
		Section:     section,
		SessionType: string(sessionType),
	})
}

// Update applies the non-nil fields of the update to a student
func (r *StudentRepository) Update(ctx context.Context, facultyID, id int64, name, rollNumber *string, descriptor []float64) (*models.Student, error) {
	q := r.sb.Update("students").
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "faculty_id": facultyID})

	if name != nil {
		q = q.Set("name", *name)
	}
	if rollNumber != nil {
		q = q.Set("roll_number", *rollNumber)
	}
	if descriptor != nil {
		encoded, err := marshalDescriptor(descriptor)
		if err != nil {
			return nil, fmt.Errorf("failed to encode face descriptor: %w", err)
		}
		q = q.Set("face_descriptor", encoded)
	}

	sql, args, err := q.Suffix("RETURNING " + joinColumns(studentColumns)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		if isDuplicateKeyError(err) {
			return nil, apperrors.ErrRollNumberExists
		}
		return nil, fmt.Errorf("error updating student: %w", err)
	}
	return student, nil
}

// Delete removes a student and, via cascade, their attendance records
func (r *StudentRepository) Delete(ctx context.Context, facultyID, id int64) (*models.Student, error) {
	sql, args, err := r.sb.Delete("students").
		Where(squirrel.Eq{"id": id, "faculty_id": facultyID}).
		Suffix("RETURNING " + joinColumns(studentColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error deleting student: %w", err)
	}
	return student, nil
}
