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
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// TimetableRepository stores each faculty's weekly timetable as one
// JSONB document. Updates replace the whole week.
type TimetableRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewTimetableRepository(db *pgxpool.Pool) *TimetableRepository {
	return &TimetableRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the faculty's timetable, or an empty week when none is stored
func (r *TimetableRepository) Get(ctx context.Context, facultyID int64) ([]models.TimetableDay, error) {
	sql, args, err := r.sb.Select("days").
		From("timetables").
		Where(squirrel.Eq{"faculty_id": facultyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get timetable query: %w", err)
	}

	var raw []byte
	err = r.db.QueryRow(ctx, sql, args...).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.TimetableDay{}, nil
		}
		logger.Error().Err(err).Int64("facultyID", facultyID).Msg("Error reading timetable")
		return nil, fmt.Errorf("error getting timetable: %w", err)
	}

	days := []models.TimetableDay{}
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("corrupt timetable for faculty %d: %w", facultyID, err)
	}
	return days, nil
}

// Replace stores the given week wholesale, creating the row on first write
func (r *TimetableRepository) Replace(ctx context.Context, facultyID int64, days []models.TimetableDay) error {
	if days == nil {
		days = []models.TimetableDay{}
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to encode timetable: %w", err)
	}

	sql, args, err := r.sb.Insert("timetables").
		Columns("faculty_id", "days").
		Values(facultyID, raw).
		Suffix(`ON CONFLICT (faculty_id) DO UPDATE SET days = EXCLUDED.days, updated_at = $3`, time.Now()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build replace timetable query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("facultyID", facultyID).Msg("Error replacing timetable")
		return fmt.Errorf("error replacing timetable: %w", err)
	}
	return nil
}
