package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// How much history a faculty can page back through
const maxAuditLogs = 100

// AuditRepository persists the security audit trail
type AuditRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var auditColumns = []string{
	"id", "faculty_id", "action", "details", "platform",
	"device_id", "device_name", "ip_address", "created_at",
}

// Insert appends one entry and fills in its id and timestamp
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	sql, args, err := r.sb.Insert("audit_logs").
		Columns("faculty_id", "action", "details", "platform", "device_id", "device_name", "ip_address").
		Values(entry.FacultyID, entry.Action, entry.Details, entry.Platform,
			entry.DeviceID, entry.DeviceName, entry.IPAddress).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert audit query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("facultyID", entry.FacultyID).Msg("Error inserting audit log")
		return fmt.Errorf("error inserting audit log: %w", err)
	}
	return nil
}

// ListForFaculty returns the faculty's most recent entries, newest first
func (r *AuditRepository) ListForFaculty(ctx context.Context, facultyID int64) ([]models.AuditLog, error) {
	sql, args, err := r.sb.Select(auditColumns...).
		From("audit_logs").
		Where(squirrel.Eq{"faculty_id": facultyID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(maxAuditLogs).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list audit query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.FacultyID, &l.Action, &l.Details, &l.Platform,
			&l.DeviceID, &l.DeviceName, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning audit row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
