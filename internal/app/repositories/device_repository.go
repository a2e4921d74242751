package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// DeviceRepository persists registered devices and their trust state
type DeviceRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var deviceColumns = []string{"id", "faculty_id", "device_id", "device_name", "is_trusted", "last_login"}

func scanDevice(row pgx.Row) (*models.Device, error) {
	d := &models.Device{}
	err := row.Scan(&d.ID, &d.FacultyID, &d.DeviceID, &d.DeviceName, &d.IsTrusted, &d.LastLogin)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Upsert registers a device on login. The device identifier is stored
// normalized; the first device a faculty registers is trusted
// automatically, later ones start untrusted.
func (r *DeviceRepository) Upsert(ctx context.Context, facultyID int64, deviceID, deviceName string) (*models.Device, error) {
	deviceID = models.NormalizeDeviceID(deviceID)
	now := time.Now()

	count, err := r.countForFaculty(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	trustByDefault := count == 0

	sql, args, err := r.sb.Insert("devices").
		Columns("faculty_id", "device_id", "device_name", "is_trusted", "last_login").
		Values(facultyID, deviceID, deviceName, trustByDefault, now).
		Suffix(`ON CONFLICT (faculty_id, device_id) DO UPDATE
			SET device_name = CASE WHEN EXCLUDED.device_name <> '' THEN EXCLUDED.device_name ELSE devices.device_name END,
			    last_login = EXCLUDED.last_login,
			    updated_at = NOW()
			RETURNING ` + joinColumns(deviceColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert device query: %w", err)
	}

	device, err := scanDevice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		logger.Error().Err(err).Int64("facultyID", facultyID).Msg("Error upserting device")
		return nil, fmt.Errorf("error registering device: %w", err)
	}
	return device, nil
}

// GetByDeviceID looks up a faculty's device by its normalized identifier
func (r *DeviceRepository) GetByDeviceID(ctx context.Context, facultyID int64, deviceID string) (*models.Device, error) {
	deviceID = models.NormalizeDeviceID(deviceID)

	sql, args, err := r.sb.Select(deviceColumns...).
		From("devices").
		Where(squirrel.Eq{"faculty_id": facultyID, "device_id": deviceID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get device query: %w", err)
	}

	device, err := scanDevice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("error getting device: %w", err)
	}
	return device, nil
}

// ListForFaculty returns all of a faculty's devices, most recent login first
func (r *DeviceRepository) ListForFaculty(ctx context.Context, facultyID int64) ([]models.Device, error) {
	sql, args, err := r.sb.Select(deviceColumns...).
		From("devices").
		Where(squirrel.Eq{"faculty_id": facultyID}).
		OrderBy("last_login DESC NULLS LAST", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list devices query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning device row: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// SetTrusted toggles a device's trusted flag
func (r *DeviceRepository) SetTrusted(ctx context.Context, facultyID, id int64, trusted bool) (*models.Device, error) {
	sql, args, err := r.sb.Update("devices").
		Set("is_trusted", trusted).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "faculty_id": facultyID}).
		Suffix("RETURNING " + joinColumns(deviceColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build set trusted query: %w", err)
	}

	device, err := scanDevice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("error updating device trust: %w", err)
	}
	return device, nil
}

// Rename changes a device's display name
func (r *DeviceRepository) Rename(ctx context.Context, facultyID, id int64, name string) (*models.Device, error) {
	sql, args, err := r.sb.Update("devices").
		Set("device_name", name).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "faculty_id": facultyID}).
		Suffix("RETURNING " + joinColumns(deviceColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build rename device query: %w", err)
	}

	device, err := scanDevice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("error renaming device: %w", err)
	}
	return device, nil
}

// Delete removes a device registration entirely
func (r *DeviceRepository) Delete(ctx context.Context, facultyID, id int64) (*models.Device, error) {
	sql, args, err := r.sb.Delete("devices").
		Where(squirrel.Eq{"id": id, "faculty_id": facultyID}).
		Suffix("RETURNING " + joinColumns(deviceColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete device query: %w", err)
	}

	device, err := scanDevice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("error deleting device: %w", err)
	}
	return device, nil
}

func (r *DeviceRepository) countForFaculty(ctx context.Context, facultyID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM devices WHERE faculty_id = $1`, facultyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting devices: %w", err)
	}
	return count, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
