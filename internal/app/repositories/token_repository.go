package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/logger"
)

// RefreshToken is a stored refresh token row
type RefreshToken struct {
	ID        int64
	FacultyID int64
	DeviceID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenRepository persists refresh tokens per faculty and device
type TokenRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Save stores a refresh token, replacing any previous token for the
// same faculty and device so each device holds at most one
func (r *TokenRepository) Save(ctx context.Context, facultyID int64, deviceID, token string, expiresAt time.Time) error {
	delSQL, delArgs, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Eq{"faculty_id": facultyID, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete token query: %w", err)
	}
	if _, err := r.db.Exec(ctx, delSQL, delArgs...); err != nil {
		logger.Error().Err(err).Msg("Error deleting previous refresh token")
		return fmt.Errorf("error replacing refresh token: %w", err)
	}

	insSQL, insArgs, err := r.sb.Insert("refresh_tokens").
		Columns("faculty_id", "device_id", "token", "expires_at").
		Values(facultyID, deviceID, token, expiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert token query: %w", err)
	}
	if _, err := r.db.Exec(ctx, insSQL, insArgs...); err != nil {
		logger.Error().Err(err).Msg("Error inserting refresh token")
		return fmt.Errorf("error saving refresh token: %w", err)
	}
	return nil
}

// Get looks up a refresh token. Expired tokens are treated as absent.
func (r *TokenRepository) Get(ctx context.Context, token string) (*RefreshToken, error) {
	sql, args, err := r.sb.Select("id", "faculty_id", "device_id", "token", "expires_at", "created_at").
		From("refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get token query: %w", err)
	}

	rt := &RefreshToken{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&rt.ID, &rt.FacultyID, &rt.DeviceID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTokenNotFound
		}
		logger.Error().Err(err).Msg("Error scanning refresh token row")
		return nil, fmt.Errorf("error getting refresh token: %w", err)
	}

	if time.Now().After(rt.ExpiresAt) {
		_ = r.Delete(ctx, token)
		return nil, apperrors.ErrTokenExpired
	}
	return rt, nil
}

// Delete removes one refresh token
func (r *TokenRepository) Delete(ctx context.Context, token string) error {
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete token query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// DeleteForDevice removes every refresh token issued to a device.
// Used when a device is force logged out or revoked.
func (r *TokenRepository) DeleteForDevice(ctx context.Context, facultyID int64, deviceID string) error {
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Eq{"faculty_id": facultyID, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete device tokens query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting device refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired prunes expired tokens, returning the number removed
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("error pruning expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
