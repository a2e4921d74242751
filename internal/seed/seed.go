package seed

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/app/repositories"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/pkg/auth"
)

// CreateDefaultData creates a demo faculty account in development
// environments. Controlled by SEED_DEMO_FACULTY; in production the
// variable is unset and this is a no-op.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	if os.Getenv("SEED_DEMO_FACULTY") == "" {
		return nil
	}

	facultyRepo := repositories.NewFacultyRepository(dbPool)
	lgr.Info().Msg("Checking/Creating demo faculty account...")

	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = "changeme123"
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	demo := &models.Faculty{
		Name:     "Demo Faculty",
		Email:    "demo@rollcall.local",
		Username: "demo",
		Password: hashed,
	}
	_, err = facultyRepo.Create(ctx, demo)
	if err != nil {
		if errors.Is(err, apperrors.ErrUsernameAlreadyTaken) || errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			lgr.Debug().Msg("Demo faculty already exists, skipping")
			return nil
		}
		lgr.Error().Err(err).Msg("Error creating demo faculty")
		return err
	}

	lgr.Info().Int64("facultyID", demo.ID).Msg("Demo faculty created")
	return nil
}
