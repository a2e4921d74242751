package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
	"github.com/campusroll/rollcall/internal/realtime"
	"github.com/campusroll/rollcall/internal/schedule"
)

// TimetableStore persists weekly timetables
type TimetableStore interface {
	Get(ctx context.Context, facultyID int64) ([]models.TimetableDay, error)
	Replace(ctx context.Context, facultyID int64, days []models.TimetableDay) error
}

// TimetableService stores weekly timetables and resolves the currently
// live session against the hour-slot table
type TimetableService struct {
	timetableStore TimetableStore
	slots          *schedule.SlotTable
	publisher      Publisher
	logger         zerolog.Logger
}

func NewTimetableService(
	timetableStore TimetableStore,
	slots *schedule.SlotTable,
	publisher Publisher,
	logger zerolog.Logger,
) *TimetableService {
	return &TimetableService{
		timetableStore: timetableStore,
		slots:          slots,
		publisher:      publisher,
		logger:         logger,
	}
}

// Get returns the stored weekly timetable
func (s *TimetableService) Get(ctx context.Context, facultyID int64) ([]models.TimetableDay, error) {
	return s.timetableStore.Get(ctx, facultyID)
}

// Replace validates and stores the whole week, then notifies every
// connected device
func (s *TimetableService) Replace(ctx context.Context, facultyID int64, days []models.TimetableDay) error {
	if err := s.validate(days); err != nil {
		return err
	}
	if err := s.timetableStore.Replace(ctx, facultyID, days); err != nil {
		return err
	}

	s.publisher.Publish(facultyID, realtime.EventTimetableUpdated, realtime.TimetableUpdated{Timetable: days})
	s.logger.Info().Int64("facultyID", facultyID).Int("days", len(days)).Msg("Timetable replaced")
	return nil
}

// Live resolves the session that is active right now, or nil
func (s *TimetableService) Live(ctx context.Context, facultyID int64, now time.Time) (*schedule.LiveSession, error) {
	days, err := s.timetableStore.Get(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	return schedule.Resolve(s.slots, days, now), nil
}

func (s *TimetableService) validate(days []models.TimetableDay) error {
	seen := map[string]bool{}
	for _, day := range days {
		if seen[day.Day] {
			return apperrors.NewBadRequestError(fmt.Sprintf("duplicate day %q in timetable", day.Day))
		}
		seen[day.Day] = true

		for _, session := range day.Sessions {
			if session.Subject == "" || session.Section == "" {
				return apperrors.NewBadRequestError("timetable session needs a subject and section")
			}
			if !models.ValidSessionType(session.SessionType) {
				return apperrors.NewBadRequestError(fmt.Sprintf("invalid session type %q", session.SessionType))
			}
			if len(session.Hours) == 0 {
				return apperrors.NewBadRequestError("timetable session needs at least one hour")
			}
			for _, hour := range session.Hours {
				if _, ok := s.slots.Lookup(hour); !ok {
					return apperrors.NewBadRequestError(fmt.Sprintf("unknown hour slot %d", hour))
				}
			}
		}
	}
	return nil
}
