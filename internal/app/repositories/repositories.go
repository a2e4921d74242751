package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	Faculty    *FacultyRepository
	Token      *TokenRepository
	Device     *DeviceRepository
	Student    *StudentRepository
	Timetable  *TimetableRepository
	Attendance *AttendanceRepository
	Audit      *AuditRepository
}

// NewRepositories initializes all repositories over one pool
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Faculty:    NewFacultyRepository(pool),
		Token:      NewTokenRepository(pool),
		Device:     NewDeviceRepository(pool),
		Student:    NewStudentRepository(pool),
		Timetable:  NewTimetableRepository(pool),
		Attendance: NewAttendanceRepository(pool),
		Audit:      NewAuditRepository(pool),
	}
}
