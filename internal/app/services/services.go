package services

// Services holds all the service instances
type Services struct {
	Auth       *AuthService
	Device     *DeviceService
	Student    *StudentService
	Timetable  *TimetableService
	Attendance *AttendanceService
	Audit      *AuditService
}
