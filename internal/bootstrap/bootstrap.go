package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/campusroll/rollcall/internal/app/controllers"
	appMigrations "github.com/campusroll/rollcall/internal/app/migrations"
	appRepos "github.com/campusroll/rollcall/internal/app/repositories"
	appRoutes "github.com/campusroll/rollcall/internal/app/routes"
	appServices "github.com/campusroll/rollcall/internal/app/services"
	"github.com/campusroll/rollcall/internal/config"
	"github.com/campusroll/rollcall/internal/db"
	"github.com/campusroll/rollcall/internal/facematch"
	appMiddleware "github.com/campusroll/rollcall/internal/middleware"
	pkgAuth "github.com/campusroll/rollcall/internal/pkg/auth"
	"github.com/campusroll/rollcall/internal/pkg/logger"
	"github.com/campusroll/rollcall/internal/realtime"
	"github.com/campusroll/rollcall/internal/schedule"
	"github.com/campusroll/rollcall/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos                *appRepos.Repositories
	Services             *appServices.Services
	JWTService           *pkgAuth.JWTService
	Hub                  *realtime.Hub
	RealtimeHandler      *realtime.Handler
	AuthController       *appControllers.AuthController
	AttendanceController *appControllers.AttendanceController
	StudentController    *appControllers.StudentController
	DeviceController     *appControllers.DeviceController
	TimetableController  *appControllers.TimetableController
	AuditController      *appControllers.AuditController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	RateLimiter          *appMiddleware.TokenBucket
	Redis                *db.Redis
	Logger               zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		configPath = env
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logger.Configure(logger.Config{
		Level:  logger.LogLevel(strings.ToLower(cfg.Logging.Level)),
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	pool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	lgr.Info().Msg("Database connection established")

	migrationsDir := "migrations"
	if env := os.Getenv("MIGRATIONS_DIR"); env != "" {
		migrationsDir = env
	}
	migrator := appMigrations.NewMigrator(pool)
	if err := migrator.ApplyDirectory(context.Background(), migrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations applied")

	if err := seed.CreateDefaultData(context.Background(), pool, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway")
	}

	return pool, nil
}

// BuildDependencies initializes repositories, services and controllers
func BuildDependencies(cfg *config.Config, pool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(pool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		RefreshTokenExp: config.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.Hub = realtime.NewHub(lgr)
	deps.RealtimeHandler = realtime.NewHandler(deps.Hub, lgr)

	deps.Redis = db.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
	limiter := appServices.NewRedisStartLimiter(deps.Redis)

	matcher := facematch.NewMatcher(cfg.Attendance.MatchThreshold)
	embedder := facematch.NewFacenetClient(
		cfg.Facenet.BaseURL,
		config.ParseDuration(cfg.Facenet.Timeout, 30*time.Second),
		cfg.Facenet.Skip,
	)

	slots := schedule.DefaultTable()

	deps.Services = &appServices.Services{
		Auth: appServices.NewAuthService(
			deps.Repos.Faculty, deps.Repos.Token, deps.Repos.Device, deps.JWTService, lgr),
		Device: appServices.NewDeviceService(
			deps.Repos.Device, deps.Repos.Token, deps.Hub, lgr),
		Student: appServices.NewStudentService(
			deps.Repos.Student, embedder, deps.Hub, lgr),
		Timetable: appServices.NewTimetableService(
			deps.Repos.Timetable, slots, deps.Hub, lgr),
		Attendance: appServices.NewAttendanceService(
			deps.Repos.Attendance, deps.Repos.Student, matcher, embedder,
			limiter, config.ParseDuration(cfg.Attendance.StartCooldown, time.Second), lgr),
		Audit: appServices.NewAuditService(deps.Repos.Audit, deps.Hub, lgr),
	}

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.RateLimiter = appMiddleware.NewTokenBucket(30, 30)

	deps.AuthController = appControllers.NewAuthController(deps.Services.Auth, deps.Services.Audit)
	deps.AttendanceController = appControllers.NewAttendanceController(deps.Services.Attendance)
	deps.StudentController = appControllers.NewStudentController(deps.Services.Student)
	deps.DeviceController = appControllers.NewDeviceController(deps.Services.Device, deps.Services.Audit)
	deps.TimetableController = appControllers.NewTimetableController(deps.Services.Timetable)
	deps.AuditController = appControllers.NewAuditController(deps.Services.Audit)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(), gin.Recovery())

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.AttendanceController,
		deps.StudentController,
		deps.DeviceController,
		deps.TimetableController,
		deps.AuditController,
		deps.RealtimeHandler,
		deps.AuthMiddleware,
		deps.Services.Device,
		deps.RateLimiter,
	)

	return router
}
