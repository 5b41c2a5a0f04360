// Package main provides the entry point of the Ring CRM API server
package main

// @title Ring CRM API
// @version 1.0
// @description Lead management, call tracking and scheduled-call reminders for small sales teams.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/ring-crm/app/handlers"
	"github.com/amirphl/ring-crm/app/middleware"
	"github.com/amirphl/ring-crm/app/router"
	"github.com/amirphl/ring-crm/app/scheduler"
	"github.com/amirphl/ring-crm/app/services"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/amirphl/ring-crm/config"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const captchaImageSize = 300

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	logger    *log.Logger
	stopFuncs []func()
	closers   []io.Closer
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	app.logger.Printf("Starting Ring CRM %s (%s)", cfg.Deployment.Version, cfg.Deployment.Environment)

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		app.logger.Printf("Server starting on %s", address)

		if err := app.router.Start(address); err != nil {
			app.logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	app.logger.Println("Shutting down gracefully...")

	// background workers first so no scan outlives the database
	for _, fn := range app.stopFuncs {
		fn()
	}

	if err := app.router.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		app.logger.Printf("Error during shutdown: %v", err)
	}
	for _, c := range app.closers {
		_ = c.Close()
	}

	app.logger.Println("Server stopped")
}

// initializeDatabase opens the connection pool and migrates the schema when enabled
func initializeDatabase(cfg config.DatabaseConfig, logger *log.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache returns nil when the cache is disabled; key stores then live in memory
func initializeCache(cfg config.CacheConfig, logger *log.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Printf("Redis connection established (db=%d)", opt.DB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *log.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService sends real mail when SMTP is configured and logs otherwise
func initializeNotificationService(cfg config.EmailConfig, logger *log.Logger) services.NotificationService {
	if cfg.Host == "" {
		logger.Println("EMAIL_HOST not set, reminder and reset emails will only be logged")
		return services.NewNotificationService(services.NewMockEmailProvider(logger))
	}
	return services.NewNotificationService(services.NewSMTPEmailProvider(
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail, cfg.FromName, cfg.Timeout,
	))
}

func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	logger, logCloser := scheduler.NewFileLogger(cfg.Logging, cfg.Logging.FilePath, "")
	app := &Application{config: cfg, logger: logger, closers: []io.Closer{logCloser}}

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second, logger))
		app.closers = append(app.closers, rc)
	}
	keys := services.NewKeyStore(rc, cfg.Cache.RedisPrefix)

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	contactRepo := repository.NewContactRepository(db)
	scheduledCallRepo := repository.NewScheduledCallRepository(db)
	callHistoryRepo := repository.NewCallHistoryRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	notificationService := initializeNotificationService(cfg.Email, logger)

	captchaSvc, err := services.NewCaptchaServiceRotate(keys, cfg.Captcha.TTL, cfg.Captcha.AngleTolerance, captchaImageSize)
	if err != nil {
		return nil, err
	}

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		keys,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	bcryptCost := cfg.Security.BcryptCost

	signupFlow := businessflow.NewSignupFlow(userRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL, bcryptCost, db)
	loginFlow := businessflow.NewLoginFlow(userRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL)
	resetFlow := businessflow.NewPasswordResetFlow(userRepo, auditRepo, notificationService, cfg.Reminder.AppBaseURL, bcryptCost, db, logger)
	profileFlow := businessflow.NewProfileFlow(userRepo)
	leadFlow := businessflow.NewLeadFlow(leadRepo, auditRepo, db)
	contactFlow := businessflow.NewContactFlow(contactRepo, db)
	scheduledCallFlow := businessflow.NewScheduledCallFlow(scheduledCallRepo, leadRepo)
	callHistoryFlow := businessflow.NewCallHistoryFlow(callHistoryRepo, leadRepo, scheduledCallRepo)
	paymentFlow := businessflow.NewPaymentFlow(paymentRepo, userRepo, auditRepo, db, cfg.Payment)
	adminAuthFlow := businessflow.NewAdminAuthFlow(userRepo, auditRepo, tokenService, captchaSvc, cfg.JWT.AccessTokenTTL)
	adminUserFlow := businessflow.NewAdminUserFlow(userRepo, auditRepo, bcryptCost, db)

	dispatcher := services.NewReminderDispatcher(notificationService, keys, cfg.Reminder.IdempotencyTTL, cfg.Reminder.DispatchTimeout)
	reminderFlow := businessflow.NewReminderFlow(
		scheduledCallRepo,
		auditRepo,
		dispatcher,
		cfg.Reminder.ScanWindow,
		cfg.Reminder.DispatchConcurrency,
		logger,
	)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := adminUserFlow.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to seed administrator: %w", err)
		}
		if created {
			logger.Printf("Administrator %s created", cfg.Admin.Email)
		}
	}

	app.router = router.NewFiberRouter(cfg, router.Handlers{
		Auth:          handlers.NewAuthHandler(signupFlow, loginFlow, resetFlow, logger),
		Profile:       handlers.NewProfileHandler(profileFlow, logger),
		Lead:          handlers.NewLeadHandler(leadFlow, logger),
		Contact:       handlers.NewContactHandler(contactFlow, logger),
		ScheduledCall: handlers.NewScheduledCallHandler(scheduledCallFlow, reminderFlow, logger),
		CallHistory:   handlers.NewCallHistoryHandler(callHistoryFlow, logger),
		Payment:       handlers.NewPaymentHandler(paymentFlow, logger),
		AdminAuth:     handlers.NewAdminAuthHandler(adminAuthFlow, logger),
		AdminUser:     handlers.NewAdminUserHandler(adminUserFlow, logger),
	}, middleware.NewAuthMiddleware(tokenService))

	if cfg.Scheduler.Enabled {
		schedLogger, schedCloser := scheduler.NewFileLogger(cfg.Logging, cfg.Logging.SchedulerFilePath, "scheduler ")
		app.closers = append(app.closers, schedCloser)
		sched := scheduler.NewReminderScheduler(reminderFlow, cfg.Scheduler.ReminderInterval, schedLogger)
		app.stopFuncs = append(app.stopFuncs, sched.Start(context.Background()))
	}

	return app, nil
}
