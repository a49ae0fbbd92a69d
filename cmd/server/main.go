package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/office-booking/internal/config"
	"github.com/iliyamo/office-booking/internal/database"
	"github.com/iliyamo/office-booking/internal/handler"
	"github.com/iliyamo/office-booking/internal/jobs"
	"github.com/iliyamo/office-booking/internal/logger"
	"github.com/iliyamo/office-booking/internal/queue"
	"github.com/iliyamo/office-booking/internal/repository"
	"github.com/iliyamo/office-booking/internal/router"
	"github.com/iliyamo/office-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	log := logger.New("office-booking", cfg.LogLevel, cfg.IsProduction())

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		log.Info("database schema ensured")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	floors := repository.NewFloorRepo(db)
	spaces := repository.NewSpaceRepo(db)
	bookings := repository.NewBookingRepo(db)
	catalog := repository.NewCatalogRepo(db)
	profiles := repository.NewProfileRepo(db)
	tokens := repository.NewTokenRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	// Audit entries go through RabbitMQ when a broker is configured, else
	// straight into MySQL.
	var sink service.AuditSink = service.AuditSinkFunc(auditRepo.Insert)
	var publisher *queue.Publisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL, log)
		sink = service.AuditSinkFunc(publisher.PublishAudit)
		consumer := queue.NewConsumer(cfg.AMQPURL, auditRepo, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
		log.Info("audit events routed through rabbitmq")
	}
	auditor := service.NewAuditor(sink, log, cfg.AuditBuffer)

	bookingSvc := service.NewBookingService(bookings, auditor, log)

	e := router.New(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Log:       log,
		Roles:     profiles,
		DB:        db,
		Auth:      handler.NewAuthHandler(cfg, profiles, tokens, log),
		Floors:    handler.NewFloorHandler(floors, auditor),
		Spaces:    handler.NewSpaceHandler(spaces, auditor),
		Bookings:  handler.NewBookingHandler(bookingSvc),
		Config:    handler.NewConfigHandler(catalog, profiles, auditor),
		Profiles:  handler.NewProfileHandler(profiles, auditor, log, cfg.AllowSelfRoleAssign),
		Logs:      handler.NewLogHandler(auditRepo),
	})

	cleanup := jobs.NewCleanup(tokens, auditRepo, cfg.AuditRetentionDays, log)
	scheduler, err := cleanup.Schedule()
	if err != nil {
		log.WithError(err).Fatal("failed to schedule cleanup jobs")
	}
	scheduler.Start()

	go func() {
		addr := ":" + cfg.Port
		log.WithField("env", cfg.Env).Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
	<-scheduler.Stop().Done()
	if err := auditor.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("audit queue not fully drained")
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	log.Info("shutdown complete")
}
