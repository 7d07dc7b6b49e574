package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"scheduled-payments/internal/config"
	"scheduled-payments/internal/repository"
	"scheduled-payments/internal/service"
	"scheduled-payments/pkg/logger"
	"scheduled-payments/pkg/redis"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "scheduledpayments",
	Short:         "Reminders for scheduled payments, airtime top-ups and money requests",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config/config.yaml or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, dueCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what both commands need: config, logger, database and services.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *gorm.DB
	userRepo    *repository.UserRepository
	scheduleSvc *service.ScheduleService
	dueSvc      *service.DueService
	rdb         *redis.Client
}

// newApp loads config and wires the services. sharedLedger selects the redis
// delivery ledger when redis is enabled; otherwise deliveries are tracked in process.
func newApp(sharedLedger bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	contactRepo := repository.NewContactRepository(db)

	var (
		ledger service.DeliveryLedger = service.NewMemoryLedger()
		rdb    *redis.Client
	)
	if sharedLedger && cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, log)
		if err != nil {
			closeDB(db)
			_ = log.Sync()
			return nil, fmt.Errorf("redis: %w", err)
		}
		ledger = service.NewRedisLedger(rdb)
	}

	return &app{
		cfg:         cfg,
		logger:      log,
		db:          db,
		userRepo:    userRepo,
		scheduleSvc: service.NewScheduleService(scheduleRepo, contactRepo, loc, log.Named("schedule")),
		dueSvc:      service.NewDueService(userRepo, scheduleRepo, contactRepo, ledger, nil, log.Named("due")),
		rdb:         rdb,
	}, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	closeDB(a.db)
	_ = a.logger.Sync()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
