package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scheduled-payments/internal/api"
	"scheduled-payments/internal/bot"
	"scheduled-payments/internal/config"
	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the daily due check and the HTTP API",
	RunE:  serveRun,
}

func serveRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Telegram.Token == "" {
		return errors.New("telegram.token is required (set SCHEDULER_TELEGRAM_TOKEN)")
	}

	telegramBot, err := bot.New(a.cfg.Telegram.Token, a.cfg.Telegram.RatePerSec, a.userRepo, a.scheduleSvc, a.dueSvc, a.logger.Named("bot"))
	if err != nil {
		return err
	}
	a.dueSvc.SetNotifier(telegramBot)

	loc, err := a.cfg.Scheduler.Location()
	if err != nil {
		return err
	}
	scheduler := service.NewSchedulerService(loc, a.logger)
	entryID, err := scheduler.ScheduleDaily(a.cfg.Scheduler.CheckAt, func() {
		runDueCheck(ctx, a.dueSvc, loc, a.cfg.Scheduler.Timeout, a.logger)
	})
	if err != nil {
		return fmt.Errorf("schedule due check: %w", err)
	}
	if retry := a.cfg.Scheduler.RetryEvery; retry > 0 {
		if _, err := scheduler.ScheduleInterval(retry, func() {
			// Reminders never go out before the daily check time.
			if !pastClock(time.Now().In(loc), a.cfg.Scheduler.CheckAt) {
				return
			}
			runDueCheck(ctx, a.dueSvc, loc, a.cfg.Scheduler.Timeout, a.logger)
		}); err != nil {
			return fmt.Errorf("schedule due retry: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()
	a.logger.Info("due check scheduled",
		zap.String("at", a.cfg.Scheduler.CheckAt),
		zap.String("timezone", loc.String()),
		zap.Time("next", scheduler.Next(entryID)),
	)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(a.userRepo, a.scheduleSvc, a.dueSvc)
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           api.NewRouter(handler, a.logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server", zap.Error(err))
		}
	}()

	a.logger.Info("scheduled payments service started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func runDueCheck(ctx context.Context, dueSvc *service.DueService, loc *time.Location, timeout time.Duration, logger *zap.Logger) {
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := dueSvc.Run(jobCtx, schedule.Today(loc)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("due check", zap.Error(err))
	}
}

// pastClock reports whether now is at or after the HH:MM clock time on its own day.
func pastClock(now time.Time, clock string) bool {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return false
	}
	return now.Hour() > hour || (now.Hour() == hour && now.Minute() >= minute)
}
