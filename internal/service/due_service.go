package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
)

// Notification is a reminder ready to be delivered.
type Notification struct {
	ChatID     int64
	ScheduleID uint
	Title      string
	Text       string
}

// Notifier delivers reminders to users.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// DueItem is a schedule that fires on the evaluated day, with its owner and recipients.
type DueItem struct {
	User     model.User
	Record   model.ScheduleRecord
	Schedule schedule.Schedule
	Contacts []model.Contact
}

// RunReport summarizes one due check.
type RunReport struct {
	Checked int
	Due     int
	Sent    int
	Skipped int
	Failed  int
}

// DueService runs the periodic "what is due today" check.
type DueService struct {
	users     UserStore
	schedules ScheduleStore
	contacts  ContactStore
	ledger    DeliveryLedger
	notifier  Notifier
	logger    *zap.Logger
}

func NewDueService(users UserStore, schedules ScheduleStore, contacts ContactStore, ledger DeliveryLedger, notifier Notifier, logger *zap.Logger) *DueService {
	return &DueService{
		users:     users,
		schedules: schedules,
		contacts:  contacts,
		ledger:    ledger,
		notifier:  notifier,
		logger:    logger,
	}
}

// SetNotifier replaces the delivery target. The bot is built after the service
// it depends on, so serve wires it in afterwards.
func (s *DueService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Preview returns every schedule due on today without notifying anyone.
func (s *DueService) Preview(ctx context.Context, today time.Time) ([]DueItem, error) {
	users, err := s.users.ListWithOpenSchedules(ctx, schedule.Day(today))
	if err != nil {
		return nil, err
	}
	var items []DueItem
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		due, _, err := s.dueForUser(ctx, user, today, failFast)
		if err != nil {
			return nil, err
		}
		items = append(items, due...)
	}
	return items, nil
}

// PreviewForUser returns the user's schedules due on today.
func (s *DueService) PreviewForUser(ctx context.Context, user model.User, today time.Time) ([]DueItem, error) {
	items, _, err := s.dueForUser(ctx, user, today, failFast)
	return items, err
}

// recordErrorFunc decides what a per-schedule error does: a nil return skips
// the schedule, a non-nil one aborts the listing.
type recordErrorFunc func(record model.ScheduleRecord, err error) error

func failFast(_ model.ScheduleRecord, err error) error { return err }

func (s *DueService) dueForUser(ctx context.Context, user model.User, today time.Time, onRecordErr recordErrorFunc) ([]DueItem, int, error) {
	today = schedule.Day(today)
	records, err := s.schedules.ListFuture(ctx, user.ID, today)
	if err != nil {
		return nil, 0, err
	}

	var items []DueItem
	for _, record := range records {
		sched, err := ToSchedule(record)
		if err != nil {
			s.logger.Warn("skip malformed schedule", zap.Uint("schedule_id", record.ID), zap.Error(err))
			continue
		}
		if !schedule.IsDue(sched, today) {
			continue
		}
		contacts, err := s.contacts.FindByIDs(ctx, record.ContactIDs())
		if err != nil {
			if err := onRecordErr(record, fmt.Errorf("load recipients of schedule %d: %w", record.ID, err)); err != nil {
				return nil, 0, err
			}
			continue
		}
		items = append(items, DueItem{User: user, Record: record, Schedule: sched, Contacts: contacts})
	}
	return items, len(records), nil
}

// Run notifies every user about schedules due on today. A failure for one user or
// one schedule is logged and counted in Failed; only listing the users and
// cancellation abort the run.
func (s *DueService) Run(ctx context.Context, today time.Time) (RunReport, error) {
	var report RunReport
	if s.notifier == nil {
		return report, errors.New("due check: no notifier configured")
	}
	today = schedule.Day(today)

	users, err := s.users.ListWithOpenSchedules(ctx, today)
	if err != nil {
		return report, err
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		items, checked, err := s.dueForUser(ctx, user, today, func(record model.ScheduleRecord, err error) error {
			s.logger.Error("prepare reminder",
				zap.Uint("schedule_id", record.ID), zap.Uint("user_id", user.ID), zap.Error(err))
			report.Due++
			report.Failed++
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			s.logger.Error("list schedules", zap.Uint("user_id", user.ID), zap.Error(err))
			report.Failed++
			continue
		}
		report.Checked += checked
		report.Due += len(items)

		for _, item := range items {
			switch s.deliver(ctx, item, today) {
			case deliverySent:
				report.Sent++
			case deliverySkipped:
				report.Skipped++
			case deliveryFailed:
				report.Failed++
			}
		}
	}

	s.logger.Info("due check finished",
		zap.String("day", today.Format(schedule.DateLayout)),
		zap.Int("checked", report.Checked),
		zap.Int("due", report.Due),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

type deliveryResult int

const (
	deliverySent deliveryResult = iota
	deliverySkipped
	deliveryFailed
)

func (s *DueService) deliver(ctx context.Context, item DueItem, today time.Time) deliveryResult {
	log := s.logger.With(zap.Uint("schedule_id", item.Record.ID), zap.Uint("user_id", item.User.ID))

	first, err := s.ledger.MarkSent(ctx, item.Record.ID, today)
	if err != nil {
		log.Error("mark delivery", zap.Error(err))
		return deliveryFailed
	}
	if !first {
		return deliverySkipped
	}

	n := Notification{
		ChatID:     item.User.TelegramID,
		ScheduleID: item.Record.ID,
		Title:      Title(item.Record.Type),
		Text:       NotificationText(item.Record, item.Contacts),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Error("notify", zap.Error(err))
		if ferr := s.ledger.Forget(ctx, item.Record.ID, today); ferr != nil {
			log.Warn("forget delivery", zap.Error(ferr))
		}
		return deliveryFailed
	}

	if !item.Schedule.Frequency().Recurring() {
		record := item.Record
		if err := s.schedules.MarkComplete(ctx, &record); err != nil {
			log.Warn("complete one-off schedule", zap.Error(err))
		}
	}
	log.Info("reminder sent")
	return deliverySent
}
