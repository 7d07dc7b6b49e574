package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
)

// ContactInput identifies a recipient by phone; the name is optional.
type ContactInput struct {
	Name  string
	Phone string
}

// ScheduleInput represents data required to create a schedule.
type ScheduleInput struct {
	Type            string
	ChannelID       int
	ActionID        string
	FromInstitution string
	ToInstitution   string
	Contacts        []ContactInput
	Amount          string
	Note            string

	// Start defaults to today when nil.
	Start *time.Time
	// Repeat false makes a one-off schedule and ignores Frequency and End.
	Repeat    bool
	Frequency schedule.Frequency
	End       *time.Time
}

// ScheduleService wraps schedule-related business logic.
type ScheduleService struct {
	schedules ScheduleStore
	contacts  ContactStore
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewScheduleService(schedules ScheduleStore, contacts ContactStore, loc *time.Location, logger *zap.Logger) *ScheduleService {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleService{
		schedules: schedules,
		contacts:  contacts,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// Today is the current calendar day in the service's timezone.
func (s *ScheduleService) Today() time.Time {
	return schedule.Day(s.now().In(s.loc))
}

func (s *ScheduleService) Create(ctx context.Context, user *model.User, input ScheduleInput) (*model.ScheduleRecord, error) {
	switch input.Type {
	case model.ActionAirtime, model.ActionMe2Me:
	case model.ActionP2P, model.ActionRequest:
		if len(input.Contacts) == 0 {
			return nil, fmt.Errorf("%s: %w", input.Type, ErrContactRequired)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, input.Type)
	}

	sched, err := buildSchedule(input, s.Today())
	if err != nil {
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(input.Contacts))
	ids := make([]uint, 0, len(input.Contacts))
	for _, c := range input.Contacts {
		phone := strings.TrimSpace(c.Phone)
		if phone == "" {
			return nil, fmt.Errorf("contact %q: phone is required", c.Name)
		}
		contact, err := s.contacts.GetOrCreate(ctx, user.ID, strings.TrimSpace(c.Name), phone)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
		ids = append(ids, contact.ID)
	}

	record := model.ScheduleRecord{
		UserID:       user.ID,
		Type:         input.Type,
		ChannelID:    input.ChannelID,
		ActionID:     input.ActionID,
		RecipientIDs: model.JoinContactIDs(ids),
		Amount:       strings.TrimSpace(input.Amount),
		Note:         strings.TrimSpace(input.Note),
		Description:  Describe(input.Type, input.FromInstitution, input.ToInstitution, contacts),
		StartDate:    sched.Start(),
		Frequency:    sched.Frequency().Code(),
	}
	if end, ok := sched.End(); ok {
		record.EndDate = &end
	}

	if err := s.schedules.Create(ctx, &record); err != nil {
		return nil, err
	}

	s.logger.Info("schedule created",
		zap.Uint("schedule_id", record.ID),
		zap.Uint("user_id", user.ID),
		zap.String("type", record.Type),
		zap.Stringer("timing", sched),
	)
	return &record, nil
}

// buildSchedule applies the repeat rules and validates the timing.
func buildSchedule(input ScheduleInput, today time.Time) (schedule.Schedule, error) {
	start := today
	if input.Start != nil {
		start = *input.Start
	}
	if !input.Repeat {
		return schedule.NewOnce(start)
	}
	return schedule.New(start, input.End, input.Frequency)
}

// ToSchedule converts a stored record into the value the due evaluation works on.
func ToSchedule(record model.ScheduleRecord) (schedule.Schedule, error) {
	freq, err := schedule.FrequencyFromCode(record.Frequency)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("schedule %d: %w", record.ID, err)
	}
	sched, err := schedule.New(record.StartDate, record.EndDate, freq)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("schedule %d: %w", record.ID, err)
	}
	return sched, nil
}

// ListFuture returns the user's schedules that can still fire.
func (s *ScheduleService) ListFuture(ctx context.Context, user *model.User) ([]model.ScheduleRecord, error) {
	return s.schedules.ListFuture(ctx, user.ID, s.Today())
}

func (s *ScheduleService) ListFutureByChannel(ctx context.Context, user *model.User, channelID int) ([]model.ScheduleRecord, error) {
	return s.schedules.ListFutureByChannel(ctx, user.ID, channelID, s.Today())
}

func (s *ScheduleService) Get(ctx context.Context, user *model.User, id uint) (*model.ScheduleRecord, error) {
	record, err := s.schedules.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return record, nil
}

// ContactBook returns the user's saved recipients keyed by id.
func (s *ScheduleService) ContactBook(ctx context.Context, user *model.User) (map[uint]model.Contact, error) {
	contacts, err := s.contacts.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	book := make(map[uint]model.Contact, len(contacts))
	for _, c := range contacts {
		book[c.ID] = c
	}
	return book, nil
}

func (s *ScheduleService) MarkComplete(ctx context.Context, user *model.User, id uint) (*model.ScheduleRecord, error) {
	record, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.MarkComplete(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *ScheduleService) Delete(ctx context.Context, user *model.User, id uint) error {
	if err := s.schedules.Delete(ctx, user.ID, id); err != nil {
		return mapNotFound(err)
	}
	s.logger.Info("schedule deleted", zap.Uint("schedule_id", id), zap.Uint("user_id", user.ID))
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrScheduleNotFound
	}
	return err
}
