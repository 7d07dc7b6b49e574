package service

import (
	"context"
	"errors"
	"time"

	"scheduled-payments/internal/model"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrUnknownActionType = errors.New("unknown action type")
	ErrContactRequired   = errors.New("at least one contact is required")
)

// ScheduleStore is the persistence the services need for schedules.
// *repository.ScheduleRepository implements it.
type ScheduleStore interface {
	Create(ctx context.Context, record *model.ScheduleRecord) error
	FindByID(ctx context.Context, userID, id uint) (*model.ScheduleRecord, error)
	ListFuture(ctx context.Context, userID uint, today time.Time) ([]model.ScheduleRecord, error)
	ListFutureByChannel(ctx context.Context, userID uint, channelID int, today time.Time) ([]model.ScheduleRecord, error)
	MarkComplete(ctx context.Context, record *model.ScheduleRecord) error
	Delete(ctx context.Context, userID, id uint) error
}

type ContactStore interface {
	GetOrCreate(ctx context.Context, userID uint, name, phone string) (*model.Contact, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Contact, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Contact, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	ListWithOpenSchedules(ctx context.Context, today time.Time) ([]model.User, error)
}
