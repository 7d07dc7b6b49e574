package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scheduled-payments/internal/model"
)

// UserRepository stores Telegram accounts.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram registers the account on first contact and refreshes its
// profile on every later one.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	db := r.db.WithContext(ctx)
	profile := model.User{
		TelegramID: telegramID,
		FirstName:  firstName,
		LastName:   lastName,
		Username:   username,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "updated_at"}),
	}).Create(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", telegramID, err)
	}

	var user model.User
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("reload user %d: %w", telegramID, err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWithOpenSchedules returns the users owning at least one schedule that can
// still fire on or after today.
func (r *UserRepository) ListWithOpenSchedules(ctx context.Context, today time.Time) ([]model.User, error) {
	db := r.db.WithContext(ctx)
	owners := future(db.Model(&model.ScheduleRecord{}), today).Select("user_id")

	var users []model.User
	if err := db.Where("id IN (?)", owners).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users with open schedules: %w", err)
	}
	return users, nil
}
