package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"scheduled-payments/internal/model"
)

// ScheduleRepository handles CRUD for schedules.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, record *model.ScheduleRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, userID, id uint) (*model.ScheduleRecord, error) {
	var record model.ScheduleRecord
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// future limits a query to schedules that are not complete and whose end day
// has not passed.
func future(db *gorm.DB, today time.Time) *gorm.DB {
	return db.Where("complete = ? AND (end_date IS NULL OR end_date >= ?)", false, today)
}

// ListFuture returns the user's schedules that can still fire on or after today.
func (r *ScheduleRepository) ListFuture(ctx context.Context, userID uint, today time.Time) ([]model.ScheduleRecord, error) {
	var records []model.ScheduleRecord
	q := future(r.db.WithContext(ctx), today).Where("user_id = ?", userID)
	if err := q.Order("start_date ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list future schedules: %w", err)
	}
	return records, nil
}

func (r *ScheduleRepository) ListFutureByChannel(ctx context.Context, userID uint, channelID int, today time.Time) ([]model.ScheduleRecord, error) {
	var records []model.ScheduleRecord
	q := future(r.db.WithContext(ctx), today).Where("user_id = ? AND channel_id = ?", userID, channelID)
	if err := q.Order("start_date ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list future schedules by channel: %w", err)
	}
	return records, nil
}

func (r *ScheduleRepository) MarkComplete(ctx context.Context, record *model.ScheduleRecord) error {
	record.Complete = true
	if err := r.db.WithContext(ctx).Model(record).Update("complete", true).Error; err != nil {
		return fmt.Errorf("complete schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule owned by the user. It returns gorm.ErrRecordNotFound
// when nothing matched.
func (r *ScheduleRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.ScheduleRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
