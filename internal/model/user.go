package model

import "time"

// User is a Telegram account that owns schedules. Private chats share the
// user's Telegram ID, so it doubles as the notification target.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Schedules  []ScheduleRecord `gorm:"foreignKey:UserID"`
	Contacts   []Contact        `gorm:"foreignKey:UserID"`
}
