package model

import (
	"strconv"
	"strings"
	"time"
)

// Action types a schedule can carry.
const (
	ActionAirtime = "airtime"
	ActionP2P     = "p2p"
	ActionMe2Me   = "me2me"
	ActionRequest = "request"
)

// ScheduleRecord is a persisted scheduled transaction or request.
// Only StartDate, EndDate and Frequency take part in due evaluation; the rest
// describes the action handed off once the schedule fires.
type ScheduleRecord struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"index"`
	Type         string `gorm:"not null"`
	ChannelID    int    `gorm:"index"`
	ActionID     string
	RecipientIDs string `gorm:"not null"`
	Amount       string
	Note         string
	Description  string     `gorm:"not null"`
	StartDate    time.Time  `gorm:"not null"`
	EndDate      *time.Time `gorm:"index"`
	Frequency    int        `gorm:"not null"`
	Complete     bool       `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ScheduleRecord) TableName() string { return "schedules" }

// ContactIDs parses RecipientIDs. Malformed entries are skipped.
func (r ScheduleRecord) ContactIDs() []uint {
	var ids []uint
	for _, part := range strings.Split(r.RecipientIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// JoinContactIDs builds the RecipientIDs column value.
func JoinContactIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}
