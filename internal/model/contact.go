package model

import "time"

// Contact is a payment recipient or the person a request is sent to.
type Contact struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_user_contact_phone,unique"`
	Name      string
	Phone     string `gorm:"index:idx_user_contact_phone,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName prefers the name and falls back to the phone number.
func (c Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Phone
}
