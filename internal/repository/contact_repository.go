package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"scheduled-payments/internal/model"
)

// ContactRepository manages a user's recipients.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetOrCreate returns the user's contact with the given phone, creating it when missing.
// A non-empty name replaces the stored one.
func (r *ContactRepository) GetOrCreate(ctx context.Context, userID uint, name, phone string) (*model.Contact, error) {
	var contact model.Contact
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND phone = ?", userID, phone).First(&contact).Error
	switch {
	case err == nil:
		if name != "" && name != contact.Name {
			if err := db.Model(&contact).Update("name", name).Error; err != nil {
				return nil, fmt.Errorf("rename contact: %w", err)
			}
		}
		return &contact, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		contact = model.Contact{UserID: userID, Name: name, Phone: phone}
		if err := db.Create(&contact).Error; err != nil {
			return nil, fmt.Errorf("create contact: %w", err)
		}
		return &contact, nil
	default:
		return nil, fmt.Errorf("find contact: %w", err)
	}
}

// FindByIDs returns contacts in the order of ids; unknown ids are skipped.
func (r *ContactRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []model.Contact
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	byID := make(map[uint]model.Contact, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	contacts := make([]model.Contact, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			contacts = append(contacts, c)
		}
	}
	return contacts, nil
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID uint) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}
