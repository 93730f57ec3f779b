package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Track is owned by the course catalogue. Certificates only read it.
type Track struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title                 string    `gorm:"size:255;not null" json:"title"`
	Description           *string   `gorm:"type:text" json:"description"`
	CompletionRequirement int       `gorm:"not null;default:100" json:"completionRequirement"`
	ValidityMonths        *int      `json:"validityMonths"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (t *Track) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Track) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}
