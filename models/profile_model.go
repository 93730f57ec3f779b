package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  *string   `gorm:"size:255" json:"fullName"`
	Email     string    `gorm:"size:255;not null;unique" json:"email"`
	Role      string    `gorm:"size:20;not null;default:'student'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DisplayName is the full name, or the email when no name is set.
func (p *Profile) DisplayName() string {
	if p.FullName != nil {
		if name := strings.TrimSpace(*p.FullName); name != "" {
			return name
		}
	}
	return p.Email
}
