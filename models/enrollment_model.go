package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrollment is written by the progress subsystem. Progress is whatever JSON
// that subsystem sends; readers must validate it before use.
type Enrollment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_track" json:"userId"`
	TrackID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_track" json:"trackId"`
	Progress  datatypes.JSON `json:"progress"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
