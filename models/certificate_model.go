package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const CertificateStatusActive = "active"

// Certificate is proof of a completed track. Rows are never deleted and the
// verification code never changes once written.
type Certificate struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_certificates_user_track" json:"userId"`
	TrackID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_certificates_user_track" json:"trackId"`
	CertificateURL   *string    `gorm:"type:text" json:"certificateUrl"`
	VerificationCode string     `gorm:"size:19;not null;uniqueIndex" json:"verificationCode"`
	Status           string     `gorm:"size:20;not null;default:'active'" json:"status"`
	IssuedAt         time.Time  `gorm:"not null" json:"issuedAt"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	CreatedAt        time.Time  `json:"-"`
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CertificateStatusActive
	}
	return nil
}

func (c *Certificate) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
