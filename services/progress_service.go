package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anjiri1684/learnhub/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// ProgressSource reports how far a learner is through a track, in percent.
type ProgressSource interface {
	Progress(ctx context.Context, userID, trackID uuid.UUID) (float64, error)
}

// progressPayload is the part of the enrollment progress blob we rely on.
type progressPayload struct {
	Percentage *float64 `json:"percentage" validate:"required,gte=0,lte=100"`
}

type EnrollmentProgress struct {
	db *gorm.DB
}

func NewEnrollmentProgress(db *gorm.DB) *EnrollmentProgress {
	return &EnrollmentProgress{db: db}
}

// Progress returns 0 for learners who never enrolled.
func (p *EnrollmentProgress) Progress(ctx context.Context, userID, trackID uuid.UUID) (float64, error) {
	var enrollment models.Enrollment
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load enrollment: %w", err)
	}
	return ParseProgress(enrollment.Progress)
}

// ParseProgress validates a raw progress blob. Empty means no progress yet.
func ParseProgress(raw []byte) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var payload progressPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProgress, err)
	}
	if err := validate.Struct(payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProgress, err)
	}
	return *payload.Percentage, nil
}

// Uncertified lists enrollments that have no certificate yet, oldest first.
func (p *EnrollmentProgress) Uncertified(ctx context.Context, limit int) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := p.db.WithContext(ctx).
		Select("enrollments.*").
		Joins("LEFT JOIN certificates ON certificates.user_id = enrollments.user_id AND certificates.track_id = enrollments.track_id").
		Where("certificates.id IS NULL").
		Order("enrollments.updated_at asc").
		Limit(limit).
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("list uncertified enrollments: %w", err)
	}
	return enrollments, nil
}
