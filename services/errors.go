package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrTrackNotFound       = errors.New("track not found")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrNotEligible         = errors.New("not eligible for certificate")
	ErrInvalidProgress     = errors.New("invalid progress payload")
	// ErrCodeCollision is transient: the caller may retry the whole request.
	ErrCodeCollision      = errors.New("could not allocate a unique verification code")
	ErrPublishingDisabled = errors.New("no artifact store configured")
)

type NotEligibleError struct {
	Progress float64
	Required int
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("progress %.1f%% is below the required %d%%", e.Progress, e.Required)
}

func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
