package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/models"
	"github.com/anjiri1684/learnhub/renderer"
	"github.com/anjiri1684/learnhub/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxCodeAttempts = 3

// ArtifactStore keeps rendered certificates somewhere shareable and returns
// their public URL.
type ArtifactStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type IssuedEvent struct {
	Certificate *models.Certificate
	Track       *models.Track
	Profile     *models.Profile
}

// Notifier hears about newly issued certificates. Implementations must not
// block for long and handle their own failures.
type Notifier interface {
	CertificateIssued(ctx context.Context, ev IssuedEvent)
}

type CertificateService struct {
	db       *gorm.DB
	log      *logger.Logger
	progress ProgressSource
	renderer *renderer.Renderer
	store    ArtifactStore
	notifier Notifier

	newCode func() (string, error)
	now     func() time.Time
}

// NewCertificateService wires the issuance workflow. store and notifier may be nil.
func NewCertificateService(db *gorm.DB, log *logger.Logger, progress ProgressSource, rend *renderer.Renderer, store ArtifactStore, notifier Notifier) *CertificateService {
	return &CertificateService{
		db:       db,
		log:      log.With("service", "CertificateService"),
		progress: progress,
		renderer: rend,
		store:    store,
		notifier: notifier,
		newCode:  utils.GenerateVerificationCode,
		now:      time.Now,
	}
}

func (s *CertificateService) Renderer() *renderer.Renderer {
	return s.renderer
}

// Issue creates the learner's certificate for a track once their progress
// meets the track's requirement. Calling it again for the same pair returns the
// stored certificate with created=false. Concurrent calls are serialized by the
// unique (user_id, track_id) index, not by this process.
func (s *CertificateService) Issue(ctx context.Context, userID, trackID uuid.UUID) (*models.Certificate, bool, error) {
	existing, err := s.findByPair(ctx, userID, trackID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	track, err := s.getTrack(ctx, trackID)
	if err != nil {
		return nil, false, err
	}
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	progress, err := s.progress.Progress(ctx, userID, trackID)
	if err != nil {
		return nil, false, err
	}
	if progress < float64(track.CompletionRequirement) {
		return nil, false, &NotEligibleError{Progress: progress, Required: track.CompletionRequirement}
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	var expiresAt *time.Time
	if track.ValidityMonths != nil && *track.ValidityMonths > 0 {
		t := issuedAt.AddDate(0, *track.ValidityMonths, 0)
		expiresAt = &t
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, false, fmt.Errorf("generate verification code: %w", err)
		}

		cert := &models.Certificate{
			UserID:           userID,
			TrackID:          trackID,
			VerificationCode: code,
			Status:           models.CertificateStatusActive,
			IssuedAt:         issuedAt,
			ExpiresAt:        expiresAt,
		}
		err = s.db.WithContext(ctx).Create(cert).Error
		if err == nil {
			s.log.Info("Certificate issued", "certificate_id", cert.ID, "track_id", trackID)
			s.notify(ctx, IssuedEvent{Certificate: cert, Track: track, Profile: profile})
			return cert, true, nil
		}
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("insert certificate: %w", err)
		}

		// Either a concurrent request issued this pair first or the code is taken.
		existing, err := s.findByPair(ctx, userID, trackID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
		s.log.Warn("Verification code collision, regenerating", "attempt", attempt)
	}

	return nil, false, ErrCodeCollision
}

func (s *CertificateService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Certificate, error) {
	certificates := []models.Certificate{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at desc").
		Find(&certificates).Error; err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certificates, nil
}

func (s *CertificateService) Get(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.db.WithContext(ctx).First(&cert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &cert, nil
}

// LoadDocument resolves everything the renderer needs. Each missing piece has
// its own error so callers can say which one is gone.
func (s *CertificateService) LoadDocument(ctx context.Context, id uuid.UUID) (renderer.Input, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return renderer.Input{}, err
	}
	track, err := s.getTrack(ctx, cert.TrackID)
	if err != nil {
		return renderer.Input{}, err
	}
	profile, err := s.getProfile(ctx, cert.UserID)
	if err != nil {
		return renderer.Input{}, err
	}
	return renderer.Input{Certificate: cert, Track: track, Profile: profile}, nil
}

type Verification struct {
	Certificate   *models.Certificate `json:"certificate"`
	RecipientName string              `json:"recipientName"`
	TrackTitle    string              `json:"trackTitle"`
	Valid         bool                `json:"valid"`
	Expired       bool                `json:"expired"`
}

// Verify looks a certificate up by its public code. A certificate stays
// verifiable after its track or profile is removed; the names are then empty.
func (s *CertificateService) Verify(ctx context.Context, code string) (*Verification, error) {
	code = utils.NormalizeVerificationCode(code)
	if !utils.IsVerificationCode(code) {
		return nil, ErrCertificateNotFound
	}

	var cert models.Certificate
	err := s.db.WithContext(ctx).First(&cert, "verification_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}

	v := &Verification{Certificate: &cert, Expired: cert.Expired(s.now())}
	v.Valid = cert.Status == models.CertificateStatusActive && !v.Expired

	if track, err := s.getTrack(ctx, cert.TrackID); err == nil {
		v.TrackTitle = track.Title
	} else if !errors.Is(err, ErrTrackNotFound) {
		return nil, err
	}
	if profile, err := s.getProfile(ctx, cert.UserID); err == nil {
		v.RecipientName = profile.DisplayName()
	} else if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	return v, nil
}

// Publish renders the certificate into memory, uploads it and remembers the URL.
func (s *CertificateService) Publish(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	if s.store == nil {
		return nil, ErrPublishingDisabled
	}

	in, err := s.LoadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderBytes(in)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	url, err := s.store.Upload(ctx, "certificate_"+in.Certificate.ID.String(), data)
	if err != nil {
		return nil, fmt.Errorf("upload certificate: %w", err)
	}

	cert := in.Certificate
	if err := s.db.WithContext(ctx).Model(cert).Update("certificate_url", url).Error; err != nil {
		return nil, fmt.Errorf("save certificate url: %w", err)
	}
	cert.CertificateURL = &url

	s.log.Info("Certificate published", "certificate_id", cert.ID)
	return cert, nil
}

// Unpublished lists certificates that have no stored artifact yet.
func (s *CertificateService) Unpublished(ctx context.Context, limit int) ([]models.Certificate, error) {
	var certificates []models.Certificate
	if err := s.db.WithContext(ctx).
		Where("certificate_url IS NULL").
		Order("issued_at asc").
		Limit(limit).
		Find(&certificates).Error; err != nil {
		return nil, fmt.Errorf("list unpublished certificates: %w", err)
	}
	return certificates, nil
}

func (s *CertificateService) CanPublish() bool {
	return s.store != nil
}

func (s *CertificateService) notify(ctx context.Context, ev IssuedEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.CertificateIssued(context.WithoutCancel(ctx), ev)
}

func (s *CertificateService) findByPair(ctx context.Context, userID, trackID uuid.UUID) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &cert, nil
}

func (s *CertificateService) getTrack(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	var track models.Track
	err := s.db.WithContext(ctx).First(&track, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load track: %w", err)
	}
	return &track, nil
}

func (s *CertificateService) getProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}
