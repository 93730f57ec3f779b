package jobs

import (
	"context"
	"errors"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/services"
	"github.com/robfig/cron/v3"
)

const batchSize = 100

// CertificateSweep issues certificates for enrollments that crossed their
// track's requirement without anyone calling the issue endpoint.
type CertificateSweep struct {
	svc      *services.CertificateService
	progress *services.EnrollmentProgress
	log      *logger.Logger
}

func NewCertificateSweep(svc *services.CertificateService, progress *services.EnrollmentProgress, log *logger.Logger) *CertificateSweep {
	return &CertificateSweep{svc: svc, progress: progress, log: log.With("job", "CertificateSweep")}
}

// Run returns how many certificates were newly issued.
func (j *CertificateSweep) Run(ctx context.Context) int {
	enrollments, err := j.progress.Uncertified(ctx, batchSize)
	if err != nil {
		j.log.Error("Error listing uncertified enrollments", "error", err)
		return 0
	}

	issued := 0
	for _, e := range enrollments {
		if ctx.Err() != nil {
			break
		}
		_, created, err := j.svc.Issue(ctx, e.UserID, e.TrackID)
		switch {
		case errors.Is(err, services.ErrNotEligible):
		case err != nil:
			j.log.Warn("Could not issue certificate", "user_id", e.UserID, "track_id", e.TrackID, "error", err)
		case created:
			issued++
		}
	}
	if issued > 0 {
		j.log.Info("Issued certificates", "count", issued)
	}
	return issued
}

// ArtifactPublish uploads certificates that have no shareable copy yet.
type ArtifactPublish struct {
	svc *services.CertificateService
	log *logger.Logger
}

func NewArtifactPublish(svc *services.CertificateService, log *logger.Logger) *ArtifactPublish {
	return &ArtifactPublish{svc: svc, log: log.With("job", "ArtifactPublish")}
}

// Run returns how many certificates were published.
func (j *ArtifactPublish) Run(ctx context.Context) int {
	if !j.svc.CanPublish() {
		return 0
	}
	pending, err := j.svc.Unpublished(ctx, batchSize)
	if err != nil {
		j.log.Error("Error listing unpublished certificates", "error", err)
		return 0
	}

	published := 0
	for _, cert := range pending {
		if ctx.Err() != nil {
			break
		}
		if _, err := j.svc.Publish(ctx, cert.ID); err != nil {
			j.log.Warn("Could not publish certificate", "certificate_id", cert.ID, "error", err)
			continue
		}
		published++
	}
	if published > 0 {
		j.log.Info("Published certificates", "count", published)
	}
	return published
}

// Schedule registers both jobs on c. Runs of the same job never overlap.
func Schedule(ctx context.Context, c *cron.Cron, sweepSpec, publishSpec string, sweep *CertificateSweep, publish *ArtifactPublish) error {
	if _, err := c.AddJob(sweepSpec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		sweep.Run(ctx)
	}))); err != nil {
		return err
	}
	_, err := c.AddJob(publishSpec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		publish.Run(ctx)
	})))
	return err
}
