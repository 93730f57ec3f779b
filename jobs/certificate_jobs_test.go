package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/anjiri1684/learnhub/database/dbtest"
	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/models"
	"github.com/anjiri1684/learnhub/renderer"
	"github.com/anjiri1684/learnhub/services"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryStore struct {
	mu    sync.Mutex
	names []string
}

func (m *memoryStore) Upload(_ context.Context, name string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	return "https://cdn.example.com/" + name + ".pdf", nil
}

func newService(db *gorm.DB, store services.ArtifactStore) (*services.CertificateService, *services.EnrollmentProgress) {
	progress := services.NewEnrollmentProgress(db)
	rend := renderer.New(renderer.Options{IssuerName: "Learnhub Academy"})
	return services.NewCertificateService(db, logger.Nop(), progress, rend, store, nil), progress
}

func TestCertificateSweep(t *testing.T) {
	db := dbtest.New(t)
	track := dbtest.Track(t, db, "Go 101", 80)
	done := dbtest.Profile(t, db, "Ada Lovelace", "ada@example.com")
	halfway := dbtest.Profile(t, db, "Grace Hopper", "grace@example.com")
	dbtest.Enroll(t, db, done.ID, track.ID, 95)
	dbtest.Enroll(t, db, halfway.ID, track.ID, 40)

	svc, progress := newService(db, nil)
	sweep := NewCertificateSweep(svc, progress, logger.Nop())

	assert.Equal(t, 1, sweep.Run(context.Background()))
	assert.EqualValues(t, 1, dbtest.CountCertificates(t, db))

	var cert models.Certificate
	require.NoError(t, db.First(&cert).Error)
	assert.Equal(t, done.ID, cert.UserID)

	assert.Equal(t, 0, sweep.Run(context.Background()), "second run has nothing new")
	assert.EqualValues(t, 1, dbtest.CountCertificates(t, db))
}

func TestCertificateSweep_StopsWhenCancelled(t *testing.T) {
	db := dbtest.New(t)
	track := dbtest.Track(t, db, "Go 101", 80)
	p := dbtest.Profile(t, db, "Ada Lovelace", "ada@example.com")
	dbtest.Enroll(t, db, p.ID, track.ID, 100)

	svc, progress := newService(db, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, NewCertificateSweep(svc, progress, logger.Nop()).Run(ctx))
}

func TestArtifactPublish(t *testing.T) {
	db := dbtest.New(t)
	track := dbtest.Track(t, db, "Go 101", 80)
	p := dbtest.Profile(t, db, "Ada Lovelace", "ada@example.com")
	dbtest.Enroll(t, db, p.ID, track.ID, 100)

	store := &memoryStore{}
	svc, _ := newService(db, store)
	cert, created, err := svc.Issue(context.Background(), p.ID, track.ID)
	require.NoError(t, err)
	require.True(t, created)

	publish := NewArtifactPublish(svc, logger.Nop())
	assert.Equal(t, 1, publish.Run(context.Background()))
	assert.Equal(t, []string{"certificate_" + cert.ID.String()}, store.names)

	var stored models.Certificate
	require.NoError(t, db.First(&stored, "id = ?", cert.ID).Error)
	require.NotNil(t, stored.CertificateURL)
	assert.Contains(t, *stored.CertificateURL, cert.ID.String())

	assert.Equal(t, 0, publish.Run(context.Background()), "already published")
}

func TestArtifactPublish_WithoutStore(t *testing.T) {
	db := dbtest.New(t)
	svc, _ := newService(db, nil)
	assert.Equal(t, 0, NewArtifactPublish(svc, logger.Nop()).Run(context.Background()))
}

func TestSchedule(t *testing.T) {
	db := dbtest.New(t)
	svc, progress := newService(db, nil)
	sweep := NewCertificateSweep(svc, progress, logger.Nop())
	publish := NewArtifactPublish(svc, logger.Nop())

	c := cron.New()
	require.NoError(t, Schedule(context.Background(), c, "*/10 * * * *", "@every 15m", sweep, publish))
	assert.Len(t, c.Entries(), 2)

	assert.Error(t, Schedule(context.Background(), cron.New(), "not a schedule", "@every 15m", sweep, publish))
}
