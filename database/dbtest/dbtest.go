// Package dbtest provides throwaway SQLite stores and fixtures for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/anjiri1684/learnhub/database"
	"github.com/anjiri1684/learnhub/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// New returns a migrated in-memory database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Connect("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func Profile(t testing.TB, db *gorm.DB, fullName, email string) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: email}
	if fullName != "" {
		p.FullName = &fullName
	}
	mustCreate(t, db, p)
	return p
}

func Track(t testing.TB, db *gorm.DB, title string, requirement int) *models.Track {
	t.Helper()
	tr := &models.Track{Title: title, CompletionRequirement: requirement}
	mustCreate(t, db, tr)
	return tr
}

func Enroll(t testing.TB, db *gorm.DB, userID, trackID uuid.UUID, percentage float64) *models.Enrollment {
	t.Helper()
	e := &models.Enrollment{
		UserID:   userID,
		TrackID:  trackID,
		Progress: datatypes.JSON(fmt.Sprintf(`{"percentage": %g, "lessons": {"done": 3}}`, percentage)),
	}
	mustCreate(t, db, e)
	return e
}

func CountCertificates(t testing.TB, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Certificate{}).Count(&n).Error; err != nil {
		t.Fatalf("count certificates: %v", err)
	}
	return n
}

func mustCreate(t testing.TB, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
