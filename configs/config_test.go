package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("CERTIFICATE_ISSUER", "")
	t.Setenv("CERTIFICATE_PDF_COMPRESS", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "Learnhub Academy", cfg.CertificateIssuer)
	assert.True(t, cfg.CertificatePDFCompress)
	assert.Equal(t, "*/10 * * * *", cfg.SweepSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CERTIFICATE_PDF_COMPRESS", "false")
	t.Setenv("APP_ENV", "prod")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.False(t, cfg.CertificatePDFCompress)
	assert.True(t, cfg.IsProduction())
}

func TestGetBool_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.True(t, GetBool("SOME_FLAG", true))
}
