package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   string

	DBDriver    string
	DatabaseURL string

	JWTSecret string

	CloudinaryURL    string
	CloudinaryFolder string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	CertificateIssuer      string
	CertificateTagline     string
	CertificatePDFCompress bool

	SweepSchedule   string
	PublishSchedule string

	CORSAllowOrigins string
}

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return Config{
		AppEnv:                 Get("APP_ENV", "dev"),
		Port:                   Get("PORT", "8080"),
		DBDriver:               strings.ToLower(Get("DB_DRIVER", "postgres")),
		DatabaseURL:            Get("DATABASE_URL", ""),
		JWTSecret:              Get("JWT_SECRET", ""),
		CloudinaryURL:          Get("CLOUDINARY_URL", ""),
		CloudinaryFolder:       Get("CLOUDINARY_FOLDER", "learnhub_certificates"),
		BrevoAPIKey:            Get("BREVO_API_KEY", ""),
		EmailSender:            Get("EMAIL_SENDER", ""),
		EmailSenderName:        Get("EMAIL_SENDER_NAME", ""),
		CertificateIssuer:      Get("CERTIFICATE_ISSUER", "Learnhub Academy"),
		CertificateTagline:     Get("CERTIFICATE_TAGLINE", "Empowering learners worldwide"),
		CertificatePDFCompress: GetBool("CERTIFICATE_PDF_COMPRESS", true),
		SweepSchedule:          Get("CERTIFICATE_SWEEP_SCHEDULE", "*/10 * * * *"),
		PublishSchedule:        Get("CERTIFICATE_PUBLISH_SCHEDULE", "*/15 * * * *"),
		CORSAllowOrigins:       Get("CORS_ALLOW_ORIGINS", "*"),
	}
}

func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func GetBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}
