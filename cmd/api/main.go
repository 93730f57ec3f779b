package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/learnhub/configs"
	"github.com/anjiri1684/learnhub/database"
	"github.com/anjiri1684/learnhub/handlers"
	"github.com/anjiri1684/learnhub/jobs"
	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/notifications"
	"github.com/anjiri1684/learnhub/renderer"
	"github.com/anjiri1684/learnhub/routes"
	"github.com/anjiri1684/learnhub/services"
	"github.com/anjiri1684/learnhub/storage"
	"github.com/anjiri1684/learnhub/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg := config.Load()

	appLog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Sync()

	if cfg.JWTSecret == "" {
		appLog.Fatal("JWT_SECRET is not set")
	}

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to connect to database", "driver", cfg.DBDriver, "error", err)
	}
	if err := database.Migrate(db); err != nil {
		appLog.Fatal("Failed to migrate database", "error", err)
	}
	appLog.Info("Database connected and migrated", "driver", cfg.DBDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(appLog)
	go hub.Run(ctx)

	notifier := notifications.Fanout{hub}
	if email := notifications.NewEmailNotifier(notifications.BrevoConfig{
		APIKey:      cfg.BrevoAPIKey,
		SenderEmail: cfg.EmailSender,
		SenderName:  cfg.EmailSenderName,
	}, appLog); email != nil {
		notifier = append(notifier, email)
	}

	var store services.ArtifactStore
	if cfg.CloudinaryURL != "" {
		cld, err := storage.NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			appLog.Fatal("Failed to initialize Cloudinary", "error", err)
		}
		store = cld
	} else {
		appLog.Warn("CLOUDINARY_URL not set, certificate publishing disabled")
	}

	rend := renderer.New(renderer.Options{
		IssuerName: cfg.CertificateIssuer,
		Tagline:    cfg.CertificateTagline,
		Compress:   cfg.CertificatePDFCompress,
	})
	progress := services.NewEnrollmentProgress(db)
	certificates := services.NewCertificateService(db, appLog, progress, rend, store, notifier)

	scheduler := cron.New()
	if err := jobs.Schedule(ctx, scheduler, cfg.SweepSchedule, cfg.PublishSchedule,
		jobs.NewCertificateSweep(certificates, progress, appLog),
		jobs.NewArtifactPublish(certificates, appLog),
	); err != nil {
		appLog.Fatal("Failed to schedule jobs", "error", err)
	}
	scheduler.Start()
	appLog.Info("Certificate jobs scheduled", "sweep", cfg.SweepSchedule, "publish", cfg.PublishSchedule)

	app := fiber.New(fiber.Config{
		AppName:       "Learnhub Certifications",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler(appLog),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSAllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.CertificationRoutes(app, handlers.NewCertificationHandler(certificates, appLog), cfg.JWTSecret)
	routes.WebSocketRoutes(app, hub, appLog, cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		appLog.Info("Shutting down")
		<-scheduler.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLog.Error("Server shutdown failed", "error", err)
		}
	}()

	appLog.Info("Server is running", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("Server failed to start", "error", err)
	}
}
