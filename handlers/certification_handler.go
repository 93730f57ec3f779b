package handlers

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/services"
	"github.com/anjiri1684/learnhub/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

type IssueCertificationRequest struct {
	UserID  string `json:"userId" validate:"required,uuid"`
	TrackID string `json:"trackId" validate:"required,uuid"`
}

type CertificationHandler struct {
	svc *services.CertificateService
	log *logger.Logger
}

func NewCertificationHandler(svc *services.CertificateService, log *logger.Logger) *CertificationHandler {
	return &CertificationHandler{svc: svc, log: log.With("handler", "CertificationHandler")}
}

// ListForUser returns every certificate of a user, newest first. Unknown or
// malformed ids simply have none.
func (h *CertificationHandler) ListForUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.JSON([]struct{}{})
	}

	certificates, err := h.svc.ListForUser(c.UserContext(), userID)
	if err != nil {
		h.log.Error("Failed to list certifications", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch certifications"})
	}
	return c.JSON(certificates)
}

// Download streams the rendered PDF. The page is laid out before the status
// line goes out, so layout failures still produce a clean 500.
func (h *CertificationHandler) Download(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Certification not found"})
	}

	in, err := h.svc.LoadDocument(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Failed to generate certificate")
	}

	doc, err := h.svc.Renderer().Prepare(in)
	if err != nil {
		h.log.Error("Failed to render certificate", "certificate_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate certificate"})
	}

	c.Status(fiber.StatusOK)
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, utils.CertificateFilename(in.Track.Title)))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// Write errors here mean the client went away; there is no one left to answer.
		if _, err := doc.WriteTo(w); err != nil {
			h.log.Warn("Certificate stream aborted", "certificate_id", id, "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			h.log.Warn("Certificate stream aborted", "certificate_id", id, "error", err)
		}
	})
	return nil
}

func (h *CertificationHandler) Verify(c *fiber.Ctx) error {
	v, err := h.svc.Verify(c.UserContext(), c.Params("code"))
	if err != nil {
		return h.fail(c, err, "Failed to verify certification")
	}
	return c.JSON(v)
}

// Issue is called by the progress subsystem when a learner may have
// completed a track.
func (h *CertificationHandler) Issue(c *fiber.Ctx) error {
	var req IssueCertificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cert, created, err := h.svc.Issue(c.UserContext(), uuid.MustParse(req.UserID), uuid.MustParse(req.TrackID))
	if err != nil {
		return h.fail(c, err, "Failed to issue certificate")
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(cert)
	}
	return c.JSON(cert)
}

func (h *CertificationHandler) Publish(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Certification not found"})
	}
	cert, err := h.svc.Publish(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Failed to publish certificate")
	}
	return c.JSON(cert)
}

// fail maps service errors to stable client messages. Anything unexpected is
// logged and reported with fallback only.
func (h *CertificationHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	var notEligible *services.NotEligibleError
	switch {
	case errors.Is(err, services.ErrCertificateNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Certification not found"})
	case errors.Is(err, services.ErrTrackNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Track not found"})
	case errors.Is(err, services.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	case errors.As(err, &notEligible):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    "Not yet eligible",
			"progress": notEligible.Progress,
			"required": notEligible.Required,
		})
	case errors.Is(err, services.ErrCodeCollision):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Failed to issue certificate, please retry"})
	case errors.Is(err, services.ErrPublishingDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Certificate publishing is not configured"})
	default:
		h.log.Error(fallback, "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
