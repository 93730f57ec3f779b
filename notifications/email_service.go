package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/services"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type BrevoConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	// Endpoint overrides the Brevo API URL.
	Endpoint string
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// EmailNotifier tells learners by email that their certificate is ready.
type EmailNotifier struct {
	cfg    BrevoConfig
	client *http.Client
	log    *logger.Logger
}

// NewEmailNotifier returns nil when Brevo is not configured.
func NewEmailNotifier(cfg BrevoConfig, log *logger.Logger) *EmailNotifier {
	if cfg.APIKey == "" || cfg.SenderEmail == "" || cfg.SenderName == "" {
		log.Warn("Email service not configured, certificate emails disabled")
		return nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = brevoEndpoint
	}
	return &EmailNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With("component", "EmailNotifier"),
	}
}

func (n *EmailNotifier) CertificateIssued(ctx context.Context, ev services.IssuedEvent) {
	subject, body := certificateEmail(ev)
	to, name := ev.Profile.Email, ev.Profile.DisplayName()
	go func() {
		if err := n.Send(ctx, to, name, subject, body); err != nil {
			n.log.Error("Failed to send certificate email", "email", to, "error", err)
		}
	}()
}

func (n *EmailNotifier) Send(ctx context.Context, toEmail, toName, subject, htmlContent string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}
	if toName == "" {
		toName = toEmail[:strings.Index(toEmail, "@")]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      map[string]string{"name": n.cfg.SenderName, "email": n.cfg.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", n.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func certificateEmail(ev services.IssuedEvent) (string, string) {
	subject := "Your certificate for " + ev.Track.Title + " is ready"
	body := fmt.Sprintf(
		"<h1>Congratulations, %s!</h1><p>You have completed <b>%s</b>.</p><p>Your verification code is <b>%s</b>.</p>",
		html.EscapeString(ev.Profile.DisplayName()),
		html.EscapeString(ev.Track.Title),
		ev.Certificate.VerificationCode,
	)
	return subject, body
}
