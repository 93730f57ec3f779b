package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/learnhub/database/dbtest"
	"github.com/anjiri1684/learnhub/handlers"
	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/models"
	"github.com/anjiri1684/learnhub/renderer"
	"github.com/anjiri1684/learnhub/routes"
	"github.com/anjiri1684/learnhub/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const jwtSecret = "handler-test-secret"

type memoryStore struct{}

func (memoryStore) Upload(_ context.Context, name string, _ []byte) (string, error) {
	return "https://cdn.example.com/" + name + ".pdf", nil
}

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	svc     *services.CertificateService
	profile *models.Profile
	track   *models.Track
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	env := &testEnv{
		db:      db,
		profile: dbtest.Profile(t, db, "Ada Lovelace", "ada@example.com"),
		track:   dbtest.Track(t, db, "Go 101", 80),
	}
	dbtest.Enroll(t, db, env.profile.ID, env.track.ID, 90)

	rend := renderer.New(renderer.Options{IssuerName: "Learnhub Academy", Tagline: "Learn"})
	env.svc = services.NewCertificateService(db, logger.Nop(), services.NewEnrollmentProgress(db), rend, memoryStore{}, nil)

	env.app = fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(logger.Nop())})
	routes.CertificationRoutes(env.app, handlers.NewCertificationHandler(env.svc, logger.Nop()), jwtSecret)
	return env
}

func (e *testEnv) issue(t *testing.T) *models.Certificate {
	t.Helper()
	cert, _, err := e.svc.Issue(context.Background(), e.profile.ID, e.track.ID)
	require.NoError(t, err)
	return cert
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	msg, _ := out["error"].(string)
	return msg
}

func TestListForUser(t *testing.T) {
	env := setup(t)
	path := "/api/certifications/user/" + env.profile.ID.String()

	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	cert := env.issue(t)
	resp, body = do(t, env.app, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, cert.ID.String(), got[0]["id"])
	assert.Equal(t, cert.VerificationCode, got[0]["verificationCode"])
	assert.Equal(t, env.track.ID.String(), got[0]["trackId"])
}

func TestListForUser_MalformedID(t *testing.T) {
	env := setup(t)
	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/user/not-a-uuid", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestDownload(t *testing.T) {
	env := setup(t)
	cert := env.issue(t)

	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/"+cert.ID.String()+"/download", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="certificate-go-101.pdf"`, resp.Header.Get(fiber.HeaderContentDisposition))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.True(t, bytes.Contains(body, []byte("%%EOF")))
}

func TestDownload_NotFound(t *testing.T) {
	env := setup(t)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/"+id+"/download", nil))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Certification not found", errorMessage(t, body))
	}
}

func TestDownload_MissingTrackOrProfile(t *testing.T) {
	t.Run("track", func(t *testing.T) {
		env := setup(t)
		cert := env.issue(t)
		require.NoError(t, env.db.Delete(&models.Track{}, "id = ?", env.track.ID).Error)

		resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/"+cert.ID.String()+"/download", nil))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Track not found", errorMessage(t, body))
	})
	t.Run("profile", func(t *testing.T) {
		env := setup(t)
		cert := env.issue(t)
		require.NoError(t, env.db.Delete(&models.Profile{}, "id = ?", env.profile.ID).Error)

		resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/"+cert.ID.String()+"/download", nil))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Profile not found", errorMessage(t, body))
	})
}

func issueRequest(t *testing.T, role string, userID, trackID uuid.UUID) *http.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"userId": userID.String(), "trackId": trackID.String()})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/certifications/issue", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if role != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, role))
	}
	return req
}

func TestIssue(t *testing.T) {
	env := setup(t)

	resp, body := do(t, env.app, issueRequest(t, "system", env.profile.ID, env.track.ID))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var first models.Certificate
	require.NoError(t, json.Unmarshal(body, &first))
	assert.Equal(t, env.profile.ID, first.UserID)
	assert.Regexp(t, `^[A-Z0-9]{4}(-[A-Z0-9]{4}){3}$`, first.VerificationCode)

	resp, body = do(t, env.app, issueRequest(t, "admin", env.profile.ID, env.track.ID))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var second models.Certificate
	require.NoError(t, json.Unmarshal(body, &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.VerificationCode, second.VerificationCode)
	assert.EqualValues(t, 1, dbtest.CountCertificates(t, env.db))
}

func TestIssue_NotEligible(t *testing.T) {
	env := setup(t)
	learner := dbtest.Profile(t, env.db, "Grace Hopper", "grace@example.com")
	dbtest.Enroll(t, env.db, learner.ID, env.track.ID, 42.5)

	resp, body := do(t, env.app, issueRequest(t, "system", learner.ID, env.track.ID))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Not yet eligible","progress":42.5,"required":80}`, string(body))
	assert.EqualValues(t, 0, dbtest.CountCertificates(t, env.db))
}

func TestIssue_UnknownTrackAndProfile(t *testing.T) {
	env := setup(t)

	resp, body := do(t, env.app, issueRequest(t, "system", env.profile.ID, uuid.New()))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Track not found", errorMessage(t, body))

	resp, body = do(t, env.app, issueRequest(t, "system", uuid.New(), env.track.ID))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Profile not found", errorMessage(t, body))
}

func TestIssue_Guarded(t *testing.T) {
	env := setup(t)

	resp, _ := do(t, env.app, issueRequest(t, "", env.profile.ID, env.track.ID))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, env.app, issueRequest(t, "student", env.profile.ID, env.track.ID))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	assert.EqualValues(t, 0, dbtest.CountCertificates(t, env.db))
}

func TestIssue_BadBody(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/api/certifications/issue", strings.NewReader(`{"userId":"nope","trackId":""}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, "system"))
	resp, _ := do(t, env.app, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerify(t *testing.T) {
	env := setup(t)
	cert := env.issue(t)
	loose := strings.ToLower(strings.ReplaceAll(cert.VerificationCode, "-", ""))

	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/verify/"+loose, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		Certificate   models.Certificate `json:"certificate"`
		RecipientName string             `json:"recipientName"`
		TrackTitle    string             `json:"trackTitle"`
		Valid         bool               `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, cert.ID, got.Certificate.ID)
	assert.Equal(t, "Ada Lovelace", got.RecipientName)
	assert.Equal(t, "Go 101", got.TrackTitle)
	assert.True(t, got.Valid)

	resp, body = do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/certifications/verify/AAAA-BBBB-CCCC-DDDD", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Certification not found", errorMessage(t, body))
}

func TestPublish(t *testing.T) {
	env := setup(t)
	cert := env.issue(t)

	req := httptest.NewRequest(http.MethodPost, "/api/certifications/"+cert.ID.String()+"/publish", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, "admin"))
	resp, body := do(t, env.app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var got models.Certificate
	require.NoError(t, json.Unmarshal(body, &got))
	require.NotNil(t, got.CertificateURL)
	assert.Equal(t, "https://cdn.example.com/certificate_"+cert.ID.String()+".pdf", *got.CertificateURL)
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	env := setup(t)
	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, errorMessage(t, body))
}
