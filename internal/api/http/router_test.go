package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/service"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

type stubRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	err     error
}

func (r *stubRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return apperrors.NewPersistenceError(r.err)
	}
	t.ID = int64(len(r.tickets) + 1)
	r.tickets = append(r.tickets, *t)
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || id > int64(len(r.tickets)) {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	t := r.tickets[id-1]
	return &t, nil
}

func (r *stubRepo) ListAll(context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for i := len(r.tickets) - 1; i >= 0; i-- {
		out = append(out, r.tickets[i])
	}
	return out, nil
}

type stubMailer struct {
	subjects []string
	bodies   []string
	err      error
}

func (m *stubMailer) Send(_ context.Context, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestApp(t *testing.T, repo *stubRepo, mailer *stubMailer) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	submissions := service.NewSubmissionService(service.SubmissionDependencies{
		Validator:  service.NewIntakeValidator(config.IntakeConfig{AuthorizedDomain: "dubizzle.com.lb", DefaultSubject: "New Internal Ticket"}),
		TicketRepo: repo,
		Notifier:   service.NewNotificationService(mailer, logger),
		Metrics:    metrics,
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0, config.DefaultCORSOrigins)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("ticket-intake-service", "test", map[string]handlers.Pinger{"postgres": stubPinger{}}, metrics),
		Tickets: handlers.NewTicketsHandler(submissions),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test(%s %s) error = %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, string(raw)
}

const janeDoe = `{"full_name":"Jane Doe","department":"IT","email":"jane@dubizzle.com.lb","subject":"Laptop issue","message":"Screen flickers"}`

func TestSubmitTicketSuccess(t *testing.T) {
	repo, mailer := &stubRepo{}, &stubMailer{}
	app := newTestApp(t, repo, mailer)

	status, body, raw := do(t, app, "POST", "/submit-ticket", janeDoe)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body = %s", status, raw)
	}
	if body["status"] != "success" || body["ticket_id"] != float64(1) {
		t.Fatalf("body = %s", raw)
	}
	if _, ok := body["notification_failed"]; ok {
		t.Fatalf("notification_failed present on clean success: %s", raw)
	}
	if len(mailer.subjects) != 1 || mailer.subjects[0] != "[Ticket #1] Laptop issue" {
		t.Fatalf("subjects = %v", mailer.subjects)
	}
	for _, want := range []string{"Jane Doe", "IT", "jane@dubizzle.com.lb", "Screen flickers"} {
		if !strings.Contains(mailer.bodies[0], want) {
			t.Fatalf("mail body missing %q", want)
		}
	}
}

func TestSubmitTicketForbidden(t *testing.T) {
	repo, mailer := &stubRepo{}, &stubMailer{}
	app := newTestApp(t, repo, mailer)

	payload := strings.Replace(janeDoe, "jane@dubizzle.com.lb", "jane@gmail.com", 1)
	status, _, raw := do(t, app, "POST", "/submit-ticket", payload)
	if status != fiber.StatusForbidden || strings.TrimSpace(raw) != `{"status":"forbidden"}` {
		t.Fatalf("status = %d, body = %s", status, raw)
	}
	if len(repo.tickets) != 0 || len(mailer.subjects) != 0 {
		t.Fatalf("forbidden submission had side effects")
	}
}

func TestSubmitTicketBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", "", "Invalid JSON received"},
		{"not json", "full_name=Jane", "Invalid JSON received"},
		{"json array", `[1,2]`, "Invalid JSON received"},
		{"json null", `null`, "Invalid JSON received"},
		{"wrong type", `{"full_name":42}`, "Invalid JSON received"},
		{"empty object", `{}`, "Missing fields"},
		{"missing message", `{"full_name":"Jane","email":"jane@dubizzle.com.lb"}`, "Missing fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			app := newTestApp(t, repo, &stubMailer{})
			status, body, raw := do(t, app, "POST", "/submit-ticket", tt.body)
			if status != fiber.StatusBadRequest || body["error"] != tt.message {
				t.Fatalf("status = %d, body = %s", status, raw)
			}
			if len(repo.tickets) != 0 {
				t.Fatalf("ticket persisted on bad request")
			}
		})
	}
}

func TestSubmitTicketListsMissingFields(t *testing.T) {
	app := newTestApp(t, &stubRepo{}, &stubMailer{})
	_, body, raw := do(t, app, "POST", "/submit-ticket", `{"email":"jane@dubizzle.com.lb"}`)
	missing, ok := body["missing_fields"].([]any)
	if !ok || len(missing) != 2 || missing[0] != "full_name" || missing[1] != "message" {
		t.Fatalf("body = %s", raw)
	}
}

func TestSubmitTicketPersistenceFailure(t *testing.T) {
	mailer := &stubMailer{}
	app := newTestApp(t, &stubRepo{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}, mailer)

	status, body, raw := do(t, app, "POST", "/submit-ticket", janeDoe)
	if status != fiber.StatusInternalServerError || body["error"] != "failed to store ticket" {
		t.Fatalf("status = %d, body = %s", status, raw)
	}
	if strings.Contains(raw, "10.0.0.5") {
		t.Fatalf("internal detail leaked: %s", raw)
	}
	if len(mailer.subjects) != 0 {
		t.Fatalf("notified after persistence failure")
	}
}

func TestSubmitTicketNotificationFailureStillSucceeds(t *testing.T) {
	repo := &stubRepo{}
	app := newTestApp(t, repo, &stubMailer{err: errors.New("535 5.7.8 Username and Password not accepted")})

	status, body, raw := do(t, app, "POST", "/submit-ticket", janeDoe)
	if status != fiber.StatusOK || body["status"] != "success" || body["notification_failed"] != true {
		t.Fatalf("status = %d, body = %s", status, raw)
	}

	_, _, list := do(t, app, "GET", "/tickets", "")
	var tickets []map[string]any
	if err := json.Unmarshal([]byte(list), &tickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0]["id"] != body["ticket_id"] {
		t.Fatalf("tickets = %s", list)
	}
}

func TestListTicketsNewestFirst(t *testing.T) {
	app := newTestApp(t, &stubRepo{}, &stubMailer{})
	do(t, app, "POST", "/submit-ticket", janeDoe)
	do(t, app, "POST", "/submit-ticket", strings.Replace(janeDoe, "Laptop issue", "VPN access", 1))

	status, _, raw := do(t, app, "GET", "/tickets", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var tickets []map[string]any
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tickets) != 2 || tickets[0]["id"] != float64(2) || tickets[0]["subject"] != "VPN access" {
		t.Fatalf("tickets = %s", raw)
	}
	first := tickets[1]
	if first["full_name"] != "Jane Doe" || first["department"] != "IT" || first["email"] != "jane@dubizzle.com.lb" ||
		first["message"] != "Screen flickers" || first["status"] != "Received" {
		t.Fatalf("ticket fields = %v", first)
	}
}

func TestGetTicket(t *testing.T) {
	app := newTestApp(t, &stubRepo{}, &stubMailer{})
	do(t, app, "POST", "/submit-ticket", janeDoe)

	status, body, raw := do(t, app, "GET", "/tickets/1", "")
	if status != fiber.StatusOK || body["id"] != float64(1) {
		t.Fatalf("status = %d, body = %s", status, raw)
	}
	for _, path := range []string{"/tickets/2", "/tickets/abc", "/tickets/-1"} {
		status, body, raw = do(t, app, "GET", path, "")
		if status != fiber.StatusNotFound || body["error"] != "ticket not found" {
			t.Fatalf("GET %s status = %d, body = %s", path, status, raw)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, &stubRepo{}, &stubMailer{})

	status, _, raw := do(t, app, "GET", "/", "")
	if status != fiber.StatusOK || !strings.Contains(raw, "running") {
		t.Fatalf("GET / = %d %s", status, raw)
	}
	status, body, _ := do(t, app, "GET", "/health/ready", "")
	if status != fiber.StatusOK || body["status"] != "ready" {
		t.Fatalf("GET /health/ready = %d %v", status, body)
	}
	status, body, _ = do(t, app, "GET", "/nope", "")
	if status != fiber.StatusNotFound || body["error"] == nil {
		t.Fatalf("GET /nope = %d %v", status, body)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	app := newTestApp(t, &stubRepo{}, &stubMailer{})
	req := httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set(observability.RequestIDHeader, "req-123")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(observability.RequestIDHeader); got != "req-123" {
		t.Fatalf("request id = %q", got)
	}
}
