package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/sap-helpdesk/internal/adapters/primary/http/middleware"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/memory"
	"github.com/lorrc/sap-helpdesk/internal/auth"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/mocks"
	"github.com/lorrc/sap-helpdesk/internal/core/services"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

const (
	testSecret = "router-test-secret"
	adminEmail = "alice@pwc.com"
	userEmail  = "bob@pwc.com"
)

var refTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	router  stdhttp.Handler
	gateway *mocks.MockEmailGateway
}

func fixtureTickets() []*domain.Ticket {
	return []*domain.Ticket{
		{
			ID:           1,
			Title:        "MIGO posting error",
			Description:  "Goods receipt fails with M7 021",
			Status:       domain.StatusOpen,
			Priority:     domain.PriorityHigh,
			Module:       domain.ModuleMM,
			AssignedTo:   "Alice Johnson",
			RaisedBy:     "Bob Smith",
			Tags:         []string{"migo"},
			CreatedOn:    domain.NewDate(2025, time.March, 1),
			CompletionBy: domain.NewDate(2025, time.March, 5),
		},
		{
			ID:         2,
			Title:      "Payroll run stuck",
			Status:     domain.StatusInProgress,
			Priority:   domain.PriorityCritical,
			Module:     domain.ModuleHCM,
			AssignedTo: "Bob Smith",
			RaisedBy:   "Carol White",
			Tags:       []string{},
			CreatedOn:  domain.NewDate(2025, time.March, 3),
		},
		{
			ID:        3,
			Title:     "Invoice block release",
			Status:    domain.StatusCompleted,
			Priority:  domain.PriorityLow,
			Module:    domain.ModuleFICO,
			Tags:      []string{},
			CreatedOn: domain.NewDate(2025, time.February, 20),
			ClosedOn:  domain.NewDate(2025, time.February, 25),
		},
	}
}

func fixtureRegistry() ([]*domain.User, []*domain.AdminUser) {
	users := []*domain.User{
		{ID: "u-alice", Email: adminEmail, Name: "Alice Johnson", IsAdmin: true, IsActive: true, CreatedAt: refTime},
		{ID: "u-bob", Email: userEmail, Name: "Bob Smith", IsActive: true, CreatedAt: refTime},
		{ID: "u-carol", Email: "carol@pwc.com", Name: "Carol White", IsActive: false, CreatedAt: refTime},
	}
	admins := []*domain.AdminUser{
		{ID: "u-alice", Email: adminEmail, Name: "Alice Johnson", AddedBy: domain.SystemActor, AddedAt: refTime},
	}
	return users, admins
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := services.WithClock(func() time.Time { return refTime })

	store := memory.NewTicketStore(fixtureTickets())
	users, admins := fixtureRegistry()
	registry := memory.NewRegistry(users, admins)
	gateway := mocks.NewMockEmailGateway()

	ticketService := services.NewTicketService(store, nil, nil, nil, clock, services.WithLogger(logger))
	adminService := services.NewAdminService(registry, clock, services.WithLogger(logger))
	userService := services.NewUserService(registry)
	analyticsService := services.NewAnalyticsService(store, nil, clock, services.WithLogger(logger))
	emailService := services.NewEmailService(gateway, services.WithLogger(logger))

	verifier, err := auth.NewVerifier(auth.VerifierConfig{HMACSecret: testSecret})
	require.NoError(t, err)

	errorHandler := NewErrorHandler(logger)
	commentHandler := NewCommentHandler(ticketService, errorHandler, logger)

	router := NewRouter(RouterConfig{
		Logger:         logger,
		Metrics:        metrics.New(),
		Verifier:       verifier,
		AdminChecker:   adminService,
		AllowedOrigins: []string{"*"},
	}, Handlers{
		Auth:      NewAuthHandler(adminService, errorHandler, logger),
		Tickets:   NewTicketHandler(ticketService, commentHandler, errorHandler, logger, "tickets"),
		Users:     NewUserHandler(userService, errorHandler, logger),
		Admin:     NewAdminHandler(adminService, errorHandler, logger),
		Analytics: NewAnalyticsHandler(analyticsService, errorHandler, logger),
		Emails:    NewEmailHandler(emailService, errorHandler, logger),
		Health:    NewHealthHandler("test", Dependency{Name: "store", Checker: store, Critical: true}),
	})

	return &testEnv{router: router, gateway: gateway}
}

func tokenFor(t *testing.T, email, name string) string {
	t.Helper()
	claims := auth.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, email, ""))
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}

func decodeList[T any](t *testing.T, rec *httptest.ResponseRecorder) ListResponse[T] {
	t.Helper()
	var list ListResponse[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	return list
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/tickets", "", nil)
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get(mw.RequestIDHeader))
}

func TestTickets_ListFilterSortPaginate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/tickets", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	all := decodeList[domain.Ticket](t, rec)
	assert.Equal(t, 3, all.Meta.Total)
	assert.Len(t, all.Data, 3)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/tickets?sort=id&order=desc&limit=2&offset=0", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	page := decodeList[domain.Ticket](t, rec)
	assert.Equal(t, 3, page.Meta.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Data[0].ID)
	assert.Equal(t, int64(2), page.Data[1].ID)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/tickets?status=Open&module=MM", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	filtered := decodeList[domain.Ticket](t, rec)
	require.Len(t, filtered.Data, 1)
	assert.Equal(t, "MIGO posting error", filtered.Data[0].Title)
}

func TestTickets_ListRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/tickets?status=Whatever&sort=nope&limit=-1", userEmail, nil)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "status")
	assert.Contains(t, body.Details, "sort")
	assert.Contains(t, body.Details, "limit")
}

func TestTickets_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodPost, "/api/v1/tickets", userEmail, map[string]any{
		"title":        "  ME21N release strategy  ",
		"description":  "PO not released",
		"priority":     "Medium",
		"module":       "MM",
		"assignedTo":   "Alice Johnson",
		"completionBy": "2025-03-20",
		"tags":         []string{"po"},
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[domain.Ticket](t, rec)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "ME21N release strategy", created.Title)
	assert.Equal(t, domain.StatusOpen, created.Status)
	assert.Equal(t, "2025-03-20", created.CompletionBy.String())

	path := "/api/v1/tickets/4"

	rec = env.do(t, stdhttp.MethodPatch, path, userEmail, map[string]any{"status": "In Progress"})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusInProgress, decodeData[domain.Ticket](t, rec).Status)

	rec = env.do(t, stdhttp.MethodPost, path+"/comments", userEmail, map[string]any{
		"message": "<b>Checked</b> the release group",
		"role":    "raiser",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	comment := decodeData[domain.Comment](t, rec)
	assert.Equal(t, "Checked the release group", comment.Message)

	rec = env.do(t, stdhttp.MethodGet, path+"/comments", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Len(t, decodeList[domain.Comment](t, rec).Data, 1)

	rec = env.do(t, stdhttp.MethodPut, path, userEmail, map[string]any{"status": "Completed", "completionBy": nil})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	completed := decodeData[domain.Ticket](t, rec)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.True(t, completed.CompletionBy.IsZero())
	assert.Equal(t, "2025-03-10", completed.ClosedOn.String())

	rec = env.do(t, stdhttp.MethodPatch, path, userEmail, map[string]any{"status": "Open"})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "TICKET_CLOSED", decodeError(t, rec).Code)

	rec = env.do(t, stdhttp.MethodGet, path+"/logs", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeList[domain.LogEntry](t, rec).Data)

	rec = env.do(t, stdhttp.MethodDelete, path, userEmail, nil)
	require.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, path, userEmail, nil)
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestTickets_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodPost, "/api/v1/tickets", userEmail, map[string]any{
		"title":    "",
		"priority": "Urgent",
	})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Contains(t, body.Details, "title")
	assert.Contains(t, body.Details, "priority")

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/tickets/abc", userEmail, nil)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
}

func TestTickets_Export(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/tickets/export?status=Open", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="tickets_`)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "MIGO posting error")

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/tickets/export?format=xlsx", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "PK", rec.Body.String()[:2])

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/tickets/export?format=pdf", userEmail, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestAuth_LoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodPost, "/api/v1/auth/login", "dave@pwc.com", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	login := decodeData[domain.LoginResult](t, rec)
	assert.False(t, login.IsFirstUser)
	assert.False(t, login.IsAdmin)
	assert.Equal(t, "dave@pwc.com", login.User.Email)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/auth/me", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	me := decodeData[MeResponse](t, rec)
	assert.True(t, me.IsAdmin)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/auth/login", "carol@pwc.com", nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)
	assert.Equal(t, "USER_INACTIVE", decodeError(t, rec).Code)
}

func TestUsers_Directory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/users", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Len(t, decodeList[domain.User](t, rec).Data, 3)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/users/assignable", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Len(t, decodeList[domain.User](t, rec).Data, 2)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/users/search?q=ALI", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	found := decodeList[domain.User](t, rec).Data
	require.Len(t, found, 1)
	assert.Equal(t, adminEmail, found[0].Email)
}

func TestAdmin_Endpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/admin/users", userEmail, nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/admin/users", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Len(t, decodeList[domain.User](t, rec).Data, 3)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/admin/admins/add", adminEmail, map[string]string{"email": "not-an-email"})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/admin/admins/add", adminEmail, map[string]string{"email": userEmail})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	added := decodeData[domain.AdminUser](t, rec)
	assert.Equal(t, "u-bob", added.ID)
	assert.Equal(t, adminEmail, added.AddedBy)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/admin/admins/add", adminEmail, map[string]string{"email": userEmail})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_ADMIN", decodeError(t, rec).Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/admin/admins", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Len(t, decodeList[domain.AdminUser](t, rec).Data, 2)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/admin/admins/remove", adminEmail, map[string]string{"id": "u-bob"})
	require.Equal(t, stdhttp.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/admin/users/u-alice/deactivate", adminEmail, nil)
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "CANNOT_DEACTIVATE_SELF", decodeError(t, rec).Code)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/admin/users/u-carol/reactivate", adminEmail, nil)
	require.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/admin/panel", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/admin/audit-logs?limit=2", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	logs := decodeList[domain.AdminAuditLog](t, rec)
	assert.Equal(t, 3, logs.Meta.Total)
	assert.Len(t, logs.Data, 2)
}

func TestAnalytics_Endpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/v1/analytics/dashboard",
		"/api/v1/analytics/full?days=7",
		"/api/v1/analytics/summary?dueSoonDays=3",
		"/api/v1/analytics/workload",
		"/api/v1/analytics/categories",
		"/api/v1/analytics/reports/date-range?start=2025-03-01&end=2025-03-31",
	} {
		rec := env.do(t, stdhttp.MethodGet, path, userEmail, nil)
		assert.Equal(t, stdhttp.StatusOK, rec.Code, path)
	}

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/analytics/full?days=0", userEmail, nil)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/analytics/reports/date-range?start=2025-03-01", userEmail, nil)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/analytics/reports/date-range?start=2025-03-31&end=2025-03-01", userEmail, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/analytics/export", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "helpdesk_analytics_")
}

func TestEmails_Access(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/emails/stats", userEmail, nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)

	env.gateway.On("Stats", mock.Anything).Return(&domain.EmailStats{TotalEmails: 12, SAPRelated: 5}, nil).Once()
	rec = env.do(t, stdhttp.MethodGet, "/api/v1/emails/stats", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, 12, decodeData[domain.EmailStats](t, rec).TotalEmails)

	// Fetching is open to any signed-in user.
	env.gateway.On("TriggerFetch", mock.Anything, domain.FetchRequest{DaysBack: 1, MaxEmails: 100}).
		Return(&domain.FetchResult{Fetched: 4}, nil).Twice()
	rec = env.do(t, stdhttp.MethodPost, "/api/v1/emails/fetch", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, stdhttp.MethodPost, "/api/v1/emails/fetch", userEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, stdhttp.MethodPost, "/api/v1/emails/fetch", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = env.do(t, stdhttp.MethodPost, "/api/v1/emails/fetch", adminEmail, map[string]int{"daysBack": 90})
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	rec = env.do(t, stdhttp.MethodPost, "/api/v1/emails/fetch", userEmail, map[string]int{"maxEmails": 501})
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/emails/by-category/mm", userEmail, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	env.gateway.On("ByCategory", mock.Anything, domain.ModuleMM, 10, 50).
		Return([]*domain.EmailRecord{{ID: 7, Subject: "PO stuck", DetectedCategory: domain.ModuleMM}}, nil).Once()
	rec = env.do(t, stdhttp.MethodGet, "/api/v1/emails/by-category/mm?skip=10", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "PO stuck")

	rec = env.do(t, stdhttp.MethodGet, "/api/v1/emails/by-category/mm?limit=201", adminEmail, nil)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	rec = env.do(t, stdhttp.MethodGet, "/api/v1/emails/by-category/mm?skip=-1", adminEmail, nil)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	rec = env.do(t, stdhttp.MethodGet, "/api/v1/emails/by-category/NOPE", adminEmail, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	env.gateway.On("Reprocess", mock.Anything, int64(42)).Return(&domain.ReprocessResult{}, nil).Once()
	rec = env.do(t, stdhttp.MethodPost, "/api/v1/emails/42/reprocess", adminEmail, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	env.gateway.AssertExpectations(t)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/health/ready", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["store"].Status)

	rec = env.do(t, stdhttp.MethodGet, "/metrics", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "helpdesk_http_requests_total")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

func TestHealth_DegradedAndUnhealthy(t *testing.T) {
	degraded := NewHealthHandler("v1",
		Dependency{Name: "store", Checker: memory.NewTicketStore(nil), Critical: true},
		Dependency{Name: "cache", Checker: failingPinger{}},
	)
	rec := httptest.NewRecorder()
	degraded.HandleReadiness(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	unhealthy := NewHealthHandler("v1", Dependency{Name: "store", Checker: failingPinger{}, Critical: true})
	rec = httptest.NewRecorder()
	unhealthy.HandleHealth(rec, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))
	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
}
