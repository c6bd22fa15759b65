package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/query"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) List(ctx context.Context) ([]*domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// Create accepts either a *domain.Ticket or a func(*domain.Ticket)
// *domain.Ticket as the first return value.
func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if fn, ok := args.Get(0).(func(*domain.Ticket) *domain.Ticket); ok {
		return fn(ticket), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// Update matches on (ctx, id). The configured ticket is cloned and fn is
// applied to the clone, so tests observe the real mutation.
func (m *MockTicketRepository) Update(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}
	t := args.Get(0).(*domain.Ticket).Clone()
	if err := fn(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *MockTicketRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRegistryRepository is a mock implementation of ports.RegistryRepository
type MockRegistryRepository struct {
	mock.Mock
}

func NewMockRegistryRepository() *MockRegistryRepository {
	return &MockRegistryRepository{}
}

func (m *MockRegistryRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockRegistryRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRegistryRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRegistryRepository) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRegistryRepository) CreateUser(ctx context.Context, u *domain.User, admin *domain.AdminUser) error {
	args := m.Called(ctx, u, admin)
	return args.Error(0)
}

func (m *MockRegistryRepository) UpdateUser(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRegistryRepository) ListAdmins(ctx context.Context) ([]*domain.AdminUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AdminUser), args.Error(1)
}

func (m *MockRegistryRepository) GetAdmin(ctx context.Context, id string) (*domain.AdminUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminUser), args.Error(1)
}

func (m *MockRegistryRepository) GrantAdmin(ctx context.Context, admin *domain.AdminUser) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockRegistryRepository) RevokeAdmin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRegistryRepository) AppendAudit(ctx context.Context, entry *domain.AdminAuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRegistryRepository) ListAudit(ctx context.Context, limit, offset int) ([]*domain.AdminAuditLog, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.AdminAuditLog), args.Int(1), args.Error(2)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) TicketAssigned(ctx context.Context, t *domain.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockNotifier) TicketStatusChanged(ctx context.Context, t *domain.Ticket, from domain.TicketStatus) error {
	args := m.Called(ctx, t, from)
	return args.Error(0)
}

func (m *MockNotifier) OverdueReminder(ctx context.Context, assignee string, items []domain.OverdueTicket) error {
	args := m.Called(ctx, assignee, items)
	return args.Error(0)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockReportCache is a mock implementation of ports.ReportCache
type MockReportCache struct {
	mock.Mock
}

func NewMockReportCache() *MockReportCache {
	return &MockReportCache{}
}

func (m *MockReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockReportCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockReportCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmailGateway is a mock implementation of ports.EmailGateway
type MockEmailGateway struct {
	mock.Mock
}

func NewMockEmailGateway() *MockEmailGateway {
	return &MockEmailGateway{}
}

func (m *MockEmailGateway) TriggerFetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FetchResult), args.Error(1)
}

func (m *MockEmailGateway) Stats(ctx context.Context) (*domain.EmailStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailStats), args.Error(1)
}

func (m *MockEmailGateway) Recent(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailRecord), args.Error(1)
}

func (m *MockEmailGateway) Unprocessed(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailRecord), args.Error(1)
}

func (m *MockEmailGateway) ByCategory(ctx context.Context, module domain.Module, skip, limit int) ([]*domain.EmailRecord, error) {
	args := m.Called(ctx, module, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailRecord), args.Error(1)
}

func (m *MockEmailGateway) Reprocess(ctx context.Context, id int64) (*domain.ReprocessResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReprocessResult), args.Error(1)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) (query.Page, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(query.Page), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) UpdateTicket(ctx context.Context, params ports.UpdateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) DeleteTicket(ctx context.Context, id int64, actor string) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockTicketService) AddComment(ctx context.Context, params ports.AddCommentParams) (*domain.Comment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockTicketService) GetLogs(ctx context.Context, id int64) ([]domain.LogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LogEntry), args.Error(1)
}

// MockAdminService is a mock implementation of ports.AdminService
type MockAdminService struct {
	mock.Mock
}

func NewMockAdminService() *MockAdminService {
	return &MockAdminService{}
}

func (m *MockAdminService) CheckFirstLogin(ctx context.Context, email, name string) (*domain.LoginResult, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResult), args.Error(1)
}

func (m *MockAdminService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAdminService) IsAdmin(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminService) AddAdmin(ctx context.Context, email, actorEmail string) (*domain.AdminUser, error) {
	args := m.Called(ctx, email, actorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminUser), args.Error(1)
}

func (m *MockAdminService) RemoveAdmin(ctx context.Context, id, actorEmail string) error {
	args := m.Called(ctx, id, actorEmail)
	return args.Error(0)
}

func (m *MockAdminService) DeactivateUser(ctx context.Context, id, actorEmail string) error {
	args := m.Called(ctx, id, actorEmail)
	return args.Error(0)
}

func (m *MockAdminService) ReactivateUser(ctx context.Context, id, actorEmail string) error {
	args := m.Called(ctx, id, actorEmail)
	return args.Error(0)
}

func (m *MockAdminService) ListUsers(ctx context.Context, actorEmail string) ([]*domain.User, error) {
	args := m.Called(ctx, actorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockAdminService) ListAdmins(ctx context.Context, actorEmail string) ([]*domain.AdminUser, error) {
	args := m.Called(ctx, actorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AdminUser), args.Error(1)
}

func (m *MockAdminService) PanelData(ctx context.Context, actorEmail string) (*domain.AdminPanel, error) {
	args := m.Called(ctx, actorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminPanel), args.Error(1)
}

func (m *MockAdminService) AuditLogs(ctx context.Context, actorEmail string, limit, offset int) ([]*domain.AdminAuditLog, int, error) {
	args := m.Called(ctx, actorEmail, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.AdminAuditLog), args.Int(1), args.Error(2)
}

// MockAnalyticsService is a mock implementation of ports.AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func NewMockAnalyticsService() *MockAnalyticsService {
	return &MockAnalyticsService{}
}

func (m *MockAnalyticsService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

func (m *MockAnalyticsService) Full(ctx context.Context, days int) (*domain.FullAnalytics, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FullAnalytics), args.Error(1)
}

func (m *MockAnalyticsService) Summary(ctx context.Context, dueSoonDays int) (*domain.AnalyticsReport, error) {
	args := m.Called(ctx, dueSoonDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalyticsReport), args.Error(1)
}

func (m *MockAnalyticsService) Workload(ctx context.Context) ([]domain.WorkloadItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WorkloadItem), args.Error(1)
}

func (m *MockAnalyticsService) DateRange(ctx context.Context, start, end domain.Date) (*domain.DateRangeReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DateRangeReport), args.Error(1)
}

func (m *MockAnalyticsService) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategorySummary), args.Error(1)
}

// MockUserService is a mock implementation of ports.UserService
type MockUserService struct {
	mock.Mock
}

func NewMockUserService() *MockUserService {
	return &MockUserService{}
}

func (m *MockUserService) Directory(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserService) Search(ctx context.Context, q string) ([]*domain.User, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserService) Assignable(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockEmailService is a mock implementation of ports.EmailService
type MockEmailService struct {
	mock.Mock
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (m *MockEmailService) TriggerFetch(ctx context.Context, daysBack, maxEmails int) (*domain.FetchResult, error) {
	args := m.Called(ctx, daysBack, maxEmails)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FetchResult), args.Error(1)
}

func (m *MockEmailService) Stats(ctx context.Context) (*domain.EmailStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailStats), args.Error(1)
}

func (m *MockEmailService) Recent(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailRecord), args.Error(1)
}

func (m *MockEmailService) Unprocessed(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailRecord), args.Error(1)
}

func (m *MockEmailService) ByCategory(ctx context.Context, category string, skip, limit int) ([]*domain.EmailRecord, error) {
	args := m.Called(ctx, category, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailRecord), args.Error(1)
}

func (m *MockEmailService) Reprocess(ctx context.Context, id int64) (*domain.ReprocessResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReprocessResult), args.Error(1)
}

var (
	_ ports.TicketRepository   = (*MockTicketRepository)(nil)
	_ ports.RegistryRepository = (*MockRegistryRepository)(nil)
	_ ports.Notifier           = (*MockNotifier)(nil)
	_ ports.EventBroadcaster   = (*MockEventBroadcaster)(nil)
	_ ports.ReportCache        = (*MockReportCache)(nil)
	_ ports.EmailGateway       = (*MockEmailGateway)(nil)
	_ ports.TicketService      = (*MockTicketService)(nil)
	_ ports.AdminService       = (*MockAdminService)(nil)
	_ ports.AnalyticsService   = (*MockAnalyticsService)(nil)
	_ ports.UserService        = (*MockUserService)(nil)
	_ ports.EmailService       = (*MockEmailService)(nil)
)
