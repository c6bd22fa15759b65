package ports

import (
	"context"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/query"
)

// ListTicketsParams combines filter, sort and pagination for a list call.
type ListTicketsParams struct {
	Criteria  query.Criteria
	SortBy    query.Column // empty keeps store order
	Direction query.Direction
	Limit     int // <= 0 returns everything
	Offset    int
}

// CreateTicketParams defines the input for creating a new ticket.
type CreateTicketParams struct {
	domain.TicketParams
	Actor string
}

// UpdateTicketParams defines a partial update of a ticket.
type UpdateTicketParams struct {
	TicketID int64
	Changes  domain.TicketChanges
	Actor    string
}

// AddCommentParams defines the input for adding a comment.
type AddCommentParams struct {
	TicketID int64
	Author   string
	Role     domain.CommentRole
	Message  string
}

// TicketService defines ticket CRUD and sub-resources.
type TicketService interface {
	ListTickets(ctx context.Context, params ListTicketsParams) (query.Page, error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, params UpdateTicketParams) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, id int64, actor string) error
	AddComment(ctx context.Context, params AddCommentParams) (*domain.Comment, error)
	GetLogs(ctx context.Context, id int64) ([]domain.LogEntry, error)
}

// AdminService defines the admin/user registry.
type AdminService interface {
	CheckFirstLogin(ctx context.Context, email, name string) (*domain.LoginResult, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	IsAdmin(ctx context.Context, email string) (bool, error)

	AddAdmin(ctx context.Context, email, actorEmail string) (*domain.AdminUser, error)
	RemoveAdmin(ctx context.Context, id, actorEmail string) error
	DeactivateUser(ctx context.Context, id, actorEmail string) error
	ReactivateUser(ctx context.Context, id, actorEmail string) error

	ListUsers(ctx context.Context, actorEmail string) ([]*domain.User, error)
	ListAdmins(ctx context.Context, actorEmail string) ([]*domain.AdminUser, error)
	PanelData(ctx context.Context, actorEmail string) (*domain.AdminPanel, error)
	AuditLogs(ctx context.Context, actorEmail string, limit, offset int) ([]*domain.AdminAuditLog, int, error)
}

// UserService defines the read-only user directory.
type UserService interface {
	Directory(ctx context.Context) ([]*domain.User, error)
	Search(ctx context.Context, q string) ([]*domain.User, error)
	Assignable(ctx context.Context) ([]*domain.User, error)
}

// AnalyticsService defines report generation over the current ticket set.
type AnalyticsService interface {
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	Full(ctx context.Context, days int) (*domain.FullAnalytics, error)
	Summary(ctx context.Context, dueSoonDays int) (*domain.AnalyticsReport, error)
	Workload(ctx context.Context) ([]domain.WorkloadItem, error)
	DateRange(ctx context.Context, start, end domain.Date) (*domain.DateRangeReport, error)
	Categories(ctx context.Context) ([]domain.CategorySummary, error)
}

// EmailService proxies the email-ingestion pipeline.
type EmailService interface {
	TriggerFetch(ctx context.Context, daysBack, maxEmails int) (*domain.FetchResult, error)
	Stats(ctx context.Context) (*domain.EmailStats, error)
	Recent(ctx context.Context, limit int) ([]*domain.EmailRecord, error)
	Unprocessed(ctx context.Context, limit int) ([]*domain.EmailRecord, error)
	ByCategory(ctx context.Context, category string, skip, limit int) ([]*domain.EmailRecord, error)
	Reprocess(ctx context.Context, id int64) (*domain.ReprocessResult, error)
}

// ReminderService sends overdue reminders; run by the scheduler.
type ReminderService interface {
	SendOverdueReminders(ctx context.Context) (int, error)
}
