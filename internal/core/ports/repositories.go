package ports

import (
	"context"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// TicketRepository is the ticket store accessor. Implementations return
// copies; mutating a returned ticket never changes stored state.
type TicketRepository interface {
	List(ctx context.Context) ([]*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// Create stores t, assigning max(existing ids)+1 when t.ID is zero.
	Create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error)
	// Update runs fn on a copy of the ticket and stores the result
	// atomically. When fn returns an error nothing is written.
	Update(ctx context.Context, id int64, fn func(t *domain.Ticket) error) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
}

// RegistryRepository stores users, the admin projection and the admin
// audit trail. GrantAdmin and RevokeAdmin change the user's flag and the
// admin record together.
type RegistryRepository interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	// CreateUser inserts u; when admin is non-nil the admin record is
	// inserted in the same step.
	CreateUser(ctx context.Context, u *domain.User, admin *domain.AdminUser) error
	UpdateUser(ctx context.Context, u *domain.User) error

	ListAdmins(ctx context.Context) ([]*domain.AdminUser, error)
	GetAdmin(ctx context.Context, id string) (*domain.AdminUser, error)
	GrantAdmin(ctx context.Context, admin *domain.AdminUser) error
	RevokeAdmin(ctx context.Context, id string) error

	AppendAudit(ctx context.Context, entry *domain.AdminAuditLog) error
	ListAudit(ctx context.Context, limit, offset int) ([]*domain.AdminAuditLog, int, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is a ticket store with a Reset lifecycle, re-initialised from its
// seed data. Tests create one per case.
type Store interface {
	TicketRepository
	Pinger
	Reset()
}

// EmailGateway is the external email-ingestion pipeline.
type EmailGateway interface {
	TriggerFetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error)
	Stats(ctx context.Context) (*domain.EmailStats, error)
	Recent(ctx context.Context, limit int) ([]*domain.EmailRecord, error)
	Unprocessed(ctx context.Context, limit int) ([]*domain.EmailRecord, error)
	ByCategory(ctx context.Context, module domain.Module, skip, limit int) ([]*domain.EmailRecord, error)
	Reprocess(ctx context.Context, id int64) (*domain.ReprocessResult, error)
}

// ReportCache stores computed analytics. A miss is (false, nil).
type ReportCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Notifier delivers ticket notifications to people.
type Notifier interface {
	TicketAssigned(ctx context.Context, t *domain.Ticket) error
	TicketStatusChanged(ctx context.Context, t *domain.Ticket, from domain.TicketStatus) error
	OverdueReminder(ctx context.Context, assignee string, items []domain.OverdueTicket) error
}

// EventBroadcaster pushes real-time ticket events to subscribers.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
