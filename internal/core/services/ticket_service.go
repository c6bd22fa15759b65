package services

import (
	"context"
	"html"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/query"
)

// TicketService implements business logic for ticket management
type TicketService struct {
	ticketRepo  ports.TicketRepository
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	cache       ports.ReportCache
	policy      *bluemonday.Policy
	now         func() time.Time
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service. notifier, broadcaster and
// cache may be nil.
func NewTicketService(
	ticketRepo ports.TicketRepository,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	cache ports.ReportCache,
	opts ...Option,
) *TicketService {
	o := applyOptions(opts)
	return &TicketService{
		ticketRepo:  ticketRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
		cache:       cache,
		policy:      bluemonday.StrictPolicy(),
		now:         o.Now,
		logger:      o.Logger.With("component", "ticket_service"),
	}
}

// ListTickets filters, sorts and paginates the ticket collection.
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) (query.Page, error) {
	tickets, err := s.ticketRepo.List(ctx)
	if err != nil {
		return query.Page{}, err
	}

	tickets = query.Filter(tickets, params.Criteria)
	if params.SortBy != "" {
		tickets = query.Sort(tickets, params.SortBy, params.Direction)
	}
	return query.Paginate(tickets, params.Limit, params.Offset), nil
}

// GetTicket retrieves a single ticket
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

// CreateTicket handles the use case for submitting a new ticket
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	p := params.TicketParams
	if strings.TrimSpace(p.RaisedBy) == "" {
		p.RaisedBy = params.Actor
	}

	now := s.now()
	ticket, err := domain.NewTicket(p, domain.Today(now), now)
	if err != nil {
		return nil, err // Validation errors are returned here
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created", "ticket_id", created.ID, "actor", params.Actor)
	s.invalidateReports(ctx)
	s.broadcast(domain.EventTicketCreated, created.ID, created)
	if created.AssignedTo != domain.UnassignedName {
		s.notifyAsync(func(ctx context.Context) error { return s.notifier.TicketAssigned(ctx, created) })
	}
	return created, nil
}

// UpdateTicket applies a partial update. Exactly one log entry is appended
// when something changed; a no-op update returns the ticket unchanged.
func (s *TicketService) UpdateTicket(ctx context.Context, params ports.UpdateTicketParams) (*domain.Ticket, error) {
	var (
		changed    []string
		prevStatus domain.TicketStatus
	)
	now := s.now()

	updated, err := s.ticketRepo.Update(ctx, params.TicketID, func(t *domain.Ticket) error {
		prevStatus = t.Status
		var err error
		changed, err = t.Apply(params.Changes, params.Actor, domain.Today(now), now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return updated, nil
	}

	s.logger.Info("ticket updated", "ticket_id", updated.ID, "fields", changed, "actor", params.Actor)
	s.invalidateReports(ctx)
	s.broadcast(domain.EventTicketUpdated, updated.ID, updated)

	if slices.Contains(changed, "assignedTo") && updated.AssignedTo != domain.UnassignedName {
		s.notifyAsync(func(ctx context.Context) error { return s.notifier.TicketAssigned(ctx, updated) })
	}
	if slices.Contains(changed, "status") {
		s.notifyAsync(func(ctx context.Context) error { return s.notifier.TicketStatusChanged(ctx, updated, prevStatus) })
	}
	return updated, nil
}

// DeleteTicket removes a ticket from the store entirely.
func (s *TicketService) DeleteTicket(ctx context.Context, id int64, actor string) error {
	if err := s.ticketRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("ticket deleted", "ticket_id", id, "actor", actor)
	s.invalidateReports(ctx)
	s.broadcast(domain.EventTicketDeleted, id, domain.TicketDeletedPayload{ID: id, DeletedBy: actor})
	return nil
}

// AddComment appends a comment; markup is stripped from the message.
func (s *TicketService) AddComment(ctx context.Context, params ports.AddCommentParams) (*domain.Comment, error) {
	message := s.plainText(params.Message)

	var comment domain.Comment
	now := s.now()
	_, err := s.ticketRepo.Update(ctx, params.TicketID, func(t *domain.Ticket) error {
		var err error
		comment, err = t.AddComment(params.Author, params.Role, message, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventCommentAdded, params.TicketID, comment)
	return &comment, nil
}

// GetLogs returns the audit trail of a ticket, oldest first.
func (s *TicketService) GetLogs(ctx context.Context, id int64) ([]domain.LogEntry, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Logs == nil {
		return []domain.LogEntry{}, nil
	}
	return ticket.Logs, nil
}

func (s *TicketService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate report cache", "error", err)
	}
}

// broadcast sends real-time event for ticket changes
func (s *TicketService) broadcast(eventType domain.EventType, ticketID int64, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	event := domain.Event{
		Type:     eventType,
		Payload:  payload,
		TicketID: ticketID,
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn("failed to broadcast event", "event_type", eventType, "ticket_id", ticketID, "error", err)
	}
}

// notifyAsync runs a notification in the background so the request does
// not wait on delivery.
func (s *TicketService) notifyAsync(fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("notification failed", "error", err)
		}
	}()
}

// maxUnescapeRounds bounds how many layers of entity encoding plainText peels.
const maxUnescapeRounds = 4

// plainText strips markup and decodes entities, repeating until the text is
// stable so that encoded tags cannot come back to life once decoded. Input
// still changing after maxUnescapeRounds is stored in its escaped form.
func (s *TicketService) plainText(raw string) string {
	text := raw
	for range maxUnescapeRounds {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			return text
		}
		text = next
	}
	return s.policy.Sanitize(text)
}

// Shutdown waits for in-flight notifications.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}
