package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/analytics"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// ReminderService nudges assignees about their overdue tickets.
type ReminderService struct {
	ticketRepo ports.TicketRepository
	notifier   ports.Notifier
	now        func() time.Time
	logger     *slog.Logger
}

var _ ports.ReminderService = (*ReminderService)(nil)

func NewReminderService(ticketRepo ports.TicketRepository, notifier ports.Notifier, opts ...Option) *ReminderService {
	o := applyOptions(opts)
	return &ReminderService{
		ticketRepo: ticketRepo,
		notifier:   notifier,
		now:        o.Now,
		logger:     o.Logger.With("component", "reminder_service"),
	}
}

// SendOverdueReminders sends one reminder per assignee listing their
// overdue tickets, most overdue first. Unassigned tickets are skipped. It
// returns the number of reminders delivered.
func (s *ReminderService) SendOverdueReminders(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}

	tickets, err := s.ticketRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	report := analytics.Summarize(tickets, analytics.Options{Today: domain.Today(s.now())})

	byAssignee := make(map[string][]domain.OverdueTicket)
	var order []string
	for _, o := range report.Overdue {
		name := o.Ticket.AssignedTo
		if name == "" || name == domain.UnassignedName {
			continue
		}
		if _, seen := byAssignee[name]; !seen {
			order = append(order, name)
		}
		byAssignee[name] = append(byAssignee[name], o)
	}

	sent := 0
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.notifier.OverdueReminder(ctx, name, byAssignee[name]); err != nil {
			s.logger.Warn("overdue reminder failed", "assignee", name, "error", err)
			continue
		}
		sent++
	}

	s.logger.Info("overdue reminders sent", "sent", sent, "assignees", len(order))
	return sent, nil
}
