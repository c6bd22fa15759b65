// Package email delivers ticket notifications. The only transport is the
// structured log; messages are fully rendered so a mail relay can be
// dropped in behind the same type.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// Message is one rendered notification.
type Message struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	TicketID int64
}

// LogNotifier resolves recipients from the user registry and writes each
// message to the log instead of sending it.
type LogNotifier struct {
	users  ports.RegistryRepository
	logger *slog.Logger
	sent   func(Message)
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier. users is used to find the address of
// an assignee known only by display name.
func NewLogNotifier(users ports.RegistryRepository, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		users:  users,
		logger: logger.With("component", "email_notifier"),
	}
}

// OnSend registers a hook called after each message; used for metrics.
func (n *LogNotifier) OnSend(fn func(Message)) {
	n.sent = fn
}

func (n *LogNotifier) TicketAssigned(ctx context.Context, t *domain.Ticket) error {
	return n.deliver(ctx, t.AssignedTo, t.AssignedToEmail, Message{
		Subject:  fmt.Sprintf("[Ticket #%d] Assigned to you: %s", t.ID, t.Title),
		Body:     fmt.Sprintf("Ticket #%d (%s, %s) has been assigned to you.", t.ID, t.Priority, t.Status),
		TicketID: t.ID,
	})
}

func (n *LogNotifier) TicketStatusChanged(ctx context.Context, t *domain.Ticket, from domain.TicketStatus) error {
	return n.deliver(ctx, t.AssignedTo, t.AssignedToEmail, Message{
		Subject:  fmt.Sprintf("[Ticket #%d] Status changed to %s", t.ID, t.Status),
		Body:     fmt.Sprintf("Ticket #%d %q moved from %s to %s.", t.ID, t.Title, from, t.Status),
		TicketID: t.ID,
	})
}

func (n *LogNotifier) OverdueReminder(ctx context.Context, assignee string, items []domain.OverdueTicket) error {
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d overdue ticket(s):\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "- #%d %s (%d day(s) overdue)\n", item.Ticket.ID, item.Ticket.Title, item.DaysOverdue)
	}

	email := ""
	if len(items) > 0 && items[0].Ticket != nil {
		email = items[0].Ticket.AssignedToEmail
	}
	return n.deliver(ctx, assignee, email, Message{
		Subject: fmt.Sprintf("%d overdue ticket(s) need attention", len(items)),
		Body:    b.String(),
	})
}

func (n *LogNotifier) deliver(ctx context.Context, name, email string, msg Message) error {
	to, err := n.recipient(ctx, name, email)
	if err != nil {
		n.logger.Warn("notification skipped", "recipient", name, "subject", msg.Subject, "error", err)
		return err
	}
	msg.To = to
	msg.ToName = name

	n.logger.Info("mock email sent",
		"to_name", msg.ToName,
		"to_email", msg.To,
		"subject", msg.Subject,
		"ticket_id", msg.TicketID,
	)
	if n.sent != nil {
		n.sent(msg)
	}
	return nil
}

func (n *LogNotifier) recipient(ctx context.Context, name, email string) (string, error) {
	if email != "" {
		return email, nil
	}
	name = strings.TrimSpace(name)
	if name == "" || name == domain.UnassignedName {
		return "", fmt.Errorf("ticket has no assignee: %w", apperrors.ErrUserNotFound)
	}
	if n.users == nil {
		return "", fmt.Errorf("no address for %q: %w", name, apperrors.ErrUserNotFound)
	}

	users, err := n.users.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.IsActive && strings.EqualFold(u.Name, name) {
			return u.Email, nil
		}
	}
	return "", fmt.Errorf("no active user named %q: %w", name, apperrors.ErrUserNotFound)
}
