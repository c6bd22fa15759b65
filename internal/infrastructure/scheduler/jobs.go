package scheduler

import (
	"context"

	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

// Job names, also used as metric labels.
const (
	JobEmailFetch       = "email_fetch"
	JobOverdueReminders = "overdue_reminders"
)

// EmailFetchJob asks the ingestion pipeline for new mail using its default
// window.
func EmailFetchJob(emails ports.EmailService) Handler {
	return func(ctx context.Context) error {
		_, err := emails.TriggerFetch(ctx, 0, 0)
		return err
	}
}

// OverdueReminderJob sends one reminder per assignee with overdue tickets.
func OverdueReminderJob(reminders ports.ReminderService, m *metrics.Metrics) Handler {
	return func(ctx context.Context) error {
		sent, err := reminders.SendOverdueReminders(ctx)
		m.RemindersSent(sent)
		return err
	}
}
