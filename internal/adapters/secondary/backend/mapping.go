package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

// statusTable is the single source for status translation. The first
// column is what we send; inbound also accepts the aliases below.
var statusTable = []struct {
	local  domain.TicketStatus
	remote string
}{
	{domain.StatusOpen, "Open"},
	{domain.StatusInProgress, "In Progress"},
	{domain.StatusOnHold, "Awaiting Info"},
	{domain.StatusCompleted, "Resolved"},
	{domain.StatusCancelled, "Closed"},
}

// inboundAliases are remote statuses that are not the outbound value of
// any local status. "Closed" means completed when it comes back.
var inboundAliases = map[string]domain.TicketStatus{
	"Closed":    domain.StatusCompleted,
	"Completed": domain.StatusCompleted,
	"On Hold":   domain.StatusOnHold,
	"Cancelled": domain.StatusCancelled,
}

var moduleToCategory = map[domain.Module]string{
	domain.ModuleOther: "OTHER",
}

var logTypes = map[string]domain.LogAction{
	"created":         domain.ActionTicketCreated,
	"status_change":   domain.ActionStatusChanged,
	"assignment":      domain.ActionAssigned,
	"priority_change": domain.ActionPriorityChanged,
	"comment":         domain.ActionCommentAdded,
	"email_received":  domain.ActionTicketCreated,
	"auto_classified": domain.ActionTicketCreated,
}

// statusToRemote maps a local status to the backend's vocabulary.
func statusToRemote(s domain.TicketStatus) (string, error) {
	for _, row := range statusTable {
		if row.local == s {
			return row.remote, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, s)
}

// statusFromRemote maps a backend status; anything outside the table is
// an integration error, never a silent default.
func statusFromRemote(s string) (domain.TicketStatus, error) {
	if local, ok := inboundAliases[s]; ok {
		return local, nil
	}
	for _, row := range statusTable {
		if row.remote == s {
			return row.local, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnmappedStatus, s)
}

func moduleToRemote(m domain.Module) string {
	if m == "" {
		return moduleToCategory[domain.ModuleOther]
	}
	if c, ok := moduleToCategory[m]; ok {
		return c
	}
	return string(m)
}

func moduleFromRemote(category string) domain.Module {
	for m, c := range moduleToCategory {
		if c == category {
			return m
		}
	}
	m := domain.Module(category)
	if !m.IsValid() {
		return domain.ModuleOther
	}
	return m
}

func logActionFromRemote(logType string) domain.LogAction {
	if a, ok := logTypes[logType]; ok {
		return a
	}
	return domain.ActionTicketUpdated
}

// parseTimestamp accepts RFC 3339 and the naive ISO form the backend uses
// for UTC values.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

func parseDate(s *string) (domain.Date, error) {
	if s == nil {
		return domain.Date{}, nil
	}
	return domain.ParseDate(*s)
}

func nameOf(u *userBriefDTO, fallback string) string {
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return fallback
	}
	return u.Name
}

// ticketFromDTO converts a backend ticket into the domain shape.
func ticketFromDTO(d ticketDTO) (*domain.Ticket, error) {
	status, err := statusFromRemote(d.Status)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", d.ID, err)
	}
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", d.ID, err)
	}
	due, err := parseDate(d.SLADueDate)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", d.ID, err)
	}
	closed, err := parseDate(d.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", d.ID, err)
	}

	raisedBy := nameOf(d.CreatedByUser, "Unknown")
	t := &domain.Ticket{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		Status:       status,
		Priority:     domain.TicketPriority(d.Priority),
		Module:       moduleFromRemote(d.Category),
		AssignedTo:   nameOf(d.AssignedToUser, domain.UnassignedName),
		RaisedBy:     raisedBy,
		CreatedBy:    raisedBy,
		Tags:         []string{},
		CreatedOn:    domain.DateOf(createdAt),
		CompletionBy: due,
		ClosedOn:     closed,
		Comments:     make([]domain.Comment, 0, len(d.Comments)),
		Logs:         make([]domain.LogEntry, 0, len(d.Logs)),
		Attachments:  []domain.Attachment{},
	}
	// A ticket without an SLA is due the day it was raised.
	if t.CompletionBy.IsZero() {
		t.CompletionBy = t.CreatedOn
	}
	if d.AssignedToUser != nil {
		t.AssignedToEmail = d.AssignedToUser.Email
	}

	for _, c := range d.Comments {
		ts, err := parseTimestamp(c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ticket %d comment %d: %w", d.ID, c.ID, err)
		}
		t.Comments = append(t.Comments, domain.Comment{
			ID:        c.ID,
			Author:    nameOf(c.Author, "Unknown"),
			Role:      domain.RoleViewer,
			Message:   c.Content,
			Timestamp: ts,
		})
	}
	for _, l := range d.Logs {
		ts, err := parseTimestamp(l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ticket %d log %d: %w", d.ID, l.ID, err)
		}
		t.Logs = append(t.Logs, domain.LogEntry{
			ID:          l.ID,
			Action:      logActionFromRemote(l.LogType),
			PerformedBy: nameOf(l.User, domain.SystemActor),
			Timestamp:   ts,
			Details:     l.Action,
		})
	}

	if d.SourceEmailID != nil && *d.SourceEmailID != "" {
		t.EmailSource = &domain.EmailSource{
			EmailID:    *d.SourceEmailID,
			Subject:    deref(d.SourceEmailSubject),
			From:       deref(d.SourceEmailFrom),
			ReceivedAt: createdAt,
		}
	}
	return t, nil
}

// ticketToCreateDTO builds the create payload. The backend assigns ids,
// dates and the initial log itself.
func ticketToCreateDTO(t *domain.Ticket, assignee *int64) createTicketDTO {
	priority := string(t.Priority)
	if priority == "" {
		priority = string(domain.PriorityMedium)
	}
	return createTicketDTO{
		Title:       t.Title,
		Description: t.Description,
		Priority:    priority,
		Category:    moduleToRemote(t.Module),
		AssignedTo:  assignee,
	}
}

// diffToUpdateDTO lists the fields of next that differ from prev.
// Assignment is resolved separately because it needs a backend user id.
func diffToUpdateDTO(prev, next *domain.Ticket) (updateTicketDTO, error) {
	u := updateTicketDTO{}
	if next.Title != prev.Title {
		u["title"] = next.Title
	}
	if next.Description != prev.Description {
		u["description"] = next.Description
	}
	if next.Status != prev.Status {
		s, err := statusToRemote(next.Status)
		if err != nil {
			return nil, err
		}
		u["status"] = s
	}
	if next.Priority != prev.Priority {
		u["priority"] = string(next.Priority)
	}
	if next.Module != prev.Module {
		u["category"] = moduleToRemote(next.Module)
	}
	return u, nil
}

func emailFromDTO(d emailDTO) (*domain.EmailRecord, error) {
	received, err := parseTimestamp(d.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("email %d: %w", d.ID, err)
	}
	rec := &domain.EmailRecord{
		ID:              d.ID,
		Subject:         d.Subject,
		FromAddress:     d.FromAddress,
		ReceivedAt:      received,
		IsSAPRelated:    d.IsSAPRelated != nil && *d.IsSAPRelated,
		TicketCreatedID: d.TicketCreatedID,
		Processed:       d.ProcessedAt != nil,
	}
	if d.DetectedCategory != nil && *d.DetectedCategory != "" {
		rec.DetectedCategory = moduleFromRemote(*d.DetectedCategory)
	}
	return rec, nil
}

func statsFromDTO(d emailStatsDTO) (*domain.EmailStats, error) {
	stats := &domain.EmailStats{
		TotalEmails:    d.TotalEmails,
		SAPRelated:     d.SAPRelated,
		TicketsCreated: d.TicketsCreated,
		Unprocessed:    d.Unprocessed,
	}
	if d.LastFetchAt != nil {
		ts, err := parseTimestamp(*d.LastFetchAt)
		if err != nil {
			return nil, err
		}
		stats.LastFetchAt = &ts
	}
	return stats, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
