package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	refToday = domain.MustParseDate("2025-01-15")
	refNow   = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func TestTicketPriority_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		priority domain.TicketPriority
		want     bool
	}{
		{"Critical is valid", domain.PriorityCritical, true},
		{"High is valid", domain.PriorityHigh, true},
		{"Medium is valid", domain.PriorityMedium, true},
		{"Low is valid", domain.PriorityLow, true},
		{"empty is invalid", domain.TicketPriority(""), false},
		{"lowercase is invalid", domain.TicketPriority("high"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.priority.IsValid())
		})
	}
}

func TestTicketStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   domain.TicketStatus
		terminal bool
	}{
		{domain.StatusOpen, false},
		{domain.StatusInProgress, false},
		{domain.StatusOnHold, false},
		{domain.StatusCompleted, true},
		{domain.StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.IsValid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestModule_Description(t *testing.T) {
	assert.Equal(t, "Material Management", domain.ModuleMM.Description())
	assert.Equal(t, "Other/Unknown", domain.ModuleOther.Description())
	assert.Equal(t, "BW", domain.Module("BW").Description())
	assert.False(t, domain.Module("BW").IsValid())
}

func TestNewTicket(t *testing.T) {
	tests := []struct {
		name        string
		params      domain.TicketParams
		expectError bool
		errorField  string
	}{
		{
			name: "valid ticket",
			params: domain.TicketParams{
				Title:      "Fix login page bug",
				Priority:   domain.PriorityHigh,
				Module:     domain.ModuleSD,
				AssignedTo: "Alice Johnson",
				RaisedBy:   "John Smith",
			},
		},
		{
			name:        "missing title",
			params:      domain.TicketParams{Title: "   "},
			expectError: true,
			errorField:  "title",
		},
		{
			name:        "title too long",
			params:      domain.TicketParams{Title: strings.Repeat("a", 256)},
			expectError: true,
			errorField:  "title",
		},
		{
			name:        "description too long",
			params:      domain.TicketParams{Title: "ok", Description: strings.Repeat("a", 10001)},
			expectError: true,
			errorField:  "description",
		},
		{
			name:        "invalid priority",
			params:      domain.TicketParams{Title: "ok", Priority: "Urgent"},
			expectError: true,
			errorField:  "priority",
		},
		{
			name:        "invalid module",
			params:      domain.TicketParams{Title: "ok", Module: "BASIS"},
			expectError: true,
			errorField:  "module",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := domain.NewTicket(tt.params, refToday, refNow)

			if tt.expectError {
				require.Error(t, err)
				var validationErr *apperrors.ValidationErrors
				if assert.ErrorAs(t, err, &validationErr) {
					assert.Contains(t, validationErr.Errors, tt.errorField)
				}
				assert.Nil(t, ticket)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.StatusOpen, ticket.Status)
			assert.Equal(t, refToday, ticket.CreatedOn)
			assert.True(t, ticket.ClosedOn.IsZero())
			require.Len(t, ticket.Logs, 1)
			assert.Equal(t, domain.ActionTicketCreated, ticket.Logs[0].Action)
			assert.Equal(t, "Ticket created and assigned to Alice Johnson", ticket.Logs[0].Details)
		})
	}
}

func TestNewTicket_Defaults(t *testing.T) {
	ticket, err := domain.NewTicket(domain.TicketParams{Title: "Untriaged", Tags: []string{"sap", " sap ", "", "mm"}}, refToday, refNow)
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	assert.Equal(t, domain.UnassignedName, ticket.AssignedTo)
	assert.Equal(t, domain.SystemActor, ticket.RaisedBy)
	assert.Equal(t, []string{"sap", "mm"}, ticket.Tags)
	assert.Equal(t, "Ticket created", ticket.Logs[0].Details)
}

func newOpenTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:        "Database performance review",
		Priority:     domain.PriorityHigh,
		AssignedTo:   "Dana White",
		RaisedBy:     "Tech Lead",
		CompletionBy: domain.MustParseDate("2025-02-01"),
	}, domain.MustParseDate("2025-01-05"), refNow.AddDate(0, 0, -10))
	require.NoError(t, err)
	ticket.ID = 4
	return ticket
}

func TestTicket_Apply(t *testing.T) {
	tests := []struct {
		name          string
		changes       domain.TicketChanges
		wantChanged   []string
		wantAction    domain.LogAction
		wantDetails   string
		wantClosedSet bool
	}{
		{
			name:        "status only",
			changes:     domain.TicketChanges{Status: ptr(domain.StatusInProgress)},
			wantChanged: []string{"status"},
			wantAction:  domain.ActionStatusChanged,
			wantDetails: "Status changed from Open to In Progress",
		},
		{
			name:          "status to completed closes the ticket",
			changes:       domain.TicketChanges{Status: ptr(domain.StatusCompleted)},
			wantChanged:   []string{"status"},
			wantAction:    domain.ActionTicketClosed,
			wantDetails:   "Status changed from Open to Completed",
			wantClosedSet: true,
		},
		{
			name:        "reassignment",
			changes:     domain.TicketChanges{AssignedTo: ptr("Bob Smith"), AssignedToEmail: ptr("bob.smith@example.com")},
			wantChanged: []string{"assignedTo"},
			wantAction:  domain.ActionAssigned,
			wantDetails: "Ticket assigned to Bob Smith",
		},
		{
			name:        "priority only",
			changes:     domain.TicketChanges{Priority: ptr(domain.PriorityCritical)},
			wantChanged: []string{"priority"},
			wantAction:  domain.ActionPriorityChanged,
			wantDetails: "Priority changed from High to Critical",
		},
		{
			name: "several fields produce one summary entry",
			changes: domain.TicketChanges{
				Title:    ptr("Database performance review (prod)"),
				Priority: ptr(domain.PriorityLow),
				Tags:     ptr([]string{"db"}),
			},
			wantChanged: []string{"title", "priority", "tags"},
			wantAction:  domain.ActionTicketUpdated,
			wantDetails: "Updated fields: title, priority, tags",
		},
		{
			name: "cancelling with other fields",
			changes: domain.TicketChanges{
				Status:      ptr(domain.StatusCancelled),
				Description: ptr("duplicate of #2"),
			},
			wantChanged:   []string{"description", "status"},
			wantAction:    domain.ActionTicketClosed,
			wantDetails:   "Updated fields: description, status",
			wantClosedSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := newOpenTicket(t)
			logsBefore := len(ticket.Logs)

			changed, err := ticket.Apply(tt.changes, "Dana White", refToday, refNow)
			require.NoError(t, err)

			assert.Equal(t, tt.wantChanged, changed)
			require.Len(t, ticket.Logs, logsBefore+1)
			last := ticket.Logs[len(ticket.Logs)-1]
			assert.Equal(t, tt.wantAction, last.Action)
			assert.Equal(t, tt.wantDetails, last.Details)
			assert.Equal(t, "Dana White", last.PerformedBy)
			if tt.wantClosedSet {
				assert.Equal(t, refToday, ticket.ClosedOn)
			} else {
				assert.True(t, ticket.ClosedOn.IsZero())
			}
		})
	}
}

func TestTicket_Apply_NoChangeWritesNoLog(t *testing.T) {
	ticket := newOpenTicket(t)
	logsBefore := len(ticket.Logs)

	changed, err := ticket.Apply(domain.TicketChanges{
		Status:   ptr(domain.StatusOpen),
		Priority: ptr(domain.PriorityHigh),
	}, "someone", refToday, refNow)

	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Len(t, ticket.Logs, logsBefore)
}

func TestTicket_Apply_TerminalStatusIsFinal(t *testing.T) {
	ticket := newOpenTicket(t)
	_, err := ticket.Apply(domain.TicketChanges{Status: ptr(domain.StatusCompleted)}, "Dana White", refToday, refNow)
	require.NoError(t, err)
	closedOn := ticket.ClosedOn

	_, err = ticket.Apply(domain.TicketChanges{Status: ptr(domain.StatusOpen)}, "Dana White", refToday.AddDays(3), refNow)
	assert.ErrorIs(t, err, apperrors.ErrTicketClosed)
	assert.Equal(t, domain.StatusCompleted, ticket.Status)
	assert.Equal(t, closedOn, ticket.ClosedOn)

	// Non-status edits are still allowed on a closed ticket.
	changed, err := ticket.Apply(domain.TicketChanges{Description: ptr("root cause: missing index")}, "Dana White", refToday, refNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"description"}, changed)
}

func TestTicket_Apply_InvalidInputLeavesTicketUntouched(t *testing.T) {
	ticket := newOpenTicket(t)
	before := ticket.Clone()

	_, err := ticket.Apply(domain.TicketChanges{
		Title:  ptr(""),
		Status: ptr(domain.TicketStatus("Resolved")),
	}, "x", refToday, refNow)

	var validationErr *apperrors.ValidationErrors
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Errors, "title")
	assert.Contains(t, validationErr.Errors, "status")
	assert.Equal(t, before, ticket)
}

func TestTicket_AddComment(t *testing.T) {
	ticket := newOpenTicket(t)

	c, err := ticket.AddComment("Dana White", domain.RoleAssignee, "  Looking at slow query logs  ", refNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, "Looking at slow query logs", c.Message)

	c2, err := ticket.AddComment("Tech Lead", "", "thanks", refNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c2.ID)
	assert.Equal(t, domain.RoleViewer, c2.Role)

	assert.Len(t, ticket.Comments, 2)
	assert.Equal(t, domain.ActionCommentAdded, ticket.Logs[len(ticket.Logs)-1].Action)

	_, err = ticket.AddComment("Tech Lead", domain.RoleRaiser, " ", refNow)
	assert.ErrorIs(t, err, apperrors.ErrCommentBodyRequired)
	_, err = ticket.AddComment("", domain.RoleRaiser, "hi", refNow)
	assert.ErrorIs(t, err, apperrors.ErrAuthorRequired)
}

func TestTicket_DueDates(t *testing.T) {
	ticket := newOpenTicket(t)
	ticket.CompletionBy = refToday.AddDays(-1)
	assert.True(t, ticket.IsOverdue(refToday))
	assert.False(t, ticket.IsDueWithin(refToday, 7))

	ticket.CompletionBy = refToday
	assert.False(t, ticket.IsOverdue(refToday))
	assert.True(t, ticket.IsDueWithin(refToday, 7))

	ticket.CompletionBy = refToday.AddDays(7)
	assert.True(t, ticket.IsDueWithin(refToday, 7))
	ticket.CompletionBy = refToday.AddDays(8)
	assert.False(t, ticket.IsDueWithin(refToday, 7))

	ticket.Status = domain.StatusCancelled
	ticket.CompletionBy = refToday.AddDays(-30)
	assert.False(t, ticket.IsOverdue(refToday))

	ticket.Status = domain.StatusOpen
	ticket.CompletionBy = domain.Date{}
	assert.False(t, ticket.IsOverdue(refToday))
}

func TestTicket_CloneIsDeep(t *testing.T) {
	ticket := newOpenTicket(t)
	ticket.Tags = []string{"a"}
	clone := ticket.Clone()

	clone.Tags[0] = "changed"
	clone.Logs[0].Details = "changed"

	assert.Equal(t, "a", ticket.Tags[0])
	assert.NotEqual(t, "changed", ticket.Logs[0].Details)
}
