// Package query holds the pure ticket-list operations used by list,
// export and report endpoints: filtering, sorting and pagination.
package query

import (
	"slices"
	"strconv"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// Criteria are AND-ed field predicates. Empty fields impose no constraint.
type Criteria struct {
	ID           string // substring of the decimal id
	Title        string // case-insensitive substring
	AssignedTo   string // case-insensitive substring
	RaisedBy     string // case-insensitive substring
	CompletionBy string // substring of the YYYY-MM-DD due date
	Tag          string // exact tag membership
	Status       domain.TicketStatus
	Priority     domain.TicketPriority
	Module       domain.Module
	DateFrom     domain.Date // createdOn >= DateFrom
	DateTo       domain.Date // createdOn <= DateTo
}

// IsEmpty reports whether c matches everything.
func (c Criteria) IsEmpty() bool {
	return c == Criteria{}
}

// Filter returns the tickets matching every non-empty criterion, in input
// order. The input slice is not modified.
func Filter(tickets []*domain.Ticket, c Criteria) []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(tickets))
	title := strings.ToLower(strings.TrimSpace(c.Title))
	assignee := strings.ToLower(strings.TrimSpace(c.AssignedTo))
	raisedBy := strings.ToLower(strings.TrimSpace(c.RaisedBy))
	id := strings.TrimSpace(c.ID)

	for _, t := range tickets {
		if t == nil {
			continue
		}
		if id != "" && !strings.Contains(strconv.FormatInt(t.ID, 10), id) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
			continue
		}
		if assignee != "" && !strings.Contains(strings.ToLower(t.AssignedTo), assignee) {
			continue
		}
		if raisedBy != "" && !strings.Contains(strings.ToLower(t.RaisedBy), raisedBy) {
			continue
		}
		if c.CompletionBy != "" && !strings.Contains(t.CompletionBy.String(), c.CompletionBy) {
			continue
		}
		if c.Tag != "" && !slices.Contains(t.Tags, c.Tag) {
			continue
		}
		if c.Status != "" && t.Status != c.Status {
			continue
		}
		if c.Priority != "" && t.Priority != c.Priority {
			continue
		}
		if c.Module != "" && t.Module != c.Module {
			continue
		}
		if !c.DateFrom.IsZero() && (t.CreatedOn.IsZero() || t.CreatedOn.Before(c.DateFrom)) {
			continue
		}
		if !c.DateTo.IsZero() && (t.CreatedOn.IsZero() || t.CreatedOn.After(c.DateTo)) {
			continue
		}
		out = append(out, t)
	}
	return out
}
