package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// Column is a sortable ticket field.
type Column string

const (
	ColumnID           Column = "id"
	ColumnTitle        Column = "title"
	ColumnStatus       Column = "status"
	ColumnPriority     Column = "priority"
	ColumnAssignedTo   Column = "assignedTo"
	ColumnRaisedBy     Column = "raisedBy"
	ColumnModule       Column = "module"
	ColumnCreatedOn    Column = "createdOn"
	ColumnCompletionBy Column = "completionBy"
	ColumnClosedOn     Column = "closedOn"
)

var columns = []Column{
	ColumnID, ColumnTitle, ColumnStatus, ColumnPriority, ColumnAssignedTo,
	ColumnRaisedBy, ColumnModule, ColumnCreatedOn, ColumnCompletionBy, ColumnClosedOn,
}

// Direction of a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseColumn validates a column name from a query string.
func ParseColumn(s string) (Column, error) {
	c := Column(s)
	if !slices.Contains(columns, c) {
		return "", fmt.Errorf("unknown sort column %q", s)
	}
	return c, nil
}

// ParseDirection accepts "asc"/"desc" in any case; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Sort returns a stably sorted copy of tickets. Missing values (empty
// module, zero dates) sort last ascending and first descending.
func Sort(tickets []*domain.Ticket, col Column, dir Direction) []*domain.Ticket {
	out := slices.Clone(tickets)
	key := sortKey(col)
	if key == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b *domain.Ticket) int {
		c := compareKeys(key(a), key(b))
		if dir == Desc {
			return -c
		}
		return c
	})
	return out
}

// keyValue is one ticket's value for the sort column; null marks a missing value.
type keyValue struct {
	null bool
	num  int64
	str  string
	date domain.Date
	kind int // 0 number, 1 string, 2 date
}

func sortKey(col Column) func(*domain.Ticket) keyValue {
	str := func(f func(*domain.Ticket) string) func(*domain.Ticket) keyValue {
		return func(t *domain.Ticket) keyValue {
			v := f(t)
			return keyValue{null: v == "", str: strings.ToLower(v), kind: 1}
		}
	}
	date := func(f func(*domain.Ticket) domain.Date) func(*domain.Ticket) keyValue {
		return func(t *domain.Ticket) keyValue {
			v := f(t)
			return keyValue{null: v.IsZero(), date: v, kind: 2}
		}
	}

	switch col {
	case ColumnID:
		return func(t *domain.Ticket) keyValue { return keyValue{num: t.ID} }
	case ColumnTitle:
		return str(func(t *domain.Ticket) string { return t.Title })
	case ColumnStatus:
		return str(func(t *domain.Ticket) string { return string(t.Status) })
	case ColumnPriority:
		return str(func(t *domain.Ticket) string { return string(t.Priority) })
	case ColumnAssignedTo:
		return str(func(t *domain.Ticket) string { return t.AssignedTo })
	case ColumnRaisedBy:
		return str(func(t *domain.Ticket) string { return t.RaisedBy })
	case ColumnModule:
		return str(func(t *domain.Ticket) string { return string(t.Module) })
	case ColumnCreatedOn:
		return date(func(t *domain.Ticket) domain.Date { return t.CreatedOn })
	case ColumnCompletionBy:
		return date(func(t *domain.Ticket) domain.Date { return t.CompletionBy })
	case ColumnClosedOn:
		return date(func(t *domain.Ticket) domain.Date { return t.ClosedOn })
	}
	return nil
}

func compareKeys(a, b keyValue) int {
	switch {
	case a.null && b.null:
		return 0
	case a.null:
		return 1
	case b.null:
		return -1
	}
	switch a.kind {
	case 1:
		return strings.Compare(a.str, b.str)
	case 2:
		return a.date.Compare(b.date)
	}
	return cmp.Compare(a.num, b.num)
}

// Page is one window of a list plus the size of the whole list.
type Page struct {
	Items  []*domain.Ticket
	Total  int
	Limit  int
	Offset int
}

// Paginate cuts a window out of tickets. A non-positive limit returns
// everything from offset on.
func Paginate(tickets []*domain.Ticket, limit, offset int) Page {
	total := len(tickets)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return Page{
		Items:  tickets[offset:end],
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
}
