package query_test

import (
	"testing"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticket(id int64, title string, status domain.TicketStatus, assignee string, created string) *domain.Ticket {
	return &domain.Ticket{
		ID:         id,
		Title:      title,
		Status:     status,
		Priority:   domain.PriorityMedium,
		AssignedTo: assignee,
		CreatedOn:  domain.MustParseDate(created),
	}
}

func fixture() []*domain.Ticket {
	tickets := []*domain.Ticket{
		ticket(1, "Fix login page bug", domain.StatusOpen, "Alice Johnson", "2025-01-02"),
		ticket(2, "Update dashboard layout", domain.StatusInProgress, "Bob Smith", "2025-01-03"),
		ticket(10, "MM material cleanup", domain.StatusOpen, "alice johnson", "2025-01-04"),
		ticket(11, "SD pricing update", domain.StatusCompleted, "Charlie Brown", "2024-12-28"),
		ticket(21, "FICO period close", domain.StatusOnHold, "Dana White", "2025-01-10"),
	}
	tickets[2].Module = domain.ModuleMM
	tickets[3].Module = domain.ModuleSD
	tickets[4].Priority = domain.PriorityCritical
	tickets[0].CompletionBy = domain.MustParseDate("2025-01-10")
	tickets[1].Tags = []string{"ui"}
	return tickets
}

func ids(tickets []*domain.Ticket) []int64 {
	out := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria query.Criteria
		want     []int64
	}{
		{"empty criteria keeps everything", query.Criteria{}, []int64{1, 2, 10, 11, 21}},
		{"id matches as substring", query.Criteria{ID: "1"}, []int64{1, 10, 11, 21}},
		{"title is case-insensitive", query.Criteria{Title: "UPDATE"}, []int64{2, 11}},
		{"assignee is case-insensitive substring", query.Criteria{AssignedTo: "alice"}, []int64{1, 10}},
		{"status is exact", query.Criteria{Status: domain.StatusOpen}, []int64{1, 10}},
		{"status is case-sensitive", query.Criteria{Status: "open"}, []int64{}},
		{"priority", query.Criteria{Priority: domain.PriorityCritical}, []int64{21}},
		{"module", query.Criteria{Module: domain.ModuleMM}, []int64{10}},
		{"tag", query.Criteria{Tag: "ui"}, []int64{2}},
		{"completionBy substring", query.Criteria{CompletionBy: "2025-01"}, []int64{1}},
		{
			"date range is inclusive on both ends",
			query.Criteria{DateFrom: domain.MustParseDate("2025-01-03"), DateTo: domain.MustParseDate("2025-01-10")},
			[]int64{2, 10, 21},
		},
		{
			"criteria are AND-ed",
			query.Criteria{ID: "1", Status: domain.StatusOpen, AssignedTo: "johnson"},
			[]int64{1, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.Filter(fixture(), tt.criteria)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	in := fixture()
	before := ids(in)
	_ = query.Filter(in, query.Criteria{Status: domain.StatusOpen})
	assert.Equal(t, before, ids(in))
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		col  query.Column
		dir  query.Direction
		want []int64
	}{
		{"id desc", query.ColumnID, query.Desc, []int64{21, 11, 10, 2, 1}},
		{"title asc ignores case", query.ColumnTitle, query.Asc, []int64{21, 1, 10, 11, 2}},
		{"createdOn asc", query.ColumnCreatedOn, query.Asc, []int64{11, 1, 2, 10, 21}},
		{"assignee asc is stable for equal keys", query.ColumnAssignedTo, query.Asc, []int64{1, 10, 2, 11, 21}},
		{"module asc puts missing last", query.ColumnModule, query.Asc, []int64{10, 11, 1, 2, 21}},
		{"module desc puts missing first", query.ColumnModule, query.Desc, []int64{1, 2, 21, 11, 10}},
		{"completionBy asc puts missing last", query.ColumnCompletionBy, query.Asc, []int64{1, 2, 10, 11, 21}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.Sort(fixture(), tt.col, tt.dir)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSort_Idempotent(t *testing.T) {
	once := query.Sort(fixture(), query.ColumnTitle, query.Asc)
	twice := query.Sort(once, query.ColumnTitle, query.Asc)
	assert.Equal(t, ids(once), ids(twice))
}

func TestParseSortInput(t *testing.T) {
	col, err := query.ParseColumn("completionBy")
	require.NoError(t, err)
	assert.Equal(t, query.ColumnCompletionBy, col)

	_, err = query.ParseColumn("description")
	assert.Error(t, err)

	dir, err := query.ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, query.Desc, dir)

	dir, err = query.ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, query.Asc, dir)
}

func TestPaginate(t *testing.T) {
	all := fixture()

	page := query.Paginate(all, 2, 1)
	assert.Equal(t, []int64{2, 10}, ids(page.Items))
	assert.Equal(t, 5, page.Total)

	page = query.Paginate(all, 10, 4)
	assert.Equal(t, []int64{21}, ids(page.Items))

	page = query.Paginate(all, 2, 99)
	assert.Empty(t, page.Items)

	page = query.Paginate(all, 0, 0)
	assert.Len(t, page.Items, 5)
}
