package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lorrc/sap-helpdesk/internal/core/analytics"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/export"
)

func sampleTickets() []*domain.Ticket {
	return []*domain.Ticket{
		{
			ID: 1, Title: "Fix login, SSO callback", Description: `Getting a "403" on callback`,
			Status: domain.StatusOpen, Priority: domain.PriorityHigh, AssignedTo: "Alice Johnson", RaisedBy: "John Smith",
			CreatedOn: domain.MustParseDate("2025-01-02"), CompletionBy: domain.MustParseDate("2025-01-10"),
			Module: domain.ModuleSD, Tags: []string{"sso", "auth"},
		},
		{
			ID: 2, Title: "Update dashboard layout", Status: domain.StatusInProgress, Priority: domain.PriorityMedium,
			AssignedTo: "Bob Smith", RaisedBy: "Sarah Davis", CreatedOn: domain.MustParseDate("2025-01-03"),
		},
		{
			ID: 10, Title: "Pricing, conditions, 2025", Status: domain.StatusCompleted, Priority: domain.PriorityLow,
			AssignedTo: "Charlie Brown", RaisedBy: "Sales Team", CreatedOn: domain.MustParseDate("2024-12-28"),
			CompletionBy: domain.MustParseDate("2025-01-05"), ClosedOn: domain.MustParseDate("2025-01-04"), Module: domain.ModuleOther,
		},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.CSV(&buf, sampleTickets()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"ID","Title","Description","Status","Priority","Assigned To","Raised By","Created On","Completion By","Module","Tags"`, lines[0])
	assert.Equal(t,
		`1,"Fix login, SSO callback","Getting a ""403"" on callback","Open","High","Alice Johnson","John Smith","Jan 2, 2025","Jan 10, 2025","SD","sso; auth"`,
		lines[1])

	// A standard reader sees the same column count on every row.
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Len(t, r, len(export.Columns))
	}
	assert.Equal(t, "Pricing, conditions, 2025", records[3][1])
	assert.Equal(t, "", records[2][8])
	assert.Equal(t, "N/A", records[2][9])
}

func TestCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.CSV(&buf, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestFilename(t *testing.T) {
	on := time.Date(2025, 1, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "tickets_2025-01-15.csv", export.Filename("tickets", on, export.FormatCSV))
	assert.Equal(t, "analytics_2025-01-15.xlsx", export.Filename("analytics", on, export.FormatXLSX))
	assert.Equal(t, export.Filename("tickets", on, export.FormatCSV), export.Filename("", on, export.FormatCSV))
}

func TestParseFormat(t *testing.T) {
	f, ok := export.ParseFormat("XLSX")
	assert.True(t, ok)
	assert.Equal(t, export.FormatXLSX, f)

	f, ok = export.ParseFormat("")
	assert.True(t, ok)
	assert.Equal(t, export.FormatCSV, f)

	_, ok = export.ParseFormat("pdf")
	assert.False(t, ok)
}

func TestSpreadsheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Spreadsheet(&buf, sampleTickets()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Tickets"}, f.GetSheetList())
	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, export.Columns, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Fix login, SSO callback", rows[1][1])
	assert.Equal(t, "Jan 2, 2025", rows[1][7])
}

func TestAnalyticsWorkbook(t *testing.T) {
	report := analytics.Summarize(sampleTickets(), analytics.Options{Today: domain.MustParseDate("2025-01-15")})

	var buf bytes.Buffer
	require.NoError(t, export.AnalyticsWorkbook(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"Summary", "Status Summary", "Priority Distribution", "Module Distribution", "Assignee Workload", "Overdue",
	}, f.GetSheetList())

	total, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "3", total)

	overdue, err := f.GetRows("Overdue")
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "Fix login, SSO callback", overdue[1][1])
}
