package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

const ticketsSheet = "Tickets"

// Column widths, in characters, for the Tickets sheet.
var columnWidths = []float64{8, 40, 60, 12, 10, 20, 20, 15, 15, 10, 30}

// Spreadsheet writes tickets as an XLSX workbook with a single "Tickets" sheet.
func Spreadsheet(w io.Writer, tickets []*domain.Ticket) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ticketsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(tickets))
	for _, t := range tickets {
		cells := row(t)
		values := make([]interface{}, len(cells))
		values[0] = t.ID
		for i := 1; i < len(cells); i++ {
			values[i] = cells[i]
		}
		rows = append(rows, values)
	}
	if err := writeTable(f, ticketsSheet, Columns, rows); err != nil {
		return err
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ticketsSheet, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// AnalyticsWorkbook writes the report as a multi-sheet workbook.
func AnalyticsWorkbook(w io.Writer, r *domain.AnalyticsReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Report Date", r.Today.Format(DisplayDateLayout)},
		{"Total Tickets", r.Total},
		{"Overdue", r.OverdueCount},
		{fmt.Sprintf("Due Within %d Days", r.DueSoonDays), r.DueSoonCount},
		{"Completed This Week", r.CompletedThisWeek},
		{"Created This Week", r.CreatedThisWeek},
	}
	if err := writeTable(f, "Summary", []string{"Metric", "Value"}, summary); err != nil {
		return err
	}
	if err := f.SetColWidth("Summary", "A", "A", 30); err != nil {
		return err
	}
	if err := f.SetColWidth("Summary", "B", "B", 20); err != nil {
		return err
	}

	status := make([][]interface{}, 0, len(r.StatusSummary))
	for _, s := range r.StatusSummary {
		status = append(status, []interface{}{string(s.Status), s.Count, s.Percentage})
	}
	priority := make([][]interface{}, 0, len(r.PriorityDistribution))
	for _, p := range r.PriorityDistribution {
		priority = append(priority, []interface{}{string(p.Priority), p.Count, p.Percentage})
	}
	modules := make([][]interface{}, 0, len(r.ModuleDistribution))
	for _, m := range r.ModuleDistribution {
		modules = append(modules, []interface{}{string(m.Module), m.Description, m.Count, m.Percentage})
	}
	workload := make([][]interface{}, 0, len(r.Workload))
	for _, wl := range r.Workload {
		workload = append(workload, []interface{}{wl.Assignee, wl.Total, wl.Open, wl.InProgress, wl.Completed, wl.Overdue, wl.CompletionRate})
	}
	overdue := make([][]interface{}, 0, len(r.Overdue))
	for _, o := range r.Overdue {
		overdue = append(overdue, []interface{}{o.Ticket.ID, o.Ticket.Title, o.Ticket.AssignedTo, o.Ticket.CompletionBy.Format(DisplayDateLayout), o.DaysOverdue})
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{"Status Summary", []string{"Status", "Count", "Percentage"}, status},
		{"Priority Distribution", []string{"Priority", "Count", "Percentage"}, priority},
		{"Module Distribution", []string{"Module", "Description", "Count", "Percentage"}, modules},
		{"Assignee Workload", []string{"Assignee", "Total", "Open", "In Progress", "Completed", "Overdue", "Completion Rate (%)"}, workload},
		{"Overdue", []string{"ID", "Title", "Assigned To", "Completion By", "Days Overdue"}, overdue},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		if err := writeTable(f, s.name, s.headers, s.rows); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// writeTable writes a bold header row followed by rows.
func writeTable(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return err
	}

	for i, r := range rows {
		values := r
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(i+2), &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
