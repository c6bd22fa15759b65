// Package export renders ticket lists and analytics reports as CSV and
// XLSX downloads.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// DisplayDateLayout is the short human form used in exported files.
const DisplayDateLayout = "Jan 2, 2006"

// Format is an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value to a Format; empty means CSV.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatXLSX, "excel":
		return FormatXLSX, true
	}
	return "", false
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Columns is the fixed export column set.
var Columns = []string{
	"ID", "Title", "Description", "Status", "Priority", "Assigned To",
	"Raised By", "Created On", "Completion By", "Module", "Tags",
}

// TagSeparator joins a ticket's tags into one cell.
const TagSeparator = "; "

// Filename returns "{stem}_{YYYY-MM-DD}.{ext}" for the export date.
func Filename(stem string, on time.Time, f Format) string {
	if stem == "" {
		stem = "tickets"
	}
	return fmt.Sprintf("%s_%s.%s", stem, on.Format(domain.DateLayout), f)
}

// row returns the export cells of t; index 0 is the numeric id.
func row(t *domain.Ticket) []string {
	module := string(t.Module)
	if module == "" {
		module = "N/A"
	}
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		t.AssignedTo,
		t.RaisedBy,
		t.CreatedOn.Format(DisplayDateLayout),
		t.CompletionBy.Format(DisplayDateLayout),
		module,
		strings.Join(t.Tags, TagSeparator),
	}
}

// CSV writes a header line and one line per ticket. Every text field is
// quoted with embedded quotes doubled; the id column is written bare.
func CSV(w io.Writer, tickets []*domain.Ticket) error {
	bw := bufio.NewWriter(w)

	writeLine := func(cells []string, quoteFirst bool) {
		for i, cell := range cells {
			if i > 0 {
				bw.WriteByte(',')
			}
			if i == 0 && !quoteFirst {
				bw.WriteString(cell)
				continue
			}
			bw.WriteString(quote(cell))
		}
		bw.WriteByte('\n')
	}

	writeLine(Columns, true)
	for _, t := range tickets {
		writeLine(row(t), false)
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
