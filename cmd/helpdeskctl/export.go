package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorrc/sap-helpdesk/internal/app"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/export"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/query"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tickets to CSV or XLSX",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		formatRaw, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		status, _ := cmd.Flags().GetString("status")
		assignee, _ := cmd.Flags().GetString("assignee")

		format, ok := export.ParseFormat(formatRaw)
		if !ok {
			return fmt.Errorf("unsupported format %q (expected: csv or xlsx)", formatRaw)
		}
		if status != "" && !domain.TicketStatus(status).IsValid() {
			return fmt.Errorf("unknown status %q", status)
		}

		page, err := a.TicketService.ListTickets(cmd.Context(), ports.ListTicketsParams{
			Criteria: query.Criteria{
				Status:     domain.TicketStatus(status),
				AssignedTo: assignee,
			},
		})
		if err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}

		var buf bytes.Buffer
		if format == export.FormatXLSX {
			err = export.Spreadsheet(&buf, page.Items)
		} else {
			err = export.CSV(&buf, page.Items)
		}
		if err != nil {
			return fmt.Errorf("render export: %w", err)
		}

		if outPath == "-" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if outPath == "" {
			outPath = export.Filename(a.Config.App.ExportFilenameStem, time.Now(), format)
		}
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d ticket(s) to %s\n", len(page.Items), outPath)
		return err
	}),
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "csv", "Output format: csv or xlsx")
	exportCmd.Flags().StringP("out", "o", "", "Output file; \"-\" writes to stdout. Defaults to a dated file name")
	exportCmd.Flags().String("status", "", "Only export tickets with this status")
	exportCmd.Flags().String("assignee", "", "Only export tickets whose assignee contains this text")
}
