package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorrc/sap-helpdesk/internal/app"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send overdue ticket reminders now",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		sent, err := a.ReminderService.SendOverdueReminders(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminder(s)\n", sent)
		return err
	}),
}

var fetchEmailsCmd = &cobra.Command{
	Use:   "fetch-emails",
	Short: "Pull new mail into the ticket pipeline",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		days, _ := cmd.Flags().GetInt("days")
		maxEmails, _ := cmd.Flags().GetInt("max")

		result, err := a.EmailService.TriggerFetch(cmd.Context(), days, maxEmails)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}),
}

func init() {
	rootCmd.AddCommand(remindCmd, fetchEmailsCmd)
	fetchEmailsCmd.Flags().Int("days", 0, "Days of mail to scan; 0 uses the pipeline default")
	fetchEmailsCmd.Flags().Int("max", 0, "Maximum emails to read; 0 uses the pipeline default")
}
