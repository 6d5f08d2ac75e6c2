package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
)

func addAlertCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect stored alerts",
	}
	cmd.AddCommand(newAlertsListCmd(app))
	cmd.AddCommand(newAlertsReadCmd(app))
	rootCmd.AddCommand(cmd)
}

func newAlertsListCmd(app *App) *cobra.Command {
	var (
		userID     int64
		limit      int
		unreadOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's alerts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := app.Alerts.ListAlerts(cmd.Context(), userID, limit, unreadOnly)
			if err != nil {
				return fmt.Errorf("list alerts: %w", err)
			}
			return render(cmd, alerts, func(w io.Writer) {
				if len(alerts) == 0 {
					fmt.Fprintf(w, "no alerts for user %d\n", userID)
					return
				}
				fmt.Fprintln(w, "ID\tTIME\tSYMBOL\tTYPE\tREAD\tMESSAGE")
				for _, a := range alerts {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n",
						a.ID, a.TriggeredAt.Format(time.RFC3339), a.Symbol, a.AlertType, a.IsRead, a.Message)
				}
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "user id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum alerts")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread alerts")
	return cmd
}

func newAlertsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read ALERT_ID",
		Short: "Mark an alert as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errs.Invalid("id", "not an alert id: %q", args[0])
			}
			if err := app.Alerts.MarkRead(cmd.Context(), id); err != nil {
				return fmt.Errorf("alert %d: %w", id, err)
			}
			return render(cmd, map[string]int64{"read": id}, func(w io.Writer) {
				fmt.Fprintf(w, "alert %d marked read\n", id)
			})
		},
	}
}
