package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/analytics"
	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
	"github.com/shubham-shewale/stock-alerts/pkg/store"
)

func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newSummaryCmd(app))
	rootCmd.AddCommand(newPurgeCmd(app))
}

func newHistoryCmd(app *App) *cobra.Command {
	var hours, limit int
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Show recent processed samples for a symbol, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := models.NormalizeSymbol(args[0])
			rows, err := app.History.Query(cmd.Context(), symbol, hours, limit)
			if err != nil {
				return fmt.Errorf("query history for %s: %w", symbol, err)
			}
			return render(cmd, rows, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintf(w, "no samples for %s in the last %d hours\n", symbol, effective(hours, store.DefaultQueryHours))
					return
				}
				fmt.Fprintln(w, "TIME\tPRICE\tCHANGE\tCHANGE%\tTREND\tVOLATILITY")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%.2f\t%+.2f\t%+.2f\t%s\t%s\n",
						r.Timestamp.Format(time.RFC3339), r.Price, r.Change, r.ChangePercent, r.Trend, r.Volatility)
				}
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", store.DefaultQueryHours, "look back this many hours")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultQueryLimit, "maximum rows")
	return cmd
}

func newSummaryCmd(app *App) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "summary SYMBOL",
		Short: "Summarize recent price movement for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := models.NormalizeSymbol(args[0])
			rows, err := app.History.Query(cmd.Context(), symbol, hours, store.DefaultQueryLimit)
			if err != nil {
				return fmt.Errorf("query history for %s: %w", symbol, err)
			}
			s := analytics.Summarize(symbol, rows)
			return render(cmd, s, func(w io.Writer) {
				fmt.Fprintf(w, "Symbol:\t%s\n", s.Symbol)
				fmt.Fprintf(w, "Data points:\t%d\n", s.DataPoints)
				if s.DataPoints > 0 {
					fmt.Fprintf(w, "Average:\t%.2f\n", s.Average)
					fmt.Fprintf(w, "Min / Max:\t%.2f / %.2f\n", s.Min, s.Max)
					fmt.Fprintf(w, "Range:\t%.2f\n", s.Range)
				}
				fmt.Fprintf(w, "Direction:\t%s\n", s.Direction)
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", store.DefaultQueryHours, "look back this many hours")
	return cmd
}

func newPurgeCmd(app *App) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete price history older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = app.RetentionDays
			}
			if days <= 0 {
				return errs.Invalid("days", "must be positive, got %d", days)
			}
			deleted, err := app.History.Purge(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("purge history: %w", err)
			}
			app.Logger.Info("History purged", zap.Int("older_than_days", days), zap.Int64("deleted", deleted))
			return render(cmd, map[string]int64{"deleted": deleted}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted %d samples older than %d days\n", deleted, days)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default from retention.history_days)")
	return cmd
}

func effective(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
