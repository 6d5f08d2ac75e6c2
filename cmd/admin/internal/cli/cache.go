package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

// LatestRow is one line of the latest command's output.
type LatestRow struct {
	Symbol string                  `json:"symbol"`
	Source string                  `json:"source"`
	Sample *models.ProcessedSample `json:"sample,omitempty"`
}

const (
	sourceCache   = "cache"
	sourceHistory = "history"
	sourceMissing = "missing"
)

func addCacheCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLatestCmd(app))
	rootCmd.AddCommand(newCacheResetCmd(app))
	rootCmd.AddCommand(newHealthCmd(app))
}

func newLatestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest SYMBOL...",
		Short: "Show the newest sample per symbol, from the cache or else from history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := make([]string, len(args))
			for i, a := range args {
				symbols[i] = models.NormalizeSymbol(a)
			}

			cached, err := app.Cache.GetMany(cmd.Context(), symbols)
			if err != nil {
				// History still answers when Redis is down.
				app.Logger.Warn("Cache read failed, falling back to history", zap.Error(err))
				cached = nil
			}

			rows := make([]LatestRow, 0, len(symbols))
			for _, symbol := range symbols {
				if ps, ok := cached[symbol]; ok {
					rows = append(rows, LatestRow{Symbol: symbol, Source: sourceCache, Sample: &ps})
					continue
				}
				ps, err := app.History.Latest(cmd.Context(), symbol)
				switch {
				case errors.Is(err, errs.ErrNotFound):
					rows = append(rows, LatestRow{Symbol: symbol, Source: sourceMissing})
				case err != nil:
					return fmt.Errorf("latest %s: %w", symbol, err)
				default:
					rows = append(rows, LatestRow{Symbol: symbol, Source: sourceHistory, Sample: &ps})
				}
			}

			return render(cmd, rows, func(w io.Writer) {
				fmt.Fprintln(w, "SYMBOL\tSOURCE\tTIME\tPRICE\tCHANGE%\tTREND")
				for _, r := range rows {
					if r.Sample == nil {
						fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", r.Symbol, r.Source)
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%+.2f\t%s\n",
						r.Symbol, r.Source, r.Sample.Timestamp.Format(time.RFC3339), r.Sample.Price, r.Sample.ChangePercent, r.Sample.Trend)
				}
			})
		},
	}
}

func newCacheResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-reset SYMBOL...",
		Short: "Drop cached latest samples so the next one starts a fresh baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reset := make([]string, 0, len(args))
			for _, a := range args {
				symbol := models.NormalizeSymbol(a)
				if err := app.Cache.Delete(cmd.Context(), symbol); err != nil {
					return fmt.Errorf("reset cache: %w", err)
				}
				reset = append(reset, symbol)
			}
			app.Logger.Info("Cache entries reset", zap.Strings("symbols", reset))
			return render(cmd, map[string][]string{"reset": reset}, func(w io.Writer) {
				for _, s := range reset {
					fmt.Fprintf(w, "reset %s\n", s)
				}
			})
		},
	}
}

func newHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that Redis answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Cache.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return render(cmd, map[string]string{"redis": "ok"}, func(w io.Writer) {
				fmt.Fprintln(w, "redis\tok")
			})
		},
	}
}
