// Package cli implements the maintenance commands for the alert pipeline's stores.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type HistoryStore interface {
	Query(ctx context.Context, symbol string, sinceHours, limit int) ([]models.ProcessedSample, error)
	Latest(ctx context.Context, symbol string) (models.ProcessedSample, error)
	Purge(ctx context.Context, olderThanDays int) (int64, error)
}

// LatestCache is the Redis view of the newest sample per symbol.
type LatestCache interface {
	GetMany(ctx context.Context, symbols []string) (map[string]models.ProcessedSample, error)
	Delete(ctx context.Context, symbol string) error
	Ping(ctx context.Context) error
}

type RuleStore interface {
	RulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error)
	CreateRule(ctx context.Context, rule models.AlertRule) (models.AlertRule, error)
	DeleteRule(ctx context.Context, id int64) error
}

type AlertStore interface {
	ListAlerts(ctx context.Context, userID int64, limit int, unreadOnly bool) ([]models.Alert, error)
	MarkRead(ctx context.Context, id int64) error
}

// App holds what the commands operate on.
type App struct {
	Logger  *zap.Logger
	Migrate func(ctx context.Context) (int64, error)
	History HistoryStore
	Cache   LatestCache
	Rules   RuleStore
	Alerts  AlertStore

	// RetentionDays is the purge default.
	RetentionDays int
}

func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Stock alerts maintenance CLI",
		Long: `Maintenance commands for the stock alert pipeline.

Runs schema migrations, prunes price history, inspects recent and cached
samples and manages alert rules and stored alerts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(newMigrateCmd(app))
	addHistoryCommands(rootCmd, app)
	addCacheCommands(rootCmd, app)
	addRuleCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	return rootCmd
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := app.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			app.Logger.Info("Migrations applied", zap.Int64("version", version))
			return render(cmd, map[string]int64{"version": version}, func(w io.Writer) {
				fmt.Fprintf(w, "schema at version %d\n", version)
			})
		},
	}
}

// render writes v as JSON under --json, otherwise calls text.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}
