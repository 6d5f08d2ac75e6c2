package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

func addRuleCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage alert rules",
	}
	cmd.AddCommand(newRulesAddCmd(app))
	cmd.AddCommand(newRulesListCmd(app))
	cmd.AddCommand(newRulesDeleteCmd(app))
	rootCmd.AddCommand(cmd)
}

func newRulesAddCmd(app *App) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "add SYMBOL RULE_TYPE THRESHOLD",
		Short: "Create an active rule (PRICE_ABOVE, PRICE_BELOW or SUDDEN_CHANGE)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errs.Invalid("threshold_value", "not a number: %q", args[2])
			}
			rule, err := app.Rules.CreateRule(cmd.Context(), models.AlertRule{
				UserID:         userID,
				Symbol:         args[0],
				RuleType:       models.RuleType(strings.ToUpper(args[1])),
				ThresholdValue: threshold,
			})
			if err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
			app.Logger.Info("Rule created", zap.Int64("rule_id", rule.ID), zap.Int64("user_id", rule.UserID), zap.String("symbol", rule.Symbol))
			return render(cmd, rule, func(w io.Writer) {
				fmt.Fprintf(w, "created rule %d: %s %s %.2f for user %d\n", rule.ID, rule.Symbol, rule.RuleType, rule.ThresholdValue, rule.UserID)
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "owning user id")
	return cmd
}

func newRulesListCmd(app *App) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := app.Rules.RulesForUser(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("list rules: %w", err)
			}
			return render(cmd, rules, func(w io.Writer) {
				if len(rules) == 0 {
					fmt.Fprintf(w, "user %d has no rules\n", userID)
					return
				}
				fmt.Fprintln(w, "ID\tSYMBOL\tTYPE\tTHRESHOLD\tACTIVE")
				for _, r := range rules {
					fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%t\n", r.ID, r.Symbol, r.RuleType, r.ThresholdValue, r.IsActive)
				}
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "owning user id")
	return cmd
}

func newRulesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RULE_ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errs.Invalid("id", "not a rule id: %q", args[0])
			}
			if err := app.Rules.DeleteRule(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete rule %d: %w", id, err)
			}
			return render(cmd, map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted rule %d\n", id)
			})
		},
	}
}
