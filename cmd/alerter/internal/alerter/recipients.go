package alerter

import (
	"context"
	"fmt"

	"github.com/shubham-shewale/stock-alerts/pkg/config"
)

// Recipients decides which users receive a breach alert for a symbol
type Recipients interface {
	Recipients(ctx context.Context, symbol string) ([]int64, error)
}

type RecipientsFunc func(ctx context.Context, symbol string) ([]int64, error)

func (f RecipientsFunc) Recipients(ctx context.Context, symbol string) ([]int64, error) {
	return f(ctx, symbol)
}

// FixedRecipients sends every breach to the same users.
type FixedRecipients []int64

func (f FixedRecipients) Recipients(ctx context.Context, symbol string) ([]int64, error) {
	return f, nil
}

type UserLookup interface {
	Watchers(ctx context.Context, symbol string) ([]int64, error)
	RuleOwners(ctx context.Context, symbol string) ([]int64, error)
}

func NewRecipients(cfg config.BreachRecipientsConfig, lookup UserLookup) (Recipients, error) {
	switch cfg.Mode {
	case config.RecipientsFixed, "":
		return FixedRecipients(cfg.UserIDs), nil
	case config.RecipientsWatchers:
		return RecipientsFunc(lookup.Watchers), nil
	case config.RecipientsRuleOwners:
		return RecipientsFunc(lookup.RuleOwners), nil
	default:
		return nil, fmt.Errorf("unknown breach recipients mode %q", cfg.Mode)
	}
}
