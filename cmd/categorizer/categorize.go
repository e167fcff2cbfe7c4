package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sananlb/Expense-bot-sub000/internal/cli"
	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

// draftFlags are the transaction attributes shared by categorize and correct.
type draftFlags struct {
	amount   string
	currency string
	kind     string
	noAI     bool
}

func (f *draftFlags) register(cmd *cobra.Command, withAI bool) {
	cmd.Flags().StringVar(&f.amount, "amount", "0", "transaction amount")
	cmd.Flags().StringVar(&f.currency, "currency", "RUB", "ISO currency code")
	cmd.Flags().StringVar(&f.kind, "type", string(model.CategoryTypeExpense), "transaction type (expense, income)")
	if withAI {
		cmd.Flags().BoolVar(&f.noAI, "no-ai", false, "skip the AI lookup")
	}
}

func (f *draftFlags) draft(text string) (model.TransactionDraft, error) {
	return buildDraft(text, f.amount, f.currency, f.kind, !f.noAI)
}

// buildDraft parses the textual transaction attributes into a draft for the
// current owner and locale.
func buildDraft(text, amount, currency, kind string, aiEnabled bool) (model.TransactionDraft, error) {
	d := model.TransactionDraft{
		RawText:   text,
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Timestamp: time.Now(),
		OwnerID:   ownerID,
		Locale:    locale,
		AIEnabled: aiEnabled,
	}

	if amount = strings.TrimSpace(amount); amount != "" {
		value, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", "."))
		if err != nil {
			return d, fmt.Errorf("invalid amount %q: %w", amount, common.ErrValidation)
		}
		d.Amount = value
	}

	if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
		d.Type = model.CategoryType(kind)
		if !d.Type.Valid() {
			return d, fmt.Errorf("invalid transaction type %q: %w", kind, common.ErrValidation)
		}
	}
	return d, nil
}

func categorizeCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "categorize <description>",
		Short: "Pick a category for a transaction description",
		Long: `Resolve a description to one of the owner's categories.

Lookups run in order: personal keywords, the shared dictionary, the AI
provider (when configured and not disabled), then the default bucket.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			draft, err := flags.draft(strings.Join(args, " "))
			if err != nil {
				return err
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result, err := a.resolver.Resolve(ctx, draft)
			if err != nil {
				return fmt.Errorf("failed to categorize: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatResult(result))
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}

func correctCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "correct <category-id> <description>",
		Short: "File a description under a category and learn it",
		Long: `Record a manual correction. The description's key phrase is learned
for the given category and removed from any other category of the owner.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			categoryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q: %w", args[0], common.ErrValidation)
			}
			draft, err := flags.draft(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			kw, err := a.resolver.Correct(ctx, draft, categoryID)
			if err != nil {
				return fmt.Errorf("failed to apply correction: %w", err)
			}

			out := cmd.OutOrStdout()
			if kw == nil {
				fmt.Fprintln(out, cli.FormatWarning("Correction recorded, but no keyword could be learned from this description"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Learned %q for category %d", kw.Phrase, categoryID)))
			return nil
		},
	}

	flags.register(cmd, false)
	return cmd
}
