package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sananlb/Expense-bot-sub000/internal/cli"
	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/learning"
)

func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage learned keywords",
		Long:  `Inspect, teach and forget the personal keywords that route descriptions to categories.`,
	}

	cmd.AddCommand(listKeywordsCmd())
	cmd.AddCommand(learnKeywordCmd())
	cmd.AddCommand(removeKeywordCmd())

	return cmd
}

func listKeywordsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned keywords grouped by category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			categoryType, err := parseCategoryType(kind)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			groups, err := a.store.GetKeywordsByCategory(ctx, ownerID, categoryType)
			if err != nil {
				return fmt.Errorf("failed to get keywords: %w", err)
			}

			total := 0
			for _, g := range groups {
				total += len(g.Keywords)
			}
			if total == 0 {
				fmt.Println(cli.InfoStyle.Render("No keywords learned yet."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Keyword"),
				cli.TableHeaderStyle.Render("Uses"),
				cli.TableHeaderStyle.Render("Last used"))

			for _, g := range groups {
				for _, kw := range g.Keywords {
					lastUsed := cli.SubtleStyle.Render("never")
					if kw.LastUsedAt != nil {
						lastUsed = kw.LastUsedAt.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", kw.ID, g.Category.Name, kw.Phrase, kw.UsageCount, lastUsed)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "all", "category type to list (expense, income, all)")
	return cmd
}

func learnKeywordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn <category-id> <description>",
		Short: "Extract and learn a keyword from a description",
		Long: `Extract the key phrase of a description and file it under the category.
Descriptions that are too long, purely numeric or only transactional verbs
are not learned.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			categoryID, err := parseCategoryID(args[0])
			if err != nil {
				return err
			}
			description := strings.Join(args[1:], " ")

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if _, err := a.store.GetCategory(ctx, ownerID, categoryID); err != nil {
				return fmt.Errorf("failed to load category: %w", err)
			}

			kw, err := learning.New(a.store, slog.Default()).Learn(ctx, ownerID, categoryID, description)
			if err != nil {
				return fmt.Errorf("failed to learn keyword: %w", err)
			}
			if kw == nil {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("Nothing learnable in %q", description)))
				return nil
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Learned %q (ID: %d)", kw.Phrase, kw.ID)))
			return nil
		},
	}
}

func removeKeywordCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"delete"},
		Short:   "Forget a learned keyword",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid keyword id %q: %w", args[0], common.ErrValidation)
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.store.DeleteKeyword(ctx, ownerID, id); err != nil {
				return fmt.Errorf("failed to remove keyword: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed keyword %d", id)))
			return nil
		},
	}
}
