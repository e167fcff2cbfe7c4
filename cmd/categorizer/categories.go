package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sananlb/Expense-bot-sub000/internal/cli"
	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add, rename and remove the owner's expense and income categories.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(renameCategoryCmd())
	cmd.AddCommand(removeCategoryCmd())

	return cmd
}

func parseCategoryType(s string) (model.CategoryType, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	t := model.CategoryType(strings.ToLower(s))
	if !t.Valid() {
		return "", fmt.Errorf("invalid category type %q: %w", s, common.ErrValidation)
	}
	return t, nil
}

// parseLocales parses repeated "locale=name" flags.
func parseLocales(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		loc, name, ok := strings.Cut(p, "=")
		loc, name = strings.TrimSpace(loc), strings.TrimSpace(name)
		if !ok || loc == "" || name == "" {
			return nil, fmt.Errorf("invalid locale name %q, expected locale=name: %w", p, common.ErrValidation)
		}
		out[loc] = name
	}
	return out, nil
}

func formatLocales(locales map[string]string) string {
	keys := make([]string, 0, len(locales))
	for k := range locales {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + locales[k]
	}
	return strings.Join(parts, ", ")
}

func listCategoriesCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active categories",
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

			categories, err := a.store.GetCategories(ctx, ownerID, categoryType)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'categorizer categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Type"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Translations"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 7),
				strings.Repeat("-", 24),
				strings.Repeat("-", 30))

			for _, cat := range categories {
				name := cat.Name
				if cat.Icon != "" {
					name = cat.Icon + " " + name
				}
				translations := formatLocales(cat.Locales)
				if translations == "" {
					translations = cli.SubtleStyle.Render("(none)")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cat.ID, cat.Type, name, translations)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "all", "category type to list (expense, income, all)")
	return cmd
}

func addCategoryCmd() *cobra.Command {
	var (
		kind    string
		icon    string
		locales []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long: `Create a category for the owner. Translations are given as repeated
--name locale=name flags and are matched just like the primary name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			categoryType, err := parseCategoryType(kind)
			if err != nil {
				return err
			}
			if categoryType == "" {
				categoryType = model.CategoryTypeExpense
			}
			names, err := parseLocales(locales)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			cat, err := a.store.CreateCategory(ctx, model.Category{
				OwnerID: ownerID,
				Name:    strings.Join(args, " "),
				Icon:    icon,
				Type:    categoryType,
				Locales: names,
			})
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s category %q (ID: %d)", cat.Type, cat.Name, cat.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(model.CategoryTypeExpense), "category type (expense, income)")
	cmd.Flags().StringVar(&icon, "icon", "", "icon shown before the name")
	cmd.Flags().StringArrayVar(&locales, "name", nil, "translated name as locale=name (repeatable)")
	return cmd
}

func parseCategoryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid category id %q: %w", s, common.ErrValidation)
	}
	return id, nil
}

func renameCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseCategoryID(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.store.RenameCategory(ctx, ownerID, id, name); err != nil {
				return fmt.Errorf("failed to rename category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Renamed category %d to %q", id, name)))
			return nil
		},
	}
}

func removeCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"delete"},
		Short:   "Deactivate a category",
		Long: `Deactivate a category. It stops appearing in lookups and AI prompts;
its learned keywords are kept but no longer match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseCategoryID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.store.DeactivateCategory(ctx, ownerID, id); err != nil {
				return fmt.Errorf("failed to remove category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed category %d", id)))
			return nil
		},
	}
}
