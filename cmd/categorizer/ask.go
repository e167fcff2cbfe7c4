package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sananlb/Expense-bot-sub000/internal/cli"
	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

const assistantPrompt = `You are a personal finance assistant. Answer briefly and concretely.
The user's categories are listed below; refer to them by name when relevant.`

func askCmd() *cobra.Command {
	var area string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the AI assistant a question",
		Long: `Send a free-form question to the provider configured for an area.
The analytical area is used by default and runs with the long timeout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fa := model.FunctionalArea(area)
			if fa != model.AreaAnalytical && fa != model.AreaConversational {
				return fmt.Errorf("area must be %s or %s: %w", model.AreaAnalytical, model.AreaConversational, common.ErrValidation)
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if a.router == nil || !a.router.Configured(fa) {
				return fmt.Errorf("no provider route for area %s: %w", fa, common.ErrInvalidConfig)
			}

			categories, err := a.store.GetCategories(ctx, ownerID, "")
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			var system strings.Builder
			system.WriteString(assistantPrompt)
			for _, c := range categories {
				fmt.Fprintf(&system, "\n- %s (%s)", c.LocalizedName(locale), c.Type)
			}

			resp, err := a.router.Complete(ctx, fa, llm.ChatRequest{
				System: system.String(),
				Prompt: strings.Join(args, " "),
			})
			if err != nil {
				return fmt.Errorf("assistant unavailable: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.RobotIcon+" "+resp.Provider+" / "+resp.Model, strings.TrimSpace(resp.Text)))
			return nil
		},
	}

	cmd.Flags().StringVar(&area, "area", string(model.AreaAnalytical), "functional area (analytical, conversational)")
	return cmd
}
