package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sananlb/Expense-bot-sub000/internal/cli"
	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/router"
)

func providersCmd() *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show provider routes and credential health",
		Long: `Show the configured route of every functional area and the health of
each provider's API keys. With --probe, every configured client is called once
first so failing credentials are marked before the report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if a.router == nil {
				fmt.Println(cli.FormatInfo("No AI routes configured; categorization uses keywords only."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Routes"))
			for _, area := range model.Areas() {
				if !a.router.Configured(area) {
					fmt.Printf("  %-16s %s\n", area, cli.SubtleStyle.Render("(not configured)"))
					continue
				}
				line := fmt.Sprintf("  %-16s %s", area, describeClient(a.router.Primary(area)))
				if fb := a.router.Fallback(area); fb != nil {
					line += " → " + describeClient(fb)
				}
				fmt.Println(line)

				if probe {
					probeArea(cmd, a.router, area)
				}
			}
			fmt.Println()

			fmt.Println(cli.FormatTitle("Credentials"))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Provider"),
				cli.TableHeaderStyle.Render("Key"),
				cli.TableHeaderStyle.Render("Status"),
				cli.TableHeaderStyle.Render("Last failure"))
			for _, pool := range a.keys.Pools() {
				for _, st := range pool.Status() {
					status := cli.SuccessStyle.Render("healthy")
					if !st.Healthy {
						status = cli.ErrorStyle.Render("cooling down")
					}
					lastFailure := "-"
					if !st.LastFailure.IsZero() {
						lastFailure = st.LastFailure.Local().Format("15:04:05")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pool.Provider(), st.Masked, status, lastFailure)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "send a test request through every configured client")
	return cmd
}

func describeClient(c router.Client) string {
	if lc, ok := c.(*llm.Client); ok {
		return lc.ProviderName() + "/" + lc.Model()
	}
	return c.ProviderName()
}

// probeArea calls each client of area directly, bypassing the fallback, so
// both clients are exercised.
func probeArea(cmd *cobra.Command, r *router.Router, area model.FunctionalArea) {
	req := llm.ChatRequest{Prompt: "Reply with the single word: ok"}
	for _, c := range []router.Client{r.Primary(area), r.Fallback(area)} {
		if c == nil {
			continue
		}
		_, err := c.Chat(cmd.Context(), req)
		switch {
		case err == nil:
			fmt.Println("    " + cli.FormatSuccess(c.ProviderName()+" responded"))
		case errors.Is(err, llm.ErrNoHealthyKeys):
			fmt.Println("    " + cli.FormatWarning(c.ProviderName()+": all keys cooling down"))
		default:
			fmt.Println("    " + cli.FormatError(fmt.Sprintf("%s: %s (%s)", c.ProviderName(), err, llm.KindOf(err))))
		}
	}
}
