package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sananlb/Expense-bot-sub000/internal/cli"
	"github.com/sananlb/Expense-bot-sub000/internal/engine"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

// batchRow is one input line. Only description is required.
type batchRow struct {
	Description string `csv:"description"`
	Amount      string `csv:"amount,omitempty"`
	Currency    string `csv:"currency,omitempty"`
	Type        string `csv:"type,omitempty"`
}

// batchResultRow is one output line.
type batchResultRow struct {
	Description string `csv:"description"`
	Category    string `csv:"category"`
	Provenance  string `csv:"provenance"`
	Provider    string `csv:"provider"`
	Keyword     string `csv:"keyword"`
	Error       string `csv:"error"`
	CategoryID  int64  `csv:"category_id"`
}

// readBatch parses CSV input into drafts. Blank currency and type fall back
// to the given defaults.
func readBatch(r io.Reader, currency string, aiEnabled bool) ([]model.TransactionDraft, error) {
	var rows []batchRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	drafts := make([]model.TransactionDraft, 0, len(rows))
	for i, row := range rows {
		if row.Currency == "" {
			row.Currency = currency
		}
		d, err := buildDraft(row.Description, row.Amount, row.Currency, row.Type, aiEnabled)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func toResultRows(drafts []model.TransactionDraft, results []engine.BatchResult) []batchResultRow {
	out := make([]batchResultRow, len(results))
	for i, res := range results {
		row := batchResultRow{Description: drafts[res.Index].RawText}
		if res.Err != nil {
			row.Error = res.Err.Error()
		} else {
			row.Category = res.Result.CategoryName
			row.CategoryID = res.Result.CategoryID
			row.Provenance = string(res.Result.Provenance)
			row.Provider = res.Result.ProviderUsed
			row.Keyword = res.Result.MatchedKeyword
		}
		out[i] = row
	}
	return out
}

func batchCmd() *cobra.Command {
	var (
		output   string
		currency string
		workers  int
		noAI     bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Categorize every transaction in a CSV file",
		Long: `Categorize a CSV file with a header row. Recognized columns are
description (required), amount, currency and type. Results are written as CSV
to stdout or to --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer func() { _ = in.Close() }()

			drafts, err := readBatch(in, currency, !noAI)
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo("No transactions found"))
				return nil
			}

			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx, stop := interrupts.HandleInterrupts(ctx, "Keywords learned before the interrupt were kept.")
			defer stop()

			bar := progressbar.NewOptions(len(drafts),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Categorizing transactions...[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)

			results, err := a.resolver.ResolveBatch(ctx, drafts, workers, func(engine.BatchResult) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("batch interrupted: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			rows := toResultRows(drafts, results)
			if err := gocsv.Marshal(rows, w); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}

			failed := 0
			for _, row := range rows {
				if row.Error != "" {
					failed++
				}
			}
			summary := fmt.Sprintf("Categorized %d of %d transactions", len(rows)-failed, len(rows))
			if failed > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(summary))
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(summary))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write results to this file instead of stdout")
	cmd.Flags().StringVar(&currency, "currency", "RUB", "currency for rows without one")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent resolutions (default from config)")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the AI lookup")

	return cmd
}
