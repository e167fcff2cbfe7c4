package llm

import (
	"fmt"
	"strings"

	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// MaxRecentCategories is how many recently used categories go into a prompt.
const MaxRecentCategories = 3

const categorizeSystemPrompt = "You are a personal finance assistant that assigns a transaction to exactly one of the user's categories. " +
	"You MUST respond with ONLY a valid JSON object of the form {\"category\": \"<name>\", \"confidence\": <number between 0 and 1>}. " +
	"The category must be copied exactly from the list of available categories."

func buildCategorizePrompt(req CategorizeRequest) string {
	var b strings.Builder

	b.WriteString("Transaction description: ")
	b.WriteString(strings.TrimSpace(req.Description))
	b.WriteString("\n")

	if !req.Amount.IsZero() {
		fmt.Fprintf(&b, "Amount: %s", req.Amount.String())
		if req.Currency != "" {
			b.WriteString(" " + req.Currency)
		}
		b.WriteString("\n")
	}
	if req.Type != "" {
		fmt.Fprintf(&b, "Transaction type: %s\n", req.Type)
	}
	if req.Locale != "" {
		fmt.Fprintf(&b, "User language: %s\n", req.Locale)
	}

	recent := promptNames(req.Recent)
	if len(recent) > MaxRecentCategories {
		recent = recent[:MaxRecentCategories]
	}
	if len(recent) > 0 {
		fmt.Fprintf(&b, "Recently used categories: %s\n", strings.Join(recent, ", "))
	}

	b.WriteString("\nAvailable categories:\n")
	for _, name := range promptNames(req.Categories) {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}

	b.WriteString("\nReturn JSON: {\"category\": \"<one of the available categories>\", \"confidence\": <0.0-1.0>}")
	return b.String()
}

// promptNames strips icons from display names and drops the ones left empty.
func promptNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s := textnorm.StripDecoration(n); s != "" {
			out = append(out, s)
		}
	}
	return out
}
