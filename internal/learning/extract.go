// Package learning turns categorized descriptions into stored keywords.
package learning

import (
	"strings"
	"unicode"

	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// Extraction limits.
const (
	// MaxLearnableTokens is the longest description that is learned at all.
	MaxLearnableTokens = 4
	// MaxPhraseTokens bounds the phrase kept from a verb-free description.
	MaxPhraseTokens = 3
	// MaxStrippedTokens bounds the phrase kept after dropping verbs.
	MaxStrippedTokens = 2
)

// transactionalVerbs carry no category signal ("bought", "paid for").
var transactionalVerbs = map[string]struct{}{
	// English
	"buy": {}, "buys": {}, "bought": {}, "buying": {},
	"pay": {}, "pays": {}, "paid": {}, "paying": {},
	"spend": {}, "spends": {}, "spent": {}, "spending": {},
	"purchase": {}, "purchased": {}, "purchasing": {},
	"order": {}, "ordered": {},
	// Russian
	"купил": {}, "купила": {}, "купили": {}, "купить": {}, "куплю": {},
	"покупка": {}, "покупки": {},
	"оплата": {}, "оплатил": {}, "оплатила": {}, "оплатили": {}, "оплатить": {},
	"заплатил": {}, "заплатила": {}, "заплатили": {}, "заплатить": {},
	"потратил": {}, "потратила": {}, "потратили": {},
	"заказал": {}, "заказала": {}, "заказали": {},
}

// IsTransactionalVerb reports whether token is on the closed verb list.
func IsTransactionalVerb(token string) bool {
	_, ok := transactionalVerbs[token]
	return ok
}

// Extract returns the phrase worth learning from a description, or "" when
// nothing should be learned. Descriptions longer than four tokens are
// ignored. Longer descriptions containing a transactional verb lose the verbs
// and keep at most two tokens; everything else keeps at most three. The result
// is always a single phrase, never individual words. Purely numeric tokens,
// usually the amount typed alongside the text, count toward the length limit
// but are never learned.
func Extract(description string) string {
	tokens := textnorm.Tokens(description)
	if len(tokens) > MaxLearnableTokens {
		return ""
	}
	tokens = dropAmounts(tokens)
	if len(tokens) == 0 {
		return ""
	}

	if len(tokens) > 2 && containsVerb(tokens) {
		kept := make([]string, 0, MaxStrippedTokens)
		for _, tok := range tokens {
			if IsTransactionalVerb(tok) {
				continue
			}
			kept = append(kept, tok)
			if len(kept) == MaxStrippedTokens {
				break
			}
		}
		return strings.Join(kept, " ")
	}

	if len(tokens) > MaxPhraseTokens {
		tokens = tokens[:MaxPhraseTokens]
	}
	return strings.Join(tokens, " ")
}

func containsVerb(tokens []string) bool {
	for _, tok := range tokens {
		if IsTransactionalVerb(tok) {
			return true
		}
	}
	return false
}

func dropAmounts(tokens []string) []string {
	out := tokens[:0]
	for _, tok := range tokens {
		if !isNumeric(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return tok != ""
}
