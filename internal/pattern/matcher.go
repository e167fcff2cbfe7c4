package pattern

import (
	"strings"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// Thresholds tune the matcher. All lengths are counted in runes.
type Thresholds struct {
	// MinKeywordLen is the shortest keyword that may ever match.
	MinKeywordLen int
	// PrefixTokens is the maximum number of leading tokens compared by the prefix tier.
	PrefixTokens int
	// InflectionMinLen is the shortest keyword or token the inflection tier considers.
	InflectionMinLen int
	// MinStem is the floor for the compared stem length.
	MinStem int
	// StemTrim is subtracted from the shorter word to get the stem length.
	StemTrim int
	// MaxLenDiff is the largest tolerated length difference between keyword and token.
	MaxLenDiff int
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinKeywordLen:    3,
		PrefixTokens:     3,
		InflectionMinLen: 4,
		MinStem:          4,
		StemTrim:         2,
		MaxLenDiff:       2,
	}
}

// MatcherImpl implements KeywordMatcher with exact, prefix and inflection tiers.
type MatcherImpl struct {
	th Thresholds
}

// NewMatcher creates a matcher. Non-positive lengths in th fall back to the
// defaults; StemTrim and MaxLenDiff may legitimately be zero.
func NewMatcher(th Thresholds) *MatcherImpl {
	def := DefaultThresholds()
	if th.MinKeywordLen <= 0 {
		th.MinKeywordLen = def.MinKeywordLen
	}
	if th.PrefixTokens <= 0 {
		th.PrefixTokens = def.PrefixTokens
	}
	if th.InflectionMinLen <= 0 {
		th.InflectionMinLen = def.InflectionMinLen
	}
	if th.MinStem <= 0 {
		th.MinStem = def.MinStem
	}
	if th.StemTrim < 0 {
		th.StemTrim = def.StemTrim
	}
	if th.MaxLenDiff < 0 {
		th.MaxLenDiff = def.MaxLenDiff
	}
	return &MatcherImpl{th: th}
}

// Thresholds returns the effective thresholds.
func (m *MatcherImpl) Thresholds() Thresholds {
	return m.th
}

type preparedKeyword struct {
	phrase string
	runes  []rune
	tokens []string
	group  int
}

// Match evaluates every keyword for the exact tier, then every keyword for the
// prefix tier, then the inflection tier, returning the first hit.
func (m *MatcherImpl) Match(text string, groups []Group) (Match, bool) {
	text = textnorm.Normalize(text)
	if text == "" {
		return Match{}, false
	}
	textTokens := strings.Fields(text)
	keywords := m.prepare(groups)

	for _, kw := range keywords {
		if kw.phrase == text {
			return m.hit(groups, kw, model.TierExact), true
		}
	}

	if len(textTokens) >= 2 {
		for _, kw := range keywords {
			if m.prefixMatch(kw.tokens, textTokens) {
				return m.hit(groups, kw, model.TierPrefix), true
			}
		}
	}

	for _, kw := range keywords {
		if m.inflectionMatch(kw, textTokens) {
			return m.hit(groups, kw, model.TierInflection), true
		}
	}

	return Match{}, false
}

func (m *MatcherImpl) prepare(groups []Group) []preparedKeyword {
	var out []preparedKeyword
	for gi, g := range groups {
		for _, raw := range g.Keywords {
			phrase := textnorm.Normalize(raw)
			runes := []rune(phrase)
			if len(runes) < m.th.MinKeywordLen {
				continue
			}
			out = append(out, preparedKeyword{
				phrase: phrase,
				runes:  runes,
				tokens: strings.Fields(phrase),
				group:  gi,
			})
		}
	}
	return out
}

func (m *MatcherImpl) hit(groups []Group, kw preparedKeyword, tier model.MatchTier) Match {
	return Match{Group: groups[kw.group], Keyword: kw.phrase, Tier: tier}
}

// prefixMatch compares the leading tokens when both sides have at least two.
func (m *MatcherImpl) prefixMatch(kwTokens, textTokens []string) bool {
	if len(kwTokens) < 2 || len(textTokens) < 2 {
		return false
	}
	n := min(m.th.PrefixTokens, len(kwTokens), len(textTokens))
	for i := 0; i < n; i++ {
		if kwTokens[i] != textTokens[i] {
			return false
		}
	}
	return true
}

// inflectionMatch tolerates suffix changes on single-token keywords.
func (m *MatcherImpl) inflectionMatch(kw preparedKeyword, textTokens []string) bool {
	if len(kw.tokens) != 1 || len(kw.runes) < m.th.InflectionMinLen {
		return false
	}
	lk := len(kw.runes)
	for _, tok := range textTokens {
		tr := []rune(tok)
		lt := len(tr)
		if lt < m.th.InflectionMinLen {
			continue
		}
		if abs(lk-lt) > m.th.MaxLenDiff {
			continue
		}
		stem := max(m.th.MinStem, min(lk, lt)-m.th.StemTrim)
		if stem > lk || stem > lt {
			continue
		}
		if string(kw.runes[:stem]) == string(tr[:stem]) {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
