// Package textnorm turns user-typed descriptions into the canonical form used
// for keyword storage and matching.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Language tags assigned to keywords.
const (
	LangRussian = "ru"
	LangEnglish = "en"
)

var lower = cases.Lower(language.Und)

// emojiTable covers pictographs, dingbats, flags, skin tones, keycaps and the
// joiners and selectors used to build composite emoji.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1},
		{Lo: 0x203c, Hi: 0x203c, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x21aa, Stride: 1},
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1},
		{Lo: 0x24c2, Hi: 0x24c2, Stride: 1},
		{Lo: 0x25aa, Hi: 0x25fe, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3297, Stride: 1},
		{Lo: 0x3299, Hi: 0x3299, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
		{Lo: 0xe0020, Hi: 0xe007f, Stride: 1},
	},
}

// Normalize lower-cases s, removes emoji (including ZWJ sequences, flags and
// skin-tone variants) and punctuation, keeps hyphens that join two word
// characters, and collapses whitespace. It is pure and deterministic.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = lower.String(norm.NFC.String(s))
	s = stripEmoji(s, " ")

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		switch {
		case isWordRune(r):
			b.WriteRune(r)
		case r == '-' && i > 0 && i < len(runes)-1 && isWordRune(runes[i-1]) && isWordRune(runes[i+1]):
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == 'ʼ':
			// "don't" -> "dont"
		default:
			b.WriteByte(' ')
		}
	}
	return collapse(b.String())
}

// Tokens returns the whitespace-separated tokens of the normalized text.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// StripDecoration removes icons from a display name and tidies whitespace
// but keeps the original case and punctuation.
func StripDecoration(name string) string {
	return collapse(stripEmoji(norm.NFC.String(name), " "))
}

// Equal reports whether two display names are the same after normalization.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// DetectLanguage tags text containing Cyrillic letters as Russian and
// everything else as English.
func DetectLanguage(s string) string {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return LangRussian
		}
	}
	return LangEnglish
}

// TruncateWords shortens s to at most maxRunes runes, cutting at a word
// boundary when possible.
func TruncateWords(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	var (
		out   []string
		count int
	)
	for _, w := range strings.Fields(s) {
		n := utf8.RuneCountInString(w)
		if len(out) > 0 {
			n++
		}
		if count+n > maxRunes {
			break
		}
		out = append(out, w)
		count += n
	}
	if len(out) == 0 {
		return string([]rune(s)[:maxRunes])
	}
	return strings.Join(out, " ")
}

// RuneLen is the length of s in runes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

func stripEmoji(s, replacement string) string {
	var b strings.Builder
	b.Grow(len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		if isEmojiCluster(cluster) {
			b.WriteString(replacement)
			continue
		}
		b.WriteString(cluster)
	}
	return b.String()
}

func isEmojiCluster(cluster string) bool {
	for _, r := range cluster {
		if unicode.Is(emojiTable, r) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
