package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// maxNameDistance is the largest edit distance accepted for a near-miss
// category name. Names shorter than minNearMissRunes never match by distance,
// and the distance may be at most a quarter of the name's length.
const (
	maxNameDistance  = 2
	minNearMissRunes = 5
)

// flexibleFloat accepts a JSON number, a numeric string or a percentage.
type flexibleFloat float64

func (f *flexibleFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), "\"")
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("invalid confidence %q", string(b))
	}
	if percent {
		v /= 100
	}
	*f = flexibleFloat(v)
	return nil
}

type categoryReply struct {
	Confidence *flexibleFloat `json:"confidence"`
	Category   string         `json:"category"`
}

// parseCategorization resolves a provider reply onto one of names, returning
// the name exactly as given. The embedded JSON object is preferred; without
// one a "Category:" line is accepted. Unresolvable values fall back to the
// longest known name found in the reply, then to a near-miss spelling.
func parseCategorization(reply string, names []string) (string, *float64, error) {
	value, confidence := extractReply(reply)

	if name, ok := resolveExact(value, names); ok {
		return name, confidence, nil
	}
	if name, ok := resolveSubstring(reply, names); ok {
		return name, confidence, nil
	}
	if name, ok := resolveNearMiss(value, names); ok {
		return name, confidence, nil
	}

	if value == "" {
		return "", nil, fmt.Errorf("no category in reply %q", truncateBody([]byte(reply)))
	}
	return "", nil, fmt.Errorf("category %q is not one of the available categories", value)
}

func extractReply(reply string) (string, *float64) {
	if obj, ok := extractJSONObject(reply); ok {
		var r categoryReply
		if err := json.Unmarshal([]byte(obj), &r); err == nil && strings.TrimSpace(r.Category) != "" {
			var confidence *float64
			if r.Confidence != nil {
				// NaN and infinities count as no confidence.
				if v := float64(*r.Confidence); !math.IsNaN(v) && !math.IsInf(v, 0) {
					v = clamp01(v)
					confidence = &v
				}
			}
			return strings.TrimSpace(r.Category), confidence
		}
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > len("category:") && strings.EqualFold(line[:len("category:")], "category:") {
			return strings.Trim(strings.TrimSpace(line[len("category:"):]), "\"'*"), nil
		}
	}
	return "", nil
}

// extractJSONObject returns the outermost {...} span of s, ignoring markdown fences.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func resolveExact(value string, names []string) (string, bool) {
	if value == "" {
		return "", false
	}
	want := textnorm.Normalize(value)
	for _, n := range names {
		if textnorm.Normalize(textnorm.StripDecoration(n)) == want {
			return n, true
		}
	}
	return "", false
}

func resolveSubstring(reply string, names []string) (string, bool) {
	haystack := " " + textnorm.Normalize(reply) + " "

	type candidate struct {
		name string
		norm string
	}
	candidates := make([]candidate, 0, len(names))
	for _, n := range names {
		if norm := textnorm.Normalize(textnorm.StripDecoration(n)); norm != "" {
			candidates = append(candidates, candidate{name: n, norm: norm})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return textnorm.RuneLen(candidates[i].norm) > textnorm.RuneLen(candidates[j].norm)
	})

	for _, c := range candidates {
		if strings.Contains(haystack, " "+c.norm+" ") {
			return c.name, true
		}
	}
	return "", false
}

func resolveNearMiss(value string, names []string) (string, bool) {
	if value == "" {
		return "", false
	}
	want := textnorm.Normalize(value)
	best, bestDist, ties := "", maxNameDistance+1, 0
	for _, n := range names {
		norm := textnorm.Normalize(textnorm.StripDecoration(n))
		size := textnorm.RuneLen(norm)
		if size < minNearMissRunes {
			continue
		}
		d := levenshtein.ComputeDistance(want, norm)
		if d*4 > size {
			continue
		}
		switch {
		case d < bestDist:
			best, bestDist, ties = n, d, 0
		case d == bestDist:
			ties++
		}
	}
	// Two equally close names are ambiguous.
	if ties > 0 {
		return "", false
	}
	return best, best != ""
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
