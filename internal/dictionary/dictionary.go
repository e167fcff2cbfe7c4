// Package dictionary holds the shared, locale-keyed keyword dictionary that
// backs the global lookup.
package dictionary

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/pattern"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

//go:embed data/global.yaml
var defaultData []byte

// Entry is one dictionary category.
type Entry struct {
	Names    map[string]string   `yaml:"names"`
	Keywords map[string][]string `yaml:"keywords"`
	Key      string              `yaml:"key"`
	Type     model.CategoryType  `yaml:"type"`
}

type document struct {
	Categories []Entry `yaml:"categories"`
}

// Dictionary is an immutable, validated set of entries.
type Dictionary struct {
	byKey   map[string]int
	entries []Entry
}

// Default returns the embedded dictionary.
func Default() (*Dictionary, error) {
	return Load(bytes.NewReader(defaultData))
}

// LoadFile reads a dictionary from a YAML file.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load parses and validates a YAML dictionary. Keywords are normalized on load.
func Load(r io.Reader) (*Dictionary, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}

	d := &Dictionary{byKey: make(map[string]int, len(doc.Categories))}
	for _, e := range doc.Categories {
		if e.Key == "" {
			return nil, fmt.Errorf("dictionary entry without key")
		}
		if _, dup := d.byKey[e.Key]; dup {
			return nil, fmt.Errorf("duplicate dictionary key %q", e.Key)
		}
		if e.Type == "" {
			e.Type = model.CategoryTypeExpense
		}
		if !e.Type.Valid() {
			return nil, fmt.Errorf("dictionary entry %q: unknown type %q", e.Key, e.Type)
		}
		for locale, kws := range e.Keywords {
			normalized := make([]string, 0, len(kws))
			for _, kw := range kws {
				n := textnorm.Normalize(kw)
				if textnorm.RuneLen(n) < 3 {
					return nil, fmt.Errorf("dictionary entry %q: keyword %q is too short", e.Key, kw)
				}
				normalized = append(normalized, n)
			}
			e.Keywords[locale] = normalized
		}
		d.byKey[e.Key] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// Entries returns every entry in file order.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Entry returns the entry with the given key.
func (d *Dictionary) Entry(key string) (Entry, bool) {
	i, ok := d.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Groups builds matcher groups for entries of the given type from the
// keywords of one locale. Entries without keywords in that locale are left out.
func (d *Dictionary) Groups(locale string, categoryType model.CategoryType) []pattern.Group {
	groups := make([]pattern.Group, 0, len(d.entries))
	for _, e := range d.entries {
		if categoryType != "" && e.Type != categoryType {
			continue
		}
		kws := e.Keywords[locale]
		if len(kws) == 0 {
			continue
		}
		groups = append(groups, pattern.Group{Key: e.Key, Keywords: append([]string(nil), kws...)})
	}
	return groups
}

// AllNames returns the entry key followed by every display name.
func (e Entry) AllNames() []string {
	names := []string{e.Key}
	for _, l := range sortedLocales(e.Names) {
		names = append(names, e.Names[l])
	}
	return names
}

// MatchesCategory reports whether an owner's category is the local
// counterpart of this entry, comparing normalized display names.
func (e Entry) MatchesCategory(cat model.Category) bool {
	if cat.Type != "" && cat.Type != e.Type {
		return false
	}
	for _, mine := range cat.DisplayNames() {
		for _, theirs := range e.AllNames() {
			if textnorm.Equal(mine, theirs) {
				return true
			}
		}
	}
	return false
}

func sortedLocales[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
