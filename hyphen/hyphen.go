// Package hyphen adapts TeX hyphenation patterns to the layout engine.
package hyphen

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/speedata/hyphenation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/subalterngames/talmudifier/layout"
)

// Default minimum fragment lengths, matching TeX's \lefthyphenmin and \righthyphenmin.
const (
	DefaultLeftMin  = 2
	DefaultRightMin = 3
)

// breaker returns break positions as rune offsets.
type breaker interface {
	Hyphenate(word string) []int
}

// Dictionary hyphenates words with a pattern set and memoizes the result per word.
type Dictionary struct {
	lang     breaker
	tag      language.Tag
	lower    cases.Caser
	leftMin  int
	rightMin int

	mu    sync.Mutex
	cache map[string][]layout.Split
}

// Option configures a Dictionary.
type Option func(*Dictionary)

// WithMinimums sets the minimum number of letters before and after a break.
func WithMinimums(left, right int) Option {
	return func(d *Dictionary) {
		if left > 0 {
			d.leftMin = left
		}
		if right > 0 {
			d.rightMin = right
		}
	}
}

// New reads hyph-utf8 style patterns (one pattern per line) from r.
func New(r io.Reader, tag language.Tag, opts ...Option) (*Dictionary, error) {
	lang, err := hyphenation.New(r)
	if err != nil {
		return nil, fmt.Errorf("hyphen: load patterns for %s: %w", tag, err)
	}
	return newDictionary(lang, tag, opts...), nil
}

func newDictionary(b breaker, tag language.Tag, opts ...Option) *Dictionary {
	d := &Dictionary{
		lang:     b,
		tag:      tag,
		lower:    cases.Lower(tag),
		leftMin:  DefaultLeftMin,
		rightMin: DefaultRightMin,
		cache:    map[string][]layout.Split{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load parses locale and reads the pattern file at path. When path is a
// directory the conventional file name for the locale is used.
func Load(locale, path string, opts ...Option) (*Dictionary, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("hyphen: locale %q: %w", locale, err)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, PatternFile(tag))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hyphen: %w", err)
	}
	return New(bytes.NewReader(data), tag, opts...)
}

// PatternFile returns the hyph-utf8 file name for tag, e.g. "hyph-en-us.pat.txt".
func PatternFile(tag language.Tag) string {
	return "hyph-" + strings.ToLower(tag.String()) + ".pat.txt"
}

// Tag returns the dictionary's language.
func (d *Dictionary) Tag() language.Tag { return d.tag }

// Splits returns the candidate splits of word in the pattern set's order.
// Leading and trailing punctuation stays attached to the outer fragments.
// Words containing anything but letters between the punctuation are not split.
func (d *Dictionary) Splits(word string) []layout.Split {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.cache[word]; ok {
		return s
	}
	s := d.split(word)
	d.cache[word] = s
	return s
}

func (d *Dictionary) split(word string) []layout.Split {
	runes := []rune(word)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) {
		end--
	}
	core := runes[start:end]
	if len(core) < d.leftMin+d.rightMin {
		return nil
	}
	for _, r := range core {
		if !unicode.IsLetter(r) {
			return nil
		}
	}
	lower := d.lower.String(string(core))
	if len([]rune(lower)) != len(core) {
		return nil
	}

	var out []layout.Split
	for _, p := range d.lang.Hyphenate(lower) {
		if p < d.leftMin || len(core)-p < d.rightMin {
			continue
		}
		out = append(out, layout.Split{
			Head: string(runes[:start+p]),
			Tail: string(runes[start+p:]),
		})
	}
	return out
}
