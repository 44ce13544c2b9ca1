package hyphen

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/subalterngames/talmudifier/layout"
)

type fixedBreaker struct {
	breaks map[string][]int
	calls  int
}

func (f *fixedBreaker) Hyphenate(word string) []int {
	f.calls++
	return f.breaks[word]
}

func TestSplitsPunctuationAndMinimums(t *testing.T) {
	b := &fixedBreaker{breaks: map[string][]int{"developers": {1, 2, 5, 7, 9}}}
	d := newDictionary(b, language.AmericanEnglish)

	got := d.Splits(`"Developers,"`)
	want := []layout.Split{
		{Head: `"De`, Tail: `velopers,"`},
		{Head: `"Devel`, Tail: `opers,"`},
		{Head: `"Develop`, Tail: `ers,"`},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d splits, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("split %d: got %+v want %+v", i, got[i], want[i])
		}
	}

	d.Splits(`"Developers,"`)
	if b.calls != 1 {
		t.Fatalf("patterns should be consulted once per word, got %d", b.calls)
	}
}

func TestSplitsRejectsMixedTokens(t *testing.T) {
	b := &fixedBreaker{breaks: map[string][]int{}}
	d := newDictionary(b, language.English, WithMinimums(1, 1))
	for _, w := range []string{"12:3", "don't", "x", "a-b-c"} {
		if s := d.Splits(w); len(s) != 0 {
			t.Fatalf("%q should not split, got %+v", w, s)
		}
	}
	if b.calls != 0 {
		t.Fatalf("mixed tokens should not reach the patterns")
	}
}

func TestNewWithPatterns(t *testing.T) {
	d, err := New(strings.NewReader("c1a\n"), language.English, WithMinimums(2, 3))
	if err != nil {
		t.Fatalf("load patterns: %v", err)
	}
	got := d.Splits("abcabcabc")
	if len(got) != 2 || got[0].Head != "abc" || got[1].Head != "abcabc" {
		t.Fatalf("unexpected splits %+v", got)
	}
}

func TestPatternFile(t *testing.T) {
	if got := PatternFile(language.MustParse("en-GB")); got != "hyph-en-gb.pat.txt" {
		t.Fatalf("unexpected pattern file %q", got)
	}
}
