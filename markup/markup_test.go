package markup_test

import (
	"strings"
	"testing"

	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/markup"
)

type citeRule struct{}

func (citeRule) Apply(token string) (string, bool) {
	if strings.HasPrefix(token, "@") {
		return `\citefont{` + token[1:] + `}`, true
	}
	return token, false
}

func styles(words []*layout.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		s := w.Style()
		var b strings.Builder
		b.WriteString(w.Text())
		b.WriteString(":")
		if s.Bold {
			b.WriteString("b")
		}
		if s.Italic {
			b.WriteString("i")
		}
		if s.Underline {
			b.WriteString("u")
		}
		if w.SmallCaps() {
			b.WriteString("s")
		}
		out[i] = b.String()
	}
	return out
}

func TestAnnotateStyles(t *testing.T) {
	words, err := markup.Annotate("plain **bold run** _one_ <u>under line</u> **_both_** tail", layout.WordOptions{})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	got := strings.Join(styles(words), " ")
	want := "plain: bold:b run:b one:i under:u line:u both:bi tail:"
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestAnnotateLenientClose(t *testing.T) {
	words, err := markup.Annotate("stray** next", layout.WordOptions{})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	if got := strings.Join(styles(words), " "); got != "stray:b next:" {
		t.Fatalf("unexpected styles: %s", got)
	}
}

func TestAnnotateLoneMarkersAndMiddleMarkup(t *testing.T) {
	words, err := markup.Annotate("** loud words ** snake_case a<u>b <sc>Lord</sc>", layout.WordOptions{})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	got := strings.Join(styles(words), " ")
	want := "loud:b words:b snakecase: ab: Lord:s"
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestAnnotatePunctuationAroundMarkers(t *testing.T) {
	words, err := markup.Annotate("<u>word</u>, after **bold**, next (_aside_) done _,_ end *star*", layout.WordOptions{})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	got := strings.Join(styles(words), " ")
	want := "word,:u after: bold,:b next: (aside):i done: ,:i end: star:"
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestAnnotateCitation(t *testing.T) {
	words, err := markup.Annotate("**see @12:3 here**", layout.WordOptions{Citation: citeRule{}})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	cite := words[1]
	if !cite.IsCitation() || !cite.Style().IsPlain() || len(cite.Pairs()) != 0 {
		t.Fatalf("citation not short-circuited: %+v", cite.Style())
	}
	if cite.Text() != `\citefont{12:3}` {
		t.Fatalf("unexpected citation text %q", cite.Text())
	}
	if !words[2].Style().Bold {
		t.Fatalf("bold should continue after the citation")
	}
}

func TestLexToken(t *testing.T) {
	lexemes, err := markup.LexToken("**a_b<c</u>")
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}
	kinds := []markup.Marker{markup.MarkBold, markup.MarkNone, markup.MarkItalic, markup.MarkNone, markup.MarkUnderlineClose}
	if len(lexemes) != len(kinds) {
		t.Fatalf("unexpected lexemes: %+v", lexemes)
	}
	for i, k := range kinds {
		if lexemes[i].Marker != k {
			t.Fatalf("lexeme %d: expected %v, got %+v", i, k, lexemes[i])
		}
	}
	if lexemes[3].Text != "b<c" {
		t.Fatalf("text runs should merge, got %q", lexemes[3].Text)
	}
}

func TestParseTeXRuns(t *testing.T) {
	src := `\fontsize{9}{11}\selectfont\leftfont plain \textbf{bold \textit{both}} \citefont{1:2}\leftfont{} \textsc{Lord} 50\%`
	frag, err := markup.ParseTeX(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	words := markup.Words(frag.Runs(`\citefont`))
	var got []string
	for _, w := range words {
		var b strings.Builder
		for _, r := range w {
			b.WriteString(r.Text)
			switch {
			case r.Style.Citation:
				b.WriteString("[c]")
			case r.Style.Bold && r.Style.Italic:
				b.WriteString("[bi]")
			case r.Style.Bold:
				b.WriteString("[b]")
			case r.Style.SmallCaps:
				b.WriteString("[s]")
			}
		}
		got = append(got, b.String())
	}
	want := "plain bold[b] both[bi] 1:2[c] Lord[s] 50%"
	if strings.Join(got, " ") != want {
		t.Fatalf("got  %s\nwant %s", strings.Join(got, " "), want)
	}
}

func TestPlainTextOfRenderedColumn(t *testing.T) {
	words, err := markup.Annotate("a **b c** _d_", layout.WordOptions{})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	col := layout.NewColumn(layout.Left, words, layout.Font{Command: `\leftfont`, Size: 10})
	tex, err := col.Render(0, -1, true)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	plain, err := markup.PlainText(tex)
	if err != nil {
		t.Fatalf("plain text failed: %v", err)
	}
	if plain != "a b c d" {
		t.Fatalf("unexpected plain text %q from %q", plain, tex)
	}
}
