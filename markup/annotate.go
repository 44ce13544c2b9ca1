package markup

import (
	"strings"
	"unicode"

	"github.com/subalterngames/talmudifier/layout"
)

// Annotate turns one raw markup line into styled words.
//
// Markers at the start of a token open a style before the word is built;
// markers at the end apply to the word and close the style after it. A
// closing marker without a matching open still styles its word. Markup
// in the middle of a token is stripped, and so is a single "*", which is
// not a style marker.
func Annotate(line string, opts layout.WordOptions) ([]*layout.Word, error) {
	var (
		words []*layout.Word
		state layout.StyleState
	)
	for _, token := range strings.Fields(line) {
		lexemes, err := LexToken(token)
		if err != nil {
			return nil, err
		}
		text, lead, trail := splitMarkers(lexemes)

		if text == "" {
			toggleLone(&state, lead)
			continue
		}

		smallCaps := false
		for _, m := range lead {
			switch m {
			case MarkBold:
				state.Open(layout.AttrBold, nil)
			case MarkItalic:
				state.Open(layout.AttrItalic, nil)
			case MarkUnderlineOpen:
				state.Open(layout.AttrUnderline, nil)
			case MarkSmallCapsOpen, MarkSmallCapsClose:
				smallCaps = true
			}
		}
		var closing []layout.Attr
		for _, m := range trail {
			switch m {
			case MarkBold:
				state.Open(layout.AttrBold, nil)
				closing = append(closing, layout.AttrBold)
			case MarkItalic:
				state.Open(layout.AttrItalic, nil)
				closing = append(closing, layout.AttrItalic)
			case MarkUnderlineClose:
				state.Open(layout.AttrUnderline, nil)
				closing = append(closing, layout.AttrUnderline)
			case MarkSmallCapsOpen, MarkSmallCapsClose:
				smallCaps = true
			}
		}

		words = append(words, layout.NewWord(text, state.Current(), smallCaps, opts))
		for _, a := range closing {
			state.Close(a, nil)
		}
	}
	return words, nil
}

// splitMarkers separates leading markers, literal text and trailing markers.
// Punctuation between a marker and the token edge, as in "**bold**," or
// "(<u>word", does not make the marker mid-token; it stays in the text.
func splitMarkers(lexemes []Lexeme) (string, []Marker, []Marker) {
	start, end := 0, len(lexemes)
	if hasWord(lexemes) {
		for i, l := range lexemes {
			if l.Marker == MarkNone && !punctuation(l.Text) {
				break
			}
			if l.Marker != MarkNone {
				start = i + 1
			}
		}
		for i := len(lexemes) - 1; i >= start; i-- {
			l := lexemes[i]
			if l.Marker == MarkNone && !punctuation(l.Text) {
				break
			}
			if l.Marker != MarkNone {
				end = i
			}
		}
	} else {
		for start < end && lexemes[start].Marker != MarkNone {
			start++
		}
		for end > start && lexemes[end-1].Marker != MarkNone {
			end--
		}
	}
	var (
		lead, trail []Marker
		b           strings.Builder
	)
	for i, l := range lexemes {
		switch {
		case l.Marker == MarkNone:
			b.WriteString(l.Text)
		case i < start:
			lead = append(lead, l.Marker)
		case i >= end:
			trail = append(trail, l.Marker)
		}
	}
	return b.String(), lead, trail
}

func hasWord(lexemes []Lexeme) bool {
	for _, l := range lexemes {
		if l.Marker == MarkNone && !punctuation(l.Text) {
			return true
		}
	}
	return false
}

// punctuation reports whether s holds no letters or digits.
func punctuation(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
}

// toggleLone handles a token made only of markers, such as a detached "**".
func toggleLone(state *layout.StyleState, markers []Marker) {
	for _, m := range markers {
		var a layout.Attr
		switch m {
		case MarkBold:
			a = layout.AttrBold
		case MarkItalic:
			a = layout.AttrItalic
		case MarkUnderlineOpen:
			state.Open(layout.AttrUnderline, nil)
			continue
		case MarkUnderlineClose:
			state.Close(layout.AttrUnderline, nil)
			continue
		default:
			continue
		}
		if state.Current().Has(a) {
			state.Close(a, nil)
		} else {
			state.Open(a, nil)
		}
	}
}
