package markup

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// inlineLexer splits one whitespace-free token into markers and text runs.
var (
	inlineLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Bold", Pattern: `\*\*`},
		{Name: "Star", Pattern: `\*`},
		{Name: "Italic", Pattern: `_`},
		{Name: "UnderlineOpen", Pattern: `<u>`},
		{Name: "UnderlineClose", Pattern: `</u>|<\\u>`},
		{Name: "SmallCapsOpen", Pattern: `<sc>`},
		{Name: "SmallCapsClose", Pattern: `</sc>`},
		{Name: "Text", Pattern: `[^*_<]+|<`},
	})

	inlineNames = invertSymbols(inlineLexer.Symbols())
	textType    = mustTokenType(inlineLexer, "Text")
)

// Marker is one inline markup marker.
type Marker int

const (
	MarkNone Marker = iota
	MarkBold
	MarkStar
	MarkItalic
	MarkUnderlineOpen
	MarkUnderlineClose
	MarkSmallCapsOpen
	MarkSmallCapsClose
)

var markerByName = map[string]Marker{
	"Bold":           MarkBold,
	"Star":           MarkStar,
	"Italic":         MarkItalic,
	"UnderlineOpen":  MarkUnderlineOpen,
	"UnderlineClose": MarkUnderlineClose,
	"SmallCapsOpen":  MarkSmallCapsOpen,
	"SmallCapsClose": MarkSmallCapsClose,
}

// Lexeme is a marker or a run of literal text inside a token.
type Lexeme struct {
	Marker Marker
	Text   string
}

// LexToken splits a single whitespace-free token into lexemes.
func LexToken(token string) ([]Lexeme, error) {
	lex, err := inlineLexer.LexString("", token)
	if err != nil {
		return nil, fmt.Errorf("lex %q: %w", token, err)
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("lex %q: %w", token, err)
	}
	out := make([]Lexeme, 0, len(toks))
	for _, tok := range toks {
		if tok.EOF() {
			continue
		}
		if tok.Type == textType {
			if n := len(out); n > 0 && out[n-1].Marker == MarkNone {
				out[n-1].Text += tok.Value
				continue
			}
			out = append(out, Lexeme{Text: tok.Value})
			continue
		}
		m, ok := markerByName[inlineNames[tok.Type]]
		if !ok {
			return nil, fmt.Errorf("lex %q: unexpected token %q", token, tok.Value)
		}
		out = append(out, Lexeme{Marker: m, Text: tok.Value})
	}
	return out, nil
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, typ := range symbols {
		out[typ] = name
	}
	return out
}

func mustTokenType(def lexer.Definition, name string) lexer.TokenType {
	typ, ok := def.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("markup lexer missing %s token", name))
	}
	return typ
}
