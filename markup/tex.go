package markup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	texLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Command", Pattern: `\\[A-Za-z@]+\*?`},
		{Name: "Escaped", Pattern: `\\.`},
		{Name: "Option", Pattern: `\[[^\]\[{}]*\]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Text", Pattern: `[^\\{}\s\[]+|\[`},
	})

	texParser = participle.MustBuild[Fragment](
		participle.Lexer(texLexer),
	)
)

// Fragment is a parsed TeX fragment as produced by column rendering.
type Fragment struct {
	Nodes []*Node `parser:"@@*"`
}

// Node is one element of a fragment.
type Node struct {
	Command *Command `parser:"  @@"`
	Group   *Group   `parser:"| @@"`
	Space   *string  `parser:"| @Whitespace"`
	Text    *string  `parser:"| @(Text | Escaped | Option)"`
}

// Command is a control word with an optional bracketed argument.
type Command struct {
	Name   string  `parser:"@Command"`
	Option *string `parser:"@Option?"`
}

// Group is a brace-delimited group.
type Group struct {
	Nodes []*Node `parser:"LBrace @@* RBrace"`
}

// ParseTeX parses a rendered fragment.
func ParseTeX(s string) (*Fragment, error) {
	frag, err := texParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("parse tex fragment: %w", err)
	}
	return frag, nil
}

// RunStyle is the typographic state of a run of text.
type RunStyle struct {
	Bold      bool
	Italic    bool
	Underline bool
	SmallCaps bool
	Citation  bool
}

// Run is a piece of visible text with its style. Space marks a word break.
type Run struct {
	Text  string
	Style RunStyle
	Space bool
}

// commandArgs lists commands whose brace arguments are not visible text.
var commandArgs = map[string]int{
	`\fontsize`:      2,
	`\columnratio`:   1,
	`\begin`:         1,
	`\end`:           1,
	`\definecolor`:   3,
	`\newfontfamily`: 2,
	`\textcolor`:     1,
	`\color`:         1,
}

// Runs flattens a fragment into styled text runs. Citation commands are
// recognised by name.
func (f *Fragment) Runs(citationCommands ...string) []Run {
	cites := map[string]bool{}
	for _, c := range citationCommands {
		cites[c] = true
	}
	var out []Run
	walkNodes(f.Nodes, RunStyle{}, cites, &out)
	return out
}

func walkNodes(nodes []*Node, style RunStyle, cites map[string]bool, out *[]Run) {
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		switch {
		case n.Space != nil:
			*out = append(*out, Run{Space: true, Style: style})
		case n.Text != nil:
			text := *n.Text
			if strings.HasPrefix(text, `\`) {
				text = text[1:]
			}
			*out = append(*out, Run{Text: text, Style: style})
		case n.Group != nil:
			walkNodes(n.Group.Nodes, style, cites, out)
		case n.Command != nil:
			inner, consumed := applyCommand(n.Command.Name, style, cites)
			skip := commandArgs[n.Command.Name]
			j := i + 1
			for skip > 0 && j < len(nodes) && nodes[j].Group != nil {
				j++
				skip--
			}
			if commandArgs[n.Command.Name] > 0 {
				i = j - 1
				continue
			}
			if consumed && j < len(nodes) && nodes[j].Group != nil {
				walkNodes(nodes[j].Group.Nodes, inner, cites, out)
				i = j
			}
		}
	}
}

// applyCommand returns the style for the argument of a styling command.
func applyCommand(name string, style RunStyle, cites map[string]bool) (RunStyle, bool) {
	switch name {
	case `\textbf`:
		style.Bold = true
	case `\textit`, `\emph`:
		style.Italic = true
	case `\underline`, `\uline`:
		style.Underline = true
	case `\textsc`:
		style.SmallCaps = true
	default:
		if !cites[name] {
			return style, false
		}
		style = RunStyle{Citation: true}
	}
	return style, true
}

// Words joins runs into words; each word keeps its styled pieces.
func Words(runs []Run) [][]Run {
	var (
		words [][]Run
		cur   []Run
	)
	for _, r := range runs {
		if r.Space {
			if len(cur) > 0 {
				words = append(words, cur)
				cur = nil
			}
			continue
		}
		if r.Text == "" {
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, cur)
	}
	return words
}

// PlainText strips a fragment down to its visible words separated by single spaces.
func PlainText(s string, citationCommands ...string) (string, error) {
	frag, err := ParseTeX(s)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, w := range Words(frag.Runs(citationCommands...)) {
		if i > 0 {
			b.WriteByte(' ')
		}
		for _, r := range w {
			b.WriteString(r.Text)
		}
	}
	return b.String(), nil
}
