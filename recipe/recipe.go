// Package recipe loads the typesetting recipe: fonts, citation rules,
// character counts, preamble pieces and engine settings.
package recipe

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/subalterngames/talmudifier/citation"
	"github.com/subalterngames/talmudifier/layout"
)

var (
	// ErrMissingField 表示配方缺少必填项。
	ErrMissingField = errors.New("recipe: 缺少必填项")
	// ErrInvalidValue 表示配方中的取值非法。
	ErrInvalidValue = errors.New("recipe: 取值非法")
)

// FieldError 指出出错的配置键。
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func missing(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

func invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidValue}, args...)...)}
}

// Backend names accepted by engine.backend.
const (
	BackendTeX    = "tex"
	BackendCanvas = "canvas"
	BackendText   = "text"
)

// Recipe is the decoded recipe file.
type Recipe struct {
	Fonts           Fonts                                `mapstructure:"fonts"`
	CharacterCounts map[string]map[string]map[string]int `mapstructure:"character_counts"`
	Colors          []Color                              `mapstructure:"colors"`
	Chapter         Chapter                              `mapstructure:"chapter"`
	MiscDefinitions []string                             `mapstructure:"misc_definitions"`
	Preamble        string                               `mapstructure:"preamble"`
	Hyphenation     Hyphenation                          `mapstructure:"hyphenation"`
	Layout          Layout                               `mapstructure:"layout"`
	Engine          Engine                               `mapstructure:"engine"`

	citations [3]*citation.Matcher
	subs      [3]*citation.Substitutions
}

// Fonts holds one font block per column.
type Fonts struct {
	Left   ColumnFont `mapstructure:"left"`
	Center ColumnFont `mapstructure:"center"`
	Right  ColumnFont `mapstructure:"right"`
}

// ColumnFont describes a column's font family, size and word rules.
type ColumnFont struct {
	Path           string         `mapstructure:"path"`
	Ligatures      string         `mapstructure:"ligatures"`
	RegularFont    string         `mapstructure:"regular_font"`
	ItalicFont     string         `mapstructure:"italic_font"`
	BoldFont       string         `mapstructure:"bold_font"`
	BoldItalicFont string         `mapstructure:"bold_italic_font"`
	Size           float64        `mapstructure:"size"`
	Skip           float64        `mapstructure:"skip"`
	Citation       *Citation      `mapstructure:"citation"`
	Substitutions  []Substitution `mapstructure:"substitutions"`
}

// Citation is a column's citation rule and, optionally, its font.
type Citation struct {
	Command     string `mapstructure:"command"`
	Pattern     string `mapstructure:"pattern"`
	Path        string `mapstructure:"path"`
	Font        string `mapstructure:"font"`
	FontCommand string `mapstructure:"font_command"`
}

// Substitution is one regular-expression rewrite applied to every word.
type Substitution struct {
	Pattern     string `mapstructure:"pattern"`
	Replacement string `mapstructure:"replacement"`
}

// Color is declared with \definecolor{Name}{HTML}{HTML}.
type Color struct {
	Name string `mapstructure:"name"`
	HTML string `mapstructure:"html"`
}

// Chapter controls the chapter heading.
type Chapter struct {
	Definition string `mapstructure:"definition"`
	Command    string `mapstructure:"command"`
	Numbering  bool   `mapstructure:"numbering"`
}

// Hyphenation selects the pattern file. An empty Patterns disables hyphenation.
type Hyphenation struct {
	Locale   string `mapstructure:"locale"`
	Patterns string `mapstructure:"patterns"`
	LeftMin  int    `mapstructure:"left_min"`
	RightMin int    `mapstructure:"right_min"`
}

// Layout carries the balancer tuning and paracol ratios.
type Layout struct {
	layout.Tuning `mapstructure:",squash"`
	layout.Ratios `mapstructure:",squash"`
}

// Engine configures the measurement backend and the page geometry.
type Engine struct {
	Backend     string `mapstructure:"backend"`
	XeLaTeX     string `mapstructure:"xelatex"`
	PdfToText   string `mapstructure:"pdftotext"`
	WorkDir     string `mapstructure:"work_dir"`
	PageWidth   string `mapstructure:"page_width"`
	PageHeight  string `mapstructure:"page_height"`
	Margin      string `mapstructure:"margin"`
	ColumnSep   string `mapstructure:"column_sep"`
	TextColumns int    `mapstructure:"text_columns"`
}

func setDefaults(v *viper.Viper) {
	tuning := layout.DefaultTuning()
	ratios := layout.DefaultRatios()
	v.SetDefault("chapter.numbering", false)
	v.SetDefault("hyphenation.locale", "en-US")
	v.SetDefault("hyphenation.left_min", 2)
	v.SetDefault("hyphenation.right_min", 3)
	v.SetDefault("layout.initial_rows", tuning.InitialRows)
	v.SetDefault("layout.transition_rows", tuning.TransitionRows)
	v.SetDefault("layout.row_padding", tuning.RowPadding)
	v.SetDefault("layout.one_third", ratios.Third)
	v.SetDefault("layout.two_thirds", ratios.TwoThirds)
	v.SetDefault("layout.left_center", ratios.LeftCenter)
	v.SetDefault("layout.half", ratios.Half)
	v.SetDefault("engine.backend", BackendTeX)
	v.SetDefault("engine.xelatex", "xelatex")
	v.SetDefault("engine.pdftotext", "pdftotext")
	v.SetDefault("engine.page_width", "8.5in")
	v.SetDefault("engine.page_height", "11in")
	v.SetDefault("engine.margin", "0.5in")
	v.SetDefault("engine.column_sep", "0.25in")
	v.SetDefault("engine.text_columns", 96)
	for _, p := range layout.Positions {
		v.SetDefault("fonts."+p.String()+".ligatures", "TeX")
	}
}

// Default returns a recipe made only of defaults.
func Default() (*Recipe, error) {
	v := viper.New()
	setDefaults(v)
	return decode(v, "")
}

// Load reads a recipe file; the format follows the file extension (JSON, YAML, TOML).
// Relative font and pattern paths are resolved against the file's directory.
func Load(path string) (*Recipe, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配方 %s 失败: %w", path, err)
	}
	return decode(v, filepath.Dir(path))
}

// Read decodes a recipe from r in the given format ("json", "yaml", ...).
func Read(r io.Reader, format string) (*Recipe, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("读取配方失败: %w", err)
	}
	return decode(v, "")
}

func decode(v *viper.Viper, dir string) (*Recipe, error) {
	var r Recipe
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("解析配方失败: %w", err)
	}
	if dir != "" {
		r.resolvePaths(dir)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Recipe) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for _, p := range layout.Positions {
		f := r.column(p)
		f.Path = abs(f.Path)
		if f.Citation != nil {
			f.Citation.Path = abs(f.Citation.Path)
		}
	}
	r.Hyphenation.Patterns = abs(r.Hyphenation.Patterns)
}

var htmlColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// Validate checks the parts of the recipe every backend relies on.
func (r *Recipe) Validate() error {
	for _, p := range layout.Positions {
		f := r.column(p)
		key := "fonts." + p.String()
		if f.Size < 0 {
			return invalid(key+".size", "%v", f.Size)
		}
		if f.Skip > 0 && f.Size <= 0 {
			return missing(key + ".size")
		}
		if c := f.Citation; c != nil {
			if strings.TrimSpace(c.Command) == "" {
				return missing(key + ".citation.command")
			}
			if c.Pattern == "" {
				return missing(key + ".citation.pattern")
			}
			if c.Font != "" && c.FontCommand == "" {
				return missing(key + ".citation.font_command")
			}
		}
		for i, s := range f.Substitutions {
			if s.Pattern == "" {
				return missing(fmt.Sprintf("%s.substitutions[%d].pattern", key, i))
			}
		}
	}
	for i, c := range r.Colors {
		if c.Name == "" {
			return missing(fmt.Sprintf("colors[%d].name", i))
		}
		if !htmlColor.MatchString(c.HTML) {
			return invalid(fmt.Sprintf("colors[%d].html", i), "%q", c.HTML)
		}
	}
	t := r.Layout.Tuning
	if t.InitialRows < 1 {
		return invalid("layout.initial_rows", "%d", t.InitialRows)
	}
	if t.TransitionRows < 1 {
		return invalid("layout.transition_rows", "%d", t.TransitionRows)
	}
	if t.RowPadding < 0 {
		return invalid("layout.row_padding", "%d", t.RowPadding)
	}
	for name, v := range map[string]float64{
		"layout.one_third":   r.Layout.Third,
		"layout.two_thirds":  r.Layout.TwoThirds,
		"layout.left_center": r.Layout.LeftCenter,
		"layout.half":        r.Layout.Half,
	} {
		if v <= 0 || v >= 1 {
			return invalid(name, "%v 不在 (0, 1) 内", v)
		}
	}
	switch r.Engine.Backend {
	case BackendTeX, BackendCanvas, BackendText:
	default:
		return invalid("engine.backend", "%q", r.Engine.Backend)
	}
	for name, v := range map[string]string{
		"engine.page_width":  r.Engine.PageWidth,
		"engine.page_height": r.Engine.PageHeight,
		"engine.margin":      r.Engine.Margin,
		"engine.column_sep":  r.Engine.ColumnSep,
	} {
		if _, err := layout.ParseLength(v); err != nil {
			return invalid(name, "%v", err)
		}
	}
	return nil
}

// ValidateFonts checks that every column names a font family, which the
// TeX and canvas backends need.
func (r *Recipe) ValidateFonts() error {
	for _, p := range layout.Positions {
		f := r.column(p)
		key := "fonts." + p.String()
		if f.RegularFont == "" {
			return missing(key + ".regular_font")
		}
		if f.Path == "" {
			return missing(key + ".path")
		}
		if c := f.Citation; c != nil && c.Font != "" && c.Path == "" {
			return missing(key + ".citation.path")
		}
	}
	return nil
}

func (r *Recipe) compile() error {
	for _, p := range layout.Positions {
		f := r.column(p)
		key := "fonts." + p.String()
		if c := f.Citation; c != nil {
			m, err := citation.New(c.Command, c.Pattern)
			if err != nil {
				return &FieldError{Field: key + ".citation", Err: err}
			}
			r.citations[p] = m
		}
		if len(f.Substitutions) > 0 {
			rules := make([]citation.Rule, 0, len(f.Substitutions))
			for _, s := range f.Substitutions {
				rules = append(rules, citation.Rule{Pattern: s.Pattern, Replacement: s.Replacement})
			}
			s, err := citation.Compile(rules...)
			if err != nil {
				return &FieldError{Field: key + ".substitutions", Err: err}
			}
			r.subs[p] = s
		}
	}
	return nil
}

func (r *Recipe) column(p layout.Position) *ColumnFont {
	switch p {
	case layout.Center:
		return &r.Fonts.Center
	case layout.Right:
		return &r.Fonts.Right
	default:
		return &r.Fonts.Left
	}
}

// Column returns the font block of p.
func (r *Recipe) Column(p layout.Position) ColumnFont { return *r.column(p) }

// FontCommand returns the family switch declared for p, e.g. \leftfont.
func FontCommand(p layout.Position) string { return `\` + p.String() + "font" }

// Font returns the layout font of p.
func (r *Recipe) Font(p layout.Position) layout.Font {
	f := r.column(p)
	return layout.Font{Command: FontCommand(p), Size: f.Size, Skip: f.Skip}
}

// Citation returns p's compiled citation rule, or nil.
func (r *Recipe) Citation(p layout.Position) *citation.Matcher { return r.citations[p] }

// CitationCommands lists every configured citation command.
func (r *Recipe) CitationCommands() []string {
	var out []string
	for _, m := range r.citations {
		if m != nil {
			out = append(out, m.Command())
		}
	}
	return out
}

// WordOptions returns the word construction options of p.
func (r *Recipe) WordOptions(p layout.Position, h layout.Hyphenator) layout.WordOptions {
	opts := layout.WordOptions{Hyphenator: h}
	if m := r.citations[p]; m != nil {
		opts.Citation = m
	}
	if s := r.subs[p]; s != nil {
		opts.Substitutions = s
	}
	return opts
}

// ExpectedLength looks up the calibrated character count for rows rows of p
// at the given width. Missing row counts fall back to the one-row count times
// rows; anything else missing yields -1.
func (r *Recipe) ExpectedLength(p layout.Position, width layout.WidthClass, rows int) int {
	byColumn, ok := r.CharacterCounts[string(width)]
	if !ok {
		return -1
	}
	counts, ok := byColumn[p.String()]
	if !ok {
		return -1
	}
	if v, ok := counts[strconv.Itoa(rows)]; ok {
		return v
	}
	if v, ok := counts["1"]; ok {
		return v * rows
	}
	return -1
}

// SetExpectedLength records a calibrated count.
func (r *Recipe) SetExpectedLength(p layout.Position, width layout.WidthClass, rows, chars int) {
	if r.CharacterCounts == nil {
		r.CharacterCounts = map[string]map[string]map[string]int{}
	}
	byColumn := r.CharacterCounts[string(width)]
	if byColumn == nil {
		byColumn = map[string]map[string]int{}
		r.CharacterCounts[string(width)] = byColumn
	}
	counts := byColumn[p.String()]
	if counts == nil {
		counts = map[string]int{}
		byColumn[p.String()] = counts
	}
	counts[strconv.Itoa(rows)] = chars
}

// ChapterCommand returns the heading for title.
func (r *Recipe) ChapterCommand(title string) string {
	var b strings.Builder
	b.WriteString(`\chapter`)
	if !r.Chapter.Numbering {
		b.WriteString("*")
	}
	b.WriteString("{")
	if r.Chapter.Command != "" {
		b.WriteString(r.Chapter.Command + "{" + title + "}")
	} else {
		b.WriteString(title)
	}
	b.WriteString("}")
	return b.String()
}

// Tuning returns a copy of the balancer tuning.
func (r *Recipe) Tuning() *layout.Tuning {
	t := r.Layout.Tuning
	return &t
}

// Ratios returns the paracol ratios.
func (r *Recipe) Ratios() layout.Ratios { return r.Layout.Ratios }

// Geometry is the page geometry in points.
type Geometry struct {
	PageWidth, PageHeight, Margin, ColumnSep float64
}

// TextWidth is the width between the margins.
func (g Geometry) TextWidth() float64 { return g.PageWidth - 2*g.Margin }

// Geometry parses the engine lengths. Validate has already checked them.
func (r *Recipe) Geometry() Geometry {
	pt := func(s string) float64 {
		l, _ := layout.ParseLength(s)
		return l.ToPT()
	}
	return Geometry{
		PageWidth:  pt(r.Engine.PageWidth),
		PageHeight: pt(r.Engine.PageHeight),
		Margin:     pt(r.Engine.Margin),
		ColumnSep:  pt(r.Engine.ColumnSep),
	}
}
