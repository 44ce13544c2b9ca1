package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/subalterngames/talmudifier/layout"
)

const sampleYAML = `
fonts:
  left:
    path: fonts/izhar
    regular_font: Izhar-Regular.ttf
    bold_font: Izhar-Bold.ttf
    size: 11
    skip: 13
    citation:
      command: \citeleft
      pattern: '^\^(\d+)$'
      path: fonts/cite
      font: Cite.ttf
      font_command: \citeleft
    substitutions:
      - pattern: '--'
        replacement: '–'
  center:
    path: fonts/center
    regular_font: Center.ttf
  right:
    path: /abs/right
    regular_font: Right.ttf
character_counts:
  one_third:
    left:
      "1": 30
      "4": 118
  half:
    right:
      "2": 80
colors:
  - name: Gray
    html: 808080
chapter:
  definition: \newcommand{\chapfont}{\Huge}
  command: \chapfont
  numbering: true
layout:
  row_padding: 2
engine:
  backend: canvas
`

func TestReadDecodesAndDefaults(t *testing.T) {
	r, err := Read(strings.NewReader(sampleYAML), "yaml")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if r.Engine.Backend != BackendCanvas || r.Engine.XeLaTeX != "xelatex" {
		t.Fatalf("engine 默认值错误: %+v", r.Engine)
	}
	tuning := r.Tuning()
	if tuning.InitialRows != 4 || tuning.TransitionRows != 1 || tuning.RowPadding != 2 {
		t.Fatalf("tuning 错误: %+v", *tuning)
	}
	if r.Ratios().Third != 0.32 || r.Ratios().TwoThirds != 0.675 {
		t.Fatalf("ratios 默认值错误: %+v", r.Ratios())
	}
	if r.Column(layout.Center).Ligatures != "TeX" {
		t.Fatalf("ligatures 默认值错误: %q", r.Column(layout.Center).Ligatures)
	}
	if len(r.Colors) != 1 || r.Colors[0].Name != "Gray" {
		t.Fatalf("颜色名应保留大小写: %+v", r.Colors)
	}
	f := r.Font(layout.Left)
	if f.Command != `\leftfont` || f.Size != 11 || f.Skip != 13 {
		t.Fatalf("字体错误: %+v", f)
	}
	if err := r.ValidateFonts(); err != nil {
		t.Fatalf("字体校验失败: %v", err)
	}
}

func TestWordOptions(t *testing.T) {
	r, err := Read(strings.NewReader(sampleYAML), "yaml")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	w := layout.NewWord("^12", layout.Style{Bold: true}, false, r.WordOptions(layout.Left, nil))
	if !w.IsCitation() || w.Text() != `\citeleft{12}` {
		t.Fatalf("引文未生效: %q", w.Text())
	}
	w = layout.NewWord("a--b", layout.Style{}, false, r.WordOptions(layout.Left, nil))
	if w.Text() != "a–b" {
		t.Fatalf("替换未生效: %q", w.Text())
	}
	opts := r.WordOptions(layout.Right, nil)
	if opts.Citation != nil || opts.Substitutions != nil {
		t.Fatalf("右列不应有规则: %+v", opts)
	}
	if cmds := r.CitationCommands(); len(cmds) != 1 || cmds[0] != `\citeleft` {
		t.Fatalf("引文命令错误: %v", cmds)
	}
}

func TestExpectedLength(t *testing.T) {
	r, err := Read(strings.NewReader(sampleYAML), "yaml")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	cases := []struct {
		pos   layout.Position
		width layout.WidthClass
		rows  int
		want  int
	}{
		{layout.Left, layout.WidthOneThird, 4, 118},
		{layout.Left, layout.WidthOneThird, 3, 90},
		{layout.Right, layout.WidthHalf, 2, 80},
		{layout.Right, layout.WidthHalf, 3, -1},
		{layout.Center, layout.WidthOneThird, 1, -1},
		{layout.Left, layout.WidthTwoThirds, 1, -1},
		{layout.Left, layout.WidthNone, 1, -1},
	}
	for _, c := range cases {
		if got := r.ExpectedLength(c.pos, c.width, c.rows); got != c.want {
			t.Fatalf("%s/%s/%d: 期望 %d，实际 %d", c.pos, c.width, c.rows, c.want, got)
		}
	}
	r.SetExpectedLength(layout.Center, layout.WidthTwoThirds, 1, 55)
	if got := r.ExpectedLength(layout.Center, layout.WidthTwoThirds, 2); got != 110 {
		t.Fatalf("写入后查找错误: %d", got)
	}
}

func TestChapterCommand(t *testing.T) {
	r, err := Read(strings.NewReader(sampleYAML), "yaml")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got := r.ChapterCommand("Bava Kamma"); got != `\chapter{\chapfont{Bava Kamma}}` {
		t.Fatalf("章节命令错误: %q", got)
	}
	r.Chapter = Chapter{}
	if got := r.ChapterCommand("x"); got != `\chapter*{x}` {
		t.Fatalf("无编号章节命令错误: %q", got)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]struct {
		yaml  string
		field string
		err   error
	}{
		"citation without pattern": {
			yaml:  "fonts:\n  left:\n    citation:\n      command: \\c\n",
			field: "fonts.left.citation.pattern",
			err:   ErrMissingField,
		},
		"skip without size": {
			yaml:  "fonts:\n  right:\n    skip: 12\n",
			field: "fonts.right.size",
			err:   ErrMissingField,
		},
		"bad backend": {
			yaml:  "engine:\n  backend: troff\n",
			field: "engine.backend",
			err:   ErrInvalidValue,
		},
		"bad ratio": {
			yaml:  "layout:\n  half: 1.5\n",
			field: "layout.half",
			err:   ErrInvalidValue,
		},
		"bad color": {
			yaml:  "colors:\n  - name: x\n    html: red\n",
			field: "colors[0].html",
			err:   ErrInvalidValue,
		},
		"zero rows": {
			yaml:  "layout:\n  initial_rows: 0\n",
			field: "layout.initial_rows",
			err:   ErrInvalidValue,
		},
	}
	for name, c := range cases {
		_, err := Read(strings.NewReader(c.yaml), "yaml")
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != c.field || !errors.Is(err, c.err) {
			t.Fatalf("%s: 期望 %s/%v，实际 %v", name, c.field, c.err, err)
		}
	}
}

func TestBadCitationPatternIsConfigError(t *testing.T) {
	_, err := Read(strings.NewReader("fonts:\n  left:\n    citation:\n      command: \\c\n      pattern: '('\n"), "yaml")
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "fonts.left.citation" {
		t.Fatalf("应返回 citation 字段错误，实际 %v", err)
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if got := r.Column(layout.Left).Path; got != filepath.Join(dir, "fonts/izhar") {
		t.Fatalf("相对路径未解析: %q", got)
	}
	if got := r.Column(layout.Left).Citation.Path; got != filepath.Join(dir, "fonts/cite") {
		t.Fatalf("引文字体路径未解析: %q", got)
	}
	if got := r.Column(layout.Right).Path; got != "/abs/right" {
		t.Fatalf("绝对路径不应改变: %q", got)
	}
}

func TestDefaultAndGeometry(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("默认配方失败: %v", err)
	}
	if err := r.ValidateFonts(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("默认配方缺少字体应报错，实际 %v", err)
	}
	g := r.Geometry()
	if g.PageWidth < 611.9 || g.PageWidth > 612.1 {
		t.Fatalf("页宽错误: %v", g.PageWidth)
	}
	if w := g.TextWidth(); w < 539.9 || w > 540.1 {
		t.Fatalf("版心宽度错误: %v", w)
	}
}
