// Package fonts builds the TeX preamble (font families, colors, chapter
// definition) and locates the font files the preview backends read.
package fonts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/recipe"
)

var headerTemplate = template.Must(template.New("header").Delims("<<", ">>").Parse(defaultHeader))

func withSlash(path string) string {
	if path == "" || strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// Declaration 返回列字体族的 \newfontfamily 声明。
func Declaration(p layout.Position, f recipe.ColumnFont) string {
	var b strings.Builder
	b.WriteString(`\newfontfamily`)
	b.WriteString(recipe.FontCommand(p))
	b.WriteString("[Path=")
	b.WriteString(withSlash(f.Path))
	if f.Ligatures != "" {
		b.WriteString(", Ligatures=" + f.Ligatures)
	}
	for _, opt := range []struct{ key, value string }{
		{"ItalicFont", f.ItalicFont},
		{"BoldFont", f.BoldFont},
		{"BoldItalicFont", f.BoldItalicFont},
	} {
		if opt.value != "" {
			b.WriteString(", " + opt.key + "=" + opt.value)
		}
	}
	b.WriteString("]{" + f.RegularFont + "}")
	return b.String()
}

// CitationDeclaration 返回引文字体声明；未配置引文字体时返回空串。
func CitationDeclaration(f recipe.ColumnFont) string {
	c := f.Citation
	if c == nil || c.Font == "" {
		return ""
	}
	return `\newfontfamily` + c.FontCommand + "[Path=" + withSlash(c.Path) + "]{" + c.Font + "}"
}

// Header 返回文档头：配方自带的 preamble 优先，否则使用内置模板。
func Header(r *recipe.Recipe) (string, error) {
	if strings.TrimSpace(r.Preamble) != "" {
		return strings.TrimRight(r.Preamble, "\n"), nil
	}
	var b strings.Builder
	if err := headerTemplate.Execute(&b, r.Engine); err != nil {
		return "", fmt.Errorf("生成文档头失败: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Preamble 组装完整导言区：文档头、三列字体、引文字体、颜色、章节定义与附加定义。
func Preamble(r *recipe.Recipe) (string, error) {
	header, err := Header(r)
	if err != nil {
		return "", err
	}
	lines := []string{header}
	for _, p := range layout.Positions {
		f := r.Column(p)
		lines = append(lines, Declaration(p, f))
		if d := CitationDeclaration(f); d != "" {
			lines = append(lines, d)
		}
	}
	for _, c := range r.Colors {
		lines = append(lines, `\definecolor{`+c.Name+"}{HTML}{"+strings.ToUpper(c.HTML)+"}")
	}
	if r.Chapter.Definition != "" {
		lines = append(lines, r.Chapter.Definition)
	}
	lines = append(lines, r.MiscDefinitions...)
	return strings.Join(lines, "\n"), nil
}

// Family 是某列四种样式对应的字体文件路径；缺省的样式回退到常规体。
type Family struct {
	Regular, Italic, Bold, BoldItalic string
}

// Path 返回 style 对应的字体文件。
func (f Family) Path(s layout.Style) string {
	switch {
	case s.Bold && s.Italic && f.BoldItalic != "":
		return f.BoldItalic
	case s.Bold && f.Bold != "":
		return f.Bold
	case s.Italic && f.Italic != "":
		return f.Italic
	}
	return f.Regular
}

// Resolve 在磁盘上定位列字体族的各个文件。
func Resolve(f recipe.ColumnFont) (Family, error) {
	var fam Family
	var err error
	if fam.Regular, err = Locate(f.Path, f.RegularFont); err != nil {
		return Family{}, err
	}
	for _, opt := range []struct {
		name string
		dst  *string
	}{
		{f.ItalicFont, &fam.Italic},
		{f.BoldFont, &fam.Bold},
		{f.BoldItalicFont, &fam.BoldItalic},
	} {
		if opt.name == "" {
			continue
		}
		if *opt.dst, err = Locate(f.Path, opt.name); err != nil {
			return Family{}, err
		}
	}
	return fam, nil
}
