// Package source reads the three input streams from a Markdown document.
//
// The document has one heading per column ("Left", "Center", "Right");
// paragraphs under a heading belong to that column and keep their inline
// markup verbatim. An optional level-one heading before the columns is the
// chapter title.
package source

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/subalterngames/talmudifier/layout"
)

// ErrNoColumns 表示文档中没有任何列标题。
var ErrNoColumns = errors.New("source: 文档中没有 Left/Center/Right 标题")

var markdown = goldmark.New()

// Document 是解析后的三列原文。
type Document struct {
	Title string
	texts [3][]string
}

// Text 返回 p 列的原文，多个段落以空格连接。
func (d *Document) Text(p layout.Position) string {
	return strings.Join(d.texts[p], " ")
}

// SetText 覆盖 p 列的原文。
func (d *Document) SetText(p layout.Position, s string) {
	d.texts[p] = []string{strings.Join(strings.Fields(s), " ")}
}

// Read 解析 r 中的 Markdown。
func Read(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取输入失败: %w", err)
	}
	return Parse(src)
}

// Parse 解析 Markdown 源文本。
func Parse(src []byte) (*Document, error) {
	root := markdown.Parser().Parse(text.NewReader(src))
	doc := &Document{}
	current := -1
	seen := false
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() == ast.KindDocument {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			name := raw(v, src)
			if p, err := layout.ParsePosition(name); err == nil {
				current = int(p)
				seen = true
			} else {
				if v.Level == 1 && doc.Title == "" && !seen {
					doc.Title = name
				}
				current = -1
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock, *ast.HTMLBlock:
			if current >= 0 {
				if s := raw(v, src); s != "" {
					doc.texts[current] = append(doc.texts[current], s)
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		return nil, ErrNoColumns
	}
	return doc, nil
}

func raw(n ast.Node, src []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if s := strings.TrimSpace(string(seg.Value(src))); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
