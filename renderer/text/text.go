// Package textrenderer measures fragments in character cells and prints a
// side-by-side plain-text preview. It needs neither fonts nor a TeX install.
package textrenderer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"

	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/markup"
	"github.com/subalterngames/talmudifier/renderer"
)

// baseSize 是字符宽度对应的字号；更小的字号按比例容纳更多字符。
const baseSize = 11.0

// Gutter 是预览中列之间的分隔。
const Gutter = " | "

// Renderer 以字符格为单位排版。
type Renderer struct {
	// Columns 是整行可容纳的字符数。
	Columns   int
	Ratios    layout.Ratios
	Citations []string
	// Fonts 提供每列的字号，用于缩放列宽。
	Fonts func(layout.Position) layout.Font
}

var (
	_ layout.Oracle     = (*Renderer)(nil)
	_ renderer.Renderer = (*Renderer)(nil)
)

// Width 返回 p 在 lc 中可容纳的字符数，至少为 1。
func (r *Renderer) Width(lc layout.LayoutContext, p layout.Position, ratios layout.Ratios, size float64) (int, error) {
	cols := renderer.Columns(lc, ratios, float64(r.Columns), float64(runewidth.StringWidth(Gutter)))
	col, ok := cols[p]
	if !ok {
		return 0, fmt.Errorf("%w: %s 不在 %s 中", layout.ErrUnknownColumn, p, lc)
	}
	w := col.Width
	if size > 0 {
		w *= baseSize / size
	}
	return max(int(w), 1), nil
}

// MeasureRows 实现 layout.Oracle。
func (r *Renderer) MeasureRows(ctx context.Context, fragment string, mc layout.MeasureContext) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	width, err := r.Width(mc.Layout, mc.Target, mc.Ratios, mc.Font.Size)
	if err != nil {
		return 0, err
	}
	plain, err := markup.PlainText(fragment, r.Citations...)
	if err != nil {
		return 0, fmt.Errorf("解析片段失败: %w", err)
	}
	return max(len(Wrap(plain, width)), 1), nil
}

// Wrap 在空白处贪心换行；超宽的单词独占一行。
func Wrap(s string, width int) []string {
	var lines []string
	var cur strings.Builder
	curWidth := 0
	for _, word := range strings.Fields(s) {
		w := ansi.PrintableRuneWidth(word)
		if curWidth > 0 && curWidth+1+w > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curWidth = 0
		}
		if curWidth > 0 {
			cur.WriteByte(' ')
			curWidth++
		}
		cur.WriteString(word)
		curWidth += w
	}
	if curWidth > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// Render 把每个块的各列并排输出。
func (r *Renderer) Render(ctx context.Context, result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	var buf bytes.Buffer
	for _, block := range result.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := r.block(block)
		if err != nil {
			return nil, err
		}
		width := 0
		for _, row := range rows {
			width = max(width, ansi.PrintableRuneWidth(row))
		}
		fmt.Fprintf(&buf, "%s %s\n", block.Phase, strings.Repeat("-", max(width-len(block.Phase.String())-1, 3)))
		for _, row := range rows {
			buf.WriteString(strings.TrimRight(row, " "))
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

func (r *Renderer) block(block layout.Block) ([]string, error) {
	type column struct {
		width int
		lines []string
	}
	var cols []column
	height := 0
	for _, p := range layout.Positions {
		if !block.Layout.Has(p) {
			continue
		}
		size := 0.0
		if r.Fonts != nil {
			size = r.Fonts(p).Size
		}
		// 预览按未缩放的列宽对齐，字号只影响测量。
		width, err := r.Width(block.Layout, p, r.Ratios, 0)
		if err != nil {
			return nil, err
		}
		measureWidth, err := r.Width(block.Layout, p, r.Ratios, size)
		if err != nil {
			return nil, err
		}
		var plain string
		if bc, ok := block.Column(p); ok {
			if plain, err = markup.PlainText(bc.Fragment, r.Citations...); err != nil {
				return nil, fmt.Errorf("%s 列: %w", p, err)
			}
		}
		lines := Wrap(plain, measureWidth)
		cols = append(cols, column{width: max(width, measureWidth), lines: lines})
		height = max(height, len(lines))
	}
	rows := make([]string, height)
	for i := range rows {
		cells := make([]string, len(cols))
		for j, c := range cols {
			line := ""
			if i < len(c.lines) {
				line = c.lines[i]
			}
			cells[j] = runewidth.FillRight(line, c.width)
		}
		rows[i] = strings.Join(cells, Gutter)
	}
	return rows, nil
}
