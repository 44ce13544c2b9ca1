package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/subalterngames/talmudifier/fonts"
	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/markup"
	"github.com/subalterngames/talmudifier/recipe"
	"github.com/subalterngames/talmudifier/renderer"
)

// defaultSize 与文档类的 11pt 正文一致。
const defaultSize = 11.0

// Metrics 报告一段文本在某列字体下的宽度与行高，单位为 mm。
type Metrics interface {
	Width(pos layout.Position, text string, style markup.RunStyle, size float64) (float64, error)
	LineHeight(pos layout.Position, size float64) (float64, error)
}

// Renderer measures and previews columns via github.com/tdewolff/canvas.
type Renderer struct {
	recipe    *recipe.Recipe
	geometry  recipe.Geometry
	citations []string
	title     string
	metrics   Metrics

	fontMu       sync.Mutex
	fontFamilies map[familyKey]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Oracle     = (*Renderer)(nil)
	_ Metrics           = (*Renderer)(nil)
)

type familyKey struct {
	pos      layout.Position
	citation bool
}

// Options configures the canvas renderer.
type Options struct {
	Recipe *recipe.Recipe
	Title  string
	// Metrics replaces font-file measurement, mainly for tests.
	Metrics Metrics
}

// NewRenderer creates a canvas-based renderer for the recipe's fonts and page geometry.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Recipe == nil {
		return nil, fmt.Errorf("缺少配方")
	}
	r := &Renderer{
		recipe:       opts.Recipe,
		geometry:     opts.Recipe.Geometry(),
		citations:    opts.Recipe.CitationCommands(),
		title:        opts.Title,
		metrics:      opts.Metrics,
		fontFamilies: map[familyKey]*canvas.FontFamily{},
	}
	if r.metrics == nil {
		if err := opts.Recipe.ValidateFonts(); err != nil {
			return nil, err
		}
		r.metrics = r
	}
	return r, nil
}

// MeasureRows 实现 layout.Oracle：按列宽对片段做贪心换行并返回行数。
func (r *Renderer) MeasureRows(ctx context.Context, fragment string, mc layout.MeasureContext) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lines, err := r.wrap(fragment, mc.Layout, mc.Target, mc.Ratios, mc.Font.Size)
	if err != nil {
		return 0, err
	}
	return max(len(lines), 1), nil
}

type measuredWord struct {
	runs  []markup.Run
	width float64
}

// wrap 解析片段并按列宽换行，宽度单位均为 mm。
func (r *Renderer) wrap(fragment string, lc layout.LayoutContext, pos layout.Position, ratios layout.Ratios, size float64) ([][]measuredWord, error) {
	if size <= 0 {
		size = defaultSize
	}
	frag, err := markup.ParseTeX(fragment)
	if err != nil {
		return nil, fmt.Errorf("解析片段失败: %w", err)
	}
	cols := renderer.Columns(lc, ratios, r.geometry.TextWidth(), r.geometry.ColumnSep)
	col, ok := cols[pos]
	if !ok {
		return nil, fmt.Errorf("%w: %s 不在 %s 中", layout.ErrUnknownColumn, pos, lc)
	}
	space, err := r.metrics.Width(pos, " ", markup.RunStyle{}, size)
	if err != nil {
		return nil, err
	}
	var words []measuredWord
	for _, runs := range markup.Words(frag.Runs(r.citations...)) {
		w := measuredWord{runs: runs}
		for _, run := range runs {
			rw, err := r.metrics.Width(pos, run.Text, run.Style, size)
			if err != nil {
				return nil, err
			}
			w.width += rw
		}
		words = append(words, w)
	}
	return greedyWrap(words, space, col.Width*layout.PtToMm), nil
}

// greedyWrap 在空白处换行；超过列宽的单词独占一行，与 TeX 的溢出行为一致。
func greedyWrap(words []measuredWord, space, limit float64) [][]measuredWord {
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	var lines [][]measuredWord
	var current []measuredWord
	currentWidth := 0.0

	emit := func() {
		if len(current) == 0 {
			return
		}
		lines = append(lines, current)
		current = nil
		currentWidth = 0
	}

	for _, w := range words {
		add := w.width
		if len(current) > 0 {
			add += space
		}
		if len(current) > 0 && currentWidth+add > limit {
			emit()
			add = w.width
		}
		current = append(current, w)
		currentWidth += add
	}
	emit()
	return lines
}

// Width 实现 Metrics，使用配方字体的 canvas 度量。
func (r *Renderer) Width(pos layout.Position, text string, style markup.RunStyle, size float64) (float64, error) {
	face, err := r.fontFace(pos, style, size)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(text), nil
}

// LineHeight 实现 Metrics。
func (r *Renderer) LineHeight(pos layout.Position, size float64) (float64, error) {
	face, err := r.fontFace(pos, markup.RunStyle{}, size)
	if err != nil {
		return 0, err
	}
	return face.Metrics().LineHeight, nil
}

func (r *Renderer) fontFace(pos layout.Position, style markup.RunStyle, size float64) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(pos, style.Citation)
	if err != nil {
		return nil, err
	}
	variant := canvas.FontNormal
	if style.SmallCaps {
		variant = canvas.FontSmallcaps
	}
	return family.Face(size, canvas.Black, parseFontStyle(style), variant), nil
}

func (r *Renderer) ensureFontFamily(pos layout.Position, citation bool) (*canvas.FontFamily, error) {
	cf := r.recipe.Column(pos)
	if citation && (cf.Citation == nil || cf.Citation.Font == "") {
		citation = false
	}
	key := familyKey{pos: pos, citation: citation}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	var fam fonts.Family
	var err error
	if citation {
		var p string
		p, err = fonts.Locate(cf.Citation.Path, cf.Citation.Font)
		fam = fonts.Family{Regular: p}
	} else {
		fam, err = fonts.Resolve(cf)
	}
	if err != nil {
		return nil, err
	}

	family := canvas.NewFontFamily(pos.String())
	for _, s := range []layout.Style{{}, {Italic: true}, {Bold: true}, {Bold: true, Italic: true}} {
		if err := loadFontIntoFamily(family, fam.Path(s), parseFontStyle(markup.RunStyle{Bold: s.Bold, Italic: s.Italic})); err != nil {
			return nil, err
		}
	}
	r.fontFamilies[key] = family
	return family, nil
}

func loadFontIntoFamily(family *canvas.FontFamily, path string, style canvas.FontStyle) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	if err := family.LoadFont(data, 0, style); err != nil {
		return fmt.Errorf("加载字体 %s 失败: %w", path, err)
	}
	return nil
}

func parseFontStyle(style markup.RunStyle) canvas.FontStyle {
	result := canvas.FontRegular
	if style.Bold {
		result = canvas.FontBold
	}
	if style.Italic {
		result |= canvas.FontItalic
	}
	return result
}

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }

// Render 把布局结果绘制成预览 PDF：逐块排版，块不跨页。
func (r *Renderer) Render(ctx context.Context, result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	pages, err := r.paginate(ctx, result)
	if err != nil {
		return nil, err
	}

	width, height := toMm(r.geometry.PageWidth), toMm(r.geometry.PageHeight)
	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	writer.SetInfo(r.title, "", "", "", "talmudifier")
	for i, page := range pages {
		if i > 0 {
			writer.NewPage(width, height)
		}
		c := canvas.New(width, height)
		cctx := canvas.NewContext(c)
		cctx.SetCoordSystem(canvas.CartesianIV) // 使坐标以左上角为原点
		for _, ln := range page {
			if err := r.drawLine(cctx, ln); err != nil {
				return nil, err
			}
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// placedLine 是已定位的一行，坐标单位为 mm。
type placedLine struct {
	pos   layout.Position
	size  float64
	x, y  float64
	words []measuredWord
}

func (r *Renderer) paginate(ctx context.Context, result *layout.Result) ([][]placedLine, error) {
	margin := toMm(r.geometry.Margin)
	bottom := toMm(r.geometry.PageHeight) - margin
	y := margin
	pages := [][]placedLine{nil}
	for _, block := range result.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols := renderer.Columns(block.Layout, r.recipe.Ratios(), r.geometry.TextWidth(), r.geometry.ColumnSep)
		var placed []placedLine
		blockHeight := 0.0
		for _, bc := range block.Columns {
			col, ok := cols[bc.Position]
			if !ok {
				continue
			}
			size := r.recipe.Font(bc.Position).Size
			if size <= 0 {
				size = defaultSize
			}
			lines, err := r.wrap(bc.Fragment, block.Layout, bc.Position, r.recipe.Ratios(), size)
			if err != nil {
				return nil, fmt.Errorf("%s 列: %w", bc.Position, err)
			}
			lh, err := r.metrics.LineHeight(bc.Position, size)
			if err != nil {
				return nil, err
			}
			for i, words := range lines {
				placed = append(placed, placedLine{
					pos:   bc.Position,
					size:  size,
					x:     margin + toMm(col.Left),
					y:     float64(i+1) * lh,
					words: words,
				})
			}
			blockHeight = math.Max(blockHeight, float64(len(lines))*lh)
		}
		if y+blockHeight > bottom && len(pages[len(pages)-1]) > 0 {
			pages = append(pages, nil)
			y = margin
		}
		for i := range placed {
			placed[i].y += y
		}
		pages[len(pages)-1] = append(pages[len(pages)-1], placed...)
		y += blockHeight
	}
	return pages, nil
}

func (r *Renderer) drawLine(ctx *canvas.Context, ln placedLine) error {
	space, err := r.metrics.Width(ln.pos, " ", markup.RunStyle{}, ln.size)
	if err != nil {
		return err
	}
	x := ln.x
	for i, w := range ln.words {
		if i > 0 {
			x += space
		}
		for _, run := range w.runs {
			face, err := r.fontFace(ln.pos, run.Style, ln.size)
			if err != nil {
				return err
			}
			ctx.DrawText(x, ln.y, canvas.NewTextLine(face, run.Text, canvas.Left))
			x += face.TextWidth(run.Text)
		}
	}
	return nil
}
