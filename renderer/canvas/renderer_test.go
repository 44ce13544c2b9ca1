package canvasrenderer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/markup"
	"github.com/subalterngames/talmudifier/recipe"
)

// monoMetrics 模拟等宽字体：每个字符 2mm，粗体 3mm，行高 5mm。
type monoMetrics struct{}

func (monoMetrics) Width(_ layout.Position, text string, style markup.RunStyle, _ float64) (float64, error) {
	w := 2.0
	if style.Bold {
		w = 3.0
	}
	return float64(utf8.RuneCountInString(text)) * w, nil
}

func (monoMetrics) LineHeight(layout.Position, float64) (float64, error) { return 5, nil }

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rcp, err := recipe.Default()
	if err != nil {
		t.Fatalf("default recipe: %v", err)
	}
	r, err := NewRenderer(Options{Recipe: rcp, Metrics: monoMetrics{}})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func words(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

var all = layout.LayoutContext{Left: true, Center: true, Right: true}

func TestMeasureRowsGreedyWrap(t *testing.T) {
	r := newTestRenderer(t)
	ctx := context.Background()
	frag := `\fontsize{10}{12}\selectfont\leftfont ` + words("aaaa", 12)

	// 三列时左列约 56.9mm，每行 5 个 8mm 的词。
	rows, err := r.MeasureRows(ctx, frag, layout.MeasureContext{Layout: all, Target: layout.Left})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 rows in a third, got %d", rows)
	}

	// 左右两列时各约 92mm，每行 9 个词。
	lr := layout.LayoutContext{Left: true, Right: true}
	rows, err = r.MeasureRows(ctx, frag, layout.MeasureContext{Layout: lr, Target: layout.Left})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 rows in a half, got %d", rows)
	}
}

func TestMeasureRowsStyledAndOversized(t *testing.T) {
	r := newTestRenderer(t)
	ctx := context.Background()
	mc := layout.MeasureContext{Layout: all, Target: layout.Center}

	// 粗体词 12mm：4 个词 4*12+3*2=54mm 可放一行，5 个词需要两行。
	rows, err := r.MeasureRows(ctx, `\textbf{`+words("aaaa", 5)+`}`, mc)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected bold text to take 2 rows, got %d", rows)
	}

	long := strings.Repeat("x", 40)
	rows, err = r.MeasureRows(ctx, long+" "+long, mc)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if rows != 2 {
		t.Fatalf("oversized words should each take a row, got %d", rows)
	}

	rows, err = r.MeasureRows(ctx, "", mc)
	if err != nil || rows != 1 {
		t.Fatalf("empty fragment should report 1 row, got %d %v", rows, err)
	}
}

func TestMeasureRowsUnknownColumn(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.MeasureRows(context.Background(), "a", layout.MeasureContext{Layout: layout.Only(layout.Left), Target: layout.Right})
	if !errors.Is(err, layout.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestPaginateStartsNewPage(t *testing.T) {
	r := newTestRenderer(t)
	// 每个超宽词独占一行：30 行 * 5mm = 150mm，两块放不进 254mm 的版心。
	frag := words(strings.Repeat("x", 100), 30)
	block := layout.Block{
		Phase:  layout.PhaseEqualizing,
		Layout: layout.Only(layout.Left),
		Columns: []layout.BlockColumn{
			{Position: layout.Left, Fragment: frag},
		},
	}
	pages, err := r.paginate(context.Background(), &layout.Result{Blocks: []layout.Block{block, block}})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0]) != 30 || len(pages[1]) != 30 {
		t.Fatalf("unexpected lines per page: %d %d", len(pages[0]), len(pages[1]))
	}
	first := pages[1][0]
	if d := first.y - toMm(r.geometry.Margin) - 5; d > 1e-9 || d < -1e-9 {
		t.Fatalf("second page should restart at the margin, got y=%g", first.y)
	}
}

func TestNewRendererRequiresFonts(t *testing.T) {
	rcp, err := recipe.Default()
	if err != nil {
		t.Fatalf("default recipe: %v", err)
	}
	if _, err := NewRenderer(Options{Recipe: rcp}); !errors.Is(err, recipe.ErrMissingField) {
		t.Fatalf("expected missing font error, got %v", err)
	}
}
