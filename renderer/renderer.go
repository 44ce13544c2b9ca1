package renderer

import (
	"context"

	"github.com/subalterngames/talmudifier/layout"
)

// Renderer 将布局结果输出为最终文件，例如 TeX 源码、PDF 或文本预览。
// Render 返回生成的数据以及可能的错误。
type Renderer interface {
	Render(ctx context.Context, result *layout.Result) ([]byte, error)
}

// Column 是一列测量与预览所需的几何参数，单位为 pt。
type Column struct {
	Width float64
	Left  float64
}

// Columns 按 paracol 的规则切分版心：列间距先扣除，余下宽度按比例分配。
func Columns(lc layout.LayoutContext, ratios layout.Ratios, textWidth, columnSep float64) map[layout.Position]Column {
	n := lc.Count()
	if n == 0 {
		return nil
	}
	avail := textWidth - float64(n-1)*columnSep
	out := make(map[layout.Position]Column, n)
	x := 0.0
	for _, p := range layout.Positions {
		if !lc.Has(p) {
			continue
		}
		w := ratios.Fraction(lc, p) * avail
		out[p] = Column{Width: w, Left: x}
		x += w + columnSep
	}
	return out
}
