package layout

import (
	"context"
	"fmt"
	"log/slog"
)

// Fit 是一次拟合的结果。
type Fit struct {
	Fragment   string
	Rows       int
	Consumed   int // 完整消费的原始词数
	Hyphenated bool
	Head       *Word // 连字时放入片段的前半部分
	Remainder  *Column
}

// Fitter 找出恰好渲染为目标行数的最长词前缀。
type Fitter struct {
	oracle Oracle
	log    *slog.Logger
}

// NewFitter 创建拟合器；logger 可以为空。
func NewFitter(oracle Oracle, logger *slog.Logger) *Fitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fitter{oracle: oracle, log: logger}
}

func (f *Fitter) measure(ctx context.Context, fragment string, mc MeasureContext) (int, error) {
	rows, err := f.oracle.MeasureRows(ctx, fragment, mc)
	if err != nil {
		return 0, fmt.Errorf("%w: %s 列: %w", ErrMeasurement, mc.Target, err)
	}
	if rows < 1 {
		rows = 1
	}
	f.log.Debug("measure", "column", mc.Target, "layout", mc.Layout, "rows", rows, "bytes", len(fragment))
	return rows, nil
}

// Fit 对列 col 拟合 target 行。expected 是预估字符数，-1 表示未知。
//
// 先按预估长度粗略装入若干词，再逐词修正：未超出则追加，超出则回退；
// 回退后若行数不超过目标，按偏好顺序尝试上一词的连字拆分，首个恰好命中者胜出。
func (f *Fitter) Fit(ctx context.Context, col *Column, mc MeasureContext, target, expected int) (Fit, error) {
	if col.Empty() {
		return Fit{}, invariant(col.Position(), 0, ErrEmptyColumn)
	}
	if f.oracle == nil {
		return Fit{}, ErrNoOracle
	}
	if target < 1 {
		target = 1
	}
	mc.Target = col.Position()
	mc.Font = col.Font()

	n := 0
	if expected >= 0 {
		sum := 0
		for n < col.Len() && sum <= expected {
			sum += col.Word(n).Len()
			n++
		}
	}
	if n == 0 {
		n = 1
	}

	for {
		frag, err := col.Render(0, n, true)
		if err != nil {
			return Fit{}, err
		}
		rows, err := f.measure(ctx, frag, mc)
		if err != nil {
			return Fit{}, err
		}
		if rows <= target {
			if n >= col.Len() {
				return Fit{Fragment: frag, Rows: rows, Consumed: n, Remainder: col.Exhausted()}, nil
			}
			n++
			continue
		}
		return f.walkBack(ctx, col, mc, target, n)
	}
}

// walkBack 在前 n 个词超出目标后回退，直到不超出为止，再尝试连字。
func (f *Fitter) walkBack(ctx context.Context, col *Column, mc MeasureContext, target, n int) (Fit, error) {
	for n > 1 {
		n--
		popped := col.Word(n)
		frag, err := col.Render(0, n, true)
		if err != nil {
			return Fit{}, err
		}
		rows, err := f.measure(ctx, frag, mc)
		if err != nil {
			return Fit{}, err
		}
		if rows > target {
			continue
		}
		// 前缀少于目标行数时也试连字，只要拆分恰好命中目标即可。
		if fit, ok, err := f.tryPairs(ctx, col, mc, target, n, popped); err != nil || ok {
			return fit, err
		}
		return Fit{Fragment: frag, Rows: rows, Consumed: n, Remainder: col.Rest(n)}, nil
	}

	// 单个词已超出目标：先试连字，否则强制放入以保证前进。
	first := col.Word(0)
	if fit, ok, err := f.tryPairs(ctx, col, mc, target, 0, first); err != nil || ok {
		return fit, err
	}
	frag, err := col.Render(0, 1, true)
	if err != nil {
		return Fit{}, err
	}
	rows, err := f.measure(ctx, frag, mc)
	if err != nil {
		return Fit{}, err
	}
	f.log.Warn("word exceeds target rows", "column", col.Position(), "word", first.Text(), "rows", rows, "target", target)
	return Fit{Fragment: frag, Rows: rows, Consumed: 1, Remainder: col.Rest(1)}, nil
}

// tryPairs 按偏好顺序逐个试探 w 的连字拆分，前 n 个词保持不变。
func (f *Fitter) tryPairs(ctx context.Context, col *Column, mc MeasureContext, target, n int, w *Word) (Fit, bool, error) {
	for _, pair := range w.Pairs() {
		frag, err := col.RenderWith(0, n, pair.Head)
		if err != nil {
			return Fit{}, false, err
		}
		rows, err := f.measure(ctx, frag, mc)
		if err != nil {
			return Fit{}, false, err
		}
		if rows == target {
			return Fit{
				Fragment:   frag,
				Rows:       rows,
				Consumed:   n,
				Hyphenated: true,
				Head:       pair.Head,
				Remainder:  col.RestWithHead(pair.Tail, n+1),
			}, true, nil
		}
	}
	return Fit{}, false, nil
}
