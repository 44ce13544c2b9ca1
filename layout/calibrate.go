package layout

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// CalibrationContext 返回一个让 p 落入列宽分类 w 的布局上下文。
func CalibrationContext(w WidthClass, p Position) (LayoutContext, bool) {
	for mask := 7; mask > 0; mask-- {
		c := LayoutContext{Left: mask&4 != 0, Center: mask&2 != 0, Right: mask&1 != 0}
		if c.Has(p) && ClassOf(c, p) == w {
			return c, true
		}
	}
	return LayoutContext{}, false
}

// Calibrate 估计 p 列在上下文 mc.Layout 中单行可容纳的字符数。
//
// 每轮把打乱后的样本词逐个追加到一行，直到再加一个词就会换行；此时按偏好
// 顺序尝试该词的连字前半段。结果是各轮字符数（不含词间空格）的平均值。
func Calibrate(ctx context.Context, oracle Oracle, mc MeasureContext, font Font, sample []*Word, trials int, rng *rand.Rand) (int, error) {
	if len(sample) == 0 {
		return 0, invariant(mc.Target, 0, ErrEmptyColumn)
	}
	if oracle == nil {
		return 0, ErrNoOracle
	}
	if trials < 1 {
		trials = 1
	}
	mc.Font = font
	total := 0
	words := append([]*Word(nil), sample...)
	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		rng.Shuffle(len(words), func(a, b int) { words[a], words[b] = words[b], words[a] })
		n, err := calibrateTrial(ctx, oracle, mc, font, words)
		if err != nil {
			return 0, fmt.Errorf("第 %d 轮: %w", i+1, err)
		}
		total += n
	}
	return int(math.Round(float64(total) / float64(trials))), nil
}

func calibrateTrial(ctx context.Context, oracle Oracle, mc MeasureContext, font Font, words []*Word) (int, error) {
	rows := func(line []*Word) (int, error) {
		frag, err := NewColumn(mc.Target, line, font).Render(0, -1, true)
		if err != nil {
			return 0, err
		}
		n, err := oracle.MeasureRows(ctx, frag, mc)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMeasurement, err)
		}
		return n, nil
	}

	var line []*Word
	length := 0
	for _, w := range words {
		n, err := rows(append(line, w))
		if err != nil {
			return 0, err
		}
		if n <= 1 {
			line = append(line, w)
			length += w.Len()
			continue
		}
		for _, p := range w.Pairs() {
			n, err := rows(append(line, p.Head))
			if err != nil {
				return 0, err
			}
			if n <= 1 {
				return length + p.Head.Len(), nil
			}
		}
		return length, nil
	}
	return length, nil
}
