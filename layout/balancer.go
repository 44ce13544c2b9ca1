package layout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
)

// Build 把三条文本流排成一系列分栏块。
//
// 状态机依次经过 INITIAL → FOUR_ROW_BLOCK → ONE_ROW_BLOCK → EQUALIZING → DONE：
// 先在左右两列各排出固定行数的开篇块与过渡块，再反复找出最短的列整列排出，
// 并把其余列拟合到与之等高，直到所有列耗尽。
func Build(ctx context.Context, streams Streams, opts BuildOptions) (*Result, error) {
	if opts.Oracle == nil {
		return nil, ErrNoOracle
	}
	counter := &countingOracle{next: opts.Oracle}
	log := opts.logger()
	b := &balancer{
		fitter: NewFitter(counter, log),
		oracle: counter,
		counts: opts.counts(),
		ratios: opts.Ratios.orDefault(),
		tuning: opts.tuning(),
		log:    log,
		phase:  PhaseInitial,
	}
	for i, p := range Positions {
		b.cols[i] = streams.column(p)
	}
	for b.phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		from := b.phase
		if err := b.step(ctx); err != nil {
			return nil, fmt.Errorf("%s 阶段: %w", from, err)
		}
		if b.phase != from {
			log.Debug("phase transition", "from", from, "to", b.phase, "blocks", len(b.blocks))
		}
	}
	return &Result{Blocks: b.blocks, Measurements: counter.Calls()}, nil
}

type balancer struct {
	fitter *Fitter
	oracle Oracle
	counts CharacterCounts
	ratios Ratios
	tuning Tuning
	log    *slog.Logger

	phase  Phase
	cols   [3]*Column
	blocks []Block
}

func (b *balancer) col(p Position) *Column { return b.cols[p] }

// active 根据当前列状态重新计算布局上下文。
func (b *balancer) active() LayoutContext {
	return LayoutContext{
		Left:   !b.col(Left).Empty(),
		Center: !b.col(Center).Empty(),
		Right:  !b.col(Right).Empty(),
	}
}

func (b *balancer) step(ctx context.Context) error {
	switch b.phase {
	case PhaseInitial:
		lc := LayoutContext{Left: !b.col(Left).Empty(), Right: !b.col(Right).Empty()}
		if err := b.fixedBlock(ctx, PhaseFourRow, lc, b.tuning.InitialRows); err != nil {
			return err
		}
		b.phase = PhaseFourRow
	case PhaseFourRow:
		if err := b.fixedBlock(ctx, PhaseOneRow, b.active(), b.tuning.TransitionRows); err != nil {
			return err
		}
		b.phase = PhaseOneRow
	case PhaseOneRow:
		b.phase = PhaseEqualizing
	case PhaseEqualizing:
		done, err := b.equalize(ctx)
		if err != nil {
			return err
		}
		if done {
			b.phase = PhaseDone
		}
	}
	return nil
}

// fixedBlock 只拟合左右两列，中列即使在场也保持为空。
func (b *balancer) fixedBlock(ctx context.Context, phase Phase, lc LayoutContext, rows int) error {
	if !lc.Left && !lc.Right {
		b.log.Debug("skip fixed block", "phase", phase)
		return nil
	}
	block := Block{Phase: phase, Layout: lc}
	frags := map[Position]string{}
	for _, p := range []Position{Left, Right} {
		if !lc.Has(p) || b.col(p).Empty() {
			continue
		}
		bc, err := b.fit(ctx, lc, p, rows)
		if err != nil {
			return err
		}
		frags[p] = bc.Fragment
		block.Columns = append(block.Columns, bc)
	}
	tex, err := b.assemble(lc, frags)
	if err != nil {
		return err
	}
	block.TeX = tex
	b.blocks = append(b.blocks, block)
	return nil
}

// equalize 执行一轮均衡；返回 true 表示已全部排完。
func (b *balancer) equalize(ctx context.Context) (bool, error) {
	lc := b.active()
	switch lc.Count() {
	case 0:
		return true, nil
	case 1:
		return true, b.fillLast(lc)
	}

	shortest, minRows, shortFrag, rawRows := Left, math.MaxInt, "", 0
	for _, p := range Positions {
		if !lc.Has(p) {
			continue
		}
		col := b.col(p)
		frag, err := col.Render(0, -1, true)
		if err != nil {
			return false, err
		}
		rows, err := b.oracle.MeasureRows(ctx, frag, b.measureContext(lc, col))
		if err != nil {
			return false, fmt.Errorf("%w: %s 列: %w", ErrMeasurement, p, err)
		}
		scaled := int(fontRatio(col.Font().Size, b.col(Left).Font().Size) * float64(rows))
		if scaled < minRows {
			shortest, minRows, shortFrag, rawRows = p, scaled, frag, rows
		}
	}
	b.log.Debug("shortest column", "column", shortest, "rows", minRows, "layout", lc)

	short := b.col(shortest)
	block := Block{Phase: PhaseEqualizing, Layout: lc, Shortest: &shortest}
	frags := map[Position]string{shortest: shortFrag}
	for _, p := range Positions {
		if !lc.Has(p) {
			continue
		}
		if p == shortest {
			block.Columns = append(block.Columns, BlockColumn{
				Position: p,
				Fragment: shortFrag,
				Rows:     rawRows,
				Words:    texts(short.Words()),
			})
			continue
		}
		if b.col(p).Empty() {
			continue
		}
		target := int(fontRatio(b.col(Left).Font().Size, b.col(p).Font().Size)*float64(minRows) + float64(b.tuning.RowPadding))
		bc, err := b.fit(ctx, lc, p, target)
		if err != nil {
			return false, err
		}
		frags[p] = bc.Fragment
		block.Columns = append(block.Columns, bc)
	}
	b.cols[shortest] = short.Exhausted()

	tex, err := b.assemble(lc, frags)
	if err != nil {
		return false, err
	}
	block.TeX = tex
	b.blocks = append(b.blocks, block)
	return false, nil
}

// fillLast 把唯一剩下的列整列排成单栏块。
func (b *balancer) fillLast(lc LayoutContext) error {
	for _, p := range Positions {
		if !lc.Has(p) {
			continue
		}
		col := b.col(p)
		frag, err := col.Render(0, -1, true)
		if err != nil {
			return err
		}
		tex, err := b.assemble(lc, map[Position]string{p: frag})
		if err != nil {
			return err
		}
		b.blocks = append(b.blocks, Block{
			Phase:   PhaseEqualizing,
			Layout:  lc,
			Columns: []BlockColumn{{Position: p, Fragment: frag, Words: texts(col.Words())}},
			TeX:     tex,
		})
		b.cols[p] = col.Exhausted()
	}
	return nil
}

// fit 对 p 列拟合 rows 行并更新该列的剩余部分。
func (b *balancer) fit(ctx context.Context, lc LayoutContext, p Position, rows int) (BlockColumn, error) {
	col := b.col(p)
	if rows < 1 {
		rows = 1
	}
	expected := b.counts.ExpectedLength(p, ClassOf(lc, p), rows)
	b.log.Debug("fit column", "column", p, "target", rows, "expected", expected, "words", col.Len())
	fit, err := b.fitter.Fit(ctx, col, b.measureContext(lc, col), rows, expected)
	if err != nil {
		return BlockColumn{}, err
	}
	words := texts(col.Words()[:fit.Consumed])
	if fit.Hyphenated && fit.Head != nil {
		words = append(words, fit.Head.Text())
	}
	b.cols[p] = fit.Remainder
	return BlockColumn{
		Position:   p,
		Fragment:   fit.Fragment,
		Rows:       fit.Rows,
		Words:      words,
		Hyphenated: fit.Hyphenated,
	}, nil
}

func (b *balancer) measureContext(lc LayoutContext, col *Column) MeasureContext {
	return MeasureContext{Layout: lc, Target: col.Position(), Font: col.Font(), Ratios: b.ratios}
}

// assemble 按左→中→右的顺序拼出一个 paracol 块，仅在相邻的在场列之间插入切换指令。
func (b *balancer) assemble(lc LayoutContext, frags map[Position]string) (string, error) {
	header, err := Header(lc, b.ratios)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(header)
	sb.WriteString("\n\n")
	first := true
	for _, p := range Positions {
		if !lc.Has(p) {
			continue
		}
		if !first {
			sb.WriteString("\n\n\\switchcolumn\n\n")
		}
		first = false
		sb.WriteString(frags[p])
	}
	sb.WriteString("\n\n")
	sb.WriteString(Footer)
	sb.WriteString("\n\n")
	return sb.String(), nil
}

// fontRatio 返回 a/b；任一字号未配置时视为 1。
func fontRatio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 1
	}
	return a / b
}

func texts(words []*Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text()
	}
	return out
}

// countingOracle 统计测量调用次数。
type countingOracle struct {
	next  Oracle
	mu    sync.Mutex
	calls int
}

func (c *countingOracle) MeasureRows(ctx context.Context, fragment string, mc MeasureContext) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.next.MeasureRows(ctx, fragment, mc)
}

func (c *countingOracle) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
