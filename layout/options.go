package layout

import (
	"context"
	"log/slog"
)

// BuildOptions 配置布局阶段所需的依赖，例如测量后端。
type BuildOptions struct {
	Oracle Oracle
	Counts CharacterCounts
	Ratios Ratios
	Tuning *Tuning
	Logger *slog.Logger
}

// Tuning 是经验调校的常量，保留为可配置项。
type Tuning struct {
	InitialRows    int `json:"initialRows" yaml:"initial_rows" mapstructure:"initial_rows"`
	TransitionRows int `json:"transitionRows" yaml:"transition_rows" mapstructure:"transition_rows"`
	// RowPadding 在均衡阶段加到目标行数上，使结果略微溢出而不是不足。
	RowPadding int `json:"rowPadding" yaml:"row_padding" mapstructure:"row_padding"`
}

// DefaultTuning 返回默认的阶段行数与补偿。
func DefaultTuning() Tuning {
	return Tuning{InitialRows: 4, TransitionRows: 1, RowPadding: 1}
}

// MeasureContext 描述一次测量的排版环境。
type MeasureContext struct {
	Layout LayoutContext
	Target Position
	Font   Font
	Ratios Ratios
}

// Oracle 负责报告一段已渲染片段在给定布局中占用的行数。
//
// 实现必须满足：相同输入返回相同结果；向片段追加非空文本不会减少行数；
// 返回值至少为 1。每次调用都被视为昂贵操作。
type Oracle interface {
	MeasureRows(ctx context.Context, fragment string, mc MeasureContext) (int, error)
}

// OracleFunc 把普通函数适配为 Oracle。
type OracleFunc func(ctx context.Context, fragment string, mc MeasureContext) (int, error)

func (f OracleFunc) MeasureRows(ctx context.Context, fragment string, mc MeasureContext) (int, error) {
	return f(ctx, fragment, mc)
}

// CharacterCounts 提供按列、列宽分类与行数索引的预估字符数；未知时返回 -1。
type CharacterCounts interface {
	ExpectedLength(pos Position, width WidthClass, rows int) int
}

// NoCounts 总是返回 -1。
type NoCounts struct{}

func (NoCounts) ExpectedLength(Position, WidthClass, int) int { return -1 }

func (o BuildOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (o BuildOptions) tuning() Tuning {
	if o.Tuning != nil {
		return *o.Tuning
	}
	return DefaultTuning()
}

func (o BuildOptions) counts() CharacterCounts {
	if o.Counts != nil {
		return o.Counts
	}
	return NoCounts{}
}
