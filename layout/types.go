package layout

import "strings"

// 该文件定义布局结果，供组装、渲染与调试输出共用。

// Phase 是列均衡状态机的状态。
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseFourRow
	PhaseOneRow
	PhaseEqualizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "INITIAL"
	case PhaseFourRow:
		return "FOUR_ROW_BLOCK"
	case PhaseOneRow:
		return "ONE_ROW_BLOCK"
	case PhaseEqualizing:
		return "EQUALIZING"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText 让 Phase 在调试输出中以名称出现。
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Streams 是三条输入文本流，缺失的列可以为 nil。
type Streams struct {
	Left   *Column
	Center *Column
	Right  *Column
}

func (s Streams) column(p Position) *Column {
	var c *Column
	switch p {
	case Left:
		c = s.Left
	case Center:
		c = s.Center
	case Right:
		c = s.Right
	}
	if c == nil {
		c = &Column{pos: p}
	}
	if c.pos != p {
		c = NewColumn(p, c.words, c.font)
	}
	return c
}

// Result 保存布局后的块序列。
type Result struct {
	Blocks       []Block `json:"blocks" yaml:"blocks"`
	Measurements int     `json:"measurements" yaml:"measurements"`
}

// Block 是最终文档中的一个分栏块。
type Block struct {
	Phase    Phase         `json:"phase" yaml:"phase"`
	Layout   LayoutContext `json:"layout" yaml:"layout"`
	Columns  []BlockColumn `json:"columns" yaml:"columns"`
	Shortest *Position     `json:"shortest,omitempty" yaml:"shortest,omitempty"`
	TeX      string        `json:"tex" yaml:"tex"`
}

// BlockColumn 是块中某一列的片段。
type BlockColumn struct {
	Position   Position `json:"position" yaml:"position"`
	Fragment   string   `json:"fragment" yaml:"fragment"`
	Rows       int      `json:"rows" yaml:"rows"`
	Words      []string `json:"words" yaml:"words"`
	Hyphenated bool     `json:"hyphenated,omitempty" yaml:"hyphenated,omitempty"`
}

// Column 返回块中位于 p 的列片段。
func (b Block) Column(p Position) (BlockColumn, bool) {
	for _, c := range b.Columns {
		if c.Position == p {
			return c, true
		}
	}
	return BlockColumn{}, false
}

// TeX 按顺序拼接所有块。
func (r *Result) TeX() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range r.Blocks {
		b.WriteString(block.TeX)
	}
	return b.String()
}
