package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Font 是列的字体上下文，命令与字号对核心算法而言是不透明的。
type Font struct {
	Command string  `json:"command" yaml:"command"`
	Size    float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Skip    float64 `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// SizeSpec 返回 \fontsize 指令；未配置字号时为空。
func (f Font) SizeSpec() string {
	if f.Size <= 0 {
		return ""
	}
	skip := f.Skip
	if skip <= 0 {
		skip = f.Size * 1.2
	}
	return `\fontsize{` + strconv.FormatFloat(f.Size, 'f', -1, 64) + `}{` +
		strconv.FormatFloat(skip, 'f', -1, 64) + `}\selectfont`
}

// prefix 是片段开头的字体切换。
func (f Font) prefix() string {
	p := f.SizeSpec() + f.Command
	if p == "" {
		return ""
	}
	return p + " "
}

// reset 是引文之后恢复列字体的指令。
func (f Font) reset() string {
	if f.Command == "" {
		return `\normalfont{}`
	}
	return f.Command + "{}"
}

// Column 是一条文本流的剩余词序列。创建后不再修改，消费前缀时返回新的 Column。
type Column struct {
	pos   Position
	words []*Word
	font  Font
}

// NewColumn 创建列；words 会被复制。
func NewColumn(pos Position, words []*Word, font Font) *Column {
	return &Column{pos: pos, words: append([]*Word(nil), words...), font: font}
}

// Position 返回列位置。
func (c *Column) Position() Position { return c.pos }

// Font 返回列的字体上下文。
func (c *Column) Font() Font { return c.font }

// Len 返回剩余词数。
func (c *Column) Len() int {
	if c == nil {
		return 0
	}
	return len(c.words)
}

// Empty 表示列已耗尽。
func (c *Column) Empty() bool { return c.Len() == 0 }

// Word 返回第 i 个词。
func (c *Column) Word(i int) *Word { return c.words[i] }

// Words 返回词序列的副本。
func (c *Column) Words() []*Word { return append([]*Word(nil), c.words...) }

// Rest 返回去掉前 n 个词后的新列。
func (c *Column) Rest(n int) *Column {
	if n > len(c.words) {
		n = len(c.words)
	}
	return NewColumn(c.pos, c.words[n:], c.font)
}

// RestWithHead 返回以 head 开头、接上第 n 个词之后内容的新列。
func (c *Column) RestWithHead(head *Word, n int) *Column {
	words := make([]*Word, 0, len(c.words)-n+1)
	words = append(words, head)
	if n < len(c.words) {
		words = append(words, c.words[n:]...)
	}
	return &Column{pos: c.pos, words: words, font: c.font}
}

// Exhausted 返回同位置、同字体的空列。
func (c *Column) Exhausted() *Column {
	return &Column{pos: c.pos, font: c.font}
}

// Render 渲染 [start, end) 区间内的词；end 为 -1 表示到末尾。
// closeStyles 为 true 时补齐所有仍打开的样式标记，并校验花括号平衡。
func (c *Column) Render(start, end int, closeStyles bool) (string, error) {
	return c.render(start, end, nil, closeStyles)
}

// RenderWith 与 Render 相同，但在末尾追加一个额外的词（例如连字片段）。
func (c *Column) RenderWith(start, end int, tail *Word) (string, error) {
	return c.render(start, end, tail, true)
}

func (c *Column) render(start, end int, tail *Word, closeStyles bool) (string, error) {
	if end < 0 || end > len(c.words) {
		end = len(c.words)
	}
	if start < 0 || start > end {
		return "", invariant(c.pos, start, fmt.Errorf("无效的词区间 [%d, %d)", start, end))
	}
	words := c.words[start:end]
	if tail != nil {
		words = append(append([]*Word(nil), words...), tail)
	}

	var b strings.Builder
	b.WriteString(c.font.prefix())
	var st StyleState
	var opens strings.Builder
	emit := func(a Attr, opening bool) {
		if opening {
			opens.WriteString(a.Command())
			return
		}
		b.WriteString(opens.String())
		opens.Reset()
		b.WriteString("}")
	}
	for i, w := range words {
		if w.IsCitation() {
			st.CloseAll(emit)
		} else {
			st.Transition(w.Style(), emit)
		}
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(opens.String())
		opens.Reset()
		switch {
		case w.IsCitation():
			b.WriteString(w.Text())
			b.WriteString(c.font.reset())
		case w.SmallCaps():
			b.WriteString(`\textsc{`)
			b.WriteString(w.Text())
			b.WriteString("}")
		default:
			b.WriteString(w.Text())
		}
	}
	if closeStyles {
		st.CloseAll(emit)
	}
	out := b.String()
	if closeStyles {
		if depth := BraceDepth(out); depth != 0 {
			return "", invariant(c.pos, start, fmt.Errorf("%w: 深度 %d", ErrUnbalancedMarkup, depth))
		}
	}
	return out, nil
}

// BraceDepth 返回未转义花括号的净深度：开括号数减去闭括号数。
func BraceDepth(s string) int {
	depth := 0
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '{':
			depth++
		case r == '}':
			depth--
		}
	}
	return depth
}
