package layout

// Attr 表示一种可由行内标记切换的样式属性。
type Attr int

const (
	AttrBold Attr = iota
	AttrItalic
	AttrUnderline
)

// attrOrder 是打开标记时的固定顺序。
var attrOrder = [...]Attr{AttrBold, AttrItalic, AttrUnderline}

func (a Attr) String() string {
	switch a {
	case AttrBold:
		return "bold"
	case AttrItalic:
		return "italic"
	case AttrUnderline:
		return "underline"
	default:
		return "unknown"
	}
}

// Command 返回该属性在 TeX 中的包裹命令（含左花括号）。
func (a Attr) Command() string {
	switch a {
	case AttrBold:
		return `\textbf{`
	case AttrItalic:
		return `\textit{`
	case AttrUnderline:
		return `\underline{`
	default:
		return "{"
	}
}

// Style 是三个互相独立的样式标志。按值传递，不在 Word 之间共享。
type Style struct {
	Bold      bool `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty" yaml:"italic,omitempty"`
	Underline bool `json:"underline,omitempty" yaml:"underline,omitempty"`
}

// Has 判断属性是否开启。
func (s Style) Has(a Attr) bool {
	switch a {
	case AttrBold:
		return s.Bold
	case AttrItalic:
		return s.Italic
	case AttrUnderline:
		return s.Underline
	}
	return false
}

// With 返回设置了某个属性后的新 Style。
func (s Style) With(a Attr, on bool) Style {
	switch a {
	case AttrBold:
		s.Bold = on
	case AttrItalic:
		s.Italic = on
	case AttrUnderline:
		s.Underline = on
	}
	return s
}

// IsPlain 表示没有任何样式。
func (s Style) IsPlain() bool { return s == Style{} }

// StyleState 是标注器与列渲染共用的开/闭状态机。
//
// 它记录当前打开的属性栈：关闭某个属性时，会先关闭压在它上面的属性，
// 再把仍需保留的属性重新打开，从而保证输出的花括号严格嵌套。
type StyleState struct {
	stack []Attr
}

// Current 返回当前生效的样式。
func (st *StyleState) Current() Style {
	var s Style
	for _, a := range st.stack {
		s = s.With(a, true)
	}
	return s
}

// Open 打开一个属性；已打开时不做任何事。
func (st *StyleState) Open(a Attr, emit func(a Attr, opening bool)) {
	if st.Current().Has(a) {
		return
	}
	st.stack = append(st.stack, a)
	if emit != nil {
		emit(a, true)
	}
}

// Close 关闭一个属性；未打开时不做任何事。
func (st *StyleState) Close(a Attr, emit func(a Attr, opening bool)) {
	st.Transition(st.Current().With(a, false), emit)
}

// Transition 把状态切换到 next，并按嵌套顺序回调需要输出的开/闭标记。
func (st *StyleState) Transition(next Style, emit func(a Attr, opening bool)) {
	cut := len(st.stack)
	for i, a := range st.stack {
		if !next.Has(a) {
			cut = i
			break
		}
	}
	var reopen []Attr
	for i := len(st.stack) - 1; i >= cut; i-- {
		a := st.stack[i]
		if emit != nil {
			emit(a, false)
		}
		if next.Has(a) {
			reopen = append(reopen, a)
		}
	}
	st.stack = st.stack[:cut]
	for i := len(reopen) - 1; i >= 0; i-- {
		st.Open(reopen[i], emit)
	}
	for _, a := range attrOrder {
		if next.Has(a) {
			st.Open(a, emit)
		}
	}
}

// CloseAll 关闭全部已打开的属性。
func (st *StyleState) CloseAll(emit func(a Attr, opening bool)) {
	st.Transition(Style{}, emit)
}

// Depth 返回当前打开的属性数量。
func (st *StyleState) Depth() int { return len(st.stack) }
