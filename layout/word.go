package layout

import (
	"strings"
	"sync"
)

// Split 是连字权威给出的一个断点：Head 不带连字符。
type Split struct {
	Head string
	Tail string
}

// Hyphenator 按偏好顺序返回单词的可选断点，不可拆分时返回空。
type Hyphenator interface {
	Splits(word string) []Split
}

// CitationRule 尝试把记号改写为引文命令。
type CitationRule interface {
	Apply(token string) (string, bool)
}

// Substituter 对词文本做替换。
type Substituter interface {
	Substitute(text string) string
}

// WordOptions 是构造 Word 所需的协作者，均可为空。
type WordOptions struct {
	Citation      CitationRule
	Hyphenator    Hyphenator
	Substitutions Substituter
}

// Pair 是一个连字拆分：Head 的文本以连字符结尾，Tail 为剩余部分。
type Pair struct {
	Head *Word
	Tail *Word
}

// Word 是不可变的排版单元。
type Word struct {
	text      string
	raw       string
	style     Style
	smallCaps bool
	citation  bool

	opts  WordOptions
	once  sync.Once
	pairs []Pair
}

// NewWord 根据原始记号构造 Word。引文规则优先：命中后样式清空且不再计算连字。
func NewWord(raw string, style Style, smallCaps bool, opts WordOptions) *Word {
	if opts.Citation != nil {
		if text, ok := opts.Citation.Apply(raw); ok {
			w := &Word{text: text, raw: raw, citation: true}
			w.once.Do(func() {})
			return w
		}
	}
	return &Word{
		text:      finishText(raw, opts.Substitutions),
		raw:       raw,
		style:     style,
		smallCaps: smallCaps,
		opts:      opts,
	}
}

// Literal 构造一个无样式、无连字的词，主要用于测试与校准。
func Literal(text string) *Word {
	return NewWord(text, Style{}, false, WordOptions{})
}

func finishText(s string, sub Substituter) string {
	if sub != nil {
		s = sub.Substitute(s)
	}
	switch {
	case strings.HasPrefix(s, `"`):
		s = "``" + s[1:]
	case strings.HasPrefix(s, "'"):
		s = "`" + s[1:]
	}
	return s
}

// Text 返回可直接写入 TeX 的文本。
func (w *Word) Text() string { return w.text }

// Raw 返回构造时的原始记号。
func (w *Word) Raw() string { return w.raw }

// Style 返回词的样式。
func (w *Word) Style() Style { return w.style }

// SmallCaps 表示词以小型大写字母渲染。
func (w *Word) SmallCaps() bool { return w.smallCaps }

// IsCitation 表示词是引文。
func (w *Word) IsCitation() bool { return w.citation }

// Len 返回文本的字符数，供长度预估使用。
func (w *Word) Len() int { return len([]rune(w.text)) }

// Pairs 返回按偏好排列的连字拆分，首次调用时计算并缓存。
func (w *Word) Pairs() []Pair {
	w.once.Do(func() {
		if w.citation || w.opts.Hyphenator == nil {
			return
		}
		for _, s := range w.opts.Hyphenator.Splits(w.raw) {
			if s.Head == "" || s.Tail == "" {
				continue
			}
			w.pairs = append(w.pairs, Pair{
				Head: w.fragment(finishText(s.Head, w.opts.Substitutions) + "-"),
				Tail: w.fragment(finishText(s.Tail, w.opts.Substitutions)),
			})
		}
	})
	return w.pairs
}

// fragment 构造继承样式、不再拆分的片段词。
func (w *Word) fragment(text string) *Word {
	f := &Word{text: text, raw: text, style: w.style, smallCaps: w.smallCaps}
	f.once.Do(func() {})
	return f
}

func (w *Word) String() string { return w.text }
