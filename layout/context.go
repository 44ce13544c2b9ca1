package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Position 是三条文本流之一。
type Position int

const (
	Left Position = iota
	Center
	Right
)

// Positions 按左→中→右的固定顺序列出全部位置。
var Positions = [...]Position{Left, Center, Right}

func (p Position) String() string {
	switch p {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// MarshalText 让 Position 在 JSON/YAML 中以名称出现。
func (p Position) MarshalText() ([]byte, error) {
	if p < Left || p > Right {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColumn, int(p))
	}
	return []byte(p.String()), nil
}

// ParsePosition 把列名解析为 Position。
func ParsePosition(name string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return Left, nil
	case "center":
		return Center, nil
	case "right":
		return Right, nil
	}
	return Left, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// WidthClass 是字符数表使用的列宽分类。
type WidthClass string

const (
	WidthNone      WidthClass = ""
	WidthOneThird  WidthClass = "one_third"
	WidthHalf      WidthClass = "half"
	WidthTwoThirds WidthClass = "two_thirds"
)

// LayoutContext 记录当前哪些列仍有内容，每轮由列状态重新计算。
type LayoutContext struct {
	Left   bool `json:"left" yaml:"left"`
	Center bool `json:"center" yaml:"center"`
	Right  bool `json:"right" yaml:"right"`
}

// Has 判断某列是否参与当前布局。
func (c LayoutContext) Has(p Position) bool {
	switch p {
	case Left:
		return c.Left
	case Center:
		return c.Center
	case Right:
		return c.Right
	}
	return false
}

// Count 返回参与布局的列数。
func (c LayoutContext) Count() int {
	n := 0
	for _, p := range Positions {
		if c.Has(p) {
			n++
		}
	}
	return n
}

// Only 返回只包含 p 的上下文。
func Only(p Position) LayoutContext {
	var c LayoutContext
	switch p {
	case Left:
		c.Left = true
	case Center:
		c.Center = true
	case Right:
		c.Right = true
	}
	return c
}

func (c LayoutContext) String() string {
	var parts []string
	for _, p := range Positions {
		if c.Has(p) {
			parts = append(parts, p.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Ratios 是 paracol 列宽比例。
type Ratios struct {
	Third      float64 `json:"third" yaml:"one_third" mapstructure:"one_third"`
	TwoThirds  float64 `json:"twoThirds" yaml:"two_thirds" mapstructure:"two_thirds"`
	LeftCenter float64 `json:"leftCenter" yaml:"left_center" mapstructure:"left_center"`
	Half       float64 `json:"half" yaml:"half" mapstructure:"half"`
}

// DefaultRatios 返回经验调校过的默认比例。
func DefaultRatios() Ratios {
	return Ratios{Third: 0.32, TwoThirds: 0.675, LeftCenter: 0.31, Half: 0.5}
}

func (r Ratios) orDefault() Ratios {
	d := DefaultRatios()
	if r.Third <= 0 {
		r.Third = d.Third
	}
	if r.TwoThirds <= 0 {
		r.TwoThirds = d.TwoThirds
	}
	if r.LeftCenter <= 0 {
		r.LeftCenter = d.LeftCenter
	}
	if r.Half <= 0 {
		r.Half = d.Half
	}
	return r
}

// Fraction 返回 p 在上下文 c 中占页面宽度的比例；p 不在 c 中时返回 0。
func (r Ratios) Fraction(c LayoutContext, p Position) float64 {
	r = r.orDefault()
	if !c.Has(p) {
		return 0
	}
	switch {
	case c.Left && c.Center && c.Right:
		return r.Third
	case c.Left && c.Center:
		if p == Left {
			return r.LeftCenter
		}
		return 1 - r.LeftCenter
	case c.Left && c.Right:
		return r.Half
	case c.Center && c.Right:
		if p == Center {
			return r.TwoThirds
		}
		return 1 - r.TwoThirds
	default:
		return 1
	}
}

// Header 返回打开 paracol 环境的指令（含 \columnratio）。
func Header(c LayoutContext, r Ratios) (string, error) {
	r = r.orDefault()
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case c.Left && c.Center && c.Right:
		return `\columnratio{` + f(r.Third) + "," + f(r.Third) + "," + f(r.Third) + "}\n" + `\begin{paracol}{3}`, nil
	case c.Left && c.Center:
		return `\columnratio{` + f(r.LeftCenter) + "}\n" + `\begin{paracol}{2}`, nil
	case c.Left && c.Right:
		return `\columnratio{` + f(r.Half) + "," + f(r.Half) + "}\n" + `\begin{paracol}{2}`, nil
	case c.Center && c.Right:
		return `\columnratio{` + f(r.TwoThirds) + "}\n" + `\begin{paracol}{2}`, nil
	case c.Left || c.Center || c.Right:
		return `\columnratio{1}` + "\n" + `\begin{paracol}{1}`, nil
	}
	return "", fmt.Errorf("%w: 布局中没有任何列", ErrUnknownColumn)
}

// Footer 关闭 paracol 环境。
const Footer = `\end{paracol}`

// SwitchTo 返回从首个在场列切换到 p 的指令，测量单列片段时使用。
func SwitchTo(c LayoutContext, p Position) string {
	n := 0
	for _, q := range Positions {
		if q >= p {
			break
		}
		if c.Has(q) {
			n++
		}
	}
	switch {
	case n == 0:
		return ""
	case n == 1:
		return `\switchcolumn`
	default:
		return `\switchcolumn[` + strconv.Itoa(n) + `]`
	}
}

// ClassOf 返回 p 在上下文 c 中的列宽分类。
func ClassOf(c LayoutContext, p Position) WidthClass {
	if c.Left {
		if c.Center {
			if c.Right {
				return WidthOneThird
			}
			if p == Left {
				return WidthOneThird
			}
			return WidthTwoThirds
		}
		if c.Right {
			return WidthHalf
		}
		return WidthNone
	}
	if c.Center && c.Right {
		if p == Center {
			return WidthTwoThirds
		}
		return WidthOneThird
	}
	return WidthNone
}
