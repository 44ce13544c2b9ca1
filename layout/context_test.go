package layout

import (
	"errors"
	"testing"
)

func TestHeader(t *testing.T) {
	cases := []struct {
		lc   LayoutContext
		want string
	}{
		{LayoutContext{true, true, true}, "\\columnratio{0.32,0.32,0.32}\n\\begin{paracol}{3}"},
		{LayoutContext{true, true, false}, "\\columnratio{0.31}\n\\begin{paracol}{2}"},
		{LayoutContext{true, false, true}, "\\columnratio{0.5,0.5}\n\\begin{paracol}{2}"},
		{LayoutContext{false, true, true}, "\\columnratio{0.675}\n\\begin{paracol}{2}"},
		{LayoutContext{true, false, false}, "\\columnratio{1}\n\\begin{paracol}{1}"},
		{LayoutContext{false, false, true}, "\\columnratio{1}\n\\begin{paracol}{1}"},
	}
	for _, c := range cases {
		got, err := Header(c.lc, Ratios{})
		if err != nil {
			t.Fatalf("%s: %v", c.lc, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %q want %q", c.lc, got, c.want)
		}
	}
	if _, err := Header(LayoutContext{}, Ratios{}); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("空布局应返回 ErrUnknownColumn，实际 %v", err)
	}
}

func TestSwitchTo(t *testing.T) {
	all := LayoutContext{true, true, true}
	if got := SwitchTo(all, Left); got != "" {
		t.Fatalf("左列不需要切换: %q", got)
	}
	if got := SwitchTo(all, Center); got != `\switchcolumn` {
		t.Fatalf("中列切换错误: %q", got)
	}
	if got := SwitchTo(all, Right); got != `\switchcolumn[2]` {
		t.Fatalf("右列切换错误: %q", got)
	}
	if got := SwitchTo(LayoutContext{Left: true, Right: true}, Right); got != `\switchcolumn` {
		t.Fatalf("左右布局的右列切换错误: %q", got)
	}
	if got := SwitchTo(LayoutContext{Center: true, Right: true}, Center); got != "" {
		t.Fatalf("无左列时中列不需要切换: %q", got)
	}
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		lc   LayoutContext
		p    Position
		want WidthClass
	}{
		{LayoutContext{true, true, true}, Center, WidthOneThird},
		{LayoutContext{true, true, false}, Left, WidthOneThird},
		{LayoutContext{true, true, false}, Center, WidthTwoThirds},
		{LayoutContext{true, false, true}, Right, WidthHalf},
		{LayoutContext{false, true, true}, Center, WidthTwoThirds},
		{LayoutContext{false, true, true}, Right, WidthOneThird},
		{LayoutContext{true, false, false}, Left, WidthNone},
		{LayoutContext{false, true, false}, Center, WidthNone},
	}
	for _, c := range cases {
		if got := ClassOf(c.lc, c.p); got != c.want {
			t.Fatalf("%s/%s: got %q want %q", c.lc, c.p, got, c.want)
		}
	}
}

func TestRatiosFraction(t *testing.T) {
	r := DefaultRatios()
	if got := r.Fraction(LayoutContext{Center: true, Right: true}, Right); got < 0.324 || got > 0.326 {
		t.Fatalf("中右布局右列比例错误: %g", got)
	}
	if got := r.Fraction(LayoutContext{Left: true}, Center); got != 0 {
		t.Fatalf("不在场的列比例应为 0: %g", got)
	}
}

func TestParsePosition(t *testing.T) {
	p, err := ParsePosition(" Right ")
	if err != nil || p != Right {
		t.Fatalf("解析 right 失败: %v %v", p, err)
	}
	if _, err := ParsePosition("margin"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("未知列名应返回 ErrUnknownColumn，实际 %v", err)
	}
}
