package texrenderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/subalterngames/talmudifier/layout"
)

// fakeXeLaTeX 记录参数，并在 -output-directory 下写出 job.pdf。
type fakeXeLaTeX struct {
	calls   [][]string
	sources []string
	noPDF   bool
}

func (f *fakeXeLaTeX) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	var dir, job string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-output-directory":
			dir = args[i+1]
		case "-jobname":
			job = args[i+1]
		}
	}
	src, err := os.ReadFile(args[len(args)-1])
	if err != nil {
		return nil, err
	}
	f.sources = append(f.sources, string(src))
	if f.noPDF {
		return []byte("! Undefined control sequence.\n"), errors.New("exit status 1")
	}
	return nil, os.WriteFile(filepath.Join(dir, job+".pdf"), []byte("%PDF"), 0o644)
}

func TestMeasurementBody(t *testing.T) {
	mc := layout.MeasureContext{
		Layout: layout.LayoutContext{Left: true, Center: true, Right: true},
		Target: layout.Right,
	}
	body, err := MeasurementBody(`\leftfont a b`, mc)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	want := `\columnratio{0.32,0.32,0.32}` + "\n" + `\begin{paracol}{3}` + "\n" +
		`\switchcolumn[2] \internallinenumbers \begin{linenumbers}\leftfont a b\end{linenumbers} \resetlinenumber[1]` +
		"\n\n" + `\end{paracol}`
	if body != want {
		t.Fatalf("unexpected body:\n%s\nwant:\n%s", body, want)
	}
	if _, err := MeasurementBody("x", layout.MeasureContext{}); !errors.Is(err, layout.ErrUnknownColumn) {
		t.Fatalf("empty layout should fail, got %v", err)
	}
}

func TestRowCount(t *testing.T) {
	cases := map[string]int{
		"1\nlorem ipsum\n2\ndolor\n3\nsit\n\n1\n": 3,
		"no numbers here":                        1,
		"":                                       1,
		" 12 \n12:3\n7\n":                        12,
	}
	for text, want := range cases {
		if got := RowCount(text); got != want {
			t.Fatalf("RowCount(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestOracleCompilesAndCounts(t *testing.T) {
	fake := &fakeXeLaTeX{}
	c := &Compiler{WorkDir: t.TempDir(), Run: fake.run}
	var extracted string
	o := NewOracle(c, `\documentclass{book}`, func(_ context.Context, path string) (string, error) {
		extracted = path
		return "1\n2\n3\n4\n1\n", nil
	})
	mc := layout.MeasureContext{Layout: layout.LayoutContext{Left: true, Right: true}, Target: layout.Left}
	rows, err := o.MeasureRows(context.Background(), "some words\nhere", mc)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if rows != 4 {
		t.Fatalf("expected 4 rows, got %d", rows)
	}
	if filepath.Base(extracted) != "line_count.pdf" {
		t.Fatalf("unexpected pdf path %s", extracted)
	}
	src := fake.sources[0]
	if strings.Contains(src, "\n") {
		t.Fatalf("line breaks should be flattened")
	}
	if !strings.HasPrefix(src, `\documentclass{book} \begin{document}\begin{sloppypar}`) ||
		!strings.HasSuffix(src, `\end{sloppypar}\end{document}`) {
		t.Fatalf("unexpected document %q", src)
	}
	args := fake.calls[0]
	if args[0] != "xelatex" || args[1] != "-interaction=nonstopmode" {
		t.Fatalf("unexpected command %v", args)
	}
}

func TestCompileErrors(t *testing.T) {
	fake := &fakeXeLaTeX{}
	c := &Compiler{WorkDir: t.TempDir(), Run: fake.run}
	if _, err := c.Compile(context.Background(), `\textbf{a`, "x"); !errors.Is(err, ErrUnbalancedBraces) {
		t.Fatalf("expected ErrUnbalancedBraces, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("unbalanced documents must not reach xelatex")
	}
	fake.noPDF = true
	_, err := c.Compile(context.Background(), `\textbf{a}`, "x")
	if !errors.Is(err, ErrNoPDF) || !strings.Contains(err.Error(), "Undefined control sequence") {
		t.Fatalf("expected ErrNoPDF with log tail, got %v", err)
	}
}

func TestCompilerTempDir(t *testing.T) {
	fake := &fakeXeLaTeX{}
	c := &Compiler{Run: fake.run}
	path, err := c.Compile(context.Background(), "a", "job")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("temp dir should be removed, stat err=%v", err)
	}
}

func TestRendererSource(t *testing.T) {
	res := &layout.Result{Blocks: []layout.Block{{TeX: "\nBLOCK1\n"}, {TeX: "BLOCK2\n"}}}
	r := &Renderer{Preamble: "PRE\n", Chapter: `\chapter*{T}`}
	out, err := r.Render(context.Background(), res)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "PRE\n" + `\begin{document}\begin{sloppypar}` + "\n\n" + `\chapter*{T}` + "\n\nBLOCK1\nBLOCK2\n" + `\end{sloppypar}\end{document}`
	if string(out) != want {
		t.Fatalf("unexpected source:\n%q\nwant\n%q", out, want)
	}

	fake := &fakeXeLaTeX{}
	r.PDF = true
	r.Compiler = &Compiler{WorkDir: t.TempDir(), Run: fake.run}
	out, err = r.Render(context.Background(), res)
	if err != nil || string(out) != "%PDF" {
		t.Fatalf("pdf render: %q %v", out, err)
	}
	if got := fake.calls[0][len(fake.calls[0])-2]; got != "talmudifier" {
		t.Fatalf("unexpected job name %q", got)
	}
}
