package texrenderer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/subalterngames/talmudifier/layout"
)

// Extractor 返回 PDF 的纯文本。
type Extractor func(ctx context.Context, pdfPath string) (string, error)

// PdfToText 使用 poppler 的 pdftotext 提取文本。
func PdfToText(bin string, run Runner) Extractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if run == nil {
		run = execRunner
	}
	return func(ctx context.Context, pdfPath string) (string, error) {
		out, err := run(ctx, bin, "-enc", "UTF-8", pdfPath, "-")
		if err != nil {
			return "", fmt.Errorf("pdftotext: %w", err)
		}
		return string(out), nil
	}
}

// measureJob 是测量文档的固定作业名，所有测量共用同一组文件。
const measureJob = "line_count"

// Oracle 通过编译带行号的 paracol 文档来测量片段行数。
// 测量共用一个工作文件，调用之间互斥。
type Oracle struct {
	compiler *Compiler
	preamble string
	extract  Extractor

	mu sync.Mutex
}

var _ layout.Oracle = (*Oracle)(nil)

// NewOracle 创建 XeLaTeX 测量后端。
func NewOracle(compiler *Compiler, preamble string, extract Extractor) *Oracle {
	if extract == nil {
		extract = PdfToText("", compiler.Run)
	}
	return &Oracle{compiler: compiler, preamble: preamble, extract: extract}
}

// MeasurementBody 把片段放进目标列，并用 lineno 为每一行编号。
func MeasurementBody(fragment string, mc layout.MeasureContext) (string, error) {
	header, err := layout.Header(mc.Layout, mc.Ratios)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(layout.SwitchTo(mc.Layout, mc.Target))
	b.WriteString(` \internallinenumbers \begin{linenumbers}`)
	b.WriteString(fragment)
	b.WriteString(`\end{linenumbers} \resetlinenumber[1]`)
	b.WriteString("\n\n")
	b.WriteString(layout.Footer)
	return b.String(), nil
}

// MeasureRows 实现 layout.Oracle。
func (o *Oracle) MeasureRows(ctx context.Context, fragment string, mc layout.MeasureContext) (int, error) {
	body, err := MeasurementBody(fragment, mc)
	if err != nil {
		return 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	pdfPath, err := o.compiler.Compile(ctx, Document(o.preamble, body), measureJob)
	if err != nil {
		return 0, err
	}
	text, err := o.extract(ctx, pdfPath)
	if err != nil {
		return 0, err
	}
	return RowCount(text), nil
}

// RowCount 读取 lineno 输出的最大行号；没有行号时返回 1。
func RowCount(text string) int {
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.TrimLeft(line, "0123456789") != "" {
			continue
		}
		if n, err := strconv.Atoi(line); err == nil && n > rows {
			rows = n
		}
	}
	return max(rows, 1)
}
