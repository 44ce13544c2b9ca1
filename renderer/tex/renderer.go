package texrenderer

import (
	"context"
	"fmt"
	"os"

	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/renderer"
)

// Renderer 输出最终文档：默认返回 TeX 源码，PDF 为真时返回编译后的 PDF。
type Renderer struct {
	Preamble string
	// Chapter 是放在正文最前面的章节命令，可为空。
	Chapter  string
	Compiler *Compiler
	PDF      bool
	Job      string
}

var _ renderer.Renderer = (*Renderer)(nil)

// Source 返回完整的 TeX 文档。
func (r *Renderer) Source(result *layout.Result) string {
	body := result.TeX()
	if r.Chapter != "" {
		body = r.Chapter + "\n" + body
	}
	return Document(r.Preamble, body)
}

// Render 实现 renderer.Renderer。
func (r *Renderer) Render(ctx context.Context, result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	doc := r.Source(result)
	if d := layout.BraceDepth(doc); d != 0 {
		return nil, fmt.Errorf("%w: 深度 %d", ErrUnbalancedBraces, d)
	}
	if !r.PDF {
		return []byte(doc), nil
	}
	if r.Compiler == nil {
		return nil, fmt.Errorf("输出 PDF 需要 xelatex 配置")
	}
	job := r.Job
	if job == "" {
		job = "talmudifier"
	}
	path, err := r.Compiler.Compile(ctx, doc, job)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 PDF 失败: %w", err)
	}
	return data, nil
}
