// Package texrenderer drives XeLaTeX: it measures fragments for the layout
// engine and writes the final document.
package texrenderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/subalterngames/talmudifier/layout"
)

var (
	// ErrUnbalancedBraces 表示文档的花括号不平衡，不会交给 xelatex。
	ErrUnbalancedBraces = errors.New("tex: 花括号不平衡")
	// ErrNoPDF 表示 xelatex 运行后没有生成 PDF。
	ErrNoPDF = errors.New("tex: 未生成 PDF")
)

const (
	beginDocument = `\begin{document}\begin{sloppypar}` + "\n\n"
	endDocument   = `\end{sloppypar}\end{document}`
)

// Document 拼接导言区、正文与结尾。
func Document(preamble, body string) string {
	return strings.TrimRight(preamble, "\n") + "\n" + beginDocument + body + endDocument
}

// Runner 运行外部命令并返回其输出。
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Compiler 把 TeX 文档编译为 PDF。
type Compiler struct {
	XeLaTeX string
	WorkDir string
	Run     Runner
	Logger  *slog.Logger

	once    sync.Once
	dir     string
	dirErr  error
	tempDir bool
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (c *Compiler) workDir() (string, error) {
	c.once.Do(func() {
		if c.WorkDir != "" {
			c.dir, c.dirErr = filepath.Abs(c.WorkDir)
			if c.dirErr == nil {
				c.dirErr = os.MkdirAll(c.dir, 0o755)
			}
			return
		}
		c.dir, c.dirErr = os.MkdirTemp("", "talmudifier-")
		c.tempDir = c.dirErr == nil
	})
	return c.dir, c.dirErr
}

// Close 删除 Compiler 自己创建的临时目录。
func (c *Compiler) Close() error {
	if c.tempDir {
		return os.RemoveAll(c.dir)
	}
	return nil
}

// Compile 把 doc 写成 job.tex 并运行 xelatex，返回 PDF 路径。
// 换行被替换为空格，花括号不平衡的文档直接拒绝。
func (c *Compiler) Compile(ctx context.Context, doc, job string) (string, error) {
	flat := strings.ReplaceAll(doc, "\n", " ")
	if d := layout.BraceDepth(flat); d != 0 {
		return "", fmt.Errorf("%w: 深度 %d", ErrUnbalancedBraces, d)
	}
	dir, err := c.workDir()
	if err != nil {
		return "", fmt.Errorf("准备工作目录失败: %w", err)
	}
	texPath := filepath.Join(dir, job+".tex")
	pdfPath := filepath.Join(dir, job+".pdf")
	if err := os.WriteFile(texPath, []byte(flat), 0o644); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", texPath, err)
	}
	_ = os.Remove(pdfPath)

	run := c.Run
	if run == nil {
		run = execRunner
	}
	bin := c.XeLaTeX
	if bin == "" {
		bin = "xelatex"
	}
	out, runErr := run(ctx, bin, "-interaction=nonstopmode", "-output-directory", dir, "-jobname", job, texPath)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if runErr != nil {
		// xelatex 在 nonstopmode 下遇到可恢复的错误也会返回非零，以 PDF 是否生成为准。
		c.logger().Debug("xelatex exited with error", "job", job, "err", runErr)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%w: %s\n%s", ErrNoPDF, pdfPath, tail(string(out), 20))
	}
	return pdfPath, nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
