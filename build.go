package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subalterngames/talmudifier/fonts"
	"github.com/subalterngames/talmudifier/hyphen"
	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/markup"
	"github.com/subalterngames/talmudifier/recipe"
	"github.com/subalterngames/talmudifier/renderer"
	canvasrenderer "github.com/subalterngames/talmudifier/renderer/canvas"
	texrenderer "github.com/subalterngames/talmudifier/renderer/tex"
	textrenderer "github.com/subalterngames/talmudifier/renderer/text"
	"github.com/subalterngames/talmudifier/source"
)

// 输出格式。
const (
	formatTeX    = "tex"
	formatPDF    = "pdf"
	formatCanvas = "canvas"
	formatText   = "text"
)

type buildOptions struct {
	input  string
	left   string
	center string
	right  string
	out    string
	format string
	debug  string
	title  string
}

var buildOpts buildOptions

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "排版三列文本并输出 TeX、PDF 或文本预览",
	Long: `build 读取三列文本，逐块平衡列高，然后输出结果。

输入可以是一个 Markdown 文件（以 "# Left"、"# Center"、"# Right" 标题分列），
也可以用 --left/--center/--right 分别给出三个文件。

输出格式默认由 --out 的扩展名推断：.pdf 用 xelatex 编译，.txt 输出文本预览，
其余输出 TeX 源码。--format canvas 输出不依赖 TeX 的 PDF 预览。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd.ErrOrStderr(), verbose)
		if err := runBuild(cmd.Context(), buildOpts, logger); err != nil {
			return err
		}
		if buildOpts.out != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "已生成：%s\n", buildOpts.out)
		}
		return nil
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildOpts.input, "input", "i", "", "Markdown 输入文件，- 表示标准输入")
	f.StringVar(&buildOpts.left, "left", "", "左列文本文件")
	f.StringVar(&buildOpts.center, "center", "", "中列文本文件")
	f.StringVar(&buildOpts.right, "right", "", "右列文本文件")
	f.StringVarP(&buildOpts.out, "out", "o", "", "输出路径，为空时写到标准输出")
	f.StringVarP(&buildOpts.format, "format", "f", "", "输出格式：tex、pdf、canvas 或 text")
	f.StringVar(&buildOpts.debug, "debug", "", "布局调试输出路径（.json 或 .yaml）")
	f.StringVar(&buildOpts.title, "title", "", "章节标题，覆盖输入中的一级标题")
	buildCmd.MarkFlagsMutuallyExclusive("input", "left")
	buildCmd.MarkFlagsMutuallyExclusive("input", "center")
	buildCmd.MarkFlagsMutuallyExclusive("input", "right")
}

// inferFormat 按输出扩展名推断格式。
func inferFormat(format, out string) (string, error) {
	if format != "" {
		switch format {
		case formatTeX, formatPDF, formatCanvas, formatText:
			return format, nil
		}
		return "", fmt.Errorf("未知的输出格式 %q", format)
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".pdf":
		return formatPDF, nil
	case ".txt":
		return formatText, nil
	}
	return formatTeX, nil
}

// runBuild 串联读取、标注、平衡与渲染。
func runBuild(ctx context.Context, opts buildOptions, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := inferFormat(opts.format, opts.out)
	if err != nil {
		return err
	}
	rcp, err := loadRecipe(recipePath)
	if err != nil {
		return err
	}
	doc, err := readDocument(opts)
	if err != nil {
		return err
	}
	title := opts.title
	if title == "" {
		title = doc.Title
	}

	hy, err := loadHyphenator(rcp)
	if err != nil {
		return err
	}
	streams, err := annotate(rcp, doc, hy)
	if err != nil {
		return err
	}

	eng, err := newEngine(rcp, backend.resolve(rcp), title, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := layout.Build(ctx, streams, layout.BuildOptions{
		Oracle: eng.oracle,
		Counts: rcp,
		Ratios: rcp.Ratios(),
		Tuning: rcp.Tuning(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	logger.Info("布局完成", "blocks", len(result.Blocks), "measurements", result.Measurements)

	if opts.debug != "" {
		if err := writeDebug(result, opts.debug); err != nil {
			return err
		}
	}

	r, err := eng.renderer(format, title)
	if err != nil {
		return err
	}
	out, err := r.Render(ctx, result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	return writeOutput(opts.out, out)
}

func readDocument(opts buildOptions) (*source.Document, error) {
	if opts.input != "" {
		if opts.input == "-" {
			return source.Read(os.Stdin)
		}
		file, err := os.Open(opts.input)
		if err != nil {
			return nil, fmt.Errorf("无法打开输入文件 %s: %w", opts.input, err)
		}
		defer file.Close()
		doc, err := source.Read(file)
		if err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", opts.input, err)
		}
		return doc, nil
	}
	paths := map[layout.Position]string{layout.Left: opts.left, layout.Center: opts.center, layout.Right: opts.right}
	doc := &source.Document{}
	for _, p := range layout.Positions {
		if paths[p] == "" {
			return nil, fmt.Errorf("缺少 --input，或 --left/--center/--right 之一（%s 列）", p)
		}
		data, err := os.ReadFile(paths[p])
		if err != nil {
			return nil, fmt.Errorf("读取 %s 列失败: %w", p, err)
		}
		doc.SetText(p, string(data))
	}
	return doc, nil
}

// loadHyphenator 在配置了模式文件时加载连字词典。
func loadHyphenator(rcp *recipe.Recipe) (layout.Hyphenator, error) {
	h := rcp.Hyphenation
	if h.Patterns == "" {
		return nil, nil
	}
	dict, err := hyphen.Load(h.Locale, h.Patterns, hyphen.WithMinimums(h.LeftMin, h.RightMin))
	if err != nil {
		return nil, fmt.Errorf("加载连字模式失败: %w", err)
	}
	return dict, nil
}

func annotate(rcp *recipe.Recipe, doc *source.Document, hy layout.Hyphenator) (layout.Streams, error) {
	cols := make(map[layout.Position]*layout.Column, len(layout.Positions))
	for _, p := range layout.Positions {
		words, err := markup.Annotate(doc.Text(p), rcp.WordOptions(p, hy))
		if err != nil {
			return layout.Streams{}, fmt.Errorf("标注 %s 列失败: %w", p, err)
		}
		cols[p] = layout.NewColumn(p, words, rcp.Font(p))
	}
	return layout.Streams{Left: cols[layout.Left], Center: cols[layout.Center], Right: cols[layout.Right]}, nil
}

// engine 持有测量后端及其需要释放的资源。
type engine struct {
	recipe   *recipe.Recipe
	logger   *slog.Logger
	oracle   layout.Oracle
	compiler *texrenderer.Compiler
	canvas   *canvasrenderer.Renderer
}

func newEngine(rcp *recipe.Recipe, name, title string, logger *slog.Logger) (*engine, error) {
	e := &engine{recipe: rcp, logger: logger}
	switch name {
	case recipe.BackendTeX:
		if err := rcp.ValidateFonts(); err != nil {
			return nil, fmt.Errorf("tex 后端: %w", err)
		}
		preamble, err := fonts.Preamble(rcp)
		if err != nil {
			return nil, err
		}
		e.oracle = texrenderer.NewOracle(e.texCompiler(), preamble, texrenderer.PdfToText(rcp.Engine.PdfToText, nil))
	case recipe.BackendCanvas:
		c, err := e.canvasRenderer(title)
		if err != nil {
			return nil, err
		}
		e.oracle = c
	case recipe.BackendText:
		e.oracle = e.textRenderer()
	default:
		return nil, fmt.Errorf("未知的后端 %q", name)
	}
	logger.Debug("测量后端", "backend", name)
	return e, nil
}

func (e *engine) texCompiler() *texrenderer.Compiler {
	if e.compiler == nil {
		e.compiler = &texrenderer.Compiler{
			XeLaTeX: e.recipe.Engine.XeLaTeX,
			WorkDir: e.recipe.Engine.WorkDir,
			Logger:  e.logger,
		}
	}
	return e.compiler
}

func (e *engine) canvasRenderer(title string) (*canvasrenderer.Renderer, error) {
	if e.canvas == nil {
		c, err := canvasrenderer.NewRenderer(canvasrenderer.Options{Recipe: e.recipe, Title: title})
		if err != nil {
			return nil, fmt.Errorf("canvas 后端: %w", err)
		}
		e.canvas = c
	}
	return e.canvas, nil
}

func (e *engine) textRenderer() *textrenderer.Renderer {
	return &textrenderer.Renderer{
		Columns:   e.recipe.Engine.TextColumns,
		Ratios:    e.recipe.Ratios(),
		Citations: e.recipe.CitationCommands(),
		Fonts:     e.recipe.Font,
	}
}

// renderer 返回输出格式对应的渲染器。
func (e *engine) renderer(format, title string) (renderer.Renderer, error) {
	switch format {
	case formatTeX, formatPDF:
		preamble, err := fonts.Preamble(e.recipe)
		if err != nil {
			return nil, err
		}
		r := &texrenderer.Renderer{Preamble: preamble, PDF: format == formatPDF}
		if title != "" {
			r.Chapter = e.recipe.ChapterCommand(title)
		}
		if r.PDF {
			r.Compiler = e.texCompiler()
		}
		return r, nil
	case formatCanvas:
		return e.canvasRenderer(title)
	case formatText:
		return e.textRenderer(), nil
	}
	return nil, fmt.Errorf("未知的输出格式 %q", format)
}

// Close 清理编译用的临时目录。
func (e *engine) Close() error {
	if e.compiler == nil {
		return nil
	}
	return e.compiler.Close()
}

func writeDebug(result *layout.Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebug(result, path); err != nil {
		return fmt.Errorf("输出调试信息失败: %w", err)
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}
