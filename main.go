package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/subalterngames/talmudifier/recipe"
)

var (
	recipePath string
	verbose    bool
	backend    backendValue
)

var rootCmd = &cobra.Command{
	Use:   "talmudifier",
	Short: "把三列文本排成塔木德式版面",
	Long: `talmudifier 把左、中、右三列文本交错排版，使三列在每一块结束时尽量等高。

示例:
  talmudifier build --input page.md --out page.tex
  talmudifier build --input page.md --out page.pdf --recipe recipe.yaml
  talmudifier build --left l.txt --center c.txt --right r.txt --oracle text --out page.txt
  talmudifier calibrate --sample words.txt --recipe recipe.yaml`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&recipePath, "recipe", "r", "", "配方文件（YAML/JSON/TOML），为空时使用默认配方")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "在标准错误上输出调试日志")
	rootCmd.PersistentFlags().Var(&backend, "oracle", "测量后端：tex、canvas 或 text（默认取配方 engine.backend）")
	rootCmd.AddCommand(buildCmd, calibrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("talmudifier: %v", err)
	}
}

// backendValue 是 --oracle 的取值，只接受已知的后端名。
type backendValue string

var _ pflag.Value = (*backendValue)(nil)

func (b *backendValue) String() string { return string(*b) }

func (b *backendValue) Set(s string) error {
	switch s {
	case recipe.BackendTeX, recipe.BackendCanvas, recipe.BackendText:
		*b = backendValue(s)
		return nil
	}
	return fmt.Errorf("未知的后端 %q（可选 tex、canvas、text）", s)
}

func (b *backendValue) Type() string { return "backend" }

// resolve 返回命令行指定的后端，未指定时取配方中的设置。
func (b backendValue) resolve(r *recipe.Recipe) string {
	if b != "" {
		return string(b)
	}
	return r.Engine.Backend
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadRecipe(path string) (*recipe.Recipe, error) {
	if path == "" {
		return recipe.Default()
	}
	r, err := recipe.Load(path)
	if err != nil {
		return nil, fmt.Errorf("加载配方 %s 失败: %w", path, err)
	}
	return r, nil
}

// stdout 便于测试替换。
var stdout io.Writer = os.Stdout
