package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/subalterngames/talmudifier/layout"
	"github.com/subalterngames/talmudifier/markup"
)

type calibrateOptions struct {
	sample string
	trials int
	seed   uint64
	out    string
}

var calibrateOpts = calibrateOptions{trials: 20, seed: 1}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "测量每种列宽单行可容纳的字符数",
	Long: `calibrate 用样本文本测量每列在三种列宽下单行能放下多少字符，
输出可直接并入配方的 character_counts。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd.ErrOrStderr(), verbose)
		return runCalibrate(cmd.Context(), calibrateOpts, logger)
	},
}

func init() {
	f := calibrateCmd.Flags()
	f.StringVarP(&calibrateOpts.sample, "sample", "s", "", "样本文本文件（必填）")
	f.IntVarP(&calibrateOpts.trials, "trials", "n", calibrateOpts.trials, "每个分类的随机轮数")
	f.Uint64Var(&calibrateOpts.seed, "seed", calibrateOpts.seed, "打乱样本用的随机种子")
	f.StringVarP(&calibrateOpts.out, "out", "o", "", "输出 YAML 路径，为空时写到标准输出")
	_ = calibrateCmd.MarkFlagRequired("sample")
}

var widthClasses = []layout.WidthClass{layout.WidthOneThird, layout.WidthHalf, layout.WidthTwoThirds}

func runCalibrate(ctx context.Context, opts calibrateOptions, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rcp, err := loadRecipe(recipePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.sample)
	if err != nil {
		return fmt.Errorf("读取样本失败: %w", err)
	}
	hy, err := loadHyphenator(rcp)
	if err != nil {
		return err
	}
	eng, err := newEngine(rcp, backend.resolve(rcp), "", logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	for _, p := range layout.Positions {
		words, err := markup.Annotate(string(data), rcp.WordOptions(p, hy))
		if err != nil {
			return fmt.Errorf("标注样本失败: %w", err)
		}
		for _, w := range widthClasses {
			lc, ok := layout.CalibrationContext(w, p)
			if !ok {
				continue
			}
			mc := layout.MeasureContext{Layout: lc, Target: p, Ratios: rcp.Ratios()}
			n, err := layout.Calibrate(ctx, eng.oracle, mc, rcp.Font(p), words, opts.trials, rng)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", w, p, err)
			}
			logger.Info("校准", "width", w, "column", p, "chars", n)
			rcp.SetExpectedLength(p, w, 1, n)
		}
	}

	out, err := yaml.Marshal(map[string]any{"character_counts": rcp.CharacterCounts})
	if err != nil {
		return fmt.Errorf("序列化字符数失败: %w", err)
	}
	return writeOutput(opts.out, out)
}
