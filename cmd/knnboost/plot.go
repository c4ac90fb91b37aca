package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/Noofbiz/knnboost/datasets"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func newPlotCmd(g *globalFlags) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Write a predicted-vs-actual scatter for the test split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd)
			if err != nil {
				return err
			}
			ev, err := evaluate(cfg, logger)
			if err != nil {
				return err
			}
			if _, m := ev.test.Y.Dims(); target < 0 || target >= m {
				return fmt.Errorf("target %d out of range [0, %d)", target, m)
			}

			name := fmt.Sprintf("target %d", target)
			if target < len(ev.test.TargetNames) {
				name = ev.test.TargetNames[target]
			}
			path := filepath.Join(cfg.Output.Dir, cfg.Output.Plot)
			err = plotPredictions(path, name,
				columnXYs(ev.test.Y, ev.baseline, target),
				columnXYs(ev.test.Y, ev.boosted, target),
			)
			if err != nil {
				return err
			}
			logger.Info("plot written",
				slog.String("path", path),
				slog.Float64("booster_r2", ev.boostedR2),
				slog.Float64("baseline_r2", ev.baselineR2),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", 0, "index of the target column to plot")
	return cmd
}

// columnXYs pairs column j of actual (X) with column j of predicted (Y).
func columnXYs(actual, predicted mat.Matrix, j int) plotter.XYs {
	r, _ := actual.Dims()
	xys := make(plotter.XYs, r)
	for i := range xys {
		xys[i].X = actual.At(i, j)
		xys[i].Y = predicted.At(i, j)
	}
	return xys
}

// plotPredictions writes a PNG with baseline predictions (grey), booster
// predictions (blue) and the identity line.
func plotPredictions(path, target string, baseline, boosted plotter.XYs) error {
	p := plot.New()
	p.Title.Text = "Predicted vs actual: " + target
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"

	base, err := plotter.NewScatter(baseline)
	if err != nil {
		return err
	}
	base.GlyphStyle.Color = color.RGBA{R: 120, G: 120, B: 120, A: 180}
	base.GlyphStyle.Radius = vg.Points(1.8)
	p.Add(base)
	p.Legend.Add("baseline", base)

	boost, err := plotter.NewScatter(boosted)
	if err != nil {
		return err
	}
	boost.GlyphStyle.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	boost.GlyphStyle.Radius = vg.Points(2.4)
	p.Add(boost)
	p.Legend.Add("booster", boost)

	all := append(append(plotter.XYs{}, baseline...), boosted...)
	lo, hi := autoRange(all)
	ident, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return err
	}
	ident.Color = color.RGBA{R: 200, G: 30, B: 30, A: 160}
	ident.Width = vg.Points(0.8)
	ident.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(ident)
	p.Legend.Add("y = x", ident)

	p.Add(plotter.NewGrid())
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min, p.Y.Max = lo, hi

	if _, err := datasets.EnsureParent(path); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// autoRange returns a padded range covering every X and Y so both axes can
// share it.
func autoRange(xys plotter.XYs) (lo, hi float64) {
	if len(xys) == 0 {
		return -1, 1
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range xys {
		lo = min(lo, p.X, p.Y)
		hi = max(hi, p.X, p.Y)
	}
	pad := (hi - lo) * 0.06
	if pad == 0 {
		pad = 1.0
	}
	return lo - pad, hi + pad
}
