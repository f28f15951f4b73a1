// Package plots renders the walkthrough diagnostics as PNG figures: trace
// plots, posterior histograms, and forest (interval) plots that make the
// partial-pooling shrinkage visible.
package plots

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/tmalloy/partialpool/diagnostics"
)

const (
	width  = 7 * vg.Inch
	height = 4 * vg.Inch
)

// Trace writes a trace plot for one parameter, one line per chain.
func Trace(path, param string, chains [][]float64) error {
	if len(chains) < 1 {
		return errors.Errorf("No chains to trace for %s", param)
	}

	p := plot.New()
	p.Title.Text = "Trace: " + param
	p.X.Label.Text = "draw"
	p.Y.Label.Text = param

	args := make([]interface{}, 0, len(chains)*2)
	for i, c := range chains {
		xys := make(plotter.XYs, len(c))
		for j, v := range c {
			xys[j].X = float64(j)
			xys[j].Y = v
		}
		args = append(args, fmt.Sprintf("chain %d", i+1), xys)
	}

	if err := plotutil.AddLines(p, args...); err != nil {
		return errors.Wrapf(err, "Could not build trace plot for %s", param)
	}

	return errors.Wrapf(p.Save(width, height, path), "Could not save trace plot %s", path)
}

// Histogram writes a normalized posterior histogram for one parameter.
func Histogram(path, param string, draws []float64) error {
	if len(draws) < 2 {
		return errors.Errorf("Only %d draws to plot for %s", len(draws), param)
	}

	p := plot.New()
	p.Title.Text = "Posterior: " + param
	p.X.Label.Text = param
	p.Y.Label.Text = "density"

	h, err := plotter.NewHist(plotter.Values(draws), 40)
	if err != nil {
		return errors.Wrapf(err, "Could not build histogram for %s", param)
	}
	h.Normalize(1)
	p.Add(h)

	return errors.Wrapf(p.Save(width, height, path), "Could not save histogram %s", path)
}

// forest glues the point estimates and interval widths together for the
// XErrorBars plotter.
type forestPoints struct {
	plotter.XYs
	plotter.XErrors
}

// Forest writes an interval plot: one row per summary, a point at the
// posterior mean with the compatibility interval as horizontal bars. When
// raw is non-nil (same length), the unpooled per-group estimates are drawn
// alongside so the shrinkage toward the population mean is visible.
func Forest(path, title string, sums []*diagnostics.Summary, raw []float64) error {
	if len(sums) < 1 {
		return errors.Errorf("No summaries for forest plot %s", title)
	}
	if raw != nil && len(raw) != len(sums) {
		return errors.Errorf("Have %d raw estimates for %d summaries", len(raw), len(sums))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "estimate"

	n := len(sums)
	pts := forestPoints{
		XYs:     make(plotter.XYs, n),
		XErrors: make(plotter.XErrors, n),
	}
	labels := make([]string, n)
	for i, s := range sums {
		// Top row first
		row := float64(n - 1 - i)
		pts.XYs[i].X = s.Mean
		pts.XYs[i].Y = row
		pts.XErrors[i].Low = s.Mean - s.Lo
		pts.XErrors[i].High = s.Hi - s.Mean
		labels[n-1-i] = s.Name
	}

	bars, err := plotter.NewXErrorBars(pts)
	if err != nil {
		return errors.Wrapf(err, "Could not build interval bars for %s", title)
	}
	means, err := plotter.NewScatter(pts.XYs)
	if err != nil {
		return errors.Wrapf(err, "Could not build mean points for %s", title)
	}
	p.Add(bars, means)

	if raw != nil {
		rawXYs := make(plotter.XYs, n)
		for i, v := range raw {
			rawXYs[i].X = v
			rawXYs[i].Y = float64(n-1-i) + 0.18
		}
		rawPts, err := plotter.NewScatter(rawXYs)
		if err != nil {
			return errors.Wrapf(err, "Could not build raw points for %s", title)
		}
		rawPts.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(rawPts)
		p.Legend.Add("unpooled", rawPts)
		p.Legend.Top = true
	}

	p.NominalY(labels...)

	return errors.Wrapf(p.Save(width, height, path), "Could not save forest plot %s", path)
}
