package visualize

import (
	"fmt"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lucadivit/neat-gdg/neat"
)

// PlotStats draws the best and average fitness per generation, with the
// average plus and minus one standard deviation.
func PlotStats(stats *neat.StatisticsReporter, path string) error {
	best := stats.GetBestFitness()
	avg := stats.GetFitnessMean()
	stdev := stats.GetFitnessStdev()
	if len(best) == 0 {
		return fmt.Errorf("no generations to plot")
	}

	bestPts := make(plotter.XYs, len(best))
	avgPts := make(plotter.XYs, len(avg))
	lowPts := make(plotter.XYs, len(avg))
	highPts := make(plotter.XYs, len(avg))
	for i := range best {
		x := float64(i)
		bestPts[i] = plotter.XY{X: x, Y: best[i]}
		avgPts[i] = plotter.XY{X: x, Y: avg[i]}
		lowPts[i] = plotter.XY{X: x, Y: avg[i] - stdev[i]}
		highPts[i] = plotter.XY{X: x, Y: avg[i] + stdev[i]}
	}

	p := plot.New()
	p.Title.Text = "Population's average and best fitness"
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Fitness"

	series := []struct {
		name string
		xys  plotter.XYs
		line func(*plotter.Line)
	}{
		{"average", avgPts, func(l *plotter.Line) { l.Color = colornames.Blue }},
		{"-1 sd", lowPts, func(l *plotter.Line) {
			l.Color = colornames.Green
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}},
		{"+1 sd", highPts, func(l *plotter.Line) {
			l.Color = colornames.Green
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}},
		{"best", bestPts, func(l *plotter.Line) { l.Color = colornames.Red }},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return err
		}
		s.line(line)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save fitness plot '%s': %w", path, err)
	}
	return nil
}
