// Package visualize renders networks and run statistics to image files.
package visualize

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/lucadivit/neat-gdg/neat/nn"
)

// NetOptions controls DrawNet.
type NetOptions struct {
	Title     string
	NodeNames map[int]string // labels; unnamed nodes show their key
	Width     vg.Length
	Height    vg.Length
}

// DrawNet renders the network to path; the format follows the extension
// (png, svg, pdf, ...). Inputs are drawn as grey boxes, outputs as filled
// blue circles and hidden nodes as white circles. Edges are green for
// positive and red for negative weights, thicker for larger magnitudes.
func DrawNet(net *nn.FeedForwardNetwork, path string, opts NetOptions) error {
	if opts.Width == 0 {
		opts.Width = 6 * vg.Inch
	}
	if opts.Height == 0 {
		opts.Height = 4 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.HideAxes()

	layers := net.Layers()
	pos := make(map[int]plotter.XY)
	tallest := 0
	for col, layer := range layers {
		tallest = max(tallest, len(layer))
		for row, key := range layer {
			pos[key] = plotter.XY{
				X: float64(col),
				Y: float64(len(layer)-1)/2 - float64(row),
			}
		}
	}

	for _, e := range net.Edges() {
		from, ok1 := pos[e.From]
		to, ok2 := pos[e.To]
		if !ok1 || !ok2 {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{from, to})
		if err != nil {
			return fmt.Errorf("edge %d->%d: %w", e.From, e.To, err)
		}
		line.Color = edgeColor(e.Weight)
		line.Width = vg.Points(1 + 5*(0.1+math.Abs(e.Weight)/5))
		p.Add(line)
	}

	isOutput := make(map[int]bool, len(net.OutputKeys))
	for _, k := range net.OutputKeys {
		isOutput[k] = true
	}
	isInput := make(map[int]bool, len(net.InputKeys))
	for _, k := range net.InputKeys {
		isInput[k] = true
	}

	var inputs, outputs, hidden plotter.XYs
	var labelXYs plotter.XYs
	var labels []string
	for _, layer := range layers {
		for _, key := range layer {
			xy := pos[key]
			switch {
			case isInput[key]:
				inputs = append(inputs, xy)
			case isOutput[key]:
				outputs = append(outputs, xy)
			default:
				hidden = append(hidden, xy)
			}
			name, ok := opts.NodeNames[key]
			if !ok {
				name = strconv.Itoa(key)
			}
			labelXYs = append(labelXYs, xy)
			labels = append(labels, name)
		}
	}

	groups := []struct {
		xys   plotter.XYs
		shape draw.GlyphDrawer
		fill  color.Color
	}{
		{inputs, draw.BoxGlyph{}, colornames.Lightgray},
		{hidden, draw.RingGlyph{}, colornames.Black},
		{outputs, draw.CircleGlyph{}, colornames.Lightblue},
	}
	for _, g := range groups {
		if len(g.xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(g.xys)
		if err != nil {
			return err
		}
		s.GlyphStyle.Shape = g.shape
		s.GlyphStyle.Color = g.fill
		s.GlyphStyle.Radius = vg.Points(10)
		p.Add(s)
	}

	l, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels})
	if err != nil {
		return err
	}
	l.Offset = vg.Point{X: -vg.Points(6), Y: vg.Points(14)}
	p.Add(l)

	p.X.Min, p.X.Max = -0.5, float64(len(layers)-1)+0.5
	half := float64(tallest) / 2
	p.Y.Min, p.Y.Max = -half-0.5, half+0.5

	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("failed to save diagram '%s': %w", path, err)
	}
	return nil
}

func edgeColor(weight float64) color.Color {
	if weight > 0 {
		return colornames.Green
	}
	return colornames.Red
}
