/*
Copyright © 2024 the HydroChem authors.
This file is part of HydroChem.

HydroChem is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

HydroChem is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with HydroChem.  If not, see <http://www.gnu.org/licenses/>.
*/

package hydroutil

import (
	"fmt"
	"image/color"

	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
	"github.com/spatialmodel/hydrochem/science/ph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// PlotTrajectory saves a line plot of the concentration of each of ions
// over the days of traj to fileName. If ions is empty, all ions in the
// trajectory are plotted. If a is not nil and growth is limited, the day
// on which the solution runs out is marked. The image format is chosen
// from the file extension.
func PlotTrajectory(fileName string, traj growth.Trajectory, ions []hydrochem.Ion, a *growth.Analysis) error {
	if len(ions) == 0 {
		ions = traj.Ions()
	}
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("hydroutil: plotting trajectory: %v", err)
	}
	p.Title.Text = "Evolution of the solution"
	p.X.Label.Text = "Day"
	p.Y.Label.Text = "Concentration (g/L)"
	p.Legend.Top = true

	for n, i := range ions {
		s := traj.Series(i)
		xy := make(plotter.XYs, len(s))
		for d, v := range s {
			xy[d].X = float64(d)
			xy[d].Y = v
		}
		l, err := plotter.NewLine(xy)
		if err != nil {
			return fmt.Errorf("hydroutil: plotting %s: %v", i, err)
		}
		l.Color = plotutil.Color(n)
		l.Dashes = plotutil.Dashes(n / 7)
		p.Add(l)
		p.Legend.Add(i.String(), l)
	}
	if a != nil && !a.Sufficient && len(a.Missing) == 0 {
		_, _, _, ymax := plotter.XYRange(maxSeries(traj))
		l, err := plotter.NewLine(plotter.XYs{{X: float64(a.Days), Y: 0}, {X: float64(a.Days), Y: ymax}})
		if err != nil {
			return fmt.Errorf("hydroutil: plotting growth limit: %v", err)
		}
		l.Color = color.NRGBA{255, 0, 0, 255}
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("growth limit: insufficient %v", a.Limiting), l)
	}
	if err := p.Save(plotWidth, plotHeight, fileName); err != nil {
		return fmt.Errorf("hydroutil: saving trajectory plot: %v", err)
	}
	return nil
}

// maxSeries returns the largest concentration of each day of traj.
func maxSeries(traj growth.Trajectory) plotter.XYs {
	xy := make(plotter.XYs, len(traj))
	for d, day := range traj {
		xy[d].X = float64(d)
		for _, v := range day {
			if v > xy[d].Y {
				xy[d].Y = v
			}
		}
	}
	return xy
}

// PlotPH saves a plot of daily pH values to fileName, with the acceptable
// band drawn as horizontal lines and the days outside it marked.
func PlotPH(fileName string, values []float64, exceeded []int, band ph.Band) error {
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("hydroutil: plotting pH: %v", err)
	}
	p.Title.Text = "pH of the solution"
	p.X.Label.Text = "Day"
	p.Y.Label.Text = "pH"

	xy := make(plotter.XYs, len(values))
	for d, v := range values {
		xy[d].X = float64(d)
		xy[d].Y = v
	}
	l, err := plotter.NewLine(xy)
	if err != nil {
		return fmt.Errorf("hydroutil: plotting pH: %v", err)
	}
	l.Color = color.NRGBA{0, 0, 0, 255}
	p.Add(l)
	p.Legend.Add("pH", l)

	last := float64(len(values) - 1)
	if last < 1 {
		last = 1
	}
	for _, lim := range []float64{band.Min, band.Max} {
		bl, err := plotter.NewLine(plotter.XYs{{X: 0, Y: lim}, {X: last, Y: lim}})
		if err != nil {
			return fmt.Errorf("hydroutil: plotting pH band: %v", err)
		}
		bl.Color = color.NRGBA{0, 127, 0, 255}
		bl.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(bl)
	}

	if len(exceeded) > 0 {
		ex := make(plotter.XYs, len(exceeded))
		for i, d := range exceeded {
			ex[i].X = float64(d)
			ex[i].Y = values[d]
		}
		s, err := plotter.NewScatter(ex)
		if err != nil {
			return fmt.Errorf("hydroutil: plotting pH: %v", err)
		}
		s.Color = color.NRGBA{255, 0, 0, 255}
		s.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("outside range", s)
	}

	if err := p.Save(plotWidth, plotHeight, fileName); err != nil {
		return fmt.Errorf("hydroutil: saving pH plot: %v", err)
	}
	return nil
}
