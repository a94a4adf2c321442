/*
Copyright © 2024 the uclchemtools authors.
This file is part of uclchemtools.

uclchemtools is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

uclchemtools is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with uclchemtools.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package chemplot draws static plots of chemical model output and rate
// tables.
package chemplot

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default figure size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// ErrNoData is returned when there is nothing to draw on a plot.
var ErrNoData = errors.New("chemplot: no positive values to plot")

// positive returns the points of x and y where both are finite and
// greater than zero, which are the only ones that can be drawn on
// logarithmic axes.
func positive(x, y []float64) plotter.XYs {
	var xy plotter.XYs
	for i := range x {
		if x[i] > 0 && y[i] > 0 && !math.IsInf(x[i], 0) && !math.IsInf(y[i], 0) {
			xy = append(xy, struct{ X, Y float64 }{X: x[i], Y: y[i]})
		}
	}
	return xy
}

func newLogPlot(title, ylabel string, logY bool) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = title
	p.X.Label.Text = "Time (years)"
	p.Y.Label.Text = ylabel
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{}
	if logY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	}
	p.Legend.Top = true
	return p, nil
}

// addLine adds a line of the positive points of x and y to p. It returns
// false if there were none.
func addLine(p *plot.Plot, i int, label string, x, y []float64) (bool, error) {
	xy := positive(x, y)
	if len(xy) == 0 {
		return false, nil
	}
	l, err := plotter.NewLine(xy)
	if err != nil {
		return false, err
	}
	l.Color = plotutil.Color(i)
	l.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
	l.Width = vg.Points(1)
	p.Add(l)
	p.Legend.Add(label, l)
	return true, nil
}

// Abundances plots the abundance of each species against time for each
// of the given runs, on logarithmic axes. Combined ice species such as
// "$CO" are drawn as the sum of their surface and bulk abundances. Runs
// are drawn in the order of their names.
func Abundances(runs map[string]*uclchemtools.Table, species []string) (*plot.Plot, error) {
	names := make([]string, 0, len(runs))
	for n := range runs {
		names = append(names, n)
	}
	sort.Strings(names)

	p, err := newLogPlot("Abundances", "Fractional abundance", true)
	if err != nil {
		return nil, err
	}
	var i int
	var drawn bool
	for _, run := range names {
		t := runs[run]
		times, err := t.Floats(uclchemtools.TimeColumn)
		if err != nil {
			return nil, fmt.Errorf("chemplot: run %s: %v", run, err)
		}
		for _, s := range species {
			v, err := uclchemtools.Abundance(t, s)
			if err != nil {
				return nil, fmt.Errorf("chemplot: run %s: %v", run, err)
			}
			label := s
			if len(names) > 1 {
				label = run + ": " + s
			}
			ok, err := addLine(p, i, label, times, v)
			if err != nil {
				return nil, err
			}
			drawn = drawn || ok
			i++
		}
	}
	if !drawn {
		return nil, ErrNoData
	}
	return p, nil
}

// Shares plots the fraction of the production or destruction of a
// species carried by each reaction in t, which is a production or
// destruction table from the rates package. Timesteps at which a
// reaction was not selected are left out of its line. The y axis is
// linear from 0 to 1.
func Shares(t *uclchemtools.Table, title string) (*plot.Plot, error) {
	if t.Len() == 0 || len(t.Columns) == 0 {
		return nil, ErrNoData
	}
	p, err := newLogPlot(title, "Share of total rate", false)
	if err != nil {
		return nil, err
	}
	var drawn bool
	for i, c := range t.Columns {
		if c.Kind == uclchemtools.String {
			continue
		}
		v := make([]float64, c.Len())
		for j := range v {
			v[j] = c.Float(j)
		}
		ok, err := addLine(p, i, c.Name, t.Index, v)
		if err != nil {
			return nil, err
		}
		drawn = drawn || ok
	}
	if !drawn {
		return nil, ErrNoData
	}
	p.Y.Min = 0
	p.Y.Max = 1
	return p, nil
}

// Totals plots the total production and destruction rates of a species
// from a summary table, on logarithmic axes.
func Totals(summary *uclchemtools.Table) (*plot.Plot, error) {
	p, err := newLogPlot("Total rates", "Rate (cm⁻³ s⁻¹)", true)
	if err != nil {
		return nil, err
	}
	var drawn bool
	for i, name := range []string{rates.TotalProductionColumn, rates.TotalDestructionColumn} {
		v, err := summary.Floats(name)
		if err != nil {
			return nil, fmt.Errorf("chemplot: %v", err)
		}
		ok, err := addLine(p, i, name, summary.Index, v)
		if err != nil {
			return nil, err
		}
		drawn = drawn || ok
	}
	if !drawn {
		return nil, ErrNoData
	}
	return p, nil
}

// Save writes p to path at the default size. The image format is chosen
// from the file extension.
func Save(p *plot.Plot, path string) error {
	return p.Save(Width, Height, path)
}
