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

package uclchemtools

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/Knetic/govaluate"
)

// TimeColumn is the name of the simulation time column.
const TimeColumn = "Time"

// ReadOutput reads a UCLCHEM full output file: a csv table with one row
// per saved timestep. Lines starting with '!' are comments. Time must be
// strictly increasing.
func ReadOutput(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '!'
	t, err := readCSV(cr)
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: reading output: %v", err)
	}
	if err := CheckOutput(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadOutputFile reads a UCLCHEM full output file from disk.
func ReadOutputFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: %v", err)
	}
	defer f.Close()
	t, err := ReadOutput(f)
	if err != nil {
		return nil, fmt.Errorf("%v (file %s)", err, path)
	}
	return t, nil
}

// CheckOutput checks that t has a strictly increasing Time column and
// numeric abundance columns.
func CheckOutput(t *Table) error {
	tc := t.Column(TimeColumn)
	if tc == nil || tc.Kind == String {
		return fmt.Errorf("uclchemtools: output has no numeric %s column", TimeColumn)
	}
	for i := 1; i < tc.Len(); i++ {
		if !(tc.Float(i) > tc.Float(i-1)) {
			return fmt.Errorf("uclchemtools: output time is not strictly increasing at row %d (%g after %g)",
				i, tc.Float(i), tc.Float(i-1))
		}
	}
	for _, c := range t.Columns {
		if c.Kind == String && !IsReserved(c.Name) && t.Len() > 0 {
			return fmt.Errorf("uclchemtools: output column %q is not numeric", c.Name)
		}
	}
	return nil
}

// OutputSpecies returns the species abundance columns of an output table,
// which are all columns that are not reserved.
func OutputSpecies(t *Table) []string {
	var o []string
	for _, c := range t.Columns {
		if !IsReserved(c.Name) {
			o = append(o, c.Name)
		}
	}
	return o
}

type rowParameters struct {
	t *Table
	i int
}

func (p rowParameters) Get(name string) (interface{}, error) {
	c := p.t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("no column named %q", name)
	}
	return c.Float(p.i), nil
}

// Derive evaluates expr for every row of t and returns the result. Column
// names that contain operator characters must be written in brackets,
// for example "[#CO] + [@CO]".
func Derive(t *Table, expr string) ([]float64, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: parsing expression %q: %v", expr, err)
	}
	for _, v := range e.Vars() {
		if t.Column(v) == nil {
			return nil, fmt.Errorf("uclchemtools: expression %q: undefined variable %q", expr, v)
		}
	}
	o := make([]float64, t.Len())
	for i := range o {
		r, err := e.Eval(rowParameters{t: t, i: i})
		if err != nil {
			return nil, fmt.Errorf("uclchemtools: evaluating %q at row %d: %v", expr, i, err)
		}
		switch v := r.(type) {
		case float64:
			o[i] = v
		case bool:
			if v {
				o[i] = 1
			}
		default:
			o[i] = math.NaN()
		}
	}
	return o, nil
}

// AddDerived adds a column to t computed from expr.
func AddDerived(t *Table, name, expr string) error {
	v, err := Derive(t, expr)
	if err != nil {
		return err
	}
	return t.AddFloat64(name, v)
}

// Abundance returns the abundance time series of a species in an output
// table. For a combined species such as "$CO", it returns the sum of the
// surface and bulk abundances ("#CO" and "@CO").
func Abundance(t *Table, name string) ([]float64, error) {
	if !strings.HasPrefix(name, Combined) {
		return t.Floats(name)
	}
	bare := Bare(name)
	var terms []string
	for _, p := range []string{Frozen, Bulk} {
		if t.Column(p+bare) != nil {
			terms = append(terms, "["+p+bare+"]")
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("uclchemtools: output has no ice columns for %s", name)
	}
	return Derive(t, strings.Join(terms, " + "))
}
