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

package rates

import (
	"math"
	"reflect"
	"testing"

	"github.com/spatialmodel/uclchemtools"
)

func labels(c []Contribution) []string {
	var o []string
	for _, x := range c {
		o = append(o, x.Reaction)
	}
	return o
}

func TestSelectTop(t *testing.T) {
	s := SelectTop([]Contribution{
		{Reaction: "C", Rate: 0.1},
		{Reaction: "A", Rate: 0.6},
		{Reaction: "B", Rate: 0.3},
	}, 0.8)
	if want := []string{"A", "B"}; !reflect.DeepEqual(labels(s.Production), want) {
		t.Errorf("have %v, want %v", labels(s.Production), want)
	}
	if math.Abs(s.TotalProduction-1) > 1e-15 {
		t.Errorf("total production: have %g, want 1", s.TotalProduction)
	}
	if s.TotalDestruction != 0 || s.Destruction != nil {
		t.Errorf("destruction: have %g %v", s.TotalDestruction, s.Destruction)
	}
}

func TestSelectTopDestruction(t *testing.T) {
	s := SelectTop([]Contribution{
		{Reaction: "P", Rate: 2},
		{Reaction: "X", Rate: -1},
		{Reaction: "Y", Rate: -3},
		{Reaction: "X", Rate: -1},
	}, 0.5)
	if s.TotalDestruction != 5 {
		t.Errorf("total destruction: have %g, want 5", s.TotalDestruction)
	}
	want := []Contribution{{Reaction: "Y", Rate: -3}}
	if !reflect.DeepEqual(s.Destruction, want) {
		t.Errorf("have %v, want %v", s.Destruction, want)
	}
	s = SelectTop([]Contribution{{Reaction: "X", Rate: -1}, {Reaction: "Y", Rate: -3}, {Reaction: "X", Rate: -1}}, 0.7)
	want = []Contribution{{Reaction: "Y", Rate: -3}, {Reaction: "X", Rate: -2}}
	if !reflect.DeepEqual(s.Destruction, want) {
		t.Errorf("merged: have %v, want %v", s.Destruction, want)
	}
}

func TestSelectTopMonotonic(t *testing.T) {
	c := []Contribution{
		{Reaction: "a", Rate: 5}, {Reaction: "b", Rate: 1e-3}, {Reaction: "c", Rate: 0.2},
		{Reaction: "d", Rate: 2}, {Reaction: "e", Rate: -4}, {Reaction: "f", Rate: -0.5},
		{Reaction: "g", Rate: -1e-6}, {Reaction: "h", Rate: 0.7},
	}
	prev := 0
	for _, th := range []float64{0, 0.1, 0.3, 0.5, 0.7, 0.9, 0.99, 0.9999, 1} {
		n := len(SelectTop(c, th).Reactions())
		if n < prev {
			t.Errorf("threshold %g selects %d reactions, fewer than %d", th, n, prev)
		}
		prev = n
	}
	if prev != len(c) {
		t.Errorf("threshold 1 selects %d of %d reactions", prev, len(c))
	}
}

func TestSelectTopTies(t *testing.T) {
	s := SelectTop([]Contribution{{Reaction: "b", Rate: 1}, {Reaction: "a", Rate: 1}}, 0.4)
	if want := []string{"a"}; !reflect.DeepEqual(labels(s.Production), want) {
		t.Errorf("have %v, want %v", labels(s.Production), want)
	}
}

func TestAssemble(t *testing.T) {
	recs := []Record{
		{Time: 1, TotalProduction: 2, TotalDestruction: 4,
			Production:  []Share{{Reaction: "A", Share: 0.75}, {Reaction: "B", Share: 0.25}},
			Destruction: []Share{{Reaction: "X", Share: 1}}},
		{Time: 2, TotalProduction: 3, TotalDestruction: 1,
			Production:  []Share{{Reaction: "C", Share: 1}},
			Destruction: []Share{{Reaction: "X", Share: 1}}},
	}
	tables, err := Assemble(recs)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{TotalProductionColumn, TotalDestructionColumn}; !reflect.DeepEqual(tables.Summary.Names(), want) {
		t.Errorf("summary columns: have %v", tables.Summary.Names())
	}
	if !reflect.DeepEqual(tables.Summary.Index, []float64{1, 2}) {
		t.Errorf("index: have %v", tables.Summary.Index)
	}
	dest, _ := tables.Summary.Floats(TotalDestructionColumn)
	if !reflect.DeepEqual(dest, []float64{4, 1}) {
		t.Errorf("total destruction: have %v", dest)
	}
	if want := []string{"A", "B", "C"}; !reflect.DeepEqual(tables.Production.Names(), want) {
		t.Errorf("production columns: have %v, want %v", tables.Production.Names(), want)
	}
	a, _ := tables.Production.Floats("A")
	if a[0] != 0.75 || !math.IsNaN(a[1]) {
		t.Errorf("A: have %v", a)
	}
	x, _ := tables.Destruction.Floats("X")
	if !reflect.DeepEqual(x, []float64{1, 1}) {
		t.Errorf("X: have %v", x)
	}
}

func TestAssembleEmpty(t *testing.T) {
	tables, err := Assemble(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tables.Empty() || !tables.Production.Empty() || !tables.Destruction.Empty() {
		t.Error("tables should be empty")
	}
}

func TestHighlight(t *testing.T) {
	have := Highlight("CO + CRP -> HCO+ + E-", "co")
	if want := "**CO** + CRP -> HCO+ + E-"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestSortByIntersection(t *testing.T) {
	nan := math.NaN()
	ref := uclchemtools.NewTable(uclchemtools.TimeColumn, []float64{1, 2})
	ref.AddFloat64("A", []float64{0.1, 0.1})
	ref.AddFloat64("B", []float64{0.5, nan})
	ref.AddFloat64("R", []float64{0.9, 0.9})
	other := uclchemtools.NewTable(uclchemtools.TimeColumn, []float64{1, 2})
	other.AddFloat64("O", []float64{nan, nan})
	other.AddFloat64("A", []float64{0.9, 0.9})
	other.AddFloat64("P", []float64{0.2, 0.2})
	other.AddFloat64("B", []float64{0.1, 0.1})

	common := SortByIntersection(ref, other)
	if want := []string{"B", "A"}; !reflect.DeepEqual(common, want) {
		t.Errorf("common: have %v, want %v", common, want)
	}
	if want := []string{"B", "A", "R"}; !reflect.DeepEqual(ref.Names(), want) {
		t.Errorf("ref: have %v, want %v", ref.Names(), want)
	}
	if want := []string{"B", "A", "P", "O"}; !reflect.DeepEqual(other.Names(), want) {
		t.Errorf("other: have %v, want %v", other.Names(), want)
	}
}
