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
package uclchemutil

import (
	"math"
	"reflect"
	"testing"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
)

func shareTables(t *testing.T, cols map[string][]float64, order ...string) *rates.Tables {
	prod := uclchemtools.NewTable(uclchemtools.TimeColumn, []float64{1, 2})
	for _, n := range order {
		if err := prod.AddFloat64(n, cols[n]); err != nil {
			t.Fatal(err)
		}
	}
	tt := rates.EmptyTables()
	tt.Production = prod
	tt.Destruction = prod.Copy()
	return tt
}

func TestOrderShares(t *testing.T) {
	nan := math.NaN()
	run := shareTables(t, map[string][]float64{
		"A": {0.1, 0.1},
		"B": {0.6, nan},
		"C": {0.4, 0.9},
	}, "A", "B", "C")
	ref := shareTables(t, map[string][]float64{
		"A": {0.9, 0.8},
		"D": {0.1, 0.2},
	}, "D", "A")

	prod := run.Production
	p, d := orderShares(run, nil)
	if have, want := p.Names(), []string{"C", "B", "A"}; !reflect.DeepEqual(have, want) {
		t.Errorf("own order: have %v, want %v", have, want)
	}
	if !reflect.DeepEqual(d.Names(), p.Names()) {
		t.Errorf("destruction order: have %v", d.Names())
	}
	if have := prod.Names(); !reflect.DeepEqual(have, []string{"A", "B", "C"}) {
		t.Errorf("input table was reordered: %v", have)
	}

	p, _ = orderShares(run, ref)
	if have, want := p.Names(), []string{"A", "C", "B"}; !reflect.DeepEqual(have, want) {
		t.Errorf("reference order: have %v, want %v", have, want)
	}
	if have := ref.Production.Names(); !reflect.DeepEqual(have, []string{"D", "A"}) {
		t.Errorf("reference table was reordered: %v", have)
	}
}
