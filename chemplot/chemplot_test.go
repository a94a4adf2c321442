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

package chemplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
)

func loadOutput(t *testing.T) *uclchemtools.Table {
	o, err := uclchemtools.ReadOutputFile(filepath.Join("..", "testdata", "output.csv"))
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func checkSaved(t *testing.T, path string) {
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Errorf("%s is empty", path)
	}
}

func TestAbundances(t *testing.T) {
	o := loadOutput(t)
	p, err := Abundances(map[string]*uclchemtools.Table{"a": o, "b": o.Copy()}, []string{"CO", "$CO"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "abundances.png")
	if err := Save(p, path); err != nil {
		t.Fatal(err)
	}
	checkSaved(t, path)
}

func TestAbundancesMissing(t *testing.T) {
	o := loadOutput(t)
	if _, err := Abundances(map[string]*uclchemtools.Table{"a": o}, []string{"CH4"}); err == nil {
		t.Error("expected an error for a missing species")
	}
	o.AddFloat64("Z", make([]float64, o.Len()))
	if _, err := Abundances(map[string]*uclchemtools.Table{"a": o}, []string{"Z"}); err != ErrNoData {
		t.Errorf("have %v, want ErrNoData", err)
	}
}

func TestRatePlots(t *testing.T) {
	tables, err := rates.Assemble([]rates.Record{
		{Time: 1, TotalProduction: 2, TotalDestruction: 4,
			Production:  []rates.Share{{Reaction: "A", Share: 0.75}, {Reaction: "B", Share: 0.25}},
			Destruction: []rates.Share{{Reaction: "X", Share: 1}}},
		{Time: 10, TotalProduction: 3, TotalDestruction: 1,
			Production:  []rates.Share{{Reaction: "A", Share: 1}},
			Destruction: []rates.Share{{Reaction: "X", Share: 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	p, err := Shares(tables.Production, "CO production")
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(p, filepath.Join(dir, "production.png")); err != nil {
		t.Fatal(err)
	}
	checkSaved(t, filepath.Join(dir, "production.png"))

	p, err = Totals(tables.Summary)
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(p, filepath.Join(dir, "totals.png")); err != nil {
		t.Fatal(err)
	}
	checkSaved(t, filepath.Join(dir, "totals.png"))

	if _, err := Shares(rates.EmptyTables().Production, "empty"); err != ErrNoData {
		t.Errorf("have %v, want ErrNoData", err)
	}
}
