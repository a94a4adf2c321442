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

package export

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
	"github.com/tealeg/xlsx"
)

func TestVariableName(t *testing.T) {
	for name, want := range map[string]string{
		"CO":       "CO",
		"#CO":      "s_CO",
		"@H2O":     "b_H2O",
		"$CH3OH":   "t_CH3OH",
		"HCO+":     "HCO_plus",
		"E-":       "E_minus",
		"(CH3)2CO": "_CH3_2CO",
		"13CO":     "v_13CO",
	} {
		if have := VariableName(name); have != want {
			t.Errorf("%s: have %q, want %q", name, have, want)
		}
	}
}

func TestNetCDF(t *testing.T) {
	o, err := uclchemtools.ReadOutputFile("../testdata/output.csv")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "run.nc")
	if err := NetCDF(path, o, map[string]string{"run": "grid_0"}); err != nil {
		t.Fatal(err)
	}
	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		t.Fatal(err)
	}
	if have := f.Header.GetAttribute("", "run"); have != "grid_0" {
		t.Errorf("run attribute: have %v", have)
	}
	if have := f.Header.GetAttribute("s_CO", "species"); have != "#CO" {
		t.Errorf("species attribute: have %v", have)
	}
	r := f.Reader("s_CO", nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	if want := []float32{0, 1.5e-5, 5e-5}; !reflect.DeepEqual(buf, want) {
		t.Errorf("have %v, want %v", buf, want)
	}
	r = f.Reader("time", nil, nil)
	buf = r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	if want := []float64{0, 1e3, 1e5}; !reflect.DeepEqual(buf, want) {
		t.Errorf("time: have %v, want %v", buf, want)
	}
}

func TestXLSX(t *testing.T) {
	tables, err := rates.Assemble([]rates.Record{
		{Time: 1, TotalProduction: 2, TotalDestruction: 4,
			Production:  []rates.Share{{Reaction: "A", Share: 0.75}, {Reaction: "B", Share: 0.25}},
			Destruction: []rates.Share{{Reaction: "X", Share: 1}}},
		{Time: 2, TotalProduction: 3, TotalDestruction: 1,
			Production:  []rates.Share{{Reaction: "CO -> #CO", Share: 1}},
			Destruction: []rates.Share{{Reaction: "X", Share: 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "rates.xlsx")
	err = XLSX(path, map[string]*rates.Tables{
		"#CO":  tables,
		"BULK": rates.EmptyTables(),
	})
	if err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, sh := range f.Sheets {
		names = append(names, sh.Name)
	}
	if want := []string{"#CO total", "#CO production", "#CO destruction"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("sheets: have %v, want %v", names, want)
	}
	prod := f.Sheet["#CO production"]
	var header []string
	for _, c := range prod.Rows[0].Cells {
		header = append(header, c.Value)
	}
	if want := []string{"Time", "A", "B", "CO -> **#CO**"}; !reflect.DeepEqual(header, want) {
		t.Errorf("header: have %v, want %v", header, want)
	}
	v, err := prod.Rows[1].Cells[1].Float()
	if err != nil || math.Abs(v-0.75) > 1e-12 {
		t.Errorf("A at t=1: have %v (%v)", v, err)
	}
	if cells := prod.Rows[2].Cells; len(cells) > 1 && cells[1].Value != "" {
		t.Errorf("missing value written as %q", cells[1].Value)
	}
}

func TestXLSXEmpty(t *testing.T) {
	err := XLSX(filepath.Join(t.TempDir(), "rates.xlsx"), map[string]*rates.Tables{"BULK": rates.EmptyTables()})
	if err == nil {
		t.Error("expected an error for a workbook without sheets")
	}
}
