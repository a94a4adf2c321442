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
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestReadOutput(t *testing.T) {
	o, err := ReadOutputFile("testdata/output.csv")
	if err != nil {
		t.Fatal(err)
	}
	if o.Len() != 3 {
		t.Fatalf("have %d rows, want 3", o.Len())
	}
	want := []string{"H", "H2", "CO", "#CO", "@CO", "HCO+", "E-", "BULK", "SURFACE"}
	if have := OutputSpecies(o); !reflect.DeepEqual(have, want) {
		t.Errorf("species: have %v, want %v", have, want)
	}
	times, err := o.Floats(TimeColumn)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(times, []float64{0, 1e3, 1e5}) {
		t.Errorf("times: have %v", times)
	}
}

func TestReadOutputComments(t *testing.T) {
	o, err := ReadOutput(strings.NewReader("! model run 1\nTime,Density,CO\n0,1e4,1e-4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Time", "Density", "CO"}; !reflect.DeepEqual(o.Names(), want) {
		t.Errorf("have %v, want %v", o.Names(), want)
	}
}

func TestReadOutputTimeOrder(t *testing.T) {
	_, err := ReadOutput(strings.NewReader("Time,CO\n0,1\n10,1\n10,1\n"))
	if err == nil {
		t.Error("expected an error for repeated times")
	}
	_, err = ReadOutput(strings.NewReader("Density,CO\n0,1\n"))
	if err == nil {
		t.Error("expected an error for a missing time column")
	}
}

func TestAbundanceCombined(t *testing.T) {
	o, err := ReadOutputFile("testdata/output.csv")
	if err != nil {
		t.Fatal(err)
	}
	v, err := Abundance(o, "$CO")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1.5e-5 + 5.0e-6, 5.0e-5 + 3.0e-5}
	for i := range want {
		if math.Abs(v[i]-want[i]) > 1e-20 {
			t.Errorf("row %d: have %g, want %g", i, v[i], want[i])
		}
	}
	if _, err := Abundance(o, "$H2O"); err == nil {
		t.Error("expected an error for a species without ice columns")
	}
}

func TestAddDerived(t *testing.T) {
	o, err := ReadOutputFile("testdata/output.csv")
	if err != nil {
		t.Fatal(err)
	}
	if err := AddDerived(o, "H_total", "H + 2 * H2"); err != nil {
		t.Fatal(err)
	}
	v := o.Column("H_total").Float64
	if v[0] != 1.0 || v[1] != 1.0 {
		t.Errorf("have %v", v)
	}
	if err := AddDerived(o, "bad", "[#H2O] * 2"); err == nil {
		t.Error("expected an error for an undefined column")
	}
}

func TestElementalTotals(t *testing.T) {
	o, err := ReadOutputFile("testdata/output.csv")
	if err != nil {
		t.Fatal(err)
	}
	totals, err := ElementalTotals(o, DefaultElements())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"H", "C", "O", "E-"}; !reflect.DeepEqual(totals.Names(), want) {
		t.Fatalf("names: have %v, want %v", totals.Names(), want)
	}
	// Row 0: H + 2*H2 + HCO+ = 0.5 + 0.5 + 0.
	if h := totals.Column("H").Float64[0]; math.Abs(h-1.0) > 1e-12 {
		t.Errorf("H: have %g, want 1", h)
	}
	// Row 2: CO + #CO + @CO + HCO+.
	want := 2.0e-5 + 5.0e-5 + 3.0e-5 + 2.0e-9
	if c := totals.Column("C").Float64[2]; math.Abs(c-want) > 1e-15 {
		t.Errorf("C: have %g, want %g", c, want)
	}
}
