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
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ElementalTotals returns the total abundance of each element at every
// timestep of an output table, indexed by time. Columns that are not
// species or that cannot be decomposed with the element table (such as
// BULK and SURFACE) are ignored. Elements that occur in none of the
// species are left out.
func ElementalTotals(t *Table, elements *ElementTable) (*Table, error) {
	var species []string
	for _, s := range OutputSpecies(t) {
		if s == BulkSpecies || s == SurfaceSpecies {
			continue
		}
		if _, err := elements.Atoms(s); err == nil {
			species = append(species, s)
		}
	}
	times, err := t.Floats(TimeColumn)
	if err != nil {
		return nil, err
	}
	out := NewTable(TimeColumn, append([]float64{}, times...))
	if len(species) == 0 || t.Len() == 0 {
		return out, nil
	}
	occ, err := elements.Occurrences(species, true)
	if err != nil {
		return nil, err
	}
	if len(occ.Columns) == 0 {
		return out, nil
	}

	abundance := mat.NewDense(t.Len(), len(species), nil)
	for j, s := range species {
		v, err := t.Floats(s)
		if err != nil {
			return nil, err
		}
		abundance.SetCol(j, v)
	}
	composition := mat.NewDense(len(species), len(occ.Columns), nil)
	for j, c := range occ.Columns {
		for i := range species {
			composition.Set(i, j, float64(c.Int32[i]))
		}
	}
	var totals mat.Dense
	totals.Mul(abundance, composition)
	for j, c := range occ.Columns {
		v := mat.Col(nil, j, &totals)
		if err := out.AddFloat64(c.Name, v); err != nil {
			return nil, fmt.Errorf("uclchemtools: elemental totals: %v", err)
		}
	}
	return out, nil
}
