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
	"strings"

	"github.com/spatialmodel/uclchemtools"
)

// Summary table column names.
const (
	TotalProductionColumn  = "total_production"
	TotalDestructionColumn = "total_destruction"
)

// Tables holds the rate tables of one species, each indexed by time.
type Tables struct {
	// Summary has the columns total_production and total_destruction,
	// both non-negative.
	Summary *uclchemtools.Table

	// Production and Destruction have one column per reaction that was
	// selected at any timestep. Cells where a reaction was not selected
	// are NaN.
	Production, Destruction *uclchemtools.Table
}

// Empty returns whether the tables hold no timesteps.
func (t *Tables) Empty() bool {
	return t.Summary.Len() == 0
}

// EmptyTables returns three tables without rows or columns.
func EmptyTables() *Tables {
	return &Tables{
		Summary:     uclchemtools.NewTable(uclchemtools.TimeColumn, nil),
		Production:  uclchemtools.NewTable(uclchemtools.TimeColumn, nil),
		Destruction: uclchemtools.NewTable(uclchemtools.TimeColumn, nil),
	}
}

// Assemble collects the records of one species into rate tables. Rows
// follow the order of records, which must have distinct times. Reaction
// columns are in order of first selection.
func Assemble(records []Record) (*Tables, error) {
	if len(records) == 0 {
		return EmptyTables(), nil
	}
	times := make([]float64, len(records))
	prodTotal := make([]float64, len(records))
	destTotal := make([]float64, len(records))
	var prodCols, destCols []string
	for i, r := range records {
		times[i] = r.Time
		prodTotal[i] = r.TotalProduction
		destTotal[i] = r.TotalDestruction
		for _, s := range r.Production {
			prodCols = append(prodCols, s.Reaction)
		}
		for _, s := range r.Destruction {
			destCols = append(destCols, s.Reaction)
		}
	}

	summary := uclchemtools.NewTable(uclchemtools.TimeColumn, times)
	if err := summary.AddFloat64(TotalProductionColumn, prodTotal); err != nil {
		return nil, err
	}
	if err := summary.AddFloat64(TotalDestructionColumn, destTotal); err != nil {
		return nil, err
	}

	prod, err := uclchemtools.NewSparseTable(uclchemtools.TimeColumn, times, prodCols)
	if err != nil {
		return nil, err
	}
	dest, err := uclchemtools.NewSparseTable(uclchemtools.TimeColumn, times, destCols)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		for _, s := range r.Production {
			if err := prod.Set(r.Time, s.Reaction, s.Share); err != nil {
				return nil, err
			}
		}
		for _, s := range r.Destruction {
			if err := dest.Set(r.Time, s.Reaction, s.Share); err != nil {
				return nil, err
			}
		}
	}
	return &Tables{
		Summary:     summary,
		Production:  prod.Dense(),
		Destruction: dest.Dense(),
	}, nil
}

// Highlight returns a reaction label in which every occurrence of species
// as a reactant or product is marked as bold text.
func Highlight(reaction, species string) string {
	species = uclchemtools.Canonical(species)
	sides := strings.SplitN(reaction, " -> ", 2)
	for i, side := range sides {
		terms := strings.Split(side, " + ")
		for j, term := range terms {
			if term == species {
				terms[j] = "**" + term + "**"
			}
		}
		sides[i] = strings.Join(terms, " + ")
	}
	return strings.Join(sides, " -> ")
}
