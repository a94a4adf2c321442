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
	"math"

	"github.com/ctessum/sparse"
)

// SparseTable holds values keyed by a numeric row key and a column name
// where most cells are empty. Zero values are not stored and read back
// as absent.
type SparseTable struct {
	IndexName string

	rows   []float64
	cols   []string
	rowPos map[float64]int
	colPos map[string]int
	data   *sparse.SparseArray
}

// NewSparseTable creates a sparse table with the given row keys and
// columns. Row keys must be distinct; repeated column names are merged.
func NewSparseTable(indexName string, rows []float64, cols []string) (*SparseTable, error) {
	s := &SparseTable{
		IndexName: indexName,
		rowPos:    make(map[float64]int, len(rows)),
		colPos:    make(map[string]int, len(cols)),
	}
	for _, r := range rows {
		if _, ok := s.rowPos[r]; ok {
			return nil, fmt.Errorf("uclchemtools: duplicate row key %g", r)
		}
		s.rowPos[r] = len(s.rows)
		s.rows = append(s.rows, r)
	}
	for _, c := range cols {
		if _, ok := s.colPos[c]; ok {
			continue
		}
		s.colPos[c] = len(s.cols)
		s.cols = append(s.cols, c)
	}
	// The sparse array needs non-zero dimensions even for an empty table.
	s.data = sparse.ZerosSparse(max(len(s.rows), 1), max(len(s.cols), 1))
	return s, nil
}

// Rows returns the row keys.
func (s *SparseTable) Rows() []float64 { return s.rows }

// Cols returns the column names.
func (s *SparseTable) Cols() []string { return s.cols }

// Set sets the value at the given row and column.
func (s *SparseTable) Set(row float64, col string, v float64) error {
	i, ok := s.rowPos[row]
	if !ok {
		return fmt.Errorf("uclchemtools: no row %g", row)
	}
	j, ok := s.colPos[col]
	if !ok {
		return fmt.Errorf("uclchemtools: no column %q", col)
	}
	s.data.Set(v, i, j)
	return nil
}

// Get returns the value at the given row and column and whether it is set.
func (s *SparseTable) Get(row float64, col string) (float64, bool) {
	i, ok := s.rowPos[row]
	if !ok {
		return 0, false
	}
	j, ok := s.colPos[col]
	if !ok {
		return 0, false
	}
	v, ok := s.data.Elements[s.data.Index1d(i, j)]
	return v, ok
}

// NNZ returns the number of set cells.
func (s *SparseTable) NNZ() int { return len(s.data.Elements) }

// Dense converts the table into a Table with one float64 column per
// column name. Unset cells are NaN.
func (s *SparseTable) Dense() *Table {
	t := NewTable(s.IndexName, append([]float64{}, s.rows...))
	for j, c := range s.cols {
		v := make([]float64, len(s.rows))
		for i := range s.rows {
			if x, ok := s.data.Elements[s.data.Index1d(i, j)]; ok {
				v[i] = x
			} else {
				v[i] = math.NaN()
			}
		}
		t.Columns = append(t.Columns, &Column{Name: c, Kind: Float64, Float64: v})
	}
	return t
}
