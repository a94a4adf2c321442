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
	"strconv"
)

// Kind is the storage type of a Column.
type Kind int

// These are the column kinds.
const (
	Float64 Kind = iota
	Float32
	Int32
	String
)

func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Column is a named table column. Only the slice matching
// Kind holds data.
type Column struct {
	Name    string
	Kind    Kind
	Float64 []float64
	Float32 []float32
	Int32   []int32
	String  []string
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Float64:
		return len(c.Float64)
	case Float32:
		return len(c.Float32)
	case Int32:
		return len(c.Int32)
	default:
		return len(c.String)
	}
}

// Float returns value i as a float64. String values are parsed, and
// values that cannot be parsed are returned as NaN.
func (c *Column) Float(i int) float64 {
	switch c.Kind {
	case Float64:
		return c.Float64[i]
	case Float32:
		return float64(c.Float32[i])
	case Int32:
		return float64(c.Int32[i])
	default:
		v, err := strconv.ParseFloat(c.String[i], 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}

// Text returns value i formatted as a string.
func (c *Column) Text(i int) string {
	if c.Kind == String {
		return c.String[i]
	}
	if c.Kind == Int32 {
		return strconv.Itoa(int(c.Int32[i]))
	}
	return strconv.FormatFloat(c.Float(i), 'g', -1, 64)
}

func (c *Column) copy() *Column {
	o := &Column{Name: c.Name, Kind: c.Kind}
	o.Float64 = append([]float64(nil), c.Float64...)
	o.Float32 = append([]float32(nil), c.Float32...)
	o.Int32 = append([]int32(nil), c.Int32...)
	o.String = append([]string(nil), c.String...)
	return o
}

// Table is an ordered set of equal-length columns with an optional
// numeric row index (for example simulation time).
type Table struct {
	IndexName string
	Index     []float64
	Columns   []*Column
}

// NewTable returns an empty table with the given index.
func NewTable(indexName string, index []float64) *Table {
	return &Table{IndexName: indexName, Index: index}
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	if t.Index != nil {
		return len(t.Index)
	}
	if len(t.Columns) > 0 {
		return t.Columns[0].Len()
	}
	return 0
}

// Empty returns whether the table has neither rows nor columns.
func (t *Table) Empty() bool {
	return t.Len() == 0 && len(t.Columns) == 0
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	o := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		o[i] = c.Name
	}
	return o
}

// Column returns the named column, or nil if it does not exist.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Has returns whether the table has a column or index with the given name.
func (t *Table) Has(name string) bool {
	return t.Column(name) != nil || (t.Index != nil && t.IndexName == name)
}

// Floats returns the values of the named column (or the index) as float64.
func (t *Table) Floats(name string) ([]float64, error) {
	if t.Index != nil && name == t.IndexName {
		return t.Index, nil
	}
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("uclchemtools: no column named %q", name)
	}
	if c.Kind == Float64 {
		return c.Float64, nil
	}
	o := make([]float64, c.Len())
	for i := range o {
		o[i] = c.Float(i)
	}
	return o, nil
}

// Strings returns the values of the named column formatted as strings.
func (t *Table) Strings(name string) ([]string, error) {
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("uclchemtools: no column named %q", name)
	}
	if c.Kind == String {
		return c.String, nil
	}
	o := make([]string, c.Len())
	for i := range o {
		o[i] = c.Text(i)
	}
	return o, nil
}

// Add appends a column to the table.
func (t *Table) Add(c *Column) error {
	if t.Column(c.Name) != nil {
		return fmt.Errorf("uclchemtools: duplicate column %q", c.Name)
	}
	if n := t.Len(); (t.Index != nil || len(t.Columns) > 0) && c.Len() != n {
		return fmt.Errorf("uclchemtools: column %q has %d rows; table has %d", c.Name, c.Len(), n)
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// AddFloat64 appends a float64 column.
func (t *Table) AddFloat64(name string, v []float64) error {
	return t.Add(&Column{Name: name, Kind: Float64, Float64: v})
}

// AddFloat32 appends a float32 column.
func (t *Table) AddFloat32(name string, v []float32) error {
	return t.Add(&Column{Name: name, Kind: Float32, Float32: v})
}

// AddInt32 appends an int32 column.
func (t *Table) AddInt32(name string, v []int32) error {
	return t.Add(&Column{Name: name, Kind: Int32, Int32: v})
}

// AddString appends a string column.
func (t *Table) AddString(name string, v []string) error {
	return t.Add(&Column{Name: name, Kind: String, String: v})
}

// Drop removes the named columns. Names that are not present are ignored.
func (t *Table) Drop(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if _, ok := drop[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
}

// Reorder moves the named columns to the front of the table in the given
// order, leaving the remaining columns in their existing order.
func (t *Table) Reorder(first ...string) {
	front := make([]*Column, 0, len(t.Columns))
	used := make(map[string]struct{})
	for _, n := range first {
		if c := t.Column(n); c != nil {
			if _, ok := used[n]; !ok {
				front = append(front, c)
				used[n] = struct{}{}
			}
		}
	}
	for _, c := range t.Columns {
		if _, ok := used[c.Name]; !ok {
			front = append(front, c)
		}
	}
	t.Columns = front
}

// Select returns a new table holding copies of the named columns in the
// given order.
func (t *Table) Select(names ...string) (*Table, error) {
	o := &Table{IndexName: t.IndexName}
	if t.Index != nil {
		o.Index = make([]float64, len(t.Index))
		copy(o.Index, t.Index)
	}
	for _, n := range names {
		c := t.Column(n)
		if c == nil {
			return nil, fmt.Errorf("uclchemtools: no column named %q", n)
		}
		o.Columns = append(o.Columns, c.copy())
	}
	return o, nil
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	o, _ := t.Select(t.Names()...)
	return o
}

// Float32 returns a copy of the table in which every float64 column is
// stored as float32. The index keeps full precision, as do the columns
// named in keep.
func (t *Table) Float32(keep ...string) *Table {
	k := make(map[string]struct{}, len(keep))
	for _, n := range keep {
		k[n] = struct{}{}
	}
	o := t.Copy()
	for i, c := range o.Columns {
		if _, ok := k[c.Name]; ok || c.Kind != Float64 {
			continue
		}
		v := make([]float32, len(c.Float64))
		for j, f := range c.Float64 {
			v[j] = float32(f)
		}
		o.Columns[i] = &Column{Name: c.Name, Kind: Float32, Float32: v}
	}
	return o
}
