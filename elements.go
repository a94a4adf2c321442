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
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// Element is a chemical element (or element-like building block such as
// an isotope or PAH) that species names are composed of.
type Element struct {
	Symbol string
	Mass   float64
}

// ElementTable holds the elements that species names can be decomposed
// into. It is not modified after creation and is safe for concurrent use.
type ElementTable struct {
	elements []Element
	index    map[string]int
}

// defaultElements are the elements known to UCLCHEM, with integer masses
// in atomic mass units.
var defaultElements = []Element{
	{"H", 1}, {"D", 2}, {"HE", 4}, {"C", 12}, {"N", 14}, {"O", 16},
	{"F", 19}, {"P", 31}, {"S", 32}, {"CL", 35}, {"LI", 3}, {"NA", 23},
	{"MG", 24}, {"SI", 28}, {"PAH", 420}, {"15N", 15}, {"13C", 13},
	{"18O", 18}, {"E-", 0}, {"FE", 56},
}

// symbols are characters in species names that do not denote atoms.
const symbols = "#@*+-()$"

// DefaultElements returns the standard UCLCHEM element table.
func DefaultElements() *ElementTable {
	e, err := NewElementTable(defaultElements)
	if err != nil {
		panic(err)
	}
	return e
}

// NewElementTable creates an element table from the given elements.
// Symbols are case-normalized and must be unique and at most three
// characters long.
func NewElementTable(elements []Element) (*ElementTable, error) {
	e := &ElementTable{index: make(map[string]int, len(elements))}
	for _, el := range elements {
		s := Canonical(el.Symbol)
		if s == "" || len(s) > 3 {
			return nil, fmt.Errorf("uclchemtools: invalid element symbol %q", el.Symbol)
		}
		if _, ok := e.index[s]; ok {
			return nil, fmt.Errorf("uclchemtools: duplicate element %q", s)
		}
		e.index[s] = len(e.elements)
		e.elements = append(e.elements, Element{Symbol: s, Mass: el.Mass})
	}
	return e, nil
}

// ReadElements reads an element table in TOML format, for example:
//
//	[[Elements]]
//	Symbol = "H"
//	Mass = 1.008
func ReadElements(r io.Reader) (*ElementTable, error) {
	var cfg struct {
		Elements []Element
	}
	if _, err := toml.DecodeReader(r, &cfg); err != nil {
		return nil, fmt.Errorf("uclchemtools: reading element table: %v", err)
	}
	if len(cfg.Elements) == 0 {
		return nil, fmt.Errorf("uclchemtools: element table has no elements")
	}
	return NewElementTable(cfg.Elements)
}

// Elements returns a copy of the elements in the table, in order.
func (e *ElementTable) Elements() []Element {
	return append([]Element(nil), e.elements...)
}

// match returns the length of the longest element symbol at the start
// of s, or zero if there is none.
func (e *ElementTable) match(s string) int {
	for n := 3; n > 0; n-- {
		if len(s) < n {
			continue
		}
		if _, ok := e.index[s[:n]]; ok {
			return n
		}
	}
	return 0
}

func digit(s string, i int) (int, bool) {
	if i >= len(s) || s[i] < '0' || s[i] > '9' {
		return 0, false
	}
	return int(s[i] - '0'), true
}

// Atoms decomposes a species name into a list of its atoms, with one
// entry per atom. A single digit following an element or a closing
// bracket multiplies it, so "(CH3)2CO" has three carbon atoms.
func (e *ElementTable) Atoms(name string) ([]string, error) {
	name = Canonical(name)
	var atoms, group []string
	bracket := false
	for i := 0; i < len(name); {
		c := name[i]
		if strings.IndexByte(symbols, c) >= 0 && e.match(name[i:]) == 0 {
			switch c {
			case '(':
				bracket = true
				group = group[:0]
				i++
			case ')':
				if !bracket {
					return nil, fmt.Errorf("uclchemtools: unbalanced bracket in %q", name)
				}
				bracket = false
				n, ok := digit(name, i+1)
				if !ok {
					n = 1
				} else {
					i++
				}
				for k := 0; k < n; k++ {
					atoms = append(atoms, group...)
				}
				i++
			default:
				i++
			}
			continue
		}
		m := e.match(name[i:])
		if m == 0 {
			return nil, fmt.Errorf("uclchemtools: %q contains elements not in the element list", name)
		}
		sym := name[i : i+m]
		j := i + m
		n := 1
		// A count of 1 is left in place so that it can start an isotope
		// symbol such as 13C.
		if d, ok := digit(name, j); ok && d > 1 {
			n = d
			j++
		}
		for k := 0; k < n; k++ {
			if bracket {
				group = append(group, sym)
			} else {
				atoms = append(atoms, sym)
			}
		}
		i = j
	}
	if bracket {
		return nil, fmt.Errorf("uclchemtools: unbalanced bracket in %q", name)
	}
	return atoms, nil
}

// Constituents returns the number of atoms of each element in a species.
func (e *ElementTable) Constituents(name string) (map[string]int, error) {
	atoms, err := e.Atoms(name)
	if err != nil {
		return nil, err
	}
	o := make(map[string]int)
	for _, a := range atoms {
		o[a]++
	}
	return o, nil
}

// Mass returns the mass of a species as the sum of its atomic masses.
func (e *ElementTable) Mass(name string) (float64, error) {
	atoms, err := e.Atoms(name)
	if err != nil {
		return 0, err
	}
	var m float64
	for _, a := range atoms {
		m += e.elements[e.index[a]].Mass
	}
	return m, nil
}

// Occurrences returns a table with one row per species and one int32
// column per element holding the number of atoms of that element. If
// dropZero is true, elements that occur in none of the species are left
// out.
func (e *ElementTable) Occurrences(names []string, dropZero bool) (*Table, error) {
	counts := make([][]int32, len(e.elements))
	for i := range counts {
		counts[i] = make([]int32, len(names))
	}
	for j, n := range names {
		c, err := e.Constituents(n)
		if err != nil {
			return nil, err
		}
		for s, v := range c {
			counts[e.index[s]][j] = int32(v)
		}
	}
	t := NewTable("", nil)
	t.Columns = make([]*Column, 0, len(e.elements))
	for i, el := range e.elements {
		if dropZero {
			var sum int32
			for _, v := range counts[i] {
				sum += v
			}
			if sum == 0 {
				continue
			}
		}
		t.Columns = append(t.Columns, &Column{Name: el.Symbol, Kind: Int32, Int32: counts[i]})
	}
	return t, nil
}
