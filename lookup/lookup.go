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

// Package lookup encodes species and reaction type names as small
// integers so that reference tables can be stored compactly and shared
// between the runs of an archive.
package lookup

import (
	"fmt"
	"strconv"

	"github.com/spatialmodel/uclchemtools"
)

// Empty is the index of an empty reactant or product slot.
const Empty int32 = 0

// Names of the encoded columns.
const (
	reactantPrefix = "reac_index_"
	productPrefix  = "prod_index_"

	// SpeciesIndexColumn replaces the species name column of a species
	// table.
	SpeciesIndexColumn = "species_index"
)

// MissError is returned when a name is not present in a Lookup.
type MissError struct {
	Name string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("lookup: %q is not in the lookup table", e.Name)
}

// Lookup is a bidirectional mapping between names and integer indices.
// Index 0 is reserved for the empty name. A Lookup is not modified after
// it is created.
type Lookup struct {
	names []string
	index map[string]int32
}

// Build creates a lookup that assigns consecutive indices starting at 1
// to the species and then to the reaction type tags, in order. Names are
// compared case-insensitively; repeated names keep their first index.
func Build(species, tags []string) *Lookup {
	l := &Lookup{
		names: []string{""},
		index: map[string]int32{"": Empty},
	}
	for _, list := range [][]string{species, tags} {
		for _, n := range list {
			n = uclchemtools.Canonical(n)
			if _, ok := l.index[n]; ok {
				continue
			}
			l.index[n] = int32(len(l.names))
			l.names = append(l.names, n)
		}
	}
	return l
}

// FromPairs recreates a lookup from name/index pairs, for example as read
// back from storage. The indices must be exactly 0 through len(pairs)-1,
// with 0 belonging to the empty name.
func FromPairs(pairs map[string]int32) (*Lookup, error) {
	l := &Lookup{
		names: make([]string, len(pairs)),
		index: make(map[string]int32, len(pairs)),
	}
	seen := make([]bool, len(pairs))
	for n, i := range pairs {
		if i < 0 || int(i) >= len(pairs) || seen[i] {
			return nil, fmt.Errorf("lookup: invalid or repeated index %d for %q", i, n)
		}
		if n != uclchemtools.Canonical(n) {
			return nil, fmt.Errorf("lookup: name %q is not canonical", n)
		}
		seen[i] = true
		l.names[i] = n
		l.index[n] = i
	}
	if len(pairs) == 0 || l.names[Empty] != "" {
		return nil, fmt.Errorf("lookup: index %d must be reserved for the empty name", Empty)
	}
	return l, nil
}

// Len returns the number of entries, including the empty name.
func (l *Lookup) Len() int { return len(l.names) }

// Names returns the names in index order. The first name is empty.
func (l *Lookup) Names() []string { return append([]string(nil), l.names...) }

// Index returns the index of name.
func (l *Lookup) Index(name string) (int32, error) {
	i, ok := l.index[uclchemtools.Canonical(name)]
	if !ok {
		return 0, &MissError{Name: name}
	}
	return i, nil
}

// Name returns the name with index i.
func (l *Lookup) Name(i int32) (string, error) {
	if i < 0 || int(i) >= len(l.names) {
		return "", fmt.Errorf("lookup: index %d out of range [0, %d)", i, len(l.names))
	}
	return l.names[i], nil
}

// Equal returns whether two lookups hold the same mapping.
func (l *Lookup) Equal(o *Lookup) bool {
	if len(l.names) != len(o.names) {
		return false
	}
	for i, n := range l.names {
		if o.names[i] != n {
			return false
		}
	}
	return true
}

func slotColumns() (text, encoded []string) {
	for i, c := range uclchemtools.ReactantColumns {
		text = append(text, c)
		encoded = append(encoded, reactantPrefix+strconv.Itoa(i+1))
	}
	for i, c := range uclchemtools.ProductColumns {
		text = append(text, c)
		encoded = append(encoded, productPrefix+strconv.Itoa(i+1))
	}
	return
}

// encode replaces the text column of t with an int32 column.
func encode(t *uclchemtools.Table, l *Lookup, from, to string) error {
	v, err := t.Strings(from)
	if err != nil {
		return err
	}
	idx := make([]int32, len(v))
	for i, n := range v {
		if idx[i], err = l.Index(n); err != nil {
			return fmt.Errorf("lookup: encoding %s row %d: %w", from, i, err)
		}
	}
	c := t.Column(from)
	*c = uclchemtools.Column{Name: to, Kind: uclchemtools.Int32, Int32: idx}
	return nil
}

// decode replaces the int32 column of t with a text column.
func decode(t *uclchemtools.Table, l *Lookup, from, to string) error {
	c := t.Column(from)
	if c == nil || c.Kind != uclchemtools.Int32 {
		return fmt.Errorf("lookup: table has no integer column %q", from)
	}
	names := make([]string, len(c.Int32))
	for i, idx := range c.Int32 {
		n, err := l.Name(idx)
		if err != nil {
			return fmt.Errorf("lookup: decoding %s row %d: %v", from, i, err)
		}
		names[i] = n
	}
	*c = uclchemtools.Column{Name: to, Kind: uclchemtools.String, String: names}
	return nil
}

// EncodeReactions returns a copy of a reaction table in which each
// reactant and product column is replaced by an int32 index column:
// "Reactant N" becomes "reac_index_N" and "Product N" becomes
// "prod_index_N". The index columns are placed first. Names missing from
// the lookup cause a *MissError.
func EncodeReactions(t *uclchemtools.Table, l *Lookup) (*uclchemtools.Table, error) {
	o := t.Copy()
	text, encoded := slotColumns()
	for i := range text {
		if err := encode(o, l, text[i], encoded[i]); err != nil {
			return nil, err
		}
	}
	o.Reorder(encoded...)
	return o, nil
}

// DecodeReactions is the inverse of EncodeReactions.
func DecodeReactions(t *uclchemtools.Table, l *Lookup) (*uclchemtools.Table, error) {
	o := t.Copy()
	text, encoded := slotColumns()
	for i := range text {
		if err := decode(o, l, encoded[i], text[i]); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// EncodeSpecies returns a copy of a species table in which the species
// name column is replaced by an int32 index column placed first.
func EncodeSpecies(t *uclchemtools.Table, l *Lookup) (*uclchemtools.Table, error) {
	o := t.Copy()
	if err := encode(o, l, uclchemtools.SpeciesColumn, SpeciesIndexColumn); err != nil {
		return nil, err
	}
	o.Reorder(SpeciesIndexColumn)
	return o, nil
}

// DecodeSpecies is the inverse of EncodeSpecies.
func DecodeSpecies(t *uclchemtools.Table, l *Lookup) (*uclchemtools.Table, error) {
	o := t.Copy()
	if err := decode(o, l, SpeciesIndexColumn, uclchemtools.SpeciesColumn); err != nil {
		return nil, err
	}
	return o, nil
}
