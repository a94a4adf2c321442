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
)

// SpeciesColumn is the name of the species name column of a species
// table after ingestion.
const SpeciesColumn = "NAME"

// ReactantColumns and ProductColumns are the reactant and product slot
// columns of a reaction table.
var (
	ReactantColumns = []string{"Reactant 1", "Reactant 2", "Reactant 3"}
	ProductColumns  = []string{"Product 1", "Product 2", "Product 3", "Product 4"}
)

// speciesNameColumns are the names used for the species name column by
// different versions of UCLCHEM.
var speciesNameColumns = []string{"NAME", "Name"}

// Reaction is one reaction of a chemical network.
type Reaction struct {
	Reactants [3]string
	Products  [4]string

	// Alpha, Beta and Gamma are the rate coefficient parameters.
	Alpha, Beta, Gamma float64
}

// Involves returns whether name occupies any reactant or product slot.
func (r *Reaction) Involves(name string) bool {
	for _, s := range r.Reactants {
		if s != "" && s == name {
			return true
		}
	}
	for _, s := range r.Products {
		if s != "" && s == name {
			return true
		}
	}
	return false
}

// ReactantList returns the non-empty reactant slots.
func (r *Reaction) ReactantList() []string { return nonEmpty(r.Reactants[:]) }

// ProductList returns the non-empty product slots.
func (r *Reaction) ProductList() []string { return nonEmpty(r.Products[:]) }

func (r *Reaction) String() string {
	return strings.Join(r.ReactantList(), " + ") + " -> " + strings.Join(r.ProductList(), " + ")
}

func nonEmpty(s []string) []string {
	var o []string
	for _, v := range s {
		if v != "" {
			o = append(o, v)
		}
	}
	return o
}

// slot normalizes a reactant or product entry. Missing values are
// written as empty strings or NaN depending on the source.
func slot(s string) string {
	s = Canonical(s)
	if s == "NAN" {
		return ""
	}
	return s
}

// Network is a chemical network: the species and reactions that a
// simulation was run with.
type Network struct {
	// Species holds the canonical species names in table order.
	Species   []string
	Reactions []Reaction

	// SpeciesTable and ReactionTable are the reference tables the network
	// was built from, with species names and reaction slots normalized.
	SpeciesTable  *Table
	ReactionTable *Table

	speciesPos map[string]int
}

// NormalizeSpeciesTable renames the species name column of t to
// SpeciesColumn and canonicalizes the names. Species tables name this
// column either "NAME" or "Name".
func NormalizeSpeciesTable(t *Table) error {
	var c *Column
	for _, n := range speciesNameColumns {
		if c = t.Column(n); c != nil {
			break
		}
	}
	if c == nil {
		return fmt.Errorf("uclchemtools: species table has no name column (want one of %v)", speciesNameColumns)
	}
	if c.Kind != String {
		return fmt.Errorf("uclchemtools: species name column has type %v", c.Kind)
	}
	c.Name = SpeciesColumn
	for i, s := range c.String {
		c.String[i] = Canonical(s)
	}
	return nil
}

// NormalizeReactionTable canonicalizes the reactant and product columns
// of t, storing them as strings with empty strings for unused slots.
func NormalizeReactionTable(t *Table) error {
	for _, n := range append(append([]string{}, ReactantColumns...), ProductColumns...) {
		c := t.Column(n)
		if c == nil {
			return fmt.Errorf("uclchemtools: reaction table is missing column %q", n)
		}
		v := make([]string, c.Len())
		for i := range v {
			if c.Kind == String {
				v[i] = slot(c.String[i])
			} else {
				v[i] = slot(c.Text(i))
			}
		}
		*c = Column{Name: n, Kind: String, String: v}
	}
	return nil
}

// NewNetwork creates a network from species and reaction reference
// tables. The tables are normalized in place.
func NewNetwork(species, reactions *Table) (*Network, error) {
	if err := NormalizeSpeciesTable(species); err != nil {
		return nil, err
	}
	if err := NormalizeReactionTable(reactions); err != nil {
		return nil, err
	}
	n := &Network{
		SpeciesTable:  species,
		ReactionTable: reactions,
		speciesPos:    make(map[string]int),
	}
	for _, s := range species.Column(SpeciesColumn).String {
		if _, ok := n.speciesPos[s]; ok {
			return nil, fmt.Errorf("uclchemtools: duplicate species %q", s)
		}
		n.speciesPos[s] = len(n.Species)
		n.Species = append(n.Species, s)
	}

	coef := func(names ...string) []float64 {
		for _, name := range names {
			if v, err := reactions.Floats(name); err == nil {
				return v
			}
		}
		return nil
	}
	alpha, beta, gamma := coef("Alpha", "ALPHA"), coef("Beta", "BETA"), coef("Gamma", "Gama", "GAMMA")

	slots := make([][]string, 0, 7)
	for _, c := range append(append([]string{}, ReactantColumns...), ProductColumns...) {
		slots = append(slots, reactions.Column(c).String)
	}
	n.Reactions = make([]Reaction, reactions.Len())
	for i := range n.Reactions {
		r := &n.Reactions[i]
		for j := range r.Reactants {
			r.Reactants[j] = slots[j][i]
		}
		for j := range r.Products {
			r.Products[j] = slots[len(r.Reactants)+j][i]
		}
		if alpha != nil {
			r.Alpha = alpha[i]
		}
		if beta != nil {
			r.Beta = beta[i]
		}
		if gamma != nil {
			r.Gamma = gamma[i]
		}
	}
	return n, nil
}

// ReadNetwork reads a network from species and reaction csv files.
func ReadNetwork(species, reactions io.Reader) (*Network, error) {
	st, err := ReadCSV(species)
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: reading species table: %v", err)
	}
	rt, err := ReadCSV(reactions)
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: reading reaction table: %v", err)
	}
	return NewNetwork(st, rt)
}

// SpeciesIndex returns the position of a species in the species table.
func (n *Network) SpeciesIndex(name string) (int, bool) {
	i, ok := n.speciesPos[Canonical(name)]
	return i, ok
}

// IsSpecies returns whether name is a species of the network.
func (n *Network) IsSpecies(name string) bool {
	_, ok := n.SpeciesIndex(name)
	return ok
}

// Involving returns the indices of the reactions in which the given
// species occupies a reactant or product slot.
func (n *Network) Involving(name string) []int {
	name = Canonical(name)
	var o []int
	for i := range n.Reactions {
		if n.Reactions[i].Involves(name) {
			o = append(o, i)
		}
	}
	return o
}

// TypeTags returns the names in reactant and product slots that are not
// species, such as "PHOTON", "CRP" or "FREEZE", in order of first
// appearance.
func (n *Network) TypeTags() []string {
	seen := make(map[string]struct{})
	var o []string
	for i := range n.Reactions {
		r := &n.Reactions[i]
		for _, s := range append(r.ReactantList(), r.ProductList()...) {
			if _, ok := n.speciesPos[s]; ok {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			o = append(o, s)
		}
	}
	return o
}
