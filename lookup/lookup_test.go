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

package lookup

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/spatialmodel/uclchemtools"
)

func testNetwork(t *testing.T) *uclchemtools.Network {
	s, err := os.Open("../testdata/species.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	r, err := os.Open("../testdata/reactions.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	n, err := uclchemtools.ReadNetwork(s, r)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestBuild(t *testing.T) {
	l := Build([]string{"H", "co", "CO", "#CO"}, []string{"PHOTON", "crp", "H"})
	want := []string{"", "H", "CO", "#CO", "PHOTON", "CRP"}
	if !reflect.DeepEqual(l.Names(), want) {
		t.Errorf("have %v, want %v", l.Names(), want)
	}
	for name, want := range map[string]int32{"": 0, "h": 1, "Co": 2, "#co": 3, "CRP": 5} {
		i, err := l.Index(name)
		if err != nil {
			t.Fatal(err)
		}
		if i != want {
			t.Errorf("%s: have %d, want %d", name, i, want)
		}
	}
	_, err := l.Index("H2O")
	var miss *MissError
	if !errors.As(err, &miss) || miss.Name != "H2O" {
		t.Errorf("expected a MissError, got %v", err)
	}
}

func TestFromPairs(t *testing.T) {
	l := Build([]string{"H", "CO"}, []string{"CRP"})
	pairs := make(map[string]int32)
	for i, n := range l.Names() {
		pairs[n] = int32(i)
	}
	l2, err := FromPairs(pairs)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Equal(l2) {
		t.Errorf("have %v, want %v", l2.Names(), l.Names())
	}
	if _, err := FromPairs(map[string]int32{"H": 0, "CO": 1}); err == nil {
		t.Error("expected an error when index 0 is not empty")
	}
	if _, err := FromPairs(map[string]int32{"": 0, "CO": 2}); err == nil {
		t.Error("expected an error for a gap in the indices")
	}
}

func TestEncodeReactions(t *testing.T) {
	n := testNetwork(t)
	l := Build(n.Species, n.TypeTags())
	enc, err := EncodeReactions(n.ReactionTable, l)
	if err != nil {
		t.Fatal(err)
	}
	wantNames := []string{"reac_index_1", "reac_index_2", "reac_index_3",
		"prod_index_1", "prod_index_2", "prod_index_3", "prod_index_4",
		"Alpha", "Beta", "Gamma"}
	if !reflect.DeepEqual(enc.Names(), wantNames) {
		t.Errorf("names: have %v, want %v", enc.Names(), wantNames)
	}
	// CO + CRP -> HCO+ + E-
	co, _ := l.Index("CO")
	crp, _ := l.Index("CRP")
	if have := enc.Column("reac_index_1").Int32[1]; have != co {
		t.Errorf("reactant 1: have %d, want %d", have, co)
	}
	if have := enc.Column("reac_index_2").Int32[1]; have != crp {
		t.Errorf("reactant 2: have %d, want %d", have, crp)
	}
	if have := enc.Column("reac_index_3").Int32[1]; have != Empty {
		t.Errorf("reactant 3: have %d, want %d", have, Empty)
	}
	if n.ReactionTable.Column("Reactant 1") == nil {
		t.Error("input table was modified")
	}

	dec, err := DecodeReactions(enc, l)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dec, n.ReactionTable) {
		t.Errorf("round trip failed:\nhave %+v\nwant %+v", dec, n.ReactionTable)
	}
}

func TestEncodeReactionsMiss(t *testing.T) {
	n := testNetwork(t)
	l := Build(n.Species, nil)
	_, err := EncodeReactions(n.ReactionTable, l)
	var miss *MissError
	if !errors.As(err, &miss) || miss.Name != "CRP" {
		t.Errorf("expected a MissError for CRP, got %v", err)
	}
}

func TestEncodeSpecies(t *testing.T) {
	n := testNetwork(t)
	l := Build(n.Species, n.TypeTags())
	enc, err := EncodeSpecies(n.SpeciesTable, l)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"species_index", "MASS", "BINDING_ENERGY"}; !reflect.DeepEqual(enc.Names(), want) {
		t.Errorf("names: have %v, want %v", enc.Names(), want)
	}
	if want := []int32{1, 2, 3, 4, 5, 6, 7, 8, 9}; !reflect.DeepEqual(enc.Column("species_index").Int32, want) {
		t.Errorf("indices: have %v, want %v", enc.Column("species_index").Int32, want)
	}
	dec, err := DecodeSpecies(enc, l)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dec, n.SpeciesTable) {
		t.Errorf("round trip failed:\nhave %+v\nwant %+v", dec, n.SpeciesTable)
	}
}
