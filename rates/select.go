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
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the default share of total production or
// destruction that the selected reactions must cover.
const DefaultThreshold = 0.99

// Selection is the result of SelectTop.
type Selection struct {
	// TotalProduction is the sum of all positive contributions.
	TotalProduction float64
	// TotalDestruction is the magnitude of the sum of all negative
	// contributions.
	TotalDestruction float64

	// Production and Destruction hold the selected contributions with
	// their signed rates, ordered by decreasing magnitude.
	Production, Destruction []Contribution
}

// Reactions returns the selected production and destruction reactions.
func (s *Selection) Reactions() []Contribution {
	return append(append([]Contribution(nil), s.Production...), s.Destruction...)
}

// SelectTop selects, separately for production and destruction, the
// smallest set of the largest contributions whose cumulative share of the
// total reaches threshold. Contributions with the same reaction label and
// sign are summed first. Ties in magnitude are ordered by label. If a
// total is zero, no reactions are selected for it.
func SelectTop(contributions []Contribution, threshold float64) *Selection {
	prod, dest := partition(contributions)
	s := &Selection{
		TotalProduction:  total(prod),
		TotalDestruction: total(dest),
	}
	s.Production = walk(prod, s.TotalProduction, threshold)
	s.Destruction = walk(dest, s.TotalDestruction, threshold)
	return s
}

// partition splits contributions by sign, merging repeated labels.
// Zero and NaN contributions are dropped.
func partition(contributions []Contribution) (prod, dest []Contribution) {
	pi := make(map[string]int)
	di := make(map[string]int)
	for _, c := range contributions {
		switch {
		case c.Rate > 0:
			if i, ok := pi[c.Reaction]; ok {
				prod[i].Rate += c.Rate
				continue
			}
			pi[c.Reaction] = len(prod)
			prod = append(prod, c)
		case c.Rate < 0:
			if i, ok := di[c.Reaction]; ok {
				dest[i].Rate += c.Rate
				continue
			}
			di[c.Reaction] = len(dest)
			dest = append(dest, c)
		}
	}
	for _, set := range [][]Contribution{prod, dest} {
		sort.SliceStable(set, func(i, j int) bool {
			a, b := math.Abs(set[i].Rate), math.Abs(set[j].Rate)
			if a != b {
				return a > b
			}
			return set[i].Reaction < set[j].Reaction
		})
	}
	return prod, dest
}

func total(set []Contribution) float64 {
	v := make([]float64, len(set))
	for i, c := range set {
		v[i] = math.Abs(c.Rate)
	}
	return floats.Sum(v)
}

// walk keeps contributions until their cumulative magnitude reaches
// threshold times the total.
func walk(set []Contribution, total, threshold float64) []Contribution {
	if total == 0 {
		return nil
	}
	var cum float64
	var o []Contribution
	for _, c := range set {
		if cum >= threshold*total {
			break
		}
		cum += math.Abs(c.Rate)
		o = append(o, c)
	}
	return o
}
