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

	"github.com/spatialmodel/uclchemtools"
)

// SortByIntersection reorders the reaction columns of two rate share
// tables so that they can be compared side by side. Reactions present in
// both tables come first in both, ordered by decreasing mean share in ref.
// The remaining reactions of each table follow, ordered by their own mean
// share. NaN cells are ignored in the means and columns without any value
// sort last. It returns the common reactions.
func SortByIntersection(ref, other *uclchemtools.Table) []string {
	inOther := make(map[string]bool)
	for _, n := range other.Names() {
		inOther[n] = true
	}
	var common []string
	for _, n := range ref.Names() {
		if inOther[n] {
			common = append(common, n)
		}
	}
	sortByMean(ref, common)
	isCommon := make(map[string]bool, len(common))
	for _, n := range common {
		isCommon[n] = true
	}
	order := func(t *uclchemtools.Table) {
		var rest []string
		for _, n := range t.Names() {
			if !isCommon[n] {
				rest = append(rest, n)
			}
		}
		sortByMean(t, rest)
		t.Reorder(append(append([]string{}, common...), rest...)...)
	}
	order(ref)
	order(other)
	return common
}

// sortByMean sorts names by decreasing mean of the matching columns of t.
func sortByMean(t *uclchemtools.Table, names []string) {
	means := make(map[string]float64, len(names))
	for _, n := range names {
		v, err := t.Floats(n)
		if err != nil {
			means[n] = math.NaN()
			continue
		}
		means[n] = nanMean(v)
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := means[names[i]], means[names[j]]
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		}
		return a > b
	})
}

func nanMean(v []float64) float64 {
	var sum float64
	var n int
	for _, x := range v {
		if !math.IsNaN(x) {
			sum += x
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
