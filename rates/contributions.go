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
	"fmt"
	"math"
	"strings"

	"github.com/spatialmodel/uclchemtools"
)

// Contribution is the contribution of one reaction to the rate of change
// of a species abundance. Positive rates are production and negative
// rates are destruction.
type Contribution struct {
	Reaction string
	Rate     float64
}

// SurfaceTransfer is the pseudo-reactant of the reaction that represents
// the exchange of material between the surface and the bulk ice.
const SurfaceTransfer = "SURFACE_TRANSFER"

// minSurface is the lower bound on the surface abundance when dividing
// by it.
const minSurface = 1.0e-30

// Reaction type tags that count as a reactant for the density scaling.
var countedTags = map[string]bool{"DESOH2": true, "FREEZE": true, "LH": true, "LHDES": true}

// Reaction type tags whose rates are per unit of surface abundance.
var perSurfaceTags = map[string]bool{"DEUVCR": true, "DESCR": true, "DESOH2": true, "ER": true, "ERDES": true}

// Reaction type tags of the surface/bulk swapping reactions.
var swapTags = map[string]bool{"BULKSWAP": true, "SURFSWAP": true}

func threePhase(n *uclchemtools.Network) bool {
	for _, s := range n.Species {
		if strings.HasPrefix(s, uclchemtools.Bulk) {
			return true
		}
	}
	return false
}

// NetContributions converts the rate coefficients returned by an Engine
// into contributions to the rate of change of species. Each rate is
// multiplied by the abundances of its reactants and scaled by density to
// the power of the number of reactants minus one. A reaction contributes
// negatively if species is a reactant and positively if it is a product.
func NetContributions(n *uclchemtools.Network, species string, reactions []int, res *EngineResult, abundances []float64, density float64) ([]Contribution, error) {
	if len(res.Rates) != len(reactions) {
		return nil, fmt.Errorf("rates: engine returned %d rates for %d reactions", len(res.Rates), len(reactions))
	}
	if len(abundances) != len(n.Species) {
		return nil, fmt.Errorf("rates: have %d abundances for %d species", len(abundances), len(n.Species))
	}
	species = uclchemtools.Canonical(species)
	surface := minSurface
	if i, ok := n.SpeciesIndex(uclchemtools.SurfaceSpecies); ok {
		surface = math.Max(minSurface, abundances[i])
	}
	three := threePhase(n)

	var o []Contribution
	for k, ri := range reactions {
		r := &n.Reactions[ri]
		change := res.Rates[k]
		count := 0
		for _, s := range r.ReactantList() {
			if i, ok := n.SpeciesIndex(s); ok {
				change *= abundances[i]
				count++
			} else if countedTags[s] {
				count++
			}
			if perSurfaceTags[s] {
				change /= surface
			}
			if !three && s == "THERM" {
				if i, ok := n.SpeciesIndex(r.Reactants[0]); ok {
					change *= abundances[i] / surface
				}
			}
			if swapTags[s] {
				change *= res.Swap
			}
		}
		change *= math.Pow(density, float64(count-1))
		label := r.String()
		for _, s := range r.Reactants {
			if s == species {
				o = append(o, Contribution{Reaction: label, Rate: -change})
				break
			}
		}
		for _, s := range r.Products {
			if s == species {
				o = append(o, Contribution{Reaction: label, Rate: change})
				break
			}
		}
	}
	return o, nil
}

// TransferContribution returns the pseudo-reaction that moves an ice
// species between the surface and the bulk. The direction of the reaction
// follows the sign of transfer. It returns false for species that are not
// surface or bulk species.
func TransferContribution(species string, transfer float64) (Contribution, bool) {
	species = uclchemtools.Canonical(species)
	if !uclchemtools.IsIce(species) {
		return Contribution{}, false
	}
	from, to := uclchemtools.Opposite(species), species
	if transfer < 0 {
		from, to = to, from
	}
	return Contribution{
		Reaction: from + " + " + SurfaceTransfer + " -> " + to,
		Rate:     transfer,
	}, true
}
