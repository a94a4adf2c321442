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

// Package engine holds implementations of the rate engines used to
// recompute reaction rates from simulation outputs.
package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
)

// Reaction type tags of the gas-phase processes that Arrhenius computes.
const (
	CosmicRay       = "CRP"
	CosmicRayPhoton = "CRPHOT"
	Photon          = "PHOTON"
)

// Arrhenius is a rate engine for gas-phase chemistry. Two-body reaction
// rates follow the modified Arrhenius expression
// alpha*(T/300)^beta*exp(-gamma/T); cosmic ray and photo reactions scale
// with zeta and the attenuated radiation field. Grain surface processes
// are not modelled and have a rate of zero, as are the surface transfer
// and swap rates.
type Arrhenius struct {
	Network *uclchemtools.Network
}

// Coefficient returns the rate coefficient of reaction r.
func (a *Arrhenius) Coefficient(r *uclchemtools.Reaction, p rates.Params) float64 {
	var tag string
	for _, s := range r.ReactantList() {
		if !a.Network.IsSpecies(s) {
			tag = s
			break
		}
	}
	switch tag {
	case "":
		if p.GasTemp <= 0 {
			return 0
		}
		return r.Alpha * math.Pow(p.GasTemp/300, r.Beta) * math.Exp(-r.Gamma/p.GasTemp)
	case CosmicRay:
		return r.Alpha * p.Zeta
	case CosmicRayPhoton:
		return r.Alpha * r.Gamma * p.Zeta
	case Photon:
		return r.Alpha * p.Radfield * math.Exp(-r.Gamma*p.Av)
	default:
		return 0
	}
}

// SpeciesRates implements rates.Engine.
func (a *Arrhenius) SpeciesRates(ctx context.Context, p rates.Params, abundances []float64, species int, reactions []int) (*rates.EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &rates.EngineResult{Rates: make([]float64, len(reactions))}
	for i, ri := range reactions {
		if ri < 0 || ri >= len(a.Network.Reactions) {
			return nil, fmt.Errorf("engine: reaction index %d out of range", ri)
		}
		res.Rates[i] = a.Coefficient(&a.Network.Reactions[ri], p)
	}
	return res, nil
}

// Derivatives implements rates.DerivativeEngine.
func (a *Arrhenius) Derivatives(ctx context.Context, p rates.Params, abundances []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(abundances) != len(a.Network.Species) {
		return nil, fmt.Errorf("engine: have %d abundances for %d species", len(abundances), len(a.Network.Species))
	}
	d := make([]float64, len(abundances))
	for i := range a.Network.Reactions {
		r := &a.Network.Reactions[i]
		k := a.Coefficient(r, p)
		if k == 0 {
			continue
		}
		var consumed []int
		for _, s := range r.ReactantList() {
			if j, ok := a.Network.SpeciesIndex(s); ok {
				k *= abundances[j]
				consumed = append(consumed, j)
			}
		}
		k *= math.Pow(p.Density, float64(len(consumed)-1))
		for _, j := range consumed {
			d[j] -= k
		}
		for _, s := range r.ProductList() {
			if j, ok := a.Network.SpeciesIndex(s); ok {
				d[j] += k
			}
		}
	}
	return d, nil
}
