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

// Package rates recomputes the reaction rates behind a simulation output
// and reduces them to the reactions that dominate the production and
// destruction of each species over time.
package rates

import (
	"context"

	"github.com/spatialmodel/uclchemtools"
)

// Params are the physical conditions of one timestep, as needed to
// recompute reaction rates.
type Params struct {
	// Density is the hydrogen nuclei number density [cm-3].
	Density float64
	// GasTemp is the gas temperature [K].
	GasTemp float64
	// DustTemp is the dust temperature [K].
	DustTemp float64
	// Zeta is the cosmic ray ionisation rate in units of 1.3e-17 s-1.
	Zeta float64
	// Radfield is the UV radiation field in Habing.
	Radfield float64
	// Av is the visual extinction [mag].
	Av float64
}

// ParamsFromRow reads the physical conditions of row i of an output
// table. Zeta and Radfield default to 1 and DustTemp defaults to the gas
// temperature when the output does not contain them.
func ParamsFromRow(t *uclchemtools.Table, i int) Params {
	get := func(name string, def float64) float64 {
		if c := t.Column(name); c != nil {
			return c.Float(i)
		}
		return def
	}
	p := Params{
		Density:  get("Density", 0),
		GasTemp:  get("gasTemp", 0),
		Zeta:     get("zeta", 1),
		Radfield: get("radfield", 1),
		Av:       get("av", 0),
	}
	p.DustTemp = get("dustTemp", p.GasTemp)
	return p
}

// EngineResult holds the rates of a set of reactions for one species at
// one timestep.
type EngineResult struct {
	// Rates holds one rate coefficient per requested reaction, in the
	// order requested.
	Rates []float64
	// Transfer is the net rate at which the species moves between the
	// surface and the bulk ice as the surface grows or shrinks.
	Transfer float64
	// Swap is the rate at which surface and bulk material swap places.
	Swap float64
	// BulkLayers is the number of ice layers in the bulk.
	BulkLayers float64
}

// Engine recomputes reaction rates. It is implemented by the chemistry
// code; this package never computes chemistry itself.
type Engine interface {
	// SpeciesRates returns the rates of the given reactions (indices into
	// the network's reaction list) for the species with index species
	// (an index into the network's species list). abundances holds the
	// fractional abundance of every network species.
	SpeciesRates(ctx context.Context, p Params, abundances []float64, species int, reactions []int) (*EngineResult, error)
}

// DerivativeEngine is an Engine that can also compute the full time
// derivative of every species abundance.
type DerivativeEngine interface {
	Engine
	// Derivatives returns d(abundance)/dt for every network species.
	Derivatives(ctx context.Context, p Params, abundances []float64) ([]float64, error)
}
