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
	"context"
	"fmt"

	"github.com/spatialmodel/uclchemtools"
)

// Derivatives computes the time derivative of every network species
// abundance at each timestep of output. The result is indexed by time
// and has one column per network species.
func Derivatives(ctx context.Context, e DerivativeEngine, n *uclchemtools.Network, output *uclchemtools.Table) (*uclchemtools.Table, error) {
	f, err := newFrame(output, n)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(n.Species))
	for i := range cols {
		cols[i] = make([]float64, len(f.times))
	}
	for r, t := range f.times {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := e.Derivatives(ctx, f.params[r], f.abundances[r])
		if err != nil {
			return nil, fmt.Errorf("rates: derivatives at time %g: %w", t, err)
		}
		if len(d) != len(n.Species) {
			return nil, fmt.Errorf("rates: engine returned %d derivatives for %d species", len(d), len(n.Species))
		}
		for i, v := range d {
			cols[i][r] = v
		}
	}
	o := uclchemtools.NewTable(uclchemtools.TimeColumn, append([]float64{}, f.times...))
	for i, s := range n.Species {
		if err := o.AddFloat64(s, cols[i]); err != nil {
			return nil, err
		}
	}
	return o, nil
}
