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

import "strings"

// Species name prefixes.
const (
	// Frozen marks a species on the grain surface.
	Frozen = "#"
	// Bulk marks a species in the bulk ice.
	Bulk = "@"
	// Combined marks the sum of the surface and bulk forms of a species.
	Combined = "$"
)

// Administrative pseudo-species that track the ice layers.
const (
	BulkSpecies    = "BULK"
	SurfaceSpecies = "SURFACE"
)

// ReservedColumns are the columns of a UCLCHEM output file that do not
// hold species abundances.
var ReservedColumns = []string{"Time", "Density", "gasTemp", "dustTemp", "av", "zeta", "radfield", "point", "dstep"}

var reserved = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ReservedColumns))
	for _, c := range ReservedColumns {
		m[c] = struct{}{}
	}
	return m
}()

// IsReserved returns whether column is a non-species output column.
func IsReserved(column string) bool {
	_, ok := reserved[column]
	return ok
}

// Canonical returns the normalized form of a species name used for
// lookups.
func Canonical(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsIce returns whether name is a surface or bulk species.
func IsIce(name string) bool {
	return strings.HasPrefix(name, Frozen) || strings.HasPrefix(name, Bulk)
}

// Bare returns the species name without its phase prefix.
func Bare(name string) string {
	if IsIce(name) || strings.HasPrefix(name, Combined) {
		return name[1:]
	}
	return name
}

// Opposite returns the other ice phase of a surface or bulk species:
// "#CO" becomes "@CO" and the reverse. Other names are returned unchanged.
func Opposite(name string) string {
	switch {
	case strings.HasPrefix(name, Frozen):
		return Bulk + name[1:]
	case strings.HasPrefix(name, Bulk):
		return Frozen + name[1:]
	}
	return name
}
