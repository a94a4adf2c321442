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

// Package hash computes content fingerprints, which are used to check
// that runs appended to an archive share its chemical network.
package hash

import (
	"encoding/gob"
	"encoding/hex"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Fingerprint returns the hex encoded fnv-128a digest of the gob encoding
// of values. Values that gob cannot encode are printed with spew instead.
// Maps should not be passed in unless gob cannot encode them, as their
// gob encoding is not ordered.
func Fingerprint(values ...interface{}) string {
	h := fnv.New128a()
	enc := gob.NewEncoder(h)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			printer.Fprintf(h, "%#v", v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
