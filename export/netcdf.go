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

// Package export writes archived tables in formats read by other
// analysis tools.
package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/uclchemtools"
)

const timeDim = "time"

// VariableName converts a species or column name into a netCDF variable
// name. Ice prefixes and charges are spelled out: "#CO" becomes "s_CO",
// "@CO" becomes "b_CO" and "HCO+" becomes "HCO_plus".
func VariableName(name string) string {
	var b strings.Builder
	for _, p := range []struct{ prefix, repl string }{
		{uclchemtools.Frozen, "s_"},
		{uclchemtools.Bulk, "b_"},
		{uclchemtools.Combined, "t_"},
	} {
		if strings.HasPrefix(name, p.prefix) {
			b.WriteString(p.repl)
			name = strings.TrimPrefix(name, p.prefix)
			break
		}
	}
	for _, r := range name {
		switch {
		case r == '+':
			b.WriteString("_plus")
		case r == '-':
			b.WriteString("_minus")
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" || unicode.IsDigit(rune(s[0])) {
		s = "v_" + s
	}
	return s
}

// NetCDF writes a table indexed by time (or with a Time column) to a
// netCDF-3 file. Each numeric column becomes a float32 variable along the
// time dimension with the original name in its "species" attribute.
// attrs are written as global attributes.
func NetCDF(path string, t *uclchemtools.Table, attrs map[string]string) error {
	times, err := t.Floats(uclchemtools.TimeColumn)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if len(times) == 0 {
		return fmt.Errorf("export: table has no rows")
	}
	h := cdf.NewHeader([]string{timeDim}, []int{len(times)})
	h.AddVariable(timeDim, []string{timeDim}, []float64{0})
	h.AddAttribute(timeDim, "units", "years")
	used := map[string]bool{timeDim: true}
	var (
		cols []*uclchemtools.Column
		vars []string
	)
	for _, c := range t.Columns {
		if c.Name == uclchemtools.TimeColumn || c.Kind == uclchemtools.String {
			continue
		}
		v := VariableName(c.Name)
		for i := 2; used[v]; i++ {
			v = fmt.Sprintf("%s_%d", VariableName(c.Name), i)
		}
		used[v] = true
		vars = append(vars, v)
		h.AddVariable(v, []string{timeDim}, []float32{0})
		h.AddAttribute(v, "species", c.Name)
		cols = append(cols, c)
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.AddAttribute("", k, attrs[k])
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("export: invalid netCDF header: %v", errs)
	}

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := f.Writer(timeDim, []int{0}, []int{len(times)}).Write(times); err != nil {
		return fmt.Errorf("export: writing time: %w", err)
	}
	for i, c := range cols {
		data := make([]float32, c.Len())
		for j := range data {
			data[j] = float32(c.Float(j))
		}
		if _, err := f.Writer(vars[i], []int{0}, []int{len(data)}).Write(data); err != nil {
			return fmt.Errorf("export: writing %s: %w", c.Name, err)
		}
	}
	return nil
}
