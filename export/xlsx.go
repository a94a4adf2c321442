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

package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
	"github.com/tealeg/xlsx"
)

// maxSheetName is the longest sheet name allowed by Excel.
const maxSheetName = 31

var sheetReplacer = strings.NewReplacer("[", "(", "]", ")", ":", "_", "*", "_", "?", "_", "/", "_", `\`, "_")

// sheetName returns a unique, valid sheet name for a species and table
// kind.
func sheetName(f *xlsx.File, species, kind string) string {
	base := sheetReplacer.Replace(species)
	var suffix string
	if kind != "" {
		suffix = " " + kind
	}
	if len(base)+len(suffix) > maxSheetName {
		base = base[:maxSheetName-len(suffix)]
	}
	name := base + suffix
	for i := 2; ; i++ {
		if _, ok := f.Sheet[name]; !ok {
			return name
		}
		n := fmt.Sprintf(" %s%d", kind, i)
		if len(base)+len(n) > maxSheetName {
			base = base[:maxSheetName-len(n)]
		}
		name = base + n
	}
}

// addSheet writes t to a new sheet with a header row. The index, if
// there is one, is the first column. NaN values are left blank. If label
// is not nil, it maps column names to header cells.
func addSheet(f *xlsx.File, name string, t *uclchemtools.Table, label func(string) string) error {
	sh, err := f.AddSheet(name)
	if err != nil {
		return fmt.Errorf("export: adding sheet %q: %w", name, err)
	}
	header := sh.AddRow()
	if t.Index != nil {
		header.AddCell().SetString(t.IndexName)
	}
	for _, c := range t.Columns {
		if label != nil {
			header.AddCell().SetString(label(c.Name))
		} else {
			header.AddCell().SetString(c.Name)
		}
	}
	for i := 0; i < t.Len(); i++ {
		row := sh.AddRow()
		if t.Index != nil {
			row.AddCell().SetFloat(t.Index[i])
		}
		for _, c := range t.Columns {
			cell := row.AddCell()
			if c.Kind == uclchemtools.String {
				cell.SetString(c.String[i])
			} else if v := c.Float(i); !math.IsNaN(v) {
				cell.SetFloat(v)
			}
		}
	}
	return nil
}

// XLSX writes the rate tables of each species to an Excel workbook, with
// the summary, production and destruction tables of a species on
// separate sheets. Species are written in sorted order and species with
// empty tables are left out. In the reaction headers the species itself
// is marked bold with rates.Highlight.
func XLSX(path string, tables map[string]*rates.Tables) error {
	species := make([]string, 0, len(tables))
	for s := range tables {
		species = append(species, s)
	}
	sort.Strings(species)
	f := xlsx.NewFile()
	for _, s := range species {
		t := tables[s]
		if t == nil || t.Empty() {
			continue
		}
		highlight := func(reaction string) string { return rates.Highlight(reaction, s) }
		for _, k := range []struct {
			kind  string
			table *uclchemtools.Table
			label func(string) string
		}{
			{"total", t.Summary, nil},
			{"production", t.Production, highlight},
			{"destruction", t.Destruction, highlight},
		} {
			if err := addSheet(f, sheetName(f, s, k.kind), k.table, k.label); err != nil {
				return err
			}
		}
	}
	if len(f.Sheets) == 0 {
		return fmt.Errorf("export: no rate tables to write")
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// TableXLSX writes a single table, such as the abundances of a run, to
// an Excel workbook with one sheet.
func TableXLSX(path, sheet string, t *uclchemtools.Table) error {
	f := xlsx.NewFile()
	if err := addSheet(f, sheetName(f, sheet, ""), t, nil); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
