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

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV reads a table with a header row. Columns whose values all parse
// as numbers (empty cells are allowed and become NaN) are stored as
// float64; all other columns are stored as strings. Header names are
// trimmed of surrounding whitespace.
func ReadCSV(r io.Reader) (*Table, error) {
	return readCSV(csv.NewReader(r))
}

func readCSV(r *csv.Reader) (*Table, error) {
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: reading csv: %v", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("uclchemtools: reading csv: missing header")
	}
	header := lines[0]
	rows := lines[1:]
	t := NewTable("", nil)
	for j, h := range header {
		name := strings.TrimSpace(h)
		text := make([]string, len(rows))
		numeric := true
		for i, row := range rows {
			if len(row) != len(header) {
				return nil, fmt.Errorf("uclchemtools: reading csv: line %d has %d fields; header has %d", i+2, len(row), len(header))
			}
			text[i] = strings.TrimSpace(row[j])
			if numeric && text[i] != "" {
				if _, err := strconv.ParseFloat(text[i], 64); err != nil {
					numeric = false
				}
			}
		}
		if numeric && len(rows) > 0 {
			v := make([]float64, len(rows))
			for i, s := range text {
				if s == "" {
					v[i] = math.NaN()
					continue
				}
				v[i], _ = strconv.ParseFloat(s, 64)
			}
			err = t.AddFloat64(name, v)
		} else {
			err = t.AddString(name, text)
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteCSV writes t with a header row. If the table has an index, it is
// written as the first column.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	var header []string
	if t.Index != nil {
		header = append(header, t.IndexName)
	}
	header = append(header, t.Names()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		row = row[:0]
		if t.Index != nil {
			row = append(row, strconv.FormatFloat(t.Index[i], 'g', -1, 64))
		}
		for _, c := range t.Columns {
			row = append(row, c.Text(i))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
