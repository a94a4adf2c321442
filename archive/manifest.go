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

package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/spatialmodel/uclchemtools"
)

// ManifestTable is the name of the sqlite table that holds the manifest
// of a grid of runs.
const ManifestTable = "model_df"

func sqlType(k uclchemtools.Kind) string {
	switch k {
	case uclchemtools.String:
		return "TEXT"
	case uclchemtools.Int32:
		return "INTEGER"
	default:
		return "REAL"
	}
}

// PutManifest stores t as the manifest of the archive, replacing any
// previous manifest. Each column becomes a column of the model_df table,
// so the manifest can be queried with SQL.
func (a *Archive) PutManifest(ctx context.Context, t *uclchemtools.Table) (err error) {
	if err := a.checkWritable(); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("archive: manifest has no columns")
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quote(ManifestTable)); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = quote(c.Name) + " " + sqlType(c.Kind)
		marks[i] = "?"
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (%s)`, quote(ManifestTable), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("archive: creating manifest: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, quote(ManifestTable), strings.Join(marks, ","))
	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			switch c.Kind {
			case uclchemtools.String:
				row[j] = c.String[i]
			case uclchemtools.Int32:
				row[j] = int64(c.Int32[i])
			default:
				if v := c.Float(i); !math.IsNaN(v) {
					row[j] = v
				}
			}
		}
		if _, err = tx.ExecContext(ctx, insert, row...); err != nil {
			return fmt.Errorf("archive: writing manifest row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Manifest reads the manifest of the archive. Missing numeric values are
// NaN.
func (a *Archive) Manifest(ctx context.Context) (*uclchemtools.Table, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, ManifestTable).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: manifest", ErrNotFound)
	}
	rows, err := a.db.QueryContext(ctx, `SELECT * FROM `+quote(ManifestTable)+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("archive: reading manifest: %w", err)
	}
	defer rows.Close()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	strs := make([][]string, len(types))
	nums := make([][]float64, len(types))
	ints := make([][]int32, len(types))
	for rows.Next() {
		dest := make([]interface{}, len(types))
		for j, ct := range types {
			switch strings.ToUpper(ct.DatabaseTypeName()) {
			case "TEXT":
				dest[j] = new(sql.NullString)
			case "INTEGER":
				dest[j] = new(sql.NullInt64)
			default:
				dest[j] = new(sql.NullFloat64)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("archive: reading manifest: %w", err)
		}
		for j, d := range dest {
			switch v := d.(type) {
			case *sql.NullString:
				strs[j] = append(strs[j], v.String)
			case *sql.NullInt64:
				ints[j] = append(ints[j], int32(v.Int64))
			case *sql.NullFloat64:
				if v.Valid {
					nums[j] = append(nums[j], v.Float64)
				} else {
					nums[j] = append(nums[j], math.NaN())
				}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	t := uclchemtools.NewTable("", nil)
	for j, ct := range types {
		switch strings.ToUpper(ct.DatabaseTypeName()) {
		case "TEXT":
			err = t.AddString(ct.Name(), orEmpty(strs[j]))
		case "INTEGER":
			if ints[j] == nil {
				ints[j] = []int32{}
			}
			err = t.AddInt32(ct.Name(), ints[j])
		default:
			if nums[j] == nil {
				nums[j] = []float64{}
			}
			err = t.AddFloat64(ct.Name(), nums[j])
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
