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

package uclchemutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spf13/cobra"
)

// ElementTable returns the element table at path, or the default table
// if path is empty.
func ElementTable(ctx context.Context, path string) (*uclchemtools.ElementTable, error) {
	if path == "" {
		return uclchemtools.DefaultElements(), nil
	}
	local, err := maybeDownload(ctx, path, logrus.StandardLogger())
	if err != nil {
		return nil, err
	}
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("uclchemutil: %v", err)
	}
	defer f.Close()
	return uclchemtools.ReadElements(f)
}

// Elements writes the elemental composition and mass of each species
// to w.
func Elements(w io.Writer, e *uclchemtools.ElementTable, species []string) error {
	for _, s := range species {
		c, err := e.Constituents(s)
		if err != nil {
			return err
		}
		m, err := e.Mass(s)
		if err != nil {
			return err
		}
		elems := make([]string, 0, len(c))
		for el := range c {
			elems = append(elems, el)
		}
		sort.Strings(elems)
		fmt.Fprintf(w, "%s: mass %g\n", uclchemtools.Canonical(s), m)
		for _, el := range elems {
			fmt.Fprintf(w, "  %s %d\n", el, c[el])
		}
	}
	return nil
}

// Conservation writes the total abundance of each element at every
// timestep of an output file to outPath as csv.
func Conservation(ctx context.Context, e *uclchemtools.ElementTable, outputPath, outPath string) error {
	o, err := uclchemtools.ReadOutputFile(os.ExpandEnv(outputPath))
	if err != nil {
		return err
	}
	totals, err := uclchemtools.ElementalTotals(o, e)
	if err != nil {
		return err
	}
	f, err := os.Create(os.ExpandEnv(outPath))
	if err != nil {
		return fmt.Errorf("uclchemutil: %v", err)
	}
	if err := uclchemtools.WriteCSV(f, totals); err != nil {
		f.Close()
		return fmt.Errorf("uclchemutil: writing %s: %v", outPath, err)
	}
	return f.Close()
}

var elementsCmd = &cobra.Command{
	Use:   "elements species...",
	Short: "Print the elemental composition of species.",
	Long: `elements prints the elements that make up each of the given species and
the species mass. Bracketed groups with multipliers such as (CH3)2CO are
expanded. The --Elements option replaces the default element table.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := ElementTable(context.Background(), Cfg.GetString("Elements"))
		if err != nil {
			return err
		}
		return Elements(cmd.OutOrStdout(), e, args)
	},
	DisableAutoGenTag: true,
}

var conservationCmd = &cobra.Command{
	Use:   "conservation output.csv totals.csv",
	Short: "Compute elemental totals of a UCLCHEM output file.",
	Long: `conservation sums the abundance of every element over all species at
each timestep of an output file, which can be used to check that the
simulation conserved elements, and writes the totals as csv.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := ElementTable(ctx, Cfg.GetString("Elements"))
		if err != nil {
			return err
		}
		return Conservation(ctx, e, args[0], args[1])
	},
	DisableAutoGenTag: true,
}
