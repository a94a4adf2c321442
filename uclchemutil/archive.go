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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/archive"
	"github.com/spatialmodel/uclchemtools/chemplot"
	"github.com/spatialmodel/uclchemtools/export"
	"github.com/spatialmodel/uclchemtools/rates"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
)

func view(ctx context.Context, archivePath string, fn func(*archive.Archive) error) error {
	return archive.View(ctx, os.ExpandEnv(archivePath), fn,
		archive.WithLog(logrus.StandardLogger()),
		archive.WithCacheSize(Cfg.GetInt("CacheSize")))
}

// RateTables reads the rate tables of every species of a run. Species
// without stored rates are left out.
func RateTables(rd *archive.RunData) (map[string]*rates.Tables, error) {
	o := make(map[string]*rates.Tables)
	for _, s := range rd.TotalRates.Keys() {
		t, err := speciesRates(rd, s)
		if err != nil {
			return nil, err
		}
		if !t.Empty() {
			o[s] = t
		}
	}
	return o, nil
}

func speciesRates(rd *archive.RunData, species string) (*rates.Tables, error) {
	var t rates.Tables
	var err error
	if t.Summary, err = rd.TotalRates.Get(species); err != nil {
		return nil, err
	}
	if t.Production, err = rd.Production.Get(species); err != nil {
		return nil, err
	}
	if t.Destruction, err = rd.Destruction.Get(species); err != nil {
		return nil, err
	}
	return &t, nil
}

// ExportNetCDF writes the abundances of a run to a netCDF file.
func ExportNetCDF(ctx context.Context, archivePath, runID, outPath string) error {
	return view(ctx, archivePath, func(a *archive.Archive) error {
		rd, err := a.ReadRun(ctx, runID)
		if err != nil {
			return err
		}
		return export.NetCDF(os.ExpandEnv(outPath), rd.Abundances, map[string]string{
			"run_id":  runID,
			"archive": filepath.Base(archivePath),
			"version": uclchemtools.Version,
		})
	})
}

// ExportXLSX writes the rate tables of a run to an Excel workbook.
func ExportXLSX(ctx context.Context, archivePath, runID, outPath string) error {
	return view(ctx, archivePath, func(a *archive.Archive) error {
		rd, err := a.ReadRun(ctx, runID)
		if err != nil {
			return err
		}
		tables, err := RateTables(rd)
		if err != nil {
			return err
		}
		return export.XLSX(os.ExpandEnv(outPath), tables)
	})
}

// PlotAbundances plots the abundances of the given species for the given
// runs, or for every run if runIDs is empty.
func PlotAbundances(ctx context.Context, archivePath, outPath string, runIDs, species []string) error {
	if len(species) == 0 {
		return fmt.Errorf("uclchemutil: no species to plot")
	}
	return view(ctx, archivePath, func(a *archive.Archive) error {
		if len(runIDs) == 0 {
			runs, err := a.Runs(ctx)
			if err != nil {
				return err
			}
			for _, r := range runs {
				runIDs = append(runIDs, r.ID)
			}
		}
		tables := make(map[string]*uclchemtools.Table, len(runIDs))
		for _, id := range runIDs {
			rd, err := a.ReadRun(ctx, id)
			if err != nil {
				return err
			}
			tables[id] = rd.Abundances
		}
		p, err := chemplot.Abundances(tables, species)
		if err != nil {
			return err
		}
		return chemplot.Save(p, os.ExpandEnv(outPath))
	})
}

// orderShares returns copies of the production and destruction tables
// of t with their reactions ordered by decreasing mean share. If ref is
// not nil, reactions also selected in ref come first, in ref's order.
func orderShares(t, ref *rates.Tables) (prod, dest *uclchemtools.Table) {
	order := func(tt, rt *uclchemtools.Table) *uclchemtools.Table {
		tt = tt.Copy()
		if rt == nil {
			rates.SortByIntersection(tt, tt)
			return tt
		}
		rates.SortByIntersection(rt.Copy(), tt)
		return tt
	}
	if ref == nil {
		return order(t.Production, nil), order(t.Destruction, nil)
	}
	return order(t.Production, ref.Production), order(t.Destruction, ref.Destruction)
}

// PlotRates writes plots of the total rates and the production and
// destruction shares of a species in a run to outDir. Plots with nothing
// to draw are skipped. Reactions are drawn in order of decreasing mean
// share; if reference names another run, the reactions it shares with
// runID are drawn first, so that plots of the two runs line up.
func PlotRates(ctx context.Context, archivePath, runID, reference, species, outDir string) error {
	log := logrus.StandardLogger()
	return view(ctx, archivePath, func(a *archive.Archive) error {
		rd, err := a.ReadRun(ctx, runID)
		if err != nil {
			return err
		}
		t, err := speciesRates(rd, species)
		if err != nil {
			return err
		}
		var ref *rates.Tables
		if reference != "" {
			rr, err := a.ReadRun(ctx, reference)
			if err != nil {
				return err
			}
			if ref, err = speciesRates(rr, species); err != nil {
				return err
			}
		}
		prod, dest := orderShares(t, ref)
		outDir = os.ExpandEnv(outDir)
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return err
		}
		name := export.VariableName(uclchemtools.Canonical(species))
		for _, f := range []struct {
			file string
			plot func() (*plot.Plot, error)
		}{
			{name + "_totals.png", func() (*plot.Plot, error) { return chemplot.Totals(t.Summary) }},
			{name + "_production.png", func() (*plot.Plot, error) { return chemplot.Shares(prod, species+" production") }},
			{name + "_destruction.png", func() (*plot.Plot, error) { return chemplot.Shares(dest, species+" destruction") }},
		} {
			p, err := f.plot()
			if errors.Is(err, chemplot.ErrNoData) {
				log.WithFields(logrus.Fields{"run": runID, "species": species, "plot": f.file}).Warn("nothing to plot")
				continue
			} else if err != nil {
				return err
			}
			if err := chemplot.Save(p, filepath.Join(outDir, f.file)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Inspect writes a description of an archive, or of one of its runs if
// runID is not empty, to w.
func Inspect(ctx context.Context, w io.Writer, archivePath, runID string) error {
	return view(ctx, archivePath, func(a *archive.Archive) error {
		if runID != "" {
			datasets, err := a.Datasets(ctx, runID)
			if err != nil {
				return err
			}
			if len(datasets) == 0 {
				return fmt.Errorf("%w: run %s", archive.ErrNotFound, runID)
			}
			_, err = fmt.Fprintf(w, "run %s datasets:\n%# v\n", runID, pretty.Formatter(datasets))
			return err
		}
		runs, err := a.Runs(ctx)
		if err != nil {
			return err
		}
		schema, err := a.Schema(ctx)
		if err != nil {
			return err
		}
		l, err := a.Lookup(ctx)
		if err != nil {
			return err
		}
		var lookupSize int
		if l != nil {
			lookupSize = l.Len()
		}
		fmt.Fprintf(w, "archive %s\n", a.Path())
		fmt.Fprintf(w, "abundance columns: %d\n", len(schema))
		fmt.Fprintf(w, "species lookup entries: %d\n", lookupSize)
		_, err = fmt.Fprintf(w, "runs:\n%# v\n", pretty.Formatter(runs))
		return err
	})
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived runs to other formats.",
	Long: `export writes the data of an archived run to other file formats. Use the
subcommands specified below to choose the format.`,
	DisableAutoGenTag: true,
}

var exportNetCDFCmd = &cobra.Command{
	Use:   "netcdf archive run_id output.nc",
	Short: "Export the abundances of a run to netCDF.",
	Long: `netcdf writes the abundances of a run to a netCDF-3 file with one
variable per column along a time dimension. Species names are made
netCDF-safe; the original name is kept in the "species" attribute.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ExportNetCDF(context.Background(), args[0], args[1], args[2])
	},
	DisableAutoGenTag: true,
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx archive run_id output.xlsx",
	Short: "Export the rate tables of a run to an Excel workbook.",
	Long: `xlsx writes the total, production and destruction rate tables of every
species of a run with stored rates to an Excel workbook.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ExportXLSX(context.Background(), args[0], args[1], args[2])
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot archived data.",
	Long: `plot draws static images of archived data. The image format is chosen
from the file extension.`,
	DisableAutoGenTag: true,
}

var plotAbundancesCmd = &cobra.Command{
	Use:   "abundances archive output.png",
	Short: "Plot species abundances against time.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := stringSlice("runs")
		if err != nil {
			return err
		}
		species, err := stringSlice("species")
		if err != nil {
			return err
		}
		return PlotAbundances(context.Background(), args[0], args[1], runs, species)
	},
	DisableAutoGenTag: true,
}

var plotRatesCmd = &cobra.Command{
	Use:   "rates archive run_id species output_dir",
	Short: "Plot the rates of one species.",
	Long: `rates draws the total production and destruction rates of a species and
the share of each dominant reaction over time. With --reference, the
reactions are ordered to match another run of the archive.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return PlotRates(context.Background(), args[0], args[1], Cfg.GetString("reference"), args[2], args[3])
	},
	DisableAutoGenTag: true,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect archive [run_id]",
	Short: "Describe the contents of an archive.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var runID string
		if len(args) > 1 {
			runID = args[1]
		}
		return Inspect(context.Background(), cmd.OutOrStdout(), args[0], runID)
	},
	DisableAutoGenTag: true,
}
