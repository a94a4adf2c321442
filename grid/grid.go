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

// Package grid converts grids of simulation runs, described by a
// manifest table, into a single archive.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/archive"
	"github.com/spatialmodel/uclchemtools/internal/metrics"
	"github.com/spatialmodel/uclchemtools/rates"
)

// Manifest columns.
const (
	// OutputFileColumn holds the path of the output file of each run.
	OutputFileColumn = "outputFile"
	// DerivativesFileColumn optionally holds the path of a file with the
	// precomputed derivatives of each run.
	DerivativesFileColumn = "derivativesFile"
	// StorageIDColumn is added to the stored manifest.
	StorageIDColumn = "storage_id"
)

// ErrArchiveExists is returned when a grid is converted into an archive
// that already exists.
var ErrArchiveExists = errors.New("grid: archive already exists")

// StorageIDs returns the storage ids of the rows of a manifest with n
// rows: grid_0 through grid_{n-1}.
func StorageIDs(n int) []string {
	o := make([]string, n)
	for i := range o {
		o[i] = "grid_" + strconv.Itoa(i)
	}
	return o
}

// ReadManifest reads a manifest table from csv. It must have an
// outputFile column.
func ReadManifest(r io.Reader) (*uclchemtools.Table, error) {
	t, err := uclchemtools.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("grid: reading manifest: %w", err)
	}
	if err := checkManifest(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadManifestFile reads a manifest table from a csv file.
func ReadManifestFile(path string) (*uclchemtools.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	defer f.Close()
	return ReadManifest(f)
}

func checkManifest(t *uclchemtools.Table) error {
	if c := t.Column(OutputFileColumn); c == nil || c.Kind != uclchemtools.String {
		return fmt.Errorf("grid: manifest has no %s column", OutputFileColumn)
	}
	if t.Has(StorageIDColumn) {
		return fmt.Errorf("grid: manifest already has a %s column", StorageIDColumn)
	}
	return nil
}

// Converter converts simulation outputs into archives.
type Converter struct {
	// Network is the chemical network shared by all runs.
	Network *uclchemtools.Network

	// Engine recomputes reaction rates. It is only needed when rates are
	// requested.
	Engine rates.Engine

	// AbundancesDir and DerivativesDir, if set, replace the directories
	// of the output and derivatives files named in the manifest, for
	// files that have been moved since the grid was run.
	AbundancesDir, DerivativesDir string

	// ComputeDerivatives makes runs without a derivatives file get
	// derivatives computed by Engine, which must then implement
	// rates.DerivativeEngine.
	ComputeDerivatives bool

	// Threshold, MaxReactions and Workers configure rate extraction.
	Threshold    float64
	MaxReactions int
	Workers      int

	ArchiveOptions []archive.Option

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

func (c *Converter) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func relocate(path, dir string) string {
	if dir == "" || path == "" {
		return path
	}
	return filepath.Join(dir, filepath.Base(path))
}

// optionalPaths returns the paths in column name of m, with "" for rows
// that have none. A column whose cells are all empty is read as numeric
// NaN, so only string columns can hold paths.
func optionalPaths(m *uclchemtools.Table, name string) []string {
	o := make([]string, m.Len())
	c := m.Column(name)
	if c == nil || c.Kind != uclchemtools.String {
		return o
	}
	for i, v := range c.String {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "nan") {
			v = ""
		}
		o[i] = v
	}
	return o
}

func (c *Converter) checkRates(getRates bool) error {
	if !getRates {
		return nil
	}
	c.log().Warn("extracting reaction rates is computationally expensive and can take a long time")
	if c.Engine == nil {
		return fmt.Errorf("grid: rates requested but no rate engine is configured")
	}
	return nil
}

// ConvertGrid converts every run in manifest into a new archive at
// archivePath. Runs are stored under the ids returned by StorageIDs, in
// manifest order, and the manifest is stored with an added storage_id
// column. The conversion stops at the first run that fails; the error
// names the run, and runs stored before it remain in the archive.
func (c *Converter) ConvertGrid(ctx context.Context, archivePath string, manifest *uclchemtools.Table, getRates bool) error {
	if _, err := os.Stat(archivePath); err == nil {
		return fmt.Errorf("%w: %s", ErrArchiveExists, archivePath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("grid: %w", err)
	}
	if err := checkManifest(manifest); err != nil {
		return err
	}
	if err := c.checkRates(getRates); err != nil {
		return err
	}
	ids := StorageIDs(manifest.Len())
	m := manifest.Copy()
	if err := m.AddString(StorageIDColumn, ids); err != nil {
		return err
	}
	m.Reorder(StorageIDColumn)
	outputs, _ := m.Strings(OutputFileColumn)
	derivs := optionalPaths(m, DerivativesFileColumn)

	return archive.Update(ctx, archivePath, func(a *archive.Archive) error {
		if err := a.PutManifest(ctx, m); err != nil {
			return err
		}
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("grid: stopped before run %s: %w", id, err)
			}
			if err := c.convert(ctx, a, id, outputs[i], derivs[i], getRates); err != nil {
				return err
			}
		}
		c.log().WithFields(logrus.Fields{"archive": archivePath, "runs": len(ids)}).Info("grid conversion complete")
		return nil
	}, c.archiveOptions()...)
}

// ConvertRun converts one output file into a run with the given id in a
// new or existing archive.
func (c *Converter) ConvertRun(ctx context.Context, archivePath, runID, outputPath string, getRates bool) error {
	if err := c.checkRates(getRates); err != nil {
		return err
	}
	return archive.Update(ctx, archivePath, func(a *archive.Archive) error {
		return c.convert(ctx, a, runID, outputPath, "", getRates)
	}, c.archiveOptions()...)
}

func (c *Converter) archiveOptions() []archive.Option {
	return append([]archive.Option{archive.WithLog(c.log())}, c.ArchiveOptions...)
}

func (c *Converter) convert(ctx context.Context, a *archive.Archive, id, outputPath, derivPath string, getRates bool) error {
	run, err := c.buildRun(ctx, id, outputPath, derivPath, getRates)
	if err == nil {
		err = a.WriteRun(ctx, run, archive.WriteOptions{})
	}
	if err != nil {
		c.Metrics.Run(metrics.StatusFailed)
		return fmt.Errorf("grid: run %s: %w", id, err)
	}
	c.Metrics.Run(metrics.StatusOK)
	return nil
}

// buildRun reads and processes the inputs of one run.
func (c *Converter) buildRun(ctx context.Context, id, outputPath, derivPath string, getRates bool) (*archive.Run, error) {
	outputPath = relocate(outputPath, c.AbundancesDir)
	log := c.log().WithFields(logrus.Fields{"run": id, "output": outputPath})
	log.Info("converting run")
	out, err := uclchemtools.ReadOutputFile(outputPath)
	if err != nil {
		return nil, err
	}
	run := &archive.Run{
		ID:         id,
		Source:     outputPath,
		Abundances: out,
		Network:    c.Network,
	}
	if derivPath != "" {
		derivPath = relocate(derivPath, c.DerivativesDir)
		if run.Derivatives, err = readDerivatives(derivPath); err != nil {
			return nil, err
		}
	} else if c.ComputeDerivatives {
		de, ok := c.Engine.(rates.DerivativeEngine)
		if !ok {
			return nil, fmt.Errorf("derivatives requested but the rate engine cannot compute them")
		}
		log.Info("computing derivatives")
		if run.Derivatives, err = rates.Derivatives(ctx, de, c.Network, out); err != nil {
			return nil, err
		}
	}
	if !getRates {
		return run, nil
	}
	e := &rates.Extractor{
		Engine:       c.Engine,
		Network:      c.Network,
		Threshold:    c.Threshold,
		MaxReactions: c.MaxReactions,
		Workers:      c.Workers,
		Log:          log,
		Metrics:      c.Metrics,
	}
	res, err := e.All(ctx, out, nil)
	if err != nil {
		return nil, err
	}
	run.Rates = make(map[string]*rates.Tables, len(c.Network.Species))
	for _, s := range c.Network.Species {
		t, err := rates.Assemble(res.Records[s])
		if err != nil {
			return nil, fmt.Errorf("assembling rates of %s: %w", s, err)
		}
		run.Rates[s] = t
	}
	if len(res.Failed) > 0 {
		failed := make([]string, len(res.Failed))
		for i, f := range res.Failed {
			failed[i] = f.Species
		}
		sort.Strings(failed)
		log.WithField("species", failed).Warn("rates could not be extracted for some species; their rate tables are empty")
	}
	return run, nil
}

func readDerivatives(path string) (*uclchemtools.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := uclchemtools.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%v (file %s)", err, path)
	}
	return t, nil
}
