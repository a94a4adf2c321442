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
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/engine"
	"github.com/spatialmodel/uclchemtools/grid"
	"github.com/spatialmodel/uclchemtools/internal/metrics"
	"github.com/spatialmodel/uclchemtools/rates"
	"github.com/spf13/cobra"
)

// interruptible returns a context that is cancelled on an interrupt
// signal. Conversions stop between runs and species when it is cancelled.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// LoadNetwork reads the chemical network from species and reaction csv
// files, downloading them first if necessary.
func LoadNetwork(ctx context.Context, speciesPath, reactionsPath string, log logrus.FieldLogger) (*uclchemtools.Network, error) {
	if speciesPath == "" || reactionsPath == "" {
		return nil, fmt.Errorf("uclchemutil: Network.Species and Network.Reactions must both be set")
	}
	open := func(p string) (*os.File, error) {
		local, err := maybeDownload(ctx, p, log)
		if err != nil {
			return nil, err
		}
		return os.Open(local)
	}
	sf, err := open(speciesPath)
	if err != nil {
		return nil, err
	}
	defer sf.Close()
	rf, err := open(reactionsPath)
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	n, err := uclchemtools.ReadNetwork(sf, rf)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"species": len(n.Species), "reactions": len(n.Reactions)}).Info("read chemical network")
	return n, nil
}

// NewConverter creates a converter from the configuration. The returned
// function releases the rate engine.
func NewConverter(ctx context.Context, log logrus.FieldLogger, m *metrics.Metrics) (*grid.Converter, func() error, error) {
	n, err := LoadNetwork(ctx, Cfg.GetString("Network.Species"), Cfg.GetString("Network.Reactions"), log)
	if err != nil {
		return nil, nil, err
	}
	e, closer, err := NewEngine(n, log)
	if err != nil {
		return nil, nil, err
	}
	c := &grid.Converter{
		Network:            n,
		Engine:             e,
		ComputeDerivatives: Cfg.GetBool("derivatives"),
		Threshold:          Cfg.GetFloat64("Rates.Threshold"),
		MaxReactions:       Cfg.GetInt("Rates.MaxReactions"),
		Workers:            Cfg.GetInt("Rates.Workers"),
		Log:                log,
		Metrics:            m,
	}
	return c, closer, nil
}

// NewEngine creates the configured rate engine for network n: a pool of
// Engine.Command helpers, or the built-in Arrhenius engine if no command
// is set. The returned function releases it.
func NewEngine(n *uclchemtools.Network, log logrus.FieldLogger) (rates.DerivativeEngine, func() error, error) {
	command := os.ExpandEnv(Cfg.GetString("Engine.Command"))
	if command == "" {
		return &engine.Arrhenius{Network: n}, func() error { return nil }, nil
	}
	args, err := stringSlice("Engine.Args")
	if err != nil {
		return nil, nil, err
	}
	p := engine.NewProcess(Cfg.GetInt("Engine.Processes"), command, args...)
	p.Log = log
	return p, p.Close, nil
}

// Derivatives computes the derivatives of every species at each timestep
// of a UCLCHEM output file with the configured rate engine, and writes
// them as csv to outPath.
func Derivatives(ctx context.Context, outputPath, outPath string) error {
	log := logrus.StandardLogger()
	n, err := LoadNetwork(ctx, Cfg.GetString("Network.Species"), Cfg.GetString("Network.Reactions"), log)
	if err != nil {
		return err
	}
	e, closer, err := NewEngine(n, log)
	if err != nil {
		return err
	}
	defer closer()
	local, err := maybeDownload(ctx, outputPath, log)
	if err != nil {
		return err
	}
	out, err := uclchemtools.ReadOutputFile(local)
	if err != nil {
		return err
	}
	d, err := rates.Derivatives(ctx, e, n, out)
	if err != nil {
		return err
	}
	f, err := os.Create(os.ExpandEnv(outPath))
	if err != nil {
		return err
	}
	if err := uclchemtools.WriteCSV(f, d); err != nil {
		f.Close()
		return err
	}
	log.WithFields(logrus.Fields{"file": outPath, "timesteps": d.Len()}).Info("wrote derivatives")
	return f.Close()
}

// withMetrics runs fn with a fresh set of metrics and writes them to
// MetricsFile afterwards, whether or not fn succeeded.
func withMetrics(fn func(m *metrics.Metrics) error) error {
	var m *metrics.Metrics
	path := os.ExpandEnv(Cfg.GetString("MetricsFile"))
	if path != "" {
		m = metrics.New()
	}
	err := fn(m)
	if werr := m.WriteTextfile(path); werr != nil && err == nil {
		err = fmt.Errorf("uclchemutil: writing metrics: %v", werr)
	}
	return err
}

// Convert converts a single output file into a run of a new or existing
// archive. If runID is empty, the base name of the output file is used.
func Convert(ctx context.Context, archivePath, outputPath, runID string, getRates bool) error {
	if runID == "" {
		runID = strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	}
	log := logrus.StandardLogger()
	return withMetrics(func(m *metrics.Metrics) error {
		c, closer, err := NewConverter(ctx, log, m)
		if err != nil {
			return err
		}
		defer closer()
		local, err := maybeDownload(ctx, outputPath, log)
		if err != nil {
			return err
		}
		return c.ConvertRun(ctx, os.ExpandEnv(archivePath), runID, local, getRates)
	})
}

// ConvertGrid converts every run listed in a manifest into a new archive.
func ConvertGrid(ctx context.Context, archivePath, manifestPath, abundancesDir, derivativesDir string, getRates bool) error {
	log := logrus.StandardLogger()
	return withMetrics(func(m *metrics.Metrics) error {
		local, err := maybeDownload(ctx, manifestPath, log)
		if err != nil {
			return err
		}
		manifest, err := grid.ReadManifestFile(local)
		if err != nil {
			return err
		}
		c, closer, err := NewConverter(ctx, log, m)
		if err != nil {
			return err
		}
		defer closer()
		c.AbundancesDir = os.ExpandEnv(abundancesDir)
		c.DerivativesDir = os.ExpandEnv(derivativesDir)
		return c.ConvertGrid(ctx, os.ExpandEnv(archivePath), manifest, getRates)
	})
}

// convertCmd converts a single output file.
var convertCmd = &cobra.Command{
	Use:   "convert archive output.csv",
	Short: "Convert one UCLCHEM output file into an archive run.",
	Long: `convert stores a UCLCHEM full output file as a run of a new or existing
archive, together with the chemical network. With --rates, the reactions
that dominate the production and destruction of every species are
extracted and stored as well.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptible()
		defer cancel()
		return Convert(ctx, args[0], args[1], Cfg.GetString("run_id"), Cfg.GetBool("rates"))
	},
	DisableAutoGenTag: true,
}

// gridCmd converts the runs of a model grid.
var gridCmd = &cobra.Command{
	Use:   "grid archive manifest.csv",
	Short: "Convert a grid of UCLCHEM runs into a new archive.",
	Long: `grid converts every run listed in a manifest csv file into a new archive.
The manifest must have an outputFile column and may have a
derivativesFile column. Runs are stored as grid_0, grid_1, ... in
manifest order and the manifest is stored with an added storage_id
column. The archive must not exist.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptible()
		defer cancel()
		return ConvertGrid(ctx, args[0], args[1],
			Cfg.GetString("abundances_dir"), Cfg.GetString("derivatives_dir"),
			Cfg.GetBool("rates"))
	},
	DisableAutoGenTag: true,
}

// derivativesCmd computes the derivatives of an output file.
var derivativesCmd = &cobra.Command{
	Use:   "derivatives output.csv derivatives.csv",
	Short: "Compute the species derivatives of a UCLCHEM output file.",
	Long: `derivatives evaluates the time derivative of every species abundance at
each timestep of a UCLCHEM full output file with the rate engine and
writes them to a csv file that can be listed in the derivativesFile
column of a grid manifest.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptible()
		defer cancel()
		return Derivatives(ctx, args[0], args[1])
	},
	DisableAutoGenTag: true,
}

// engineCmd runs the built-in rate engine as a helper process.
var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Serve the built-in rate engine on standard input and output.",
	Long: `engine answers rate engine requests on standard input with the built-in
gas-phase Arrhenius engine, one JSON message per line. It can be used
as Engine.Command and as a reference for writing helpers that wrap
other chemistry codes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptible()
		defer cancel()
		log := logrus.StandardLogger()
		n, err := LoadNetwork(ctx, Cfg.GetString("Network.Species"), Cfg.GetString("Network.Reactions"), log)
		if err != nil {
			return err
		}
		return engine.Serve(ctx, &engine.Arrhenius{Network: n}, os.Stdin, os.Stdout)
	},
	DisableAutoGenTag: true,
}
