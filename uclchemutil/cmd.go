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

// Package uclchemutil implements the uclchemtools command-line interface.
package uclchemutil

import (
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(convertCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(exportCmd)
	exportCmd.AddCommand(exportNetCDFCmd)
	exportCmd.AddCommand(exportXLSXCmd)
	Root.AddCommand(plotCmd)
	plotCmd.AddCommand(plotAbundancesCmd)
	plotCmd.AddCommand(plotRatesCmd)
	Root.AddCommand(inspectCmd)
	Root.AddCommand(elementsCmd)
	Root.AddCommand(conservationCmd)
	Root.AddCommand(engineCmd)
	Root.AddCommand(derivativesCmd)
}

func init() {
	// Options are the configuration options available to uclchemtools.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the minimum level of log messages that are
              printed: one of debug, info, warn or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MetricsFile",
			usage: `
              MetricsFile, if set, is the path of a file that conversion
              metrics are written to in the Prometheus text format when the
              command finishes.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Network.Species",
			usage: `
              Network.Species is the path to the species table (csv) of the
              chemical network the simulations were run with. It can be a
              local file, an http(s) URL or an s3:// object.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags(), engineCmd.Flags(), derivativesCmd.Flags()},
		},
		{
			name: "Network.Reactions",
			usage: `
              Network.Reactions is the path to the reaction table (csv) of
              the chemical network the simulations were run with. It can be a
              local file, an http(s) URL or an s3:// object.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags(), engineCmd.Flags(), derivativesCmd.Flags()},
		},
		{
			name: "Engine.Command",
			usage: `
              Engine.Command is the rate engine helper program. Helpers read
              one JSON request per line on standard input and write one JSON
              response per line on standard output. If it is empty, the
              built-in gas-phase Arrhenius engine is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags(), derivativesCmd.Flags()},
		},
		{
			name: "Engine.Args",
			usage: `
              Engine.Args holds the arguments passed to Engine.Command.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags(), derivativesCmd.Flags()},
		},
		{
			name: "Engine.Processes",
			usage: `
              Engine.Processes is the number of helper processes to run.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags(), derivativesCmd.Flags()},
		},
		{
			name: "rates",
			usage: `
              rates specifies whether to extract reaction rates for every
              species. This requires a rate engine and is computationally
              expensive.`,
			shorthand:  "r",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "derivatives",
			usage: `
              derivatives specifies whether to compute the derivatives of
              runs that have no derivatives file with the rate engine.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Rates.Threshold",
			usage: `
              Rates.Threshold is the fraction of the total production or
              destruction of a species that the selected reactions must
              account for.`,
			defaultVal: rates.DefaultThreshold,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Rates.MaxReactions",
			usage: `
              Rates.MaxReactions is the largest number of reactions a species
              may be involved in for its rates to be extracted. Species with
              more reactions are skipped with a warning.`,
			defaultVal: rates.DefaultMaxReactions,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Rates.Workers",
			usage: `
              Rates.Workers is the number of species whose rates are
              extracted concurrently. Zero means one per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "run_id",
			usage: `
              run_id is the id the run is stored under. By default it is the
              base name of the output file without its extension.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "abundances_dir",
			usage: `
              abundances_dir, if set, is the directory the output files named
              in the manifest are read from instead of their original one.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "derivatives_dir",
			usage: `
              derivatives_dir, if set, is the directory the derivatives files
              named in the manifest are read from instead of their original
              one.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "CacheSize",
			usage: `
              CacheSize is the number of archive tables kept in memory while
              reading.`,
			defaultVal: 100,
			flagsets: []*pflag.FlagSet{exportNetCDFCmd.Flags(), exportXLSXCmd.Flags(),
				plotAbundancesCmd.Flags(), plotRatesCmd.Flags(), inspectCmd.Flags()},
		},
		{
			name: "species",
			usage: `
              species is the list of species to plot. Combined ice species
              such as $CO are drawn as the sum of #CO and @CO.`,
			shorthand:  "s",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{plotAbundancesCmd.Flags()},
		},
		{
			name: "runs",
			usage: `
              runs is the list of runs to plot. By default all runs in the
              archive are plotted.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{plotAbundancesCmd.Flags()},
		},
		{
			name: "reference",
			usage: `
              reference, if set, is the run whose mean rates order the
              reactions of the plotted run. Reactions the two runs share are
              drawn first.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{plotRatesCmd.Flags()},
		},
		{
			name: "Elements",
			usage: `
              Elements, if set, is the path to a TOML file that replaces the
              default element table.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{elementsCmd.Flags(), conservationCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("UCLCHEM")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// stringSlice returns the value of a list option.
func stringSlice(name string) ([]string, error) {
	v, err := cast.ToStringSliceE(Cfg.Get(name))
	if err != nil {
		return nil, fmt.Errorf("uclchemtools: invalid value for %s: %v", name, err)
	}
	return v, nil
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("uclchemtools: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("uclchemtools: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "uclchemtools",
	Short: "Post-process UCLCHEM astrochemistry model output.",
	Long: `uclchemtools converts UCLCHEM model output into single-file archives,
optionally extracting the reactions that dominate the production and
destruction of every species, and exports and plots the archived data.
Use the subcommands specified below to access this functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'UCLCHEM_var' where 'var' is the
name of the variable to be set. Paths are allowed to contain environment
variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of uclchemtools.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("uclchemtools v%s\n", uclchemtools.Version)
	},
	DisableAutoGenTag: true,
}
