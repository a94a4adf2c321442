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

// Package metrics holds the prometheus collectors for conversion jobs,
// which are written out in the node exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Species extraction outcomes.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	species        *prometheus.CounterVec
	engineCalls    prometheus.Counter
	runs           *prometheus.CounterVec
	speciesSeconds prometheus.Histogram
}

// New creates and registers a set of collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		species: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uclchemtools",
			Name:      "species_extracted_total",
			Help:      "Number of species whose rates were extracted, by outcome.",
		}, []string{"status"}),
		engineCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uclchemtools",
			Name:      "engine_calls_total",
			Help:      "Number of rate engine calls.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uclchemtools",
			Name:      "runs_written_total",
			Help:      "Number of runs converted into an archive, by outcome.",
		}, []string{"status"}),
		speciesSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uclchemtools",
			Name:      "species_extraction_seconds",
			Help:      "Time spent extracting the rates of one species.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	m.Registry.MustRegister(m.species, m.engineCalls, m.runs, m.speciesSeconds)
	return m
}

// Species records the outcome of one species extraction.
func (m *Metrics) Species(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.species.WithLabelValues(status).Inc()
	if status == StatusOK {
		m.speciesSeconds.Observe(d.Seconds())
	}
}

// EngineCall records a rate engine call.
func (m *Metrics) EngineCall() {
	if m == nil {
		return
	}
	m.engineCalls.Inc()
}

// Run records the outcome of one run conversion.
func (m *Metrics) Run(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// WriteTextfile writes the current values to path in the text exposition
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
