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

package rates

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/internal/metrics"
)

// DefaultMaxReactions is the default limit on the number of reactions a
// species may take part in for its rates to be extracted.
const DefaultMaxReactions = 500

// Share is the fraction of the total production or destruction of a
// species that is due to one reaction.
type Share struct {
	Reaction string
	Share    float64
}

// Record holds the dominant reactions of one species at one timestep.
type Record struct {
	Time float64
	// TotalProduction and TotalDestruction are non-negative.
	TotalProduction, TotalDestruction float64
	// Production and Destruction hold the positive shares of the selected
	// reactions, ordered by decreasing share.
	Production, Destruction []Share
}

// NewRecord creates a record from a selection.
func NewRecord(t float64, s *Selection) Record {
	r := Record{Time: t, TotalProduction: s.TotalProduction, TotalDestruction: s.TotalDestruction}
	for _, c := range s.Production {
		r.Production = append(r.Production, Share{Reaction: c.Reaction, Share: c.Rate / s.TotalProduction})
	}
	for _, c := range s.Destruction {
		r.Destruction = append(r.Destruction, Share{Reaction: c.Reaction, Share: -c.Rate / s.TotalDestruction})
	}
	return r
}

// SpeciesError reports a failed engine call. The species it belongs to
// has no records.
type SpeciesError struct {
	Species string
	Time    float64
	Err     error
}

func (e *SpeciesError) Error() string {
	return fmt.Sprintf("rates: species %s at time %g: %v", e.Species, e.Time, e.Err)
}

func (e *SpeciesError) Unwrap() error { return e.Err }

// Extractor recomputes the rates of the reactions of each species at each
// timestep of a simulation output and selects the dominant ones.
type Extractor struct {
	Engine  Engine
	Network *uclchemtools.Network

	// Threshold is the share of total production and destruction that
	// the selected reactions must cover. The default is DefaultThreshold.
	Threshold float64

	// MaxReactions is the largest number of reactions a species may take
	// part in; species in more reactions are skipped. The default is
	// DefaultMaxReactions.
	MaxReactions int

	// Workers is the number of species processed concurrently. It is
	// limited to GOMAXPROCS, which is also the default.
	Workers int

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

func (e *Extractor) threshold() float64 {
	if e.Threshold <= 0 || e.Threshold > 1 {
		return DefaultThreshold
	}
	return e.Threshold
}

func (e *Extractor) maxReactions() int {
	if e.MaxReactions <= 0 {
		return DefaultMaxReactions
	}
	return e.MaxReactions
}

func (e *Extractor) workers() int {
	n := runtime.GOMAXPROCS(-1)
	if e.Workers > 0 && e.Workers < n {
		return e.Workers
	}
	return n
}

func (e *Extractor) log() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

// frame holds the per-timestep inputs shared by all species.
type frame struct {
	times      []float64
	params     []Params
	abundances [][]float64
	present    map[string]bool
}

func newFrame(output *uclchemtools.Table, n *uclchemtools.Network) (*frame, error) {
	if err := uclchemtools.CheckOutput(output); err != nil {
		return nil, err
	}
	times, err := output.Floats(uclchemtools.TimeColumn)
	if err != nil {
		return nil, err
	}
	f := &frame{
		times:      times,
		params:     make([]Params, output.Len()),
		abundances: make([][]float64, output.Len()),
		present:    make(map[string]bool),
	}
	cols := make([]*uclchemtools.Column, len(n.Species))
	for _, name := range uclchemtools.OutputSpecies(output) {
		if i, ok := n.SpeciesIndex(name); ok {
			cols[i] = output.Column(name)
			f.present[n.Species[i]] = true
		}
	}
	for r := range f.abundances {
		f.params[r] = ParamsFromRow(output, r)
		a := make([]float64, len(n.Species))
		for i, c := range cols {
			if c != nil {
				a[i] = c.Float(r)
			}
		}
		f.abundances[r] = a
	}
	return f, nil
}

// Species extracts the records of one species, in order of increasing
// time. Species that are not in the output, that are administrative
// pseudo-species, or that take part in more than MaxReactions reactions
// have no records.
func (e *Extractor) Species(ctx context.Context, output *uclchemtools.Table, species string) ([]Record, error) {
	f, err := newFrame(output, e.Network)
	if err != nil {
		return nil, err
	}
	recs, _, err := e.species(ctx, f, species)
	return recs, err
}

func (e *Extractor) species(ctx context.Context, f *frame, name string) ([]Record, string, error) {
	name = uclchemtools.Canonical(name)
	log := e.log().WithField("species", name)
	if name == uclchemtools.BulkSpecies || name == uclchemtools.SurfaceSpecies {
		return nil, metrics.StatusSkipped, nil
	}
	idx, ok := e.Network.SpeciesIndex(name)
	if !ok || !f.present[name] {
		log.Debug("species not in output; skipping")
		return nil, metrics.StatusSkipped, nil
	}
	reactions := e.Network.Involving(name)
	if len(reactions) > e.maxReactions() {
		log.WithFields(logrus.Fields{
			"reactions": len(reactions),
			"limit":     e.maxReactions(),
		}).Warn("species takes part in too many reactions; skipping")
		return nil, metrics.StatusSkipped, nil
	}
	recs := make([]Record, 0, len(f.times))
	for r, t := range f.times {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		e.Metrics.EngineCall()
		res, err := e.Engine.SpeciesRates(ctx, f.params[r], f.abundances[r], idx, reactions)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			return nil, metrics.StatusFailed, &SpeciesError{Species: name, Time: t, Err: err}
		}
		contribs, err := NetContributions(e.Network, name, reactions, res, f.abundances[r], f.params[r].Density)
		if err != nil {
			return nil, metrics.StatusFailed, &SpeciesError{Species: name, Time: t, Err: err}
		}
		if c, ok := TransferContribution(name, res.Transfer); ok {
			contribs = append(contribs, c)
		}
		recs = append(recs, NewRecord(t, SelectTop(contribs, e.threshold())))
	}
	log.Debug("extracted rates")
	return recs, metrics.StatusOK, nil
}

// Result holds the outcome of Extractor.All.
type Result struct {
	// Records holds the records of each species that was extracted.
	Records map[string][]Record
	// Failed holds the species whose engine calls failed, sorted by
	// species.
	Failed []*SpeciesError
	// Skipped holds the species that were not extracted, sorted.
	Skipped []string
}

type speciesResult struct {
	name    string
	records []Record
	status  string
	err     error
}

// All extracts the records of the given species (all network species if
// species is nil) concurrently. A failing species does not stop the
// others; it is reported in Result.Failed. If ctx is cancelled, All stops
// between timesteps and returns the context error.
func (e *Extractor) All(ctx context.Context, output *uclchemtools.Table, species []string) (*Result, error) {
	f, err := newFrame(output, e.Network)
	if err != nil {
		return nil, err
	}
	if species == nil {
		species = e.Network.Species
	}
	e.log().WithFields(logrus.Fields{
		"species": len(species),
		"workers": e.workers(),
	}).Info("extracting reaction rates")

	jobChan := make(chan string)
	resultChan := make(chan speciesResult)
	var wg sync.WaitGroup
	for w := 0; w < e.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobChan {
				start := time.Now()
				recs, status, err := e.species(ctx, f, name)
				if status != "" {
					e.Metrics.Species(status, time.Since(start))
				}
				resultChan <- speciesResult{name: name, records: recs, status: status, err: err}
			}
		}()
	}
	go func() {
		defer close(jobChan)
		for _, s := range species {
			select {
			case jobChan <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	out := &Result{Records: make(map[string][]Record)}
	for r := range resultChan {
		name := uclchemtools.Canonical(r.name)
		switch {
		case r.err != nil:
			if se, ok := r.err.(*SpeciesError); ok {
				e.log().WithField("species", name).Warnf("rate extraction failed: %v", se.Err)
				out.Failed = append(out.Failed, se)
			}
		case r.status == metrics.StatusSkipped:
			out.Skipped = append(out.Skipped, name)
		case r.status == metrics.StatusOK:
			out.Records[name] = r.records
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out.Failed, func(i, j int) bool { return out.Failed[i].Species < out.Failed[j].Species })
	sort.Strings(out.Skipped)
	return out, nil
}
