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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/internal/hash"
	"github.com/spatialmodel/uclchemtools/lookup"
	"github.com/spatialmodel/uclchemtools/rates"
)

// ErrRunExists is returned when a run is written under an id that is
// already stored.
var ErrRunExists = errors.New("archive: run already exists")

// ErrUnsupportedConfiguration is returned for runs whose chemical network
// differs from the network of the archive, and for requests to store a
// separate network per run.
var ErrUnsupportedConfiguration = errors.New("archive: only archives in which all runs share one chemical network are supported")

// SchemaMismatchError is returned when the abundance columns of a run
// differ from those established by the first run of the archive.
type SchemaMismatchError struct {
	RunID string
	Want  []string
	Have  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("archive: run %s has abundance columns %v; archive has %v", e.RunID, e.Have, e.Want)
}

// Rate table kinds.
const (
	TotalRates  = "total_rates"
	Production  = "production"
	Destruction = "destruction"
)

// Dataset paths.
func abundancesPath(run string) string  { return run + "/abundances" }
func speciesPath(run string) string     { return run + "/species" }
func reactionsPath(run string) string   { return run + "/reactions" }
func derivativesPath(run string) string { return run + "/derivatives" }

func ratesPath(run, kind, species string) string {
	return run + "/rates/" + kind + "/" + species
}

// Meta keys.
const (
	metaSchema  = "abundance_schema"
	metaNetwork = "network"
	metaVersion = "version"
)

// Run is one simulation run to be written.
type Run struct {
	ID string
	// Source is the location of the output the run was read from.
	Source string

	Abundances *uclchemtools.Table
	Network    *uclchemtools.Network

	// Derivatives is optional.
	Derivatives *uclchemtools.Table

	// Rates holds the rate tables of each species, if they were
	// extracted.
	Rates map[string]*rates.Tables
}

// WriteOptions holds options for WriteRun.
type WriteOptions struct {
	// PerRunNetworks requests that each run keep its own network. It is
	// not supported.
	PerRunNetworks bool
}

// NetworkFingerprint returns a digest of the species and reactions of n.
func NetworkFingerprint(n *uclchemtools.Network) string {
	return hash.Fingerprint(n.Species, n.Reactions)
}

// WriteRun stores a run. The run is written in one transaction: if any
// step fails, nothing is stored. The first run establishes the abundance
// schema, the network and the species lookup of the archive; later runs
// must match them.
func (a *Archive) WriteRun(ctx context.Context, run *Run, opts WriteOptions) (err error) {
	if err := a.checkWritable(); err != nil {
		return err
	}
	if opts.PerRunNetworks {
		return ErrUnsupportedConfiguration
	}
	if run.Abundances == nil || run.Network == nil {
		return fmt.Errorf("archive: run %s has no abundances or network", run.ID)
	}
	log := a.cfg.log.WithFields(logrus.Fields{"archive": a.path, "run": run.ID})

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var n int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, run.ID).Scan(&n); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}

	if err = checkSchema(ctx, tx, run); err != nil {
		return err
	}
	if err = checkNetwork(ctx, tx, run); err != nil {
		return err
	}
	l, err := loadOrCreateLookup(ctx, tx, run.Network)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO runs(run_id, source, rows, created) VALUES(?,?,?,?)`,
		run.ID, run.Source, run.Abundances.Len(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	species, err := lookup.EncodeSpecies(run.Network.SpeciesTable, l)
	if err != nil {
		return fmt.Errorf("archive: run %s: %w", run.ID, err)
	}
	reactions, err := lookup.EncodeReactions(run.Network.ReactionTable, l)
	if err != nil {
		return fmt.Errorf("archive: run %s: %w", run.ID, err)
	}
	datasets := map[string]*uclchemtools.Table{
		abundancesPath(run.ID): run.Abundances.Float32(uclchemtools.TimeColumn),
		speciesPath(run.ID):    species,
		reactionsPath(run.ID):  reactions,
	}
	if run.Derivatives != nil {
		datasets[derivativesPath(run.ID)] = run.Derivatives.Float32(uclchemtools.TimeColumn)
	}
	for s, t := range run.Rates {
		datasets[ratesPath(run.ID, TotalRates, s)] = t.Summary
		datasets[ratesPath(run.ID, Production, s)] = t.Production
		datasets[ratesPath(run.ID, Destruction, s)] = t.Destruction
	}
	paths := make([]string, 0, len(datasets))
	for p := range datasets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err = ctx.Err(); err != nil {
			return err
		}
		var payload []byte
		if payload, err = encodeTable(datasets[p]); err != nil {
			return fmt.Errorf("archive: encoding %s: %w", p, err)
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO datasets(path, run_id, payload) VALUES(?,?,?)`, p, run.ID, payload); err != nil {
			return fmt.Errorf("archive: writing %s: %w", p, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("archive: committing run %s: %w", run.ID, err)
	}
	log.WithField("datasets", len(paths)).Info("stored run")
	return nil
}

func getMeta(ctx context.Context, q queryer, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("archive: reading %s: %w", key, err)
	}
	return v, true, nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("archive: writing %s: %w", key, err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func checkSchema(ctx context.Context, tx *sql.Tx, run *Run) error {
	have := run.Abundances.Names()
	v, ok, err := getMeta(ctx, tx, metaSchema)
	if err != nil {
		return err
	}
	if !ok {
		b, err := json.Marshal(have)
		if err != nil {
			return err
		}
		if err := setMeta(ctx, tx, metaSchema, string(b)); err != nil {
			return err
		}
		return setMeta(ctx, tx, metaVersion, uclchemtools.Version)
	}
	var want []string
	if err := json.Unmarshal([]byte(v), &want); err != nil {
		return fmt.Errorf("archive: reading abundance schema: %w", err)
	}
	if len(want) != len(have) {
		return &SchemaMismatchError{RunID: run.ID, Want: want, Have: have}
	}
	for i := range want {
		if want[i] != have[i] {
			return &SchemaMismatchError{RunID: run.ID, Want: want, Have: have}
		}
	}
	return nil
}

func checkNetwork(ctx context.Context, tx *sql.Tx, run *Run) error {
	fp := NetworkFingerprint(run.Network)
	v, ok, err := getMeta(ctx, tx, metaNetwork)
	if err != nil {
		return err
	}
	if !ok {
		return setMeta(ctx, tx, metaNetwork, fp)
	}
	if v != fp {
		return fmt.Errorf("%w: run %s has a different network", ErrUnsupportedConfiguration, run.ID)
	}
	return nil
}

func readLookup(ctx context.Context, q queryer) (*lookup.Lookup, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, idx FROM index_species_lookup`)
	if err != nil {
		return nil, fmt.Errorf("archive: reading lookup: %w", err)
	}
	defer rows.Close()
	pairs := make(map[string]int32)
	for rows.Next() {
		var name string
		var idx int32
		if err := rows.Scan(&name, &idx); err != nil {
			return nil, fmt.Errorf("archive: reading lookup: %w", err)
		}
		pairs[name] = idx
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	return lookup.FromPairs(pairs)
}

// loadOrCreateLookup returns the lookup stored in the archive, creating
// it from n if the archive does not have one yet.
func loadOrCreateLookup(ctx context.Context, tx *sql.Tx, n *uclchemtools.Network) (*lookup.Lookup, error) {
	l, err := readLookup(ctx, tx)
	if err != nil || l != nil {
		return l, err
	}
	l = lookup.Build(n.Species, n.TypeTags())
	for i, name := range l.Names() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO index_species_lookup(name, idx) VALUES(?,?)`, name, i); err != nil {
			return nil, fmt.Errorf("archive: writing lookup: %w", err)
		}
	}
	return l, nil
}

// Lookup returns the species lookup of the archive, or nil if no run has
// been stored yet.
func (a *Archive) Lookup(ctx context.Context) (*lookup.Lookup, error) {
	return readLookup(ctx, a.db)
}

// Schema returns the abundance columns of the archive, or nil if no run
// has been stored yet.
func (a *Archive) Schema(ctx context.Context) ([]string, error) {
	v, ok, err := getMeta(ctx, a.db, metaSchema)
	if err != nil || !ok {
		return nil, err
	}
	var s []string
	if err := json.Unmarshal([]byte(v), &s); err != nil {
		return nil, fmt.Errorf("archive: reading abundance schema: %w", err)
	}
	return s, nil
}
